package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeSpelling(t *testing.T) {
	tests := []struct {
		in    string
		kind  TypeKind
		key   string
		spell string
	}{
		{"int", TypePrimitive, "int", "int"},
		{"unsigned long long", TypePrimitive, "unsigned long long", "unsigned long long"},
		{"long int", TypePrimitive, "long", "long"},
		{"short int", TypePrimitive, "short", "short"},
		{"unsigned", TypePrimitive, "unsigned int", "unsigned int"},
		{"signed char", TypePrimitive, "signed char", "signed char"},
		{"long double", TypePrimitive, "long double", "long double"},
		{"std::uint32_t", TypePrimitive, "uint32_t", "uint32_t"},
		{"const double", TypePrimitive, "double", "const double"},
		{"struct Point", TypeValue, "Point", "Point"},
		{"::geo::Point", TypeValue, "geo::Point", "geo::Point"},
		{"const std::string &", TypeReference, "const std::string &", "const std::string &"},
		{"char const *", TypePointer, "const char *", "const char *"},
		{"int * const", TypePointer, "int *", "int * const"},
		{"Widget &&", TypeRValueReference, "Widget &&", "Widget &&"},
		{"Container<int> *", TypePointer, "Container<int> *", "Container<int> *"},
		{"std::map<std::string, std::vector<int>>", TypeInstantiation,
			"std::map<std::string, std::vector<int>>", "std::map<std::string, std::vector<int>>"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ty, err := ParseType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ty.Kind)
			assert.Equal(t, tt.key, ty.Key())
			assert.Equal(t, tt.spell, ty.Spell())
		})
	}
}

func TestParseTypeOpaque(t *testing.T) {
	for _, in := range []string{"void (*)(int)", "int[4]", "Array<int, 3>", "Args..."} {
		ty, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, TypeOpaque, ty.Kind, in)
		assert.Equal(t, in, ty.Spell())
	}
}

func TestParseTypeErrors(t *testing.T) {
	for _, in := range []string{"", "   ", "const", "Foo<int", "Foo<int,"} {
		_, err := ParseType(in)
		assert.Error(t, err, "%q", in)
	}
}

func TestTypeNamedAndIndirect(t *testing.T) {
	ty := MustParseType("const Point * &")
	assert.True(t, ty.IsIndirect())
	named := ty.Named()
	assert.Equal(t, TypeValue, named.Kind)
	assert.Equal(t, "Point", named.Name)
	assert.True(t, named.Const)

	assert.True(t, MustParseType("void").IsVoid())
	assert.False(t, MustParseType("void *").IsVoid())
}

func TestTypeWalkOrder(t *testing.T) {
	var seen []string
	MustParseType("Map<K, V> *").Walk(func(n *Type) {
		seen = append(seen, n.Key())
	})
	assert.Equal(t, []string{"Map<K, V> *", "Map<K, V>", "K", "V"}, seen)
}

func TestTypeCloneIsDeep(t *testing.T) {
	orig := MustParseType("Box<Point> &")
	c := orig.Clone()
	c.Elem.Args[0].Name = "Other"
	assert.Equal(t, "Box<Point> &", orig.Key())
	assert.Equal(t, "Box<Other> &", c.Key())
}

func TestSubstitute(t *testing.T) {
	params := map[string]*Type{
		"T": MustParseType("int"),
		"U": MustParseType("std::string"),
	}
	assert.Equal(t, "const int &", Substitute(MustParseType("const T &"), params).Spell())
	assert.Equal(t, "Pair<int, std::string>", Substitute(MustParseType("Pair<T, U>"), params).Spell())
	assert.Equal(t, "Other *", Substitute(MustParseType("Other *"), params).Spell())
	assert.Nil(t, Substitute(nil, params))
}

func TestSignatureID(t *testing.T) {
	params := []Param{
		{Name: "p", Type: MustParseType("const geo::Point &")},
		{Name: "k", Type: MustParseType("double")},
	}
	assert.Equal(t, "geo::scale(const geo::Point &, double)", SignatureID("geo::scale", params, false))
	assert.Equal(t, "Circle::area() const", SignatureID("Circle::area", nil, true))
}

func TestScopeNames(t *testing.T) {
	assert.Equal(t, "area", ShortName("geo::Circle::area"))
	assert.Equal(t, "geo::Circle", ScopeOf("geo::Circle::area"))
	assert.Equal(t, "", ScopeOf("norm"))
	assert.Equal(t, "Box<ns::T>", ShortName("a::Box<ns::T>"))
	assert.Equal(t, "a", ScopeOf("a::Box<ns::T>"))
}
