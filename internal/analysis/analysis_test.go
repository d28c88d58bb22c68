package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/directives"
	"github.com/jward/cxxbind/internal/frontend"
	"github.com/jward/cxxbind/internal/ir"
	"github.com/jward/cxxbind/internal/typedb"
)

var (
	relocatable = &frontend.RawTraits{CopyConstructible: true, MoveConstructible: true, TriviallyRelocatable: true}
	owning      = &frontend.RawTraits{CopyConstructible: true, MoveConstructible: true, UserDestructor: true}
)

func analyse(t *testing.T, ents []frontend.RawEntity, d *directives.Directives, opts Options) (*Result, error) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	g, err := frontend.Adapt(&frontend.Input{Entities: ents}, d, logger)
	require.NoError(t, err)
	opts.Logger = logger
	return Run(context.Background(), g, d, opts)
}

func mustAnalyse(t *testing.T, ents []frontend.RawEntity, d *directives.Directives) *Result {
	t.Helper()
	r, err := analyse(t, ents, d, Options{})
	require.NoError(t, err)
	return r
}

func class(t *testing.T, r *Result, key string) typedb.Class {
	t.Helper()
	e, ok := r.DB.Lookup(key)
	require.True(t, ok, key)
	return e.Class
}

func only(t *testing.T, r *Result, name string) *ir.Item {
	t.Helper()
	items := r.Graph.Lookup(name)
	require.Len(t, items, 1, name)
	return items[0]
}

func TestMangle(t *testing.T) {
	tests := map[string]string{
		"geo::Point":        "geo_Point",
		"Box<int>":          "Box_int",
		"Pair<int, double>": "Pair_int_double",
		"Box<char *>":       "Box_char_ptr",
		"a::b::c":           "a_b_c",
	}
	for in, want := range tests {
		assert.Equal(t, want, Mangle(in), in)
	}
}

func recordScenario() []frontend.RawEntity {
	return []frontend.RawEntity{
		{Name: "Point", Kind: frontend.EntityStruct, Traits: relocatable,
			Fields: []frontend.RawField{{Name: "x", Type: "double"}, {Name: "y", Type: "double"}}},
		{Name: "Buffer", Kind: frontend.EntityClass, Traits: owning},
		{Name: "Derived", Kind: frontend.EntityStruct, Traits: relocatable, Bases: []string{"Point"}},
		{Name: "Wrapper", Kind: frontend.EntityStruct, Traits: relocatable, Bases: []string{"Buffer"}},
		{Name: "Handle", Kind: frontend.EntityStruct, Incomplete: true},
		{Name: "open", Kind: frontend.EntityFunction, Return: "Handle"},
		{Name: "use", Kind: frontend.EntityFunction, Params: []frontend.RawParam{{Name: "h", Type: "Handle *"}}},
		{Name: "Shape", Kind: frontend.EntityClass, Traits: &frontend.RawTraits{Abstract: true}},
		{Name: "area", Kind: frontend.EntityMethod, Class: "Shape", Return: "double", Const: true, Virtual: true, PureVirtual: true},
	}
}

func TestClassifyRecords(t *testing.T) {
	r := mustAnalyse(t, recordScenario(), &directives.Directives{
		Generate: []string{"Point", "Buffer", "Derived", "Wrapper", "Handle", "open", "use", "Shape"},
	})

	assert.Equal(t, typedb.Trivial, class(t, r, "Point"))
	assert.Equal(t, typedb.NonTrivial, class(t, r, "Buffer"))
	assert.Equal(t, typedb.Trivial, class(t, r, "Derived"))
	assert.Equal(t, typedb.NonTrivial, class(t, r, "Wrapper"))
	assert.Equal(t, typedb.ReferenceOnly, class(t, r, "Handle"))
	assert.Equal(t, typedb.ReferenceOnly, class(t, r, "Shape"))

	open := only(t, r, "open")
	require.NotNil(t, open.Excluded)
	assert.Equal(t, diag.IncompleteDefinition, open.Excluded.Reason)
	assert.True(t, only(t, r, "use").Accepted())
	assert.True(t, only(t, r, "Shape::area").Accepted())

	// Value members come before their containers.
	assert.Less(t, indexOf(r.TypeOrder, "Point"), indexOf(r.TypeOrder, "Derived"))
	assert.Less(t, indexOf(r.TypeOrder, "Buffer"), indexOf(r.TypeOrder, "Wrapper"))
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestClassifyValueCycleIsFatal(t *testing.T) {
	ents := []frontend.RawEntity{
		{Name: "A", Kind: frontend.EntityStruct, Traits: relocatable, Fields: []frontend.RawField{{Name: "b", Type: "B"}}},
		{Name: "B", Kind: frontend.EntityStruct, Traits: relocatable, Fields: []frontend.RawField{{Name: "a", Type: "A"}}},
		{Name: "C", Kind: frontend.EntityStruct, Traits: relocatable, Fields: []frontend.RawField{{Name: "a", Type: "A"}}},
	}
	_, err := analyse(t, ents, &directives.Directives{Generate: []string{"C"}}, Options{})
	var fatal *FatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, "classify", fatal.Pass)
	assert.Equal(t, []string{"A", "B"}, fatal.Members)
}

func TestPointerCycleIsNotFatal(t *testing.T) {
	ents := []frontend.RawEntity{
		{Name: "Node", Kind: frontend.EntityStruct, Traits: relocatable,
			Fields: []frontend.RawField{{Name: "next", Type: "Node *"}, {Name: "v", Type: "int"}}},
	}
	r := mustAnalyse(t, ents, &directives.Directives{Generate: []string{"Node"}})
	assert.Equal(t, typedb.Trivial, class(t, r, "Node"))
}

func TestSelfValueMemberIsFatal(t *testing.T) {
	ents := []frontend.RawEntity{
		{Name: "Node", Kind: frontend.EntityStruct, Traits: relocatable,
			Fields: []frontend.RawField{{Name: "x", Type: "int"}, {Name: "next", Type: "Node"}}},
	}
	_, err := analyse(t, ents, &directives.Directives{Generate: []string{"Node"}}, Options{})
	var fatal *FatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, "classify", fatal.Pass)
	assert.Equal(t, []string{"Node"}, fatal.Members)
}

func TestPrivateFieldsDecideClass(t *testing.T) {
	ents := []frontend.RawEntity{
		{Name: "MessageBuffer", Kind: frontend.EntityClass, Traits: relocatable,
			Fields: []frontend.RawField{{Name: "message", Type: "std::string", Private: true}}},
		{Name: "Counter", Kind: frontend.EntityStruct, Traits: relocatable,
			Fields: []frontend.RawField{{Name: "n", Type: "int"}, {Name: "secret_", Type: "int", Private: true}}},
		{Name: "Registry", Kind: frontend.EntityClass, Traits: relocatable,
			Fields: []frontend.RawField{{Name: "table", Type: "std::map<int, int>", Private: true}}},
	}
	r := mustAnalyse(t, ents, &directives.Directives{Generate: []string{"MessageBuffer", "Counter", "Registry"}})

	assert.Equal(t, typedb.NonTrivial, class(t, r, "MessageBuffer"))
	e, _ := r.DB.Lookup("MessageBuffer")
	assert.Equal(t, "private field message is not trivially relocatable", e.Reason)
	assert.Equal(t, typedb.Trivial, class(t, r, "Counter"))
	// A private member the bridge cannot represent still leaves the record
	// usable by value through its own special members.
	assert.Equal(t, typedb.NonTrivial, class(t, r, "Registry"))
	assert.True(t, only(t, r, "Registry").Accepted())
}

func TestTypeOrderFollowsIndirections(t *testing.T) {
	ents := []frontend.RawEntity{
		{Name: "A", Kind: frontend.EntityStruct, Traits: relocatable, Fields: []frontend.RawField{{Name: "b", Type: "B *"}}},
		{Name: "B", Kind: frontend.EntityStruct, Traits: relocatable, Fields: []frontend.RawField{{Name: "x", Type: "int"}}},
		{Name: "Y", Kind: frontend.EntityStruct, Traits: relocatable, Fields: []frontend.RawField{{Name: "x", Type: "X &"}}},
		{Name: "X", Kind: frontend.EntityStruct, Traits: relocatable, Fields: []frontend.RawField{{Name: "y", Type: "Y *"}}},
		{Name: "Z", Kind: frontend.EntityStruct, Traits: relocatable, Fields: []frontend.RawField{{Name: "y", Type: "Y *"}}},
	}
	r := mustAnalyse(t, ents, &directives.Directives{Generate: []string{"A", "B", "X", "Y", "Z"}})

	assert.Less(t, indexOf(r.TypeOrder, "B"), indexOf(r.TypeOrder, "A"))
	// The X/Y cycle is broken at X; Z follows both.
	assert.Equal(t, []string{"B", "A", "X", "Y", "Z"}, r.TypeOrder)
}

func TestGeneratePODRequiresTrivial(t *testing.T) {
	r := mustAnalyse(t, recordScenario(), &directives.Directives{GeneratePOD: []string{"Point", "Buffer"}})
	assert.True(t, only(t, r, "Point").Accepted())
	buf := only(t, r, "Buffer")
	require.NotNil(t, buf.Excluded)
	assert.Equal(t, diag.UnsupportedType, buf.Excluded.Reason)
	assert.Contains(t, buf.Excluded.Message, "generate_pod")
}

func TestBlockedExclusionPropagates(t *testing.T) {
	ents := []frontend.RawEntity{
		{Name: "Secret", Kind: frontend.EntityStruct, Traits: relocatable},
		{Name: "Box", Kind: frontend.EntityStruct, Traits: relocatable, Fields: []frontend.RawField{{Name: "s", Type: "Secret"}}},
		{Name: "leak", Kind: frontend.EntityFunction, Params: []frontend.RawParam{{Name: "b", Type: "const Box &"}}},
		{Name: "keep", Kind: frontend.EntityFunction, Return: "int"},
	}
	r := mustAnalyse(t, ents, &directives.Directives{Generate: []string{"leak", "keep"}, Block: []string{"Secret"}})

	box := only(t, r, "Box")
	require.NotNil(t, box.Excluded)
	assert.Equal(t, diag.BlockedDependency, box.Excluded.Reason)
	assert.Equal(t, "Secret", box.Excluded.Cause)

	leak := only(t, r, "leak")
	require.NotNil(t, leak.Excluded)
	assert.Equal(t, diag.BlockedDependency, leak.Excluded.Reason)
	assert.Equal(t, "depends on blocked struct Secret", leak.Excluded.Message)

	assert.True(t, only(t, r, "keep").Accepted())

	var names []string
	for _, d := range r.Diagnostics() {
		names = append(names, d.QualifiedName)
	}
	assert.ElementsMatch(t, []string{"Secret", "Box", "leak"}, names)
}

func TestExcludeIsMonotonic(t *testing.T) {
	r := mustAnalyse(t, recordScenario(), &directives.Directives{Generate: []string{"Point", "use"}})
	id := only(t, r, "use").ID
	assert.True(t, r.Exclude(id, diag.ShimGenerationFailed, "render failed"))
	assert.False(t, r.Exclude(id, diag.UnsupportedType, "again"))
	assert.Equal(t, diag.ShimGenerationFailed, r.Graph.Item(id).Excluded.Reason)

	// Excluding a type takes its users with it.
	assert.True(t, r.Exclude("Handle", diag.UnsupportedType, "gone"))
	assert.Equal(t, diag.ShimGenerationFailed, r.Graph.Item(id).Excluded.Reason)
}

func TestOverloadNames(t *testing.T) {
	ents := []frontend.RawEntity{
		{Name: "m::add", Kind: frontend.EntityFunction, Params: []frontend.RawParam{{Type: "int"}, {Type: "int"}}, Return: "int"},
		{Name: "m::add", Kind: frontend.EntityFunction, Params: []frontend.RawParam{{Type: "double"}, {Type: "double"}}, Return: "double"},
		{Name: "m::norm", Kind: frontend.EntityFunction, Return: "double"},
		{Name: "m::Buf", Kind: frontend.EntityClass, Traits: relocatable},
		{Name: "at", Kind: frontend.EntityMethod, Class: "m::Buf", Params: []frontend.RawParam{{Name: "i", Type: "int"}}, Return: "int &"},
		{Name: "at", Kind: frontend.EntityMethod, Class: "m::Buf", Params: []frontend.RawParam{{Name: "i", Type: "int"}}, Return: "const int &", Const: true},
	}
	r := mustAnalyse(t, ents, &directives.Directives{GenerateNS: []string{"m"}})

	assert.Equal(t, "m_add_int_int", r.Graph.Item("m::add(int, int)").BridgeName)
	assert.Equal(t, "m_add_double_double", r.Graph.Item("m::add(double, double)").BridgeName)
	assert.Equal(t, "m_norm", r.Graph.Item("m::norm()").BridgeName)
	assert.Equal(t, "m_Buf_at_int", r.Graph.Item("m::Buf::at(int)").BridgeName)
	assert.Equal(t, "m_Buf_at_int_const", r.Graph.Item("m::Buf::at(int) const").BridgeName)

	renames := r.Renames()
	require.Len(t, renames, 5)
	for _, rn := range renames {
		assert.Equal(t, rn.Generated, r.Graph.Item(rn.Signature).BridgeName)
	}
}

func TestOperatorShims(t *testing.T) {
	ents := []frontend.RawEntity{
		{Name: "geo::Vec", Kind: frontend.EntityStruct, Traits: relocatable},
		{Name: "geo::operator+", Kind: frontend.EntityFunction,
			Params: []frontend.RawParam{{Name: "a", Type: "const Vec &"}, {Name: "b", Type: "const Vec &"}}, Return: "Vec"},
		{Name: "geo::operator-", Kind: frontend.EntityFunction,
			Params: []frontend.RawParam{{Name: "a", Type: "const Vec &"}}, Return: "Vec"},
		{Name: "geo::operator&&", Kind: frontend.EntityFunction,
			Params: []frontend.RawParam{{Name: "a", Type: "const Vec &"}, {Name: "b", Type: "const Vec &"}}, Return: "bool"},
	}
	r := mustAnalyse(t, ents, &directives.Directives{GenerateNS: []string{"geo"}})

	add := only(t, r, "geo::operator+")
	require.True(t, add.Accepted())
	assert.Equal(t, "geo_op_add", add.BridgeName)
	require.NotNil(t, add.Shim)
	assert.Equal(t, ir.ShimOperator, add.Shim.Kind)
	assert.Equal(t, "add", add.Shim.Operator)
	assert.True(t, add.Shim.NeedsShim)

	assert.Equal(t, "geo_op_neg", only(t, r, "geo::operator-").BridgeName)

	and := only(t, r, "geo::operator&&")
	require.NotNil(t, and.Excluded)
	assert.Equal(t, diag.ShimGenerationFailed, and.Excluded.Reason)
	assert.Contains(t, and.Excluded.Message, "has no named shim")
}

func TestShimPlans(t *testing.T) {
	ents := []frontend.RawEntity{
		{Name: "Buffer", Kind: frontend.EntityClass, Traits: owning},
		{Name: "fill", Kind: frontend.EntityFunction, Params: []frontend.RawParam{{Name: "b", Type: "Buffer"}}},
		{Name: "make", Kind: frontend.EntityFunction, Return: "Buffer"},
		{Name: "peek", Kind: frontend.EntityFunction, Params: []frontend.RawParam{{Name: "b", Type: "const Buffer *"}}, Return: "int"},
		{Name: "twice", Kind: frontend.EntityFunction, Params: []frontend.RawParam{{Name: "b", Type: "Buffer **"}}},
	}
	r := mustAnalyse(t, ents, &directives.Directives{Generate: []string{"fill", "make", "peek", "twice"}})

	fill := only(t, r, "fill").Shim
	require.NotNil(t, fill)
	assert.Equal(t, ir.ShimFunction, fill.Kind)
	assert.Equal(t, []int{0}, fill.MovedParams)
	assert.Equal(t, "void fill(Buffer *b)", fill.NativeSignature)

	mk := only(t, r, "make").Shim
	require.NotNil(t, mk)
	assert.True(t, mk.BoxedReturn)
	assert.Equal(t, "std::unique_ptr<Buffer> make()", mk.NativeSignature)

	peek := only(t, r, "peek").Shim
	require.NotNil(t, peek)
	assert.False(t, peek.NeedsShim)
	assert.True(t, peek.Unsafe)
	assert.Equal(t, "peek(b: ptr Buffer) -> value int", peek.BridgeSignature)

	twice := only(t, r, "twice")
	require.NotNil(t, twice.Excluded)
	assert.Equal(t, diag.ShimGenerationFailed, twice.Excluded.Reason)
}

func TestSpecialMembers(t *testing.T) {
	ents := append(recordScenario(),
		frontend.RawEntity{Name: "drop", Kind: frontend.EntityMethod, Class: "Buffer"})
	r := mustAnalyse(t, ents, &directives.Directives{Generate: []string{"Buffer", "Derived"}})

	var names []string
	for _, s := range only(t, r, "Buffer").Specials {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Buffer_drop", "Buffer_new", "Buffer_move", "Buffer_copy"}, names)

	// The user method mangling to a special name loses it.
	drop := r.Graph.Item("Buffer::drop()")
	require.NotNil(t, drop.Excluded)
	assert.Equal(t, diag.NameCollision, drop.Excluded.Reason)

	derived := only(t, r, "Derived")
	require.Len(t, derived.Specials, 1)
	assert.Equal(t, ir.SpecialUpcast, derived.Specials[0].Kind)
	assert.Equal(t, "Derived_as_Point", derived.Specials[0].Name)
}

func TestSubclassPlanning(t *testing.T) {
	r := mustAnalyse(t, recordScenario(), &directives.Directives{Subclass: []string{"Shape"}})
	sub := r.Graph.Item("Shape" + SubclassSuffix)
	require.NotNil(t, sub)
	require.True(t, sub.Accepted())
	require.NotNil(t, sub.Trampoline)
	assert.Equal(t, "Shape_trampoline", sub.Trampoline.Class)
	require.Len(t, sub.Trampoline.Ctors, 1)
	assert.Equal(t, "Shape_trampoline_new", sub.Trampoline.Ctors[0].Shim)
	assert.Empty(t, sub.Trampoline.Ctors[0].Params)
	require.Len(t, sub.Trampoline.Overrides, 1)
	assert.Equal(t, "Shape::area() const", sub.Trampoline.Overrides[0].Method)
	assert.Equal(t, "Shape_trampoline_area", sub.Trampoline.Overrides[0].Callback)
}

func TestSubclassWithoutVirtualsIsFatal(t *testing.T) {
	_, err := analyse(t, recordScenario(), &directives.Directives{Subclass: []string{"Point"}}, Options{})
	var fatal *FatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, "subclass", fatal.Pass)
}

func observerScenario() []frontend.RawEntity {
	copyable := &frontend.RawTraits{CopyConstructible: true, MoveConstructible: true}
	return []frontend.RawEntity{
		{Name: "Buffer", Kind: frontend.EntityClass, Traits: owning},
		{Name: "Obs", Kind: frontend.EntityClass, Traits: copyable},
		{Name: "Obs", Kind: frontend.EntityConstructor, Class: "Obs", Params: []frontend.RawParam{{Name: "n", Type: "int"}}},
		{Name: "Obs", Kind: frontend.EntityConstructor, Class: "Obs", Params: []frontend.RawParam{{Name: "tag", Type: "const char *"}}},
		{Name: "Obs", Kind: frontend.EntityConstructor, Class: "Obs", Params: []frontend.RawParam{{Name: "other", Type: "const Obs &"}}},
		{Name: "Obs", Kind: frontend.EntityConstructor, Class: "Obs", Params: []frontend.RawParam{{Name: "b", Type: "Buffer"}}},
		{Name: "on", Kind: frontend.EntityMethod, Class: "Obs", Params: []frontend.RawParam{{Name: "n", Type: "int"}}, Virtual: true},
		{Name: "Sink", Kind: frontend.EntityClass, Traits: copyable},
		{Name: "Sink", Kind: frontend.EntityConstructor, Class: "Sink", Params: []frontend.RawParam{{Name: "b", Type: "Buffer"}}},
		{Name: "put", Kind: frontend.EntityMethod, Class: "Sink", Params: []frontend.RawParam{{Name: "n", Type: "int"}}, Virtual: true},
	}
}

func TestSubclassForwardsBaseConstructors(t *testing.T) {
	r := mustAnalyse(t, observerScenario(), &directives.Directives{Subclass: []string{"Obs"}})
	sub := r.Graph.Item("Obs" + SubclassSuffix)
	require.NotNil(t, sub)
	require.True(t, sub.Accepted())

	// The copy constructor is not forwarded, nor is the one taking a
	// non-trivial value.
	var shims []string
	for _, c := range sub.Trampoline.Ctors {
		shims = append(shims, c.Shim)
	}
	assert.Equal(t, []string{"Obs_trampoline_new_int", "Obs_trampoline_new_char_cptr"}, shims)
	assert.Equal(t, "n", sub.Trampoline.Ctors[0].Params[0].Name)
}

func TestSubclassWithoutForwardableConstructor(t *testing.T) {
	r := mustAnalyse(t, observerScenario(), &directives.Directives{Subclass: []string{"Sink"}})
	sub := r.Graph.Item("Sink" + SubclassSuffix)
	require.NotNil(t, sub)
	require.NotNil(t, sub.Excluded)
	assert.Equal(t, diag.ShimGenerationFailed, sub.Excluded.Reason)
	assert.Equal(t, "no public constructor of Sink can be forwarded", sub.Excluded.Message)
	assert.True(t, only(t, r, "Sink::put").Accepted())
}

func boxTemplate() []frontend.RawEntity {
	return []frontend.RawEntity{
		{Name: "Box", Kind: frontend.EntityTemplate, TemplateParams: []string{"T"}, Traits: relocatable,
			Fields: []frontend.RawField{{Name: "value", Type: "T"}}},
		{Name: "get", Kind: frontend.EntityMethod, Class: "Box", Return: "T", Const: true},
	}
}

func TestClosureInstantiates(t *testing.T) {
	r := mustAnalyse(t, boxTemplate(), &directives.Directives{Instantiate: []string{"Box<int>"}})

	inst := r.Graph.Item("Box<int>")
	require.NotNil(t, inst)
	assert.Equal(t, ir.KindInstantiation, inst.Kind)
	assert.Equal(t, "Box_int", inst.BridgeName)
	assert.Equal(t, typedb.Trivial, class(t, r, "Box<int>"))

	get := r.Graph.Item("Box<int>::get() const")
	require.NotNil(t, get)
	assert.True(t, get.Accepted())
	assert.Equal(t, "int", get.Return.Key())
	assert.Equal(t, "Box_int_get", get.BridgeName)
}

func TestClosureBlocksPatternMembers(t *testing.T) {
	for _, name := range []string{"Box::get", "Box<int>::get"} {
		r := mustAnalyse(t, boxTemplate(), &directives.Directives{Instantiate: []string{"Box<int>"}, Block: []string{name}})
		assert.True(t, r.Graph.Item("Box<int>").Accepted(), name)
		get := r.Graph.Item("Box<int>::get() const")
		require.NotNil(t, get, name)
		require.NotNil(t, get.Excluded, name)
		assert.Equal(t, diag.BlockedDependency, get.Excluded.Reason, name)
	}
}

func TestClosureLimits(t *testing.T) {
	t.Run("depth", func(t *testing.T) {
		r, err := analyse(t, boxTemplate(), &directives.Directives{Instantiate: []string{"Box<Box<Box<int>>>"}},
			Options{MaxTemplateDepth: 2})
		require.NoError(t, err)
		for _, key := range []string{"Box<int>", "Box<Box<int>>", "Box<Box<Box<int>>>"} {
			it := r.Graph.Item(key)
			require.NotNil(t, it, key)
			require.NotNil(t, it.Excluded, key)
			assert.Equal(t, diag.UnsupportedType, it.Excluded.Reason, key)
		}
		assert.Contains(t, r.Graph.Item("Box<int>").Excluded.Message, "nesting depth")
	})
	t.Run("count", func(t *testing.T) {
		r, err := analyse(t, boxTemplate(), &directives.Directives{Instantiate: []string{"Box<int>", "Box<double>"}},
			Options{MaxInstantiations: 1})
		require.NoError(t, err)
		assert.True(t, r.Graph.Item("Box<int>").Accepted())
		limited := r.Graph.Item("Box<double>")
		require.NotNil(t, limited.Excluded)
		assert.Contains(t, limited.Excluded.Message, "instantiation limit")
	})
}

func TestRunCancelled(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := Run(ctx, ir.NewGraph(), &directives.Directives{}, Options{Logger: logger})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, r)
}

func TestValueOrder(t *testing.T) {
	order, cyclic := valueOrder(
		[]string{"C", "B", "A", "X", "Y"},
		map[string][]string{"C": {"B"}, "B": {"A"}, "X": {"Y"}, "Y": {"X"}},
	)
	assert.Equal(t, []string{"A", "B", "C"}, order)
	assert.Equal(t, []string{"X", "Y"}, cyclic)

	_, cyclic = valueOrder([]string{"N"}, map[string][]string{"N": {"N"}})
	assert.Equal(t, []string{"N"}, cyclic)
}
