package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cxxbind/internal/diag"
)

func TestGraphAdd(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add(&Item{ID: "geo::Point", Name: "geo::Point", Kind: KindStruct}))
	require.NoError(t, g.Add(&Item{ID: "geo::add(int, int)", Name: "geo::add", Kind: KindFunction}))
	require.NoError(t, g.Add(&Item{ID: "geo::add(double, double)", Name: "geo::add", Kind: KindFunction}))

	assert.Error(t, g.Add(&Item{ID: "geo::Point", Name: "geo::Point", Kind: KindStruct}))
	assert.Error(t, g.Add(&Item{Name: "anonymous"}))

	assert.Equal(t, 3, g.Len())
	assert.Len(t, g.Lookup("geo::add"), 2)
	assert.Empty(t, g.Lookup("geo::sub"))
	assert.Equal(t, "geo::Point", g.TypeItem("geo::Point").ID)
	assert.Nil(t, g.TypeItem("geo::add"))

	var ids []string
	for _, it := range g.Items() {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"geo::Point", "geo::add(double, double)", "geo::add(int, int)"}, ids)

	ids = ids[:0]
	for _, it := range g.Ordered() {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"geo::Point", "geo::add(int, int)", "geo::add(double, double)"}, ids)
}

func TestGraphMethods(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add(&Item{ID: "Buffer", Name: "Buffer", Kind: KindStruct}))
	require.NoError(t, g.Add(&Item{ID: "Buffer::size() const", Name: "Buffer::size", Kind: KindMethod, Receiver: "Buffer"}))
	require.NoError(t, g.Add(&Item{ID: "Buffer::clear()", Name: "Buffer::clear", Kind: KindMethod, Receiver: "Buffer"}))

	methods := g.Methods("Buffer")
	require.Len(t, methods, 2)
	assert.Equal(t, "Buffer::size() const", methods[0].ID)
	assert.Equal(t, "Buffer::clear()", methods[1].ID)
	assert.Empty(t, g.Methods("Other"))
}

func TestGraphExcludeFirstWins(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add(&Item{ID: "A", Name: "A", Kind: KindStruct}))
	require.NoError(t, g.Add(&Item{ID: "B", Name: "B", Kind: KindStruct}))

	assert.True(t, g.Exclude("A", Exclusion{Reason: diag.UnsupportedType, Message: "first"}))
	assert.False(t, g.Exclude("A", Exclusion{Reason: diag.BlockedDependency, Message: "second"}))
	assert.False(t, g.Exclude("missing", Exclusion{Reason: diag.UnsupportedType}))

	a := g.Item("A")
	assert.False(t, a.Accepted())
	assert.Equal(t, diag.UnsupportedType, a.Excluded.Reason)
	assert.Equal(t, "first", a.Excluded.Message)

	accepted := g.Accepted()
	require.Len(t, accepted, 1)
	assert.Equal(t, "B", accepted[0].ID)
}

func TestGraphHeaders(t *testing.T) {
	g := NewGraph()
	g.AddHeader("geo/point.h")
	g.AddHeader("")
	g.AddHeader("geo/shape.h")
	g.AddHeader("geo/point.h")
	assert.Equal(t, []string{"geo/point.h", "geo/shape.h"}, g.Headers)
}
