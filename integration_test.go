package cxxbind

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cxxbind/internal/diag"
)

// newIntegrationEngine creates an Engine backed by a temp DB.
func newIntegrationEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "integration.db")
	return newTestEngine(t, append([]Option{WithStore(dbPath)}, opts...)...)
}

// shapesInput spans three headers: points, shapes built from points, and a
// blocked secret with one function depending on it.
func shapesInput() *Input {
	relocatable := &RawTraits{CopyConstructible: true, MoveConstructible: true, TriviallyRelocatable: true}
	return &Input{
		Headers: []string{"geo/point.h", "geo/shape.h", "geo/secret.h"},
		Entities: []RawEntity{
			{
				Name: "geo::Point", Kind: "struct", Header: "geo/point.h",
				Fields: []RawField{{Name: "x", Type: "double"}, {Name: "y", Type: "double"}},
				Traits: relocatable,
			},
			{
				Name: "geo::norm", Kind: "function", Header: "geo/point.h",
				Params: []RawParam{{Name: "p", Type: "const Point &"}},
				Return: "double",
			},
			{
				Name: "geo::Shape", Kind: "struct", Header: "geo/shape.h",
				Traits: &RawTraits{CopyConstructible: true, MoveConstructible: true, Abstract: true},
			},
			{Name: "area", Kind: "method", Class: "geo::Shape", Header: "geo/shape.h", Return: "double", Const: true, PureVirtual: true},
			{
				Name: "geo::Circle", Kind: "struct", Header: "geo/shape.h",
				Bases:  []string{"Shape"},
				Fields: []RawField{{Name: "center", Type: "Point"}, {Name: "r", Type: "double"}},
				Traits: &RawTraits{CopyConstructible: true, MoveConstructible: true},
			},
			{Name: "area", Kind: "method", Class: "geo::Circle", Header: "geo/shape.h", Return: "double", Const: true, Virtual: true},
			{
				Name: "geo::Secret", Kind: "struct", Header: "geo/secret.h",
				Fields: []RawField{{Name: "key", Type: "int"}},
				Traits: relocatable,
			},
			{
				Name: "geo::leak", Kind: "function", Header: "geo/secret.h",
				Params: []RawParam{{Name: "s", Type: "const Secret &"}},
				Return: "int",
			},
		},
	}
}

func shapesDirectives() *Directives {
	return &Directives{GenerateNS: []string{"geo"}, Block: []string{"geo::Secret"}}
}

func generateShapes(t *testing.T, e *Engine) *Result {
	t.Helper()
	res, err := e.Generate(context.Background(), shapesInput(), shapesDirectives())
	require.NoError(t, err)
	return res
}

func TestIntegration_RecordsRun(t *testing.T) {
	e := newIntegrationEngine(t, WithModuleName("geo"))
	res := generateShapes(t, e)

	q := e.Query()
	require.NotNil(t, q)

	run, err := q.LatestRun()
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "geo", run.Module)
	assert.Equal(t, res.Output.Digest, run.Digest)
	assert.Equal(t, res.Stats.Accepted, run.Accepted)
	assert.Equal(t, res.Stats.Excluded, run.Excluded)
	assert.Equal(t, len(res.Output.Shims), run.Shims)
}

func TestIntegration_RerunReplaces(t *testing.T) {
	e := newIntegrationEngine(t)
	generateShapes(t, e)
	first, err := e.Query().Items(ItemFilter{}, Sort{}, Pagination{})
	require.NoError(t, err)

	generateShapes(t, e)
	second, err := e.Query().Items(ItemFilter{}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, first.TotalCount, second.TotalCount)
}

func TestIntegration_TypeClasses(t *testing.T) {
	e := newIntegrationEngine(t)
	generateShapes(t, e)

	trivial, err := e.Query().TypeClasses("trivial-value")
	require.NoError(t, err)
	var keys []string
	for _, tc := range trivial {
		keys = append(keys, tc.TypeKey)
	}
	assert.Contains(t, keys, "geo::Point")
	assert.NotContains(t, keys, "geo::Circle")

	refOnly, err := e.Query().TypeClasses("reference-only")
	require.NoError(t, err)
	keys = keys[:0]
	for _, tc := range refOnly {
		keys = append(keys, tc.TypeKey)
	}
	assert.Contains(t, keys, "geo::Shape")
}

func TestIntegration_Diagnostics(t *testing.T) {
	e := newIntegrationEngine(t)
	generateShapes(t, e)

	diags, err := e.Query().Diagnostics(diag.BlockedDependency)
	require.NoError(t, err)
	var names []string
	for _, d := range diags {
		names = append(names, d.QualifiedName)
	}
	assert.ElementsMatch(t, []string{"geo::Secret", "geo::leak"}, names)

	_, err = e.Query().Diagnostics("no_such_reason")
	assert.Error(t, err)
}

func TestIntegration_Dependencies(t *testing.T) {
	e := newIntegrationEngine(t)
	generateShapes(t, e)
	q := e.Query()

	g, err := q.Dependencies("geo::Circle", 5)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "geo::Circle", g.Root)
	assert.Equal(t, "geo::Circle", g.Nodes[0].Item.Key)
	var keys []string
	for _, n := range g.Nodes {
		keys = append(keys, n.Item.Key)
	}
	assert.Contains(t, keys, "geo::Point")
	assert.Contains(t, keys, "geo::Shape")
	assert.Contains(t, g.Edges, GraphEdge{From: "geo::Circle", To: "geo::Point"})

	rev, err := q.Dependents("geo::Point", 1)
	require.NoError(t, err)
	require.NotNil(t, rev)
	keys = keys[:0]
	for _, n := range rev.Nodes {
		keys = append(keys, n.Item.Key)
	}
	assert.Contains(t, keys, "geo::Circle")
	assert.Contains(t, keys, "geo::norm(const geo::Point &)")

	missing, err := q.Dependencies("geo::Nope", 3)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = q.Dependencies("geo::Circle", -1)
	assert.Error(t, err)
}

func TestIntegration_ItemDetail(t *testing.T) {
	e := newIntegrationEngine(t)
	generateShapes(t, e)
	q := e.Query()

	leak, err := q.ItemDetail("geo::leak(const geo::Secret &)")
	require.NoError(t, err)
	require.NotNil(t, leak)
	assert.False(t, leak.Item.Accepted)
	assert.Equal(t, string(diag.BlockedDependency), leak.Item.Reason)
	require.NotNil(t, leak.Diagnostic)
	assert.Equal(t, diag.BlockedDependency, leak.Diagnostic.Reason)
	require.Len(t, leak.DependsOn, 1)
	assert.Equal(t, "geo::Secret", leak.DependsOn[0].Key)

	point, err := q.ItemDetail("geo::Point")
	require.NoError(t, err)
	require.NotNil(t, point)
	assert.True(t, point.Item.Accepted)
	assert.Nil(t, point.Diagnostic)
	require.NotEmpty(t, point.TypeClasses)
	assert.Equal(t, "trivial-value", point.TypeClasses[0].Class)
	assert.Empty(t, point.Shims)

	circle, err := q.ItemDetail("geo::Circle")
	require.NoError(t, err)
	require.NotNil(t, circle)
	var shims []string
	for _, sh := range circle.Shims {
		shims = append(shims, sh.Name)
	}
	assert.Contains(t, shims, "geo_Circle_drop")

	none, err := q.ItemDetail("geo::Nope")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestIntegration_TypeHierarchy(t *testing.T) {
	e := newIntegrationEngine(t)
	generateShapes(t, e)
	q := e.Query()

	h, err := q.TypeHierarchy("geo::Circle")
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Len(t, h.Bases, 1)
	assert.Equal(t, "geo::Shape", h.Bases[0].Item.Key)
	assert.Equal(t, 0, h.Bases[0].Ordinal)
	require.Len(t, h.Ancestors, 1)
	assert.Empty(t, h.Derived)

	base, err := q.TypeHierarchy("geo::Shape")
	require.NoError(t, err)
	require.NotNil(t, base)
	assert.Empty(t, base.Bases)
	require.Len(t, base.Derived, 1)
	assert.Equal(t, "geo::Circle", base.Derived[0].Key)
}

func TestIntegration_SearchAndSummary(t *testing.T) {
	e := newIntegrationEngine(t)
	generateShapes(t, e)
	q := e.Query()

	structs, err := q.SearchItems("geo::*", ItemFilter{Kinds: []string{"struct"}}, Sort{Field: SortByName}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 4, structs.TotalCount)
	var names []string
	for _, it := range structs.Items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"geo::Circle", "geo::Point", "geo::Secret", "geo::Shape"}, names)

	excluded := false
	rejected, err := q.Items(ItemFilter{Accepted: &excluded}, Sort{}, Pagination{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, rejected.TotalCount)
	assert.Len(t, rejected.Items, 1)

	prefix := "geo/point"
	byHeader, err := q.Items(ItemFilter{HeaderPrefix: &prefix}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 2, byHeader.TotalCount)

	sum, err := q.Summary()
	require.NoError(t, err)
	require.NotNil(t, sum.Run)
	assert.Equal(t, 4, sum.KindCounts["struct"])
	assert.Equal(t, 2, sum.ReasonCounts[string(diag.BlockedDependency)])
	assert.Positive(t, sum.ClassCounts["trivial-value"])
}

func TestIntegration_HeaderGraph(t *testing.T) {
	e := newIntegrationEngine(t)
	generateShapes(t, e)
	q := e.Query()

	g, err := q.HeaderDependencyGraph()
	require.NoError(t, err)
	var headers []string
	for _, h := range g.Headers {
		headers = append(headers, h.Name)
	}
	assert.Equal(t, []string{"geo/point.h", "geo/secret.h", "geo/shape.h"}, headers)

	var shapeToPoint bool
	for _, edge := range g.Edges {
		assert.NotEqual(t, edge.From, edge.To)
		if edge.From == "geo/shape.h" && edge.To == "geo/point.h" {
			shapeToPoint = true
		}
	}
	assert.True(t, shapeToPoint)

	cycles, err := q.HeaderCycles()
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestIntegration_ParseHeaders(t *testing.T) {
	dir := t.TempDir()
	inc := filepath.Join(dir, "include")
	require.NoError(t, os.MkdirAll(filepath.Join(inc, "geo"), 0o755))
	path := filepath.Join(inc, "geo", "point.h")
	require.NoError(t, os.WriteFile(path, []byte(`#pragma once
namespace geo {
struct Point {
    double x;
    double y;
};
double norm(const Point &p);
}
`), 0o644))

	e := newIntegrationEngine(t, WithModuleName("geo"))
	ctx := context.Background()
	in, err := e.ParseHeaders(ctx, inc, []string{path})
	require.NoError(t, err)

	var names []string
	for _, ent := range in.Entities {
		names = append(names, ent.Name)
	}
	assert.Contains(t, names, "geo::Point")
	assert.Contains(t, names, "geo::norm")

	res, err := e.Generate(ctx, in, &Directives{GenerateNS: []string{"geo"}})
	require.NoError(t, err)
	assert.Contains(t, string(res.Output.Bridge), `include "geo/point.h"`)
	assert.Contains(t, string(res.Output.Bridge), `fn geo_norm(p: ref geo_Point) -> value double cxx="geo::norm"`)
}

func TestIntegration_PrivateStringMemberIsNotTrivial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cpp.h")
	require.NoError(t, os.WriteFile(path, []byte(`#pragma once
#include <iostream>

class MessageBuffer {
public:
  void add_blurb(std::string blurb) {
    message += blurb;
  }
  std::string get() const {
    return message;
  }
private:
  std::string message;
};
`), 0o644))

	e := newIntegrationEngine(t)
	ctx := context.Background()
	in, err := e.ParseHeaders(ctx, dir, []string{path})
	require.NoError(t, err)

	res, err := e.Generate(ctx, in, &Directives{Generate: []string{"MessageBuffer"}})
	require.NoError(t, err)
	bridge := string(res.Output.Bridge)
	assert.Contains(t, bridge, `type MessageBuffer non-trivial-by-value cxx="MessageBuffer"`)
	assert.Contains(t, bridge, "\tspecial drop MessageBuffer_drop(self: mut_ptr MessageBuffer) shim=MessageBuffer_drop")
	assert.NotContains(t, bridge, "field message")
}
