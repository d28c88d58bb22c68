package cxxbind

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	logger, _ := test.NewNullLogger()
	e, err := New(append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func geoInput() *Input {
	return &Input{
		Headers: []string{"geo/point.h"},
		Entities: []RawEntity{
			{
				Name: "geo::Point", Kind: "struct", Header: "geo/point.h",
				Fields: []RawField{{Name: "x", Type: "double"}, {Name: "y", Type: "double"}},
				Traits: &RawTraits{CopyConstructible: true, MoveConstructible: true, TriviallyRelocatable: true},
			},
			{
				Name: "geo::norm", Kind: "function", Header: "geo/point.h",
				Params: []RawParam{{Name: "p", Type: "const Point &"}},
				Return: "double",
			},
			{
				Name: "geo::scale", Kind: "function", Header: "geo/point.h",
				Params: []RawParam{{Name: "p", Type: "Point *"}, {Name: "k", Type: "double"}},
			},
		},
	}
}

func TestNewWithoutStore(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	assert.Nil(t, e.Store())
	assert.Nil(t, e.Query())
	assert.NoError(t, e.Close())
}

func TestNewBadStorePath(t *testing.T) {
	t.Parallel()

	logger, _ := test.NewNullLogger()
	_, err := New(WithLogger(logger), WithStore(filepath.Join(t.TempDir(), "missing", "dir", "run.db")))
	require.Error(t, err)
}

func TestGenerateTrivial(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, WithModuleName("geo"))
	res, err := e.Generate(context.Background(), geoInput(), &Directives{GenerateNS: []string{"geo"}})
	require.NoError(t, err)

	assert.Equal(t, "geo", res.Output.Module)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, 3, res.Stats.Emitted)
	assert.Zero(t, res.Stats.Excluded)

	bridge := string(res.Output.Bridge)
	assert.Contains(t, bridge, "bridge geo v1\n")
	assert.Contains(t, bridge, `include "geo/point.h"`)
	assert.Contains(t, bridge, `include "geo_shim.h"`)
	assert.Contains(t, bridge, "fn geo_scale(p: mut_ptr geo_Point, k: value double)")
}

func TestGenerateUnknownTarget(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	_, err := e.Generate(context.Background(), geoInput(), &Directives{Generate: []string{"geo::missing"}})
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "adapt", cfgErr.Op)
	assert.Contains(t, err.Error(), "geo::missing")
}

func TestGenerateContradictoryDirectives(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	_, err := e.Generate(context.Background(), geoInput(), &Directives{
		Generate: []string{"geo::Point"},
		Block:    []string{"geo::Point"},
	})
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "directives", cfgErr.Op)
}

func TestGenerateNothingAccepted(t *testing.T) {
	t.Parallel()

	in := &Input{Entities: []RawEntity{
		{Name: "Broken", Kind: "struct", IllFormed: true},
	}}
	e := newTestEngine(t)
	_, err := e.Generate(context.Background(), in, &Directives{Generate: []string{"Broken"}})

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "generate", cfgErr.Op)
}

func TestGenerateValueCycleIsFatal(t *testing.T) {
	t.Parallel()

	traits := &RawTraits{CopyConstructible: true, MoveConstructible: true, TriviallyRelocatable: true}
	in := &Input{Entities: []RawEntity{
		{Name: "A", Kind: "struct", Fields: []RawField{{Name: "b", Type: "B"}}, Traits: traits},
		{Name: "B", Kind: "struct", Fields: []RawField{{Name: "a", Type: "A"}}, Traits: traits},
	}}
	e := newTestEngine(t)
	_, err := e.Generate(context.Background(), in, &Directives{Generate: []string{"A"}})

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "analyse", cfgErr.Op)
	assert.Contains(t, err.Error(), "cyclic value membership")
}

func TestGenerateCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t)
	res, err := e.Generate(ctx, geoInput(), &Directives{GenerateNS: []string{"geo"}})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	first, err := e.Generate(context.Background(), geoInput(), &Directives{GenerateNS: []string{"geo"}})
	require.NoError(t, err)
	second, err := e.Generate(context.Background(), geoInput(), &Directives{GenerateNS: []string{"geo"}})
	require.NoError(t, err)

	assert.Equal(t, first.Output.Digest, second.Output.Digest)
	assert.Equal(t, first.Output.Bridge, second.Output.Bridge)
	assert.Equal(t, first.Output.ShimHeader, second.Output.ShimHeader)
	assert.Equal(t, first.Output.ShimSource, second.Output.ShimSource)
}

func TestGenerateLogsSummary(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)
	e, err := New(WithLogger(logger))
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Generate(context.Background(), geoInput(), &Directives{GenerateNS: []string{"geo"}})
	require.NoError(t, err)

	var found bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "bridge generated" {
			found = true
			assert.Equal(t, 3, entry.Data["accepted"])
		}
	}
	assert.True(t, found, "summary not logged")
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, WithModuleName("geo"))
	res, err := e.Generate(context.Background(), geoInput(), &Directives{GenerateNS: []string{"geo"}})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "gen")
	paths, err := res.WriteFiles(dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, res.Files()[filepath.Base(p)], data)
	}
	_, err = os.Stat(filepath.Join(dir, "geo_shim.h"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "geo_shim.cc"))
	assert.NoError(t, err)
}

func TestLoadDirectivesTOML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bind.toml")
	require.NoError(t, os.WriteFile(path, []byte("generate_ns = [\"geo\"]\nblock = [\"geo::scale\"]\n"), 0o644))

	e := newTestEngine(t)
	d, err := e.LoadDirectives(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"geo"}, d.GenerateNS)
	assert.Equal(t, []string{"geo::scale"}, d.Block)
}

func TestLoadDirectivesScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bind.risor")
	script := `
for _, e := range entities() {
	if e["kind"] == "function" {
		generate(e["name"])
	}
}
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o644))

	e := newTestEngine(t)
	d, err := e.LoadDirectives(context.Background(), path, geoInput())
	require.NoError(t, err)
	assert.Equal(t, []string{"geo::norm", "geo::scale"}, d.Generate)
}

func TestLoadDirectivesScriptFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"bind.risor": &fstest.MapFile{Data: []byte(`generate_ns("geo")`)},
	}
	e := newTestEngine(t, WithScriptsFS(fsys))
	d, err := e.LoadDirectives(context.Background(), "bind.risor", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"geo"}, d.GenerateNS)
}

func TestLoadDirectivesUnknownFormat(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	_, err := e.LoadDirectives(context.Background(), "bind.yaml", nil)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "directives", cfgErr.Op)
}

func TestLoadInputMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadInput(filepath.Join(t.TempDir(), "nope.json"))
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "input", cfgErr.Op)
}
