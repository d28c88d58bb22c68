package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSourceBuildsDirectives(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("")
	d, err := rt.RunSource(context.Background(), `
generate("Widget", "ns::make_widget")
generate_pod("Point")
block(["Secret"])
subclass("Observer")
instantiate("Box<int>")
extra_native("#include <cstdio>")
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Widget", "ns::make_widget"}, d.Generate)
	assert.Equal(t, []string{"Point"}, d.GeneratePOD)
	assert.Equal(t, []string{"Secret"}, d.Block)
	assert.Equal(t, []string{"Observer"}, d.Subclass)
	assert.Equal(t, []string{"Box<int>"}, d.Instantiate)
	assert.Equal(t, []string{"#include <cstdio>"}, d.ExtraNative)
}

func TestRunSourceSelectsFromEntities(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithEntities([]Entity{
		{Name: "a::Foo", Kind: "class"},
		{Name: "a::bar", Kind: "function"},
		{Name: "b::Baz", Kind: "class"},
	}))
	d, err := rt.RunSource(context.Background(), `
for _, e := range entities() {
	if e["kind"] == "class" {
		generate(e["name"])
	}
}
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a::Foo", "b::Baz"}, d.Generate)
}

func TestRunSourceRejectsBadArguments(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("")
	_, err := rt.RunSource(context.Background(), `generate(42)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate: argument must be a string or list")

	_, err = rt.RunSource(context.Background(), `block()`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected at least one argument")
}

func TestRunSourceRejectsUnknownFunction(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("")
	_, err := rt.RunSource(context.Background(), `exclude("Foo")`)
	require.Error(t, err)
}

func TestRunSourceValidates(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("")
	_, err := rt.RunSource(context.Background(), `
generate("A")
block("A")
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contradicts")
}

func TestRunScriptFromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "api.risor"), []byte(`generate("Widget")`), 0o644))

	rt := NewRuntime(dir)
	d, err := rt.RunScript(context.Background(), "api.risor")
	require.NoError(t, err)
	assert.Equal(t, []string{"Widget"}, d.Generate)

	_, err = rt.RunScript(context.Background(), "missing.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading script")
}

func TestRunScriptFromFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"directives/api.risor": &fstest.MapFile{Data: []byte(`generate(["A", "B"])`)},
	}
	rt := NewRuntime("", WithRuntimeFS(fsys))
	d, err := rt.RunScript(context.Background(), "/directives/api.risor")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, d.Generate)
}

func TestScriptLogUsesLogger(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	rt := NewRuntime("", WithRuntimeLogger(logger))
	_, err := rt.RunSource(context.Background(), `
log.Warn("selecting widgets")
generate("Widget")
`)
	require.NoError(t, err)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "selecting widgets" {
			warned = true
			assert.Equal(t, "script", e.Data["source"])
		}
	}
	assert.True(t, warned)
}

func TestImportedModulesSeeDirectiveFunctions(t *testing.T) {
	t.Parallel()

	mapFS := fstest.MapFS{
		"widgets.risor": &fstest.MapFile{Data: []byte(`
func expose(names) {
	for _, n := range names {
		generate(n)
	}
}
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))
	d, err := rt.RunSource(context.Background(), `
import widgets
widgets.expose(["Knob", "Slider"])
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Knob", "Slider"}, d.Generate)
}
