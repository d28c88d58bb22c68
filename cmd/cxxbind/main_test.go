package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.Error(t, validateFormat("yaml"))
}

func TestConfigureLogger(t *testing.T) {
	t.Parallel()
	l := logrus.New()
	require.NoError(t, configureLogger(l, "debug", "json"))
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	assert.Error(t, configureLogger(l, "loud", "text"))
	assert.Error(t, configureLogger(l, "info", "xml"))
}

func TestSplitList(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"struct", "function"}, splitList(" struct, ,function "))
	assert.Nil(t, splitList(""))
}

func TestBuildItemFilter(t *testing.T) {
	flagKind, flagAccepted, flagHeaderPrefix = "struct,enum", "false", "geo/"
	defer func() { flagKind, flagAccepted, flagHeaderPrefix = "", "", "" }()

	f, err := buildItemFilter()
	require.NoError(t, err)
	assert.Equal(t, []string{"struct", "enum"}, f.Kinds)
	require.NotNil(t, f.Accepted)
	assert.False(t, *f.Accepted)
	require.NotNil(t, f.HeaderPrefix)
	assert.Equal(t, "geo/", *f.HeaderPrefix)

	flagAccepted = "maybe"
	_, err = buildItemFilter()
	assert.Error(t, err)
}
