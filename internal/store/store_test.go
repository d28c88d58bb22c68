package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

// insertTestItem inserts an accepted item and returns it with ID set.
func insertTestItem(t *testing.T, s *Store, key, kind string) *Item {
	t.Helper()
	it := &Item{Key: key, Kind: kind, Name: key, BridgeName: key, Accepted: true}
	id, err := s.InsertItem(it)
	require.NoError(t, err)
	require.Positive(t, id)
	return it
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range clearTables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

// =============================================================================
// Items and edges
// =============================================================================

func TestItem_InsertAndQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestItem(t, s, "geo::Point", "struct")
	excluded := &Item{Key: "geo::Secret", Kind: "struct", Name: "geo::Secret", Reason: "blocked_dependency"}
	_, err := s.InsertItem(excluded)
	require.NoError(t, err)

	got, err := s.ItemByKey("geo::Point")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "struct", got.Kind)
	assert.True(t, got.Accepted)

	got, err = s.ItemByKey("geo::Secret")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Accepted)
	assert.Equal(t, "blocked_dependency", got.Reason)
	assert.Empty(t, got.BridgeName)

	missing, err := s.ItemByKey("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	structs, err := s.ItemsByKind("struct")
	require.NoError(t, err)
	assert.Len(t, structs, 2)
}

func TestDependencies_BothDirections(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestItem(t, s, "a", "function")
	b := insertTestItem(t, s, "b", "struct")
	c := insertTestItem(t, s, "c", "struct")
	for _, d := range []*Dependency{{ItemID: a.ID, DependsOnID: b.ID}, {ItemID: b.ID, DependsOnID: c.ID}} {
		_, err := s.InsertDependency(d)
		require.NoError(t, err)
	}

	targets, err := s.DependencyTargets(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, targets)

	sources, err := s.DependencySources(c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, sources)

	items, err := s.ItemsByIDs([]int64{c.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Key)
}

func TestBases_InsertAndQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	shape := insertTestItem(t, s, "Shape", "struct")
	circle := insertTestItem(t, s, "Circle", "struct")
	_, err := s.InsertBase(&Base{DerivedID: circle.ID, BaseID: shape.ID})
	require.NoError(t, err)

	bases, err := s.BasesOf(circle.ID)
	require.NoError(t, err)
	require.Len(t, bases, 1)
	assert.Equal(t, shape.ID, bases[0].BaseID)

	derived, err := s.DerivedOf(shape.ID)
	require.NoError(t, err)
	require.Len(t, derived, 1)
	assert.Equal(t, circle.ID, derived[0].DerivedID)
}

func TestTypeClass_FlagsRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	point := insertTestItem(t, s, "Point", "struct")
	_, err := s.InsertTypeClass(&TypeClass{TypeKey: "Point", Class: "trivial-value", Flags: []string{"copy_constructible"}, ItemID: &point.ID})
	require.NoError(t, err)
	_, err = s.InsertTypeClass(&TypeClass{TypeKey: "int", Class: "trivial-value"})
	require.NoError(t, err)

	all, err := s.TypeClasses()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Point", all[0].TypeKey)
	assert.Equal(t, []string{"copy_constructible"}, all[0].Flags)
	require.NotNil(t, all[0].ItemID)
	assert.Equal(t, point.ID, *all[0].ItemID)
	assert.Nil(t, all[1].ItemID)
	assert.Nil(t, all[1].Flags)

	trivial, err := s.TypeClassesByClass("trivial-value")
	require.NoError(t, err)
	assert.Len(t, trivial, 2)
}

func TestDiagnostics_FilterByReason(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	for _, d := range []*Diagnostic{
		{QualifiedName: "Holder::bar", ReasonKind: "blocked_dependency", HumanMessage: "depends on blocked struct Secret"},
		{QualifiedName: "Secret", ReasonKind: "blocked_dependency", HumanMessage: "blocked by directive"},
		{QualifiedName: "Weird", ReasonKind: "unsupported_type", HumanMessage: "ill-formed"},
	} {
		_, err := s.InsertDiagnostic(d)
		require.NoError(t, err)
	}

	all, err := s.Diagnostics("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	blocked, err := s.Diagnostics("blocked_dependency")
	require.NoError(t, err)
	require.Len(t, blocked, 2)
	assert.Equal(t, "Holder::bar", blocked[0].QualifiedName)
}

func TestRenames_FilterByOriginal(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	for _, rn := range []*Rename{
		{Generated: "Calc_foo_int", Original: "Calc::foo", Signature: "Calc::foo(int)"},
		{Generated: "Calc_foo_double", Original: "Calc::foo", Signature: "Calc::foo(double)"},
		{Generated: "Calc_bar", Original: "Calc::bar", Signature: "Calc::bar()"},
	} {
		_, err := s.InsertRename(rn)
		require.NoError(t, err)
	}

	foo, err := s.Renames("Calc::foo")
	require.NoError(t, err)
	require.Len(t, foo, 2)
	assert.Equal(t, "Calc_foo_double", foo[0].Generated)
	assert.Equal(t, "Calc_foo_int", foo[1].Generated)
}

// =============================================================================
// Batches
// =============================================================================

func TestCommitBatch_RemapsFakeIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	batch := NewBatchedStore()
	holder := &Item{Key: "Holder", Kind: "struct", Name: "Holder", Accepted: true}
	_, err := batch.InsertItem(holder)
	require.NoError(t, err)
	name := &Item{Key: "Name", Kind: "struct", Name: "Name", Accepted: true}
	_, err = batch.InsertItem(name)
	require.NoError(t, err)
	_, err = batch.InsertDependency(&Dependency{ItemID: holder.ID, DependsOnID: name.ID})
	require.NoError(t, err)
	_, err = batch.InsertBase(&Base{DerivedID: holder.ID, BaseID: name.ID})
	require.NoError(t, err)
	_, err = batch.InsertTypeClass(&TypeClass{TypeKey: "Name", Class: "non-trivial-by-value", ItemID: ptr(name.ID)})
	require.NoError(t, err)
	_, err = batch.InsertShim(&Shim{ItemID: name.ID, Name: "Name_drop", Kind: "drop", Native: "void Name_drop(Name *self)"})
	require.NoError(t, err)

	run := &Run{Module: "ffi", Digest: "d1", Items: 2, Accepted: 2, CreatedAt: time.Now().Truncate(time.Second)}
	require.NoError(t, s.CommitBatch(run, batch))
	assert.Positive(t, run.ID)

	got, err := s.ItemByKey("Holder")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Positive(t, got.ID)

	targets, err := s.DependencyTargets(got.ID)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	items, err := s.ItemsByIDs(targets)
	require.NoError(t, err)
	assert.Equal(t, "Name", items[0].Key)

	shims, err := s.Shims()
	require.NoError(t, err)
	require.Len(t, shims, 1)
	assert.Equal(t, targets[0], shims[0].ItemID)

	latest, err := s.LatestRun()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "d1", latest.Digest)
}

func TestCommitBatch_ReplacesPreviousRun(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	first := NewBatchedStore()
	_, err := first.InsertItem(&Item{Key: "Old", Kind: "struct", Name: "Old", Accepted: true})
	require.NoError(t, err)
	require.NoError(t, s.CommitBatch(&Run{Module: "ffi", Digest: "a"}, first))

	second := NewBatchedStore()
	_, err = second.InsertItem(&Item{Key: "New", Kind: "struct", Name: "New", Accepted: true})
	require.NoError(t, err)
	require.NoError(t, s.CommitBatch(&Run{Module: "ffi", Digest: "b"}, second))

	old, err := s.ItemByKey("Old")
	require.NoError(t, err)
	assert.Nil(t, old)

	var runs int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&runs))
	assert.Equal(t, 1, runs)
}

func TestCommitBatch_UnknownFakeIDRollsBack(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	good := NewBatchedStore()
	_, err := good.InsertItem(&Item{Key: "Keep", Kind: "struct", Name: "Keep", Accepted: true})
	require.NoError(t, err)
	require.NoError(t, s.CommitBatch(&Run{Module: "ffi", Digest: "a"}, good))

	bad := NewBatchedStore()
	_, err = bad.InsertDependency(&Dependency{ItemID: -40, DependsOnID: -41})
	require.NoError(t, err)
	err = s.CommitBatch(&Run{Module: "ffi", Digest: "b"}, bad)
	require.Error(t, err)

	kept, err := s.ItemByKey("Keep")
	require.NoError(t, err)
	assert.NotNil(t, kept, "failed commit must leave the previous run intact")
}

func TestLatestRun_Empty(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	run, err := s.LatestRun()
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestReset(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestItem(t, s, "x", "enum")
	require.NoError(t, s.Reset())
	items, err := s.ItemsByKind("enum")
	require.NoError(t, err)
	assert.Empty(t, items)
}
