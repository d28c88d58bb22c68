package cxxbind

import (
	"fmt"

	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/store"
)

// QueryBuilder answers questions about the last recorded run.
type QueryBuilder struct {
	store *store.Store
}

// NewQueryBuilder creates a QueryBuilder over an already opened store.
func NewQueryBuilder(s *Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// LatestRun returns the summary of the recorded run, or nil when nothing has
// been recorded.
func (q *QueryBuilder) LatestRun() (*Run, error) {
	run, err := q.store.LatestRun()
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// Item returns the item with the given graph ID, or nil.
func (q *QueryBuilder) Item(key string) (*Item, error) {
	it, err := q.store.ItemByKey(key)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", key, err)
	}
	return it, nil
}

// ItemsNamed returns every item carrying a qualified C++ name. Overloads
// share a name, so there may be several.
func (q *QueryBuilder) ItemsNamed(name string) ([]*Item, error) {
	items, err := q.store.ItemsByName(name)
	if err != nil {
		return nil, fmt.Errorf("items named %s: %w", name, err)
	}
	if items == nil {
		items = []*Item{}
	}
	return items, nil
}

// TypeClasses returns the type database of the run, optionally restricted
// to one classification ("trivial-value", "non-trivial-by-value",
// "reference-only", "unsupported").
func (q *QueryBuilder) TypeClasses(class string) ([]*TypeClass, error) {
	var (
		out []*TypeClass
		err error
	)
	if class == "" {
		out, err = q.store.TypeClasses()
	} else {
		out, err = q.store.TypeClassesByClass(class)
	}
	if err != nil {
		return nil, fmt.Errorf("type classes: %w", err)
	}
	if out == nil {
		out = []*TypeClass{}
	}
	return out, nil
}

// Diagnostics returns the recorded diagnostics, optionally filtered by
// reason kind.
func (q *QueryBuilder) Diagnostics(reason diag.Reason) ([]Diagnostic, error) {
	if reason != "" && !reason.Valid() {
		return nil, fmt.Errorf("diagnostics: unknown reason kind %q", reason)
	}
	rows, err := q.store.Diagnostics(string(reason))
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	out := make([]Diagnostic, 0, len(rows))
	for _, d := range rows {
		out = append(out, Diagnostic{
			QualifiedName: d.QualifiedName,
			Reason:        diag.Reason(d.ReasonKind),
			Message:       d.HumanMessage,
		})
	}
	return out, nil
}

// ShimResult is a generated shim with the item it serves.
type ShimResult struct {
	Shim
	ItemKey string
}

// Shims returns every generated shim, sorted by name.
func (q *QueryBuilder) Shims() ([]ShimResult, error) {
	rows, err := q.store.Shims()
	if err != nil {
		return nil, fmt.Errorf("shims: %w", err)
	}
	ids := make([]int64, 0, len(rows))
	for _, sh := range rows {
		ids = append(ids, sh.ItemID)
	}
	items, err := q.itemsByID(ids)
	if err != nil {
		return nil, fmt.Errorf("shims: %w", err)
	}
	out := make([]ShimResult, 0, len(rows))
	for _, sh := range rows {
		r := ShimResult{Shim: *sh}
		if it, ok := items[sh.ItemID]; ok {
			r.ItemKey = it.Key
		}
		out = append(out, r)
	}
	return out, nil
}

// Renames returns the crossing-name map, optionally only the entries for one
// qualified C++ name.
func (q *QueryBuilder) Renames(original string) ([]Rename, error) {
	rows, err := q.store.Renames(original)
	if err != nil {
		return nil, fmt.Errorf("renames: %w", err)
	}
	out := make([]Rename, 0, len(rows))
	for _, rn := range rows {
		out = append(out, Rename{Generated: rn.Generated, Original: rn.Original, Signature: rn.Signature})
	}
	return out, nil
}

// itemsByID bulk-loads items keyed by row ID.
func (q *QueryBuilder) itemsByID(ids []int64) (map[int64]*Item, error) {
	items, err := q.store.ItemsByIDs(ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*Item, len(items))
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}
