package cxxbind

import (
	"database/sql"
	"fmt"
)

// ItemDetail bundles an item with everything recorded about it. One call
// replaces separate lookups for its classification, edges, shims and
// renames.
type ItemDetail struct {
	Item        Item
	TypeClasses []*TypeClass // entries for the types the item defines (empty for functions)
	DependsOn   []Item       // direct dependencies
	DependedBy  []Item       // direct dependents
	Shims       []Shim       // native shims generated for the item
	Renames     []Rename     // crossing names whose signature is this item
	// Diagnostic is set when the item was excluded.
	Diagnostic *Diagnostic
}

// ItemDetail returns the detail bundle for the item with the given key.
// Returns nil with no error if the item does not exist.
func (q *QueryBuilder) ItemDetail(key string) (*ItemDetail, error) {
	it, err := q.store.ItemByKey(key)
	if err != nil {
		return nil, fmt.Errorf("item detail: %w", err)
	}
	if it == nil {
		return nil, nil
	}

	tcs, err := q.store.TypeClassesByItem(it.ID)
	if err != nil {
		return nil, fmt.Errorf("item detail: type classes: %w", err)
	}
	targets, err := q.store.DependencyTargets(it.ID)
	if err != nil {
		return nil, fmt.Errorf("item detail: dependencies: %w", err)
	}
	sources, err := q.store.DependencySources(it.ID)
	if err != nil {
		return nil, fmt.Errorf("item detail: dependents: %w", err)
	}
	items, err := q.itemsByID(append(append([]int64{}, targets...), sources...))
	if err != nil {
		return nil, fmt.Errorf("item detail: batch item lookup: %w", err)
	}

	detail := &ItemDetail{
		Item:        *it,
		TypeClasses: tcs,
		DependsOn:   collectItems(targets, items),
		DependedBy:  collectItems(sources, items),
	}
	if detail.TypeClasses == nil {
		detail.TypeClasses = []*TypeClass{}
	}

	if detail.Shims, err = q.shimsForItem(it.ID); err != nil {
		return nil, fmt.Errorf("item detail: shims: %w", err)
	}
	if detail.Renames, err = q.renamesForSignature(it.Key); err != nil {
		return nil, fmt.Errorf("item detail: renames: %w", err)
	}
	if !it.Accepted {
		if detail.Diagnostic, err = q.diagnosticFor(it); err != nil {
			return nil, fmt.Errorf("item detail: diagnostic: %w", err)
		}
	}
	return detail, nil
}

func collectItems(ids []int64, items map[int64]*Item) []Item {
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := items[id]; ok {
			out = append(out, *it)
		}
	}
	return out
}

func (q *QueryBuilder) shimsForItem(itemID int64) ([]Shim, error) {
	rows, err := q.store.DB().Query(
		"SELECT id, item_id, name, kind, native FROM shims WHERE item_id = ? ORDER BY name", itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Shim{}
	for rows.Next() {
		var sh Shim
		if err := rows.Scan(&sh.ID, &sh.ItemID, &sh.Name, &sh.Kind, &sh.Native); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (q *QueryBuilder) renamesForSignature(sig string) ([]Rename, error) {
	rows, err := q.store.DB().Query(
		"SELECT generated, original, signature FROM renames WHERE signature = ? ORDER BY generated", sig)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Rename{}
	for rows.Next() {
		var rn Rename
		if err := rows.Scan(&rn.Generated, &rn.Original, &rn.Signature); err != nil {
			return nil, err
		}
		out = append(out, rn)
	}
	return out, rows.Err()
}

// diagnosticFor finds the diagnostic of an excluded item. Overloads share a
// qualified name; their messages start with the item key, which breaks the
// tie.
func (q *QueryBuilder) diagnosticFor(it *Item) (*Diagnostic, error) {
	var d Diagnostic
	var reason string
	err := q.store.DB().QueryRow(
		`SELECT qualified_name, reason_kind, human_message FROM diagnostics
		 WHERE qualified_name = ? AND reason_kind = ?
		 ORDER BY CASE WHEN substr(human_message, 1, length(?)) = ? THEN 0 ELSE 1 END, human_message
		 LIMIT 1`,
		it.Name, it.Reason, it.Key, it.Key,
	).Scan(&d.QualifiedName, &reason, &d.Message)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.Reason = Reason(reason)
	return &d, nil
}
