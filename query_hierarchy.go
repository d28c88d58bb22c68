package cxxbind

import (
	"fmt"
	"sort"
)

// BaseRelation is one direct base-class link.
type BaseRelation struct {
	Item    Item
	Ordinal int // position in the derived class's base clause
}

// TypeHierarchy is the inheritance view of one record: its direct bases,
// every transitive ancestor (the upcast targets), and the records deriving
// from it.
type TypeHierarchy struct {
	Item      Item
	Bases     []BaseRelation
	Ancestors []Item // all transitive bases, nearest first then by key
	Derived   []Item
}

// TypeHierarchy returns the hierarchy of the record with the given key.
// Returns nil with no error if the item does not exist.
func (q *QueryBuilder) TypeHierarchy(key string) (*TypeHierarchy, error) {
	root, err := q.store.ItemByKey(key)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	if root == nil {
		return nil, nil
	}

	edges, err := q.store.AllBases()
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: load bases: %w", err)
	}
	up := make(map[int64][]int64)
	for _, b := range edges {
		up[b.DerivedID] = append(up[b.DerivedID], b.BaseID)
	}

	direct, err := q.store.BasesOf(root.ID)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: bases: %w", err)
	}
	derived, err := q.store.DerivedOf(root.ID)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: derived: %w", err)
	}

	// Walk upward breadth-first to collect ancestors with their distance.
	dist := map[int64]int{root.ID: 0}
	queue := []int64{root.ID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, b := range up[cur] {
			if _, seen := dist[b]; seen {
				continue
			}
			dist[b] = dist[cur] + 1
			queue = append(queue, b)
		}
	}

	needed := make([]int64, 0, len(dist)+len(derived))
	for id := range dist {
		needed = append(needed, id)
	}
	for _, d := range derived {
		needed = append(needed, d.DerivedID)
	}
	items, err := q.itemsByID(needed)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: batch item lookup: %w", err)
	}

	h := &TypeHierarchy{
		Item:      *root,
		Bases:     []BaseRelation{},
		Ancestors: []Item{},
		Derived:   []Item{},
	}
	for _, b := range direct {
		if it, ok := items[b.BaseID]; ok {
			h.Bases = append(h.Bases, BaseRelation{Item: *it, Ordinal: b.Ordinal})
		}
	}
	for id := range dist {
		if id == root.ID {
			continue
		}
		if it, ok := items[id]; ok {
			h.Ancestors = append(h.Ancestors, *it)
		}
	}
	sort.Slice(h.Ancestors, func(i, j int) bool {
		di, dj := dist[h.Ancestors[i].ID], dist[h.Ancestors[j].ID]
		if di != dj {
			return di < dj
		}
		return h.Ancestors[i].Key < h.Ancestors[j].Key
	})
	for _, d := range derived {
		if it, ok := items[d.DerivedID]; ok {
			h.Derived = append(h.Derived, *it)
		}
	}
	sort.Slice(h.Derived, func(i, j int) bool { return h.Derived[i].Key < h.Derived[j].Key })
	return h, nil
}
