package ir

import (
	"fmt"
	"sort"
)

// Graph holds every item the adapter selected plus the items the closure
// pass instantiates. Items are never removed; exclusion is a mark.
type Graph struct {
	items   map[string]*Item
	byName  map[string][]string // qualified name -> item IDs
	methods map[string][]string // record ID -> method IDs in insertion order
	order   []string            // insertion order

	// Headers are the include paths the shim header must pull in.
	Headers  []string
	// Requests are the instantiations named by instantiate directives.
	Requests []*Type
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		items:   make(map[string]*Item),
		byName:  make(map[string][]string),
		methods: make(map[string][]string),
	}
}

// Add inserts an item. Adding a second item with the same ID is an error.
func (g *Graph) Add(it *Item) error {
	if it.ID == "" {
		return fmt.Errorf("ir: add: item %q has no ID", it.Name)
	}
	if _, ok := g.items[it.ID]; ok {
		return fmt.Errorf("ir: add: duplicate item %q", it.ID)
	}
	g.items[it.ID] = it
	g.byName[it.Name] = append(g.byName[it.Name], it.ID)
	g.order = append(g.order, it.ID)
	if it.Kind == KindMethod && it.Receiver != "" {
		g.methods[it.Receiver] = append(g.methods[it.Receiver], it.ID)
	}
	return nil
}

// Item returns the item with the given ID, or nil.
func (g *Graph) Item(id string) *Item {
	return g.items[id]
}

// Len returns the number of items.
func (g *Graph) Len() int {
	return len(g.items)
}

// Items returns all items sorted by ID.
func (g *Graph) Items() []*Item {
	ids := make([]string, 0, len(g.items))
	for id := range g.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Item, len(ids))
	for i, id := range ids {
		out[i] = g.items[id]
	}
	return out
}

// Ordered returns all items in insertion order.
func (g *Graph) Ordered() []*Item {
	out := make([]*Item, len(g.order))
	for i, id := range g.order {
		out[i] = g.items[id]
	}
	return out
}

// Lookup returns the items carrying a qualified name, in insertion order.
func (g *Graph) Lookup(name string) []*Item {
	ids := g.byName[name]
	out := make([]*Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.items[id])
	}
	return out
}

// TypeItem returns the type-defining item registered under name, or nil.
func (g *Graph) TypeItem(name string) *Item {
	for _, it := range g.Lookup(name) {
		if it.Kind.DefinesType() {
			return it
		}
	}
	return nil
}

// Methods returns the methods and constructors of a record in declaration
// order.
func (g *Graph) Methods(recordID string) []*Item {
	ids := g.methods[recordID]
	out := make([]*Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.items[id])
	}
	return out
}

// Accepted returns the non-excluded items sorted by ID.
func (g *Graph) Accepted() []*Item {
	var out []*Item
	for _, it := range g.Items() {
		if it.Accepted() {
			out = append(out, it)
		}
	}
	return out
}

// Exclude marks an item excluded. It reports false when the item was already
// excluded; the first exclusion wins.
func (g *Graph) Exclude(id string, ex Exclusion) bool {
	it := g.items[id]
	if it == nil || it.Excluded != nil {
		return false
	}
	it.Excluded = &ex
	return true
}

// AddHeader records an include path once, keeping first-seen order.
func (g *Graph) AddHeader(h string) {
	if h == "" {
		return
	}
	for _, existing := range g.Headers {
		if existing == h {
			return
		}
	}
	g.Headers = append(g.Headers, h)
}
