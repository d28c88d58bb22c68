package analysis

import (
	"fmt"
	"sort"

	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/ir"
)

// depGraph holds item → item dependency edges: an item depends on the
// definitions of every type it references, its receiver, its template, and
// for trampolines the methods they override and their constructor
// parameter types.
type depGraph struct {
	deps       map[string][]string
	dependents map[string][]string
}

func buildDeps(g *ir.Graph) *depGraph {
	dg := &depGraph{
		deps:       make(map[string][]string),
		dependents: make(map[string][]string),
	}
	for _, it := range g.Items() {
		seen := make(map[string]bool)
		add := func(id string) {
			if id == "" || id == it.ID || seen[id] || g.Item(id) == nil {
				return
			}
			seen[id] = true
			dg.deps[it.ID] = append(dg.deps[it.ID], id)
			dg.dependents[id] = append(dg.dependents[id], it.ID)
		}
		for _, t := range it.TypeRefs() {
			t.Walk(func(n *ir.Type) { add(n.Def) })
		}
		add(it.Receiver)
		add(it.Template)
		if it.Trampoline != nil {
			for _, o := range it.Trampoline.Overrides {
				add(o.Method)
			}
			for _, c := range it.Trampoline.Ctors {
				for _, p := range c.Params {
					p.Type.Walk(func(n *ir.Type) { add(n.Def) })
				}
			}
		}
	}
	return dg
}

// Deps returns the IDs item id depends on.
func (r *Result) Deps(id string) []string {
	return r.depGraph().deps[id]
}

// Dependents returns the IDs depending on item id.
func (r *Result) Dependents(id string) []string {
	return r.depGraph().dependents[id]
}

func (r *Result) depGraph() *depGraph {
	if r.deps == nil {
		r.deps = buildDeps(r.Graph)
	}
	return r.deps
}

// invalidateDeps drops cached edges after passes add items or overrides.
func (r *Result) invalidateDeps() {
	r.deps = nil
}

// Propagate excludes every transitive dependent of an excluded item, to a
// fixed point. Dependents inherit the root cause's reason.
func (r *Result) Propagate() {
	dg := r.depGraph()
	var work []string
	for _, it := range r.Graph.Items() {
		if !it.Accepted() {
			work = append(work, it.ID)
		}
	}
	for len(work) > 0 {
		id := work[0]
		work = work[1:]
		src := r.Graph.Item(id)
		root := id
		if src.Excluded.Cause != "" {
			root = src.Excluded.Cause
		}
		rootItem := r.Graph.Item(root)
		for _, dep := range dg.dependents[id] {
			it := r.Graph.Item(dep)
			if !it.Accepted() {
				continue
			}
			ex := ir.Exclusion{
				Reason:  src.Excluded.Reason,
				Message: propagatedMessage(src, rootItem),
				Cause:   root,
			}
			if r.Graph.Exclude(dep, ex) {
				r.logger.WithField("item", dep).WithField("cause", root).Debug("exclusion propagated")
				work = append(work, dep)
			}
		}
	}
}

func propagatedMessage(src, root *ir.Item) string {
	if root.Excluded.Reason == diag.BlockedDependency && root.Excluded.Cause == "" {
		return fmt.Sprintf("depends on blocked %s %s", root.Kind, root.Name)
	}
	if src.ID == root.ID {
		return fmt.Sprintf("depends on excluded %s %s", root.Kind, root.Name)
	}
	return fmt.Sprintf("depends on excluded %s %s (through %s)", root.Kind, root.Name, src.Name)
}

// valueOrder returns the IDs of nodes in an order where every node follows
// the nodes it depends on. Edges name dependencies. Ties are broken by ID so
// the order is stable. Nodes left over form cycles, self edges included,
// and are returned separately.
func valueOrder(nodes []string, edges map[string][]string) (order, cyclic []string) {
	inNodes := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		inNodes[n] = true
	}
	indeg := make(map[string]int, len(nodes))
	users := make(map[string][]string)
	for _, n := range nodes {
		for _, d := range edges[n] {
			if !inNodes[d] {
				continue
			}
			indeg[n]++
			users[d] = append(users[d], n)
		}
	}
	var ready []string
	for _, n := range nodes {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		var next []string
		for _, u := range users[n] {
			indeg[u]--
			if indeg[u] == 0 {
				next = append(next, u)
			}
		}
		if len(next) > 0 {
			ready = append(ready, next...)
			sort.Strings(ready)
		}
	}
	for _, n := range nodes {
		if indeg[n] > 0 {
			cyclic = append(cyclic, n)
		}
	}
	sort.Strings(cyclic)
	return order, cyclic
}

// declOrder orders type nodes so that each follows every type it names,
// through pointers and references as well as by value. Cycles can only pass
// through indirections here; each is broken at its smallest member ID.
func declOrder(nodes []string, edges map[string][]string) []string {
	order, rest := valueOrder(nodes, edges)
	for len(rest) > 0 {
		members := cycleMembers(rest, edges)
		first := rest[0]
		if len(members) > 0 {
			first = members[0]
		}
		order = append(order, first)
		remaining := make([]string, 0, len(rest)-1)
		for _, n := range rest {
			if n != first {
				remaining = append(remaining, n)
			}
		}
		var more []string
		more, rest = valueOrder(remaining, edges)
		order = append(order, more...)
	}
	return order
}

// refDeps lists every type item it names anywhere in its declaration,
// itself excluded.
func refDeps(it *ir.Item) []string {
	var out []string
	for _, t := range it.TypeRefs() {
		t.Walk(func(n *ir.Type) {
			if n.Def != "" && n.Def != it.ID {
				out = append(out, n.Def)
			}
		})
	}
	return out
}
