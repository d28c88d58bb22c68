package cxxbind

import (
	"fmt"
	"sort"
)

// maxGraphDepth caps traversal depth for dependency queries.
const maxGraphDepth = 100

// DependencyGraph is a transitive dependency subgraph rooted at one item.
// Edges are bulk-loaded then traversed with BFS; no recursive SQL.
type DependencyGraph struct {
	Root  string      // item key of the starting item
	Nodes []GraphNode // reachable items, root first, then by depth and key
	Edges []GraphEdge // edges between nodes in the subgraph
	Depth int         // deepest level reached, at most the requested depth
}

// GraphNode is an item with its distance from the root.
type GraphNode struct {
	Item  Item
	Depth int
}

// GraphEdge says From depends on To. Both are item keys.
type GraphEdge struct {
	From string
	To   string
}

// dependencyData holds the adjacency maps built from every dependency row.
type dependencyData struct {
	forward map[int64][]int64 // item -> items it depends on
	reverse map[int64][]int64 // item -> items depending on it
}

func (q *QueryBuilder) loadDependencies() (*dependencyData, error) {
	edges, err := q.store.AllDependencies()
	if err != nil {
		return nil, fmt.Errorf("load dependencies: %w", err)
	}
	data := &dependencyData{
		forward: make(map[int64][]int64),
		reverse: make(map[int64][]int64),
	}
	for _, e := range edges {
		data.forward[e.ItemID] = append(data.forward[e.ItemID], e.DependsOnID)
		data.reverse[e.DependsOnID] = append(data.reverse[e.DependsOnID], e.ItemID)
	}
	return data, nil
}

// Dependencies returns everything item key transitively depends on, up to
// maxDepth levels. maxDepth 0 returns only the root; negative is an error;
// values above 100 are capped. Returns nil, nil when the item does not exist.
func (q *QueryBuilder) Dependencies(key string, maxDepth int) (*DependencyGraph, error) {
	g, err := q.traverse(key, maxDepth, false)
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}
	return g, nil
}

// Dependents returns every item that transitively depends on item key: the
// items that would be excluded along with it.
func (q *QueryBuilder) Dependents(key string, maxDepth int) (*DependencyGraph, error) {
	g, err := q.traverse(key, maxDepth, true)
	if err != nil {
		return nil, fmt.Errorf("dependents: %w", err)
	}
	return g, nil
}

func (q *QueryBuilder) traverse(key string, maxDepth int, reverse bool) (*DependencyGraph, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("maxDepth must be non-negative, got %d", maxDepth)
	}
	if maxDepth > maxGraphDepth {
		maxDepth = maxGraphDepth
	}

	root, err := q.store.ItemByKey(key)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}

	result := &DependencyGraph{
		Root:  key,
		Nodes: []GraphNode{{Item: *root, Depth: 0}},
		Edges: []GraphEdge{},
	}
	if maxDepth == 0 {
		return result, nil
	}

	data, err := q.loadDependencies()
	if err != nil {
		return nil, err
	}
	adj := data.forward
	if reverse {
		adj = data.reverse
	}

	visited := map[int64]int{root.ID: 0}
	type bfsEntry struct {
		id    int64
		depth int
	}
	queue := []bfsEntry{{id: root.ID}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, next := range adj[cur.id] {
			if _, seen := visited[next]; seen {
				continue
			}
			d := cur.depth + 1
			visited[next] = d
			if d > result.Depth {
				result.Depth = d
			}
			queue = append(queue, bfsEntry{id: next, depth: d})
		}
	}

	ids := make([]int64, 0, len(visited)-1)
	for id := range visited {
		if id != root.ID {
			ids = append(ids, id)
		}
	}
	items, err := q.itemsByID(ids)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	var nodes []GraphNode
	for _, id := range ids {
		if it, ok := items[id]; ok {
			nodes = append(nodes, GraphNode{Item: *it, Depth: visited[id]})
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Depth != nodes[j].Depth {
			return nodes[i].Depth < nodes[j].Depth
		}
		return nodes[i].Item.Key < nodes[j].Item.Key
	})
	result.Nodes = append(result.Nodes, nodes...)

	// Keep only edges with both ends in the subgraph.
	keys := make(map[int64]string, len(visited))
	keys[root.ID] = root.Key
	for id, it := range items {
		keys[id] = it.Key
	}
	for from, tos := range data.forward {
		if _, ok := visited[from]; !ok {
			continue
		}
		for _, to := range tos {
			if _, ok := visited[to]; ok {
				result.Edges = append(result.Edges, GraphEdge{From: keys[from], To: keys[to]})
			}
		}
	}
	sort.Slice(result.Edges, func(i, j int) bool {
		if result.Edges[i].From != result.Edges[j].From {
			return result.Edges[i].From < result.Edges[j].From
		}
		return result.Edges[i].To < result.Edges[j].To
	})
	return result, nil
}
