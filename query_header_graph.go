package cxxbind

import (
	"fmt"
	"sort"
)

// HeaderGraph is the header-to-header dependency graph, aggregated from
// item dependencies: header A depends on header B when an item declared in
// A depends on an item declared in B.
type HeaderGraph struct {
	Headers []HeaderNode
	Edges   []HeaderEdge
}

// HeaderNode is one header with the items declared in it.
type HeaderNode struct {
	Name     string
	Items    int
	Accepted int
}

// HeaderEdge counts the item dependencies between two headers.
type HeaderEdge struct {
	From  string
	To    string
	Count int
}

// HeaderDependencyGraph returns the header dependency graph. Items with no
// recorded header (instantiations, library types) are left out.
func (q *QueryBuilder) HeaderDependencyGraph() (*HeaderGraph, error) {
	g := &HeaderGraph{Headers: []HeaderNode{}, Edges: []HeaderEdge{}}

	rows, err := q.store.DB().Query(
		`SELECT header, COUNT(*), SUM(CASE WHEN accepted THEN 1 ELSE 0 END)
		 FROM items WHERE header IS NOT NULL AND header != ''
		 GROUP BY header ORDER BY header`,
	)
	if err != nil {
		return nil, fmt.Errorf("header dependency graph: query headers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n HeaderNode
		if err := rows.Scan(&n.Name, &n.Items, &n.Accepted); err != nil {
			return nil, fmt.Errorf("header dependency graph: scan header: %w", err)
		}
		g.Headers = append(g.Headers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("header dependency graph: header rows: %w", err)
	}

	edgeRows, err := q.store.DB().Query(
		`SELECT a.header, b.header, COUNT(*)
		 FROM dependencies d
		 JOIN items a ON a.id = d.item_id
		 JOIN items b ON b.id = d.depends_on_id
		 WHERE a.header != '' AND b.header != '' AND a.header != b.header
		 GROUP BY a.header, b.header
		 ORDER BY a.header, b.header`,
	)
	if err != nil {
		return nil, fmt.Errorf("header dependency graph: query edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var e HeaderEdge
		if err := edgeRows.Scan(&e.From, &e.To, &e.Count); err != nil {
			return nil, fmt.Errorf("header dependency graph: scan edge: %w", err)
		}
		g.Edges = append(g.Edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("header dependency graph: edge rows: %w", err)
	}
	return g, nil
}

// HeaderCycles finds groups of headers whose declarations depend on each
// other, using Tarjan's strongly connected components algorithm. Each cycle
// lists its headers with the first repeated at the end. Returns an empty
// list (not nil) for acyclic graphs.
func (q *QueryBuilder) HeaderCycles() ([][]string, error) {
	graph, err := q.HeaderDependencyGraph()
	if err != nil {
		return nil, fmt.Errorf("header cycles: %w", err)
	}

	adj := map[string][]string{}
	for _, e := range graph.Edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	type nodeInfo struct {
		index   int
		lowlink int
		onStack bool
	}
	info := map[string]*nodeInfo{}
	index := 0
	var stack []string
	result := [][]string{}

	var strongconnect func(v string)
	strongconnect = func(v string) {
		ni := &nodeInfo{index: index, lowlink: index, onStack: true}
		info[v] = ni
		index++
		stack = append(stack, v)

		for _, w := range adj[v] {
			wi, visited := info[w]
			if !visited {
				strongconnect(w)
				ni.lowlink = min(ni.lowlink, info[w].lowlink)
			} else if wi.onStack {
				ni.lowlink = min(ni.lowlink, wi.index)
			}
		}

		if ni.lowlink != ni.index {
			return
		}
		var scc []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			info[w].onStack = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		// Edges never join a header to itself, so only groups form cycles.
		if len(scc) > 1 {
			for i, j := 0, len(scc)-1; i < j; i, j = i+1, j-1 {
				scc[i], scc[j] = scc[j], scc[i]
			}
			result = append(result, append(scc, scc[0]))
		}
	}

	for _, h := range graph.Headers {
		if _, visited := info[h.Name]; !visited {
			strongconnect(h.Name)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i][0] < result[j][0] })
	return result, nil
}
