package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/cxxbind"
)

// --- Item Commands ---

var itemCmd = &cobra.Command{
	Use:   "item <key>",
	Short: "Show everything recorded about one item",
	Long:  "Keys are qualified names for types and signatures for functions, e.g. 'geo::norm(const geo::Point &)'.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("item", func(q *cxxbind.QueryBuilder) (CLIResult, error) {
			d, err := q.ItemDetail(args[0])
			if err != nil {
				return CLIResult{}, err
			}
			if d == nil {
				return CLIResult{}, fmt.Errorf("no item %q", args[0])
			}
			out := CLIItemDetail{
				Item:        itemToCLI(d.Item),
				TypeClasses: make([]CLITypeClass, len(d.TypeClasses)),
				DependsOn:   itemsToCLI(d.DependsOn),
				DependedBy:  itemsToCLI(d.DependedBy),
				Shims:       make([]CLIShim, len(d.Shims)),
				Renames:     make([]CLIRename, len(d.Renames)),
			}
			for i, tc := range d.TypeClasses {
				out.TypeClasses[i] = typeClassToCLI(tc)
			}
			for i, sh := range d.Shims {
				out.Shims[i] = CLIShim{Name: sh.Name, Kind: sh.Kind, Item: d.Item.Key, Native: sh.Native}
			}
			for i, rn := range d.Renames {
				out.Renames[i] = renameToCLI(rn)
			}
			if d.Diagnostic != nil {
				cd := diagnosticToCLI(*d.Diagnostic)
				out.Diagnostic = &cd
			}
			return CLIResult{Results: out, TotalCount: count(1)}, nil
		})
	},
}

var (
	flagKind         string
	flagAccepted     string
	flagHeaderPrefix string
)

var searchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Search items by qualified name; * matches any run of characters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("search", func(q *cxxbind.QueryBuilder) (CLIResult, error) {
			filter, err := buildItemFilter()
			if err != nil {
				return CLIResult{}, err
			}
			page, err := q.SearchItems(args[0], filter, buildSort(), buildPagination())
			if err != nil {
				return CLIResult{}, err
			}
			return CLIResult{Results: itemsToCLI(page.Items), TotalCount: count(page.TotalCount)}, nil
		})
	},
}

func buildItemFilter() (cxxbind.ItemFilter, error) {
	var filter cxxbind.ItemFilter
	filter.Kinds = splitList(flagKind)
	switch flagAccepted {
	case "":
	case "true", "false":
		v := flagAccepted == "true"
		filter.Accepted = &v
	default:
		return filter, fmt.Errorf("invalid --accepted %q: must be true or false", flagAccepted)
	}
	if flagHeaderPrefix != "" {
		filter.HeaderPrefix = &flagHeaderPrefix
	}
	return filter, nil
}

// --- Graph Commands ---

var depsCmd = &cobra.Command{
	Use:   "deps <key>",
	Short: "Show what an item transitively depends on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxDepth, _ := cmd.Flags().GetInt("max-depth")
		return withQuery("deps", func(q *cxxbind.QueryBuilder) (CLIResult, error) {
			return graphResult(q.Dependencies(args[0], maxDepth))
		})
	},
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents <key>",
	Short: "Show what transitively depends on an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxDepth, _ := cmd.Flags().GetInt("max-depth")
		return withQuery("dependents", func(q *cxxbind.QueryBuilder) (CLIResult, error) {
			return graphResult(q.Dependents(args[0], maxDepth))
		})
	},
}

func graphResult(g *cxxbind.DependencyGraph, err error) (CLIResult, error) {
	if err != nil {
		return CLIResult{}, err
	}
	if g == nil {
		return CLIResult{Results: nil}, nil
	}
	out := CLIDependencyGraph{
		Root:  g.Root,
		Nodes: make([]CLIGraphNode, len(g.Nodes)),
		Edges: make([]CLIGraphEdge, len(g.Edges)),
		Depth: g.Depth,
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = CLIGraphNode{Item: itemToCLI(n.Item), Depth: n.Depth}
	}
	for i, e := range g.Edges {
		out.Edges[i] = CLIGraphEdge{From: e.From, To: e.To}
	}
	return CLIResult{Results: out, TotalCount: count(len(out.Nodes))}, nil
}

var basesCmd = &cobra.Command{
	Use:   "bases <key>",
	Short: "Show the base classes and derived records of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("bases", func(q *cxxbind.QueryBuilder) (CLIResult, error) {
			h, err := q.TypeHierarchy(args[0])
			if err != nil {
				return CLIResult{}, err
			}
			if h == nil {
				return CLIResult{Results: nil}, nil
			}
			out := CLITypeHierarchy{
				Item:      itemToCLI(h.Item),
				Bases:     make([]CLIBaseRelation, len(h.Bases)),
				Ancestors: itemsToCLI(h.Ancestors),
				Derived:   itemsToCLI(h.Derived),
			}
			for i, b := range h.Bases {
				out.Bases[i] = CLIBaseRelation{Item: itemToCLI(b.Item), Ordinal: b.Ordinal}
			}
			return CLIResult{Results: out, TotalCount: count(1)}, nil
		})
	},
}

var headersCmd = &cobra.Command{
	Use:   "headers",
	Short: "Show the header dependency graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("headers", func(q *cxxbind.QueryBuilder) (CLIResult, error) {
			g, err := q.HeaderDependencyGraph()
			if err != nil {
				return CLIResult{}, err
			}
			out := CLIHeaderGraph{
				Headers: make([]CLIHeaderNode, len(g.Headers)),
				Edges:   make([]CLIHeaderEdge, len(g.Edges)),
			}
			for i, h := range g.Headers {
				out.Headers[i] = CLIHeaderNode{Name: h.Name, Items: h.Items, Accepted: h.Accepted}
			}
			for i, e := range g.Edges {
				out.Edges[i] = CLIHeaderEdge{From: e.From, To: e.To, Count: e.Count}
			}
			return CLIResult{Results: out, TotalCount: count(len(out.Headers))}, nil
		})
	},
}

var headerCyclesCmd = &cobra.Command{
	Use:   "header-cycles",
	Short: "Detect headers whose declarations depend on each other",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("header-cycles", func(q *cxxbind.QueryBuilder) (CLIResult, error) {
			cycles, err := q.HeaderCycles()
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLICycle, len(cycles))
			for i, c := range cycles {
				out[i] = CLICycle{Headers: c}
			}
			return CLIResult{Results: out, TotalCount: count(len(out))}, nil
		})
	},
}

func init() {
	searchCmd.Flags().StringVar(&flagKind, "kind", "", "comma-separated kinds (struct,function,method,...)")
	searchCmd.Flags().StringVar(&flagAccepted, "accepted", "", "filter by acceptance: true|false")
	searchCmd.Flags().StringVar(&flagHeaderPrefix, "header-prefix", "", "filter by header path prefix")

	depsCmd.Flags().Int("max-depth", 5, "maximum traversal depth (0-100)")
	dependentsCmd.Flags().Int("max-depth", 5, "maximum traversal depth (0-100)")
}
