package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/cxxbind"
	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/store"
)

var (
	flagLimit  int
	flagOffset int
	flagSort   string
	flagOrder  string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect the recorded run",
	Long:  "Query the classifications, exclusions, shims and dependency edges of the last gen run.",
}

func init() {
	inspectCmd.PersistentFlags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	inspectCmd.PersistentFlags().IntVar(&flagOffset, "offset", 0, "pagination offset")
	inspectCmd.PersistentFlags().StringVar(&flagSort, "sort", "", "sort field: key|name|kind|header|bridge")
	inspectCmd.PersistentFlags().StringVar(&flagOrder, "order", "asc", "sort order: asc|desc")

	inspectCmd.AddCommand(summaryCmd)
	inspectCmd.AddCommand(typesCmd)
	inspectCmd.AddCommand(diagnosticsCmd)
	inspectCmd.AddCommand(shimsCmd)
	inspectCmd.AddCommand(renamesCmd)
	inspectCmd.AddCommand(itemCmd)
	inspectCmd.AddCommand(searchCmd)
	inspectCmd.AddCommand(depsCmd)
	inspectCmd.AddCommand(dependentsCmd)
	inspectCmd.AddCommand(basesCmd)
	inspectCmd.AddCommand(headersCmd)
	inspectCmd.AddCommand(headerCyclesCmd)
}

// --- Helpers ---

// openStore opens the Store from the --db flag path (or default).
func openStore() (*store.Store, error) {
	dbPath, err := currentDBPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'cxxbind gen' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

// withQuery opens the store, runs fn, and closes the store.
func withQuery(command string, fn func(q *cxxbind.QueryBuilder) (CLIResult, error)) error {
	s, err := openStore()
	if err != nil {
		return outputError(command, err)
	}
	defer s.Close()

	result, err := fn(cxxbind.NewQueryBuilder(s))
	if err != nil {
		return outputError(command, err)
	}
	result.Command = command
	return outputResult(result)
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

func buildPagination() cxxbind.Pagination {
	return cxxbind.Pagination{Limit: flagLimit, Offset: flagOffset}
}

func buildSort() cxxbind.Sort {
	var field cxxbind.SortField
	switch flagSort {
	case "name":
		field = cxxbind.SortByName
	case "kind":
		field = cxxbind.SortByKind
	case "header":
		field = cxxbind.SortByHeader
	case "bridge":
		field = cxxbind.SortByBridge
	default:
		field = cxxbind.SortByKey
	}
	order := cxxbind.Asc
	if flagOrder == "desc" {
		order = cxxbind.Desc
	}
	return cxxbind.Sort{Field: field, Order: order}
}

func itemToCLI(it cxxbind.Item) CLIItem {
	return CLIItem{
		ID:         it.ID,
		Key:        it.Key,
		Kind:       it.Kind,
		Name:       it.Name,
		BridgeName: it.BridgeName,
		Header:     it.Header,
		Accepted:   it.Accepted,
		Reason:     it.Reason,
	}
}

func itemsToCLI(items []cxxbind.Item) []CLIItem {
	out := make([]CLIItem, len(items))
	for i, it := range items {
		out[i] = itemToCLI(it)
	}
	return out
}

func typeClassToCLI(tc *cxxbind.TypeClass) CLITypeClass {
	return CLITypeClass{Type: tc.TypeKey, Class: tc.Class, Flags: tc.Flags, Reason: tc.Reason}
}

func diagnosticToCLI(d cxxbind.Diagnostic) CLIDiagnostic {
	return CLIDiagnostic{QualifiedName: d.QualifiedName, ReasonKind: string(d.Reason), HumanMessage: d.Message}
}

func renameToCLI(rn cxxbind.Rename) CLIRename {
	return CLIRename{Generated: rn.Generated, Original: rn.Original, Signature: rn.Signature}
}

func count(n int) *int {
	return &n
}

// --- Run Overview Commands ---

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show counts over the recorded run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("summary", func(q *cxxbind.QueryBuilder) (CLIResult, error) {
			sum, err := q.Summary()
			if err != nil {
				return CLIResult{}, err
			}
			out := CLISummary{
				KindCounts:   sum.KindCounts,
				ReasonCounts: sum.ReasonCounts,
				ClassCounts:  sum.ClassCounts,
			}
			if sum.Run != nil {
				out.Module = sum.Run.Module
				out.Digest = sum.Run.Digest
				out.CreatedAt = sum.Run.CreatedAt.Format(time.RFC3339)
			}
			return CLIResult{Results: out, TotalCount: count(1)}, nil
		})
	},
}

var flagClass string

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the type database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("types", func(q *cxxbind.QueryBuilder) (CLIResult, error) {
			tcs, err := q.TypeClasses(flagClass)
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLITypeClass, len(tcs))
			for i, tc := range tcs {
				out[i] = typeClassToCLI(tc)
			}
			return CLIResult{Results: out, TotalCount: count(len(out))}, nil
		})
	},
}

var flagReason string

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "List excluded entities and why",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("diagnostics", func(q *cxxbind.QueryBuilder) (CLIResult, error) {
			diags, err := q.Diagnostics(diag.Reason(flagReason))
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLIDiagnostic, len(diags))
			for i, d := range diags {
				out[i] = diagnosticToCLI(d)
			}
			return CLIResult{Results: out, TotalCount: count(len(out))}, nil
		})
	},
}

var shimsCmd = &cobra.Command{
	Use:   "shims",
	Short: "List generated native shims",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("shims", func(q *cxxbind.QueryBuilder) (CLIResult, error) {
			shims, err := q.Shims()
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLIShim, len(shims))
			for i, sh := range shims {
				out[i] = CLIShim{Name: sh.Name, Kind: sh.Kind, Item: sh.ItemKey, Native: sh.Native}
			}
			return CLIResult{Results: out, TotalCount: count(len(out))}, nil
		})
	},
}

var renamesCmd = &cobra.Command{
	Use:   "renames [qualified-name]",
	Short: "Map generated crossing names back to C++ entities",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("renames", func(q *cxxbind.QueryBuilder) (CLIResult, error) {
			var original string
			if len(args) == 1 {
				original = args[0]
			}
			renames, err := q.Renames(original)
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLIRename, len(renames))
			for i, rn := range renames {
				out[i] = renameToCLI(rn)
			}
			return CLIResult{Results: out, TotalCount: count(len(out))}, nil
		})
	},
}

func init() {
	typesCmd.Flags().StringVar(&flagClass, "class", "", "filter by class: trivial-value|non-trivial-by-value|reference-only|unsupported")
	diagnosticsCmd.Flags().StringVar(&flagReason, "reason", "", "filter by reason kind")
}
