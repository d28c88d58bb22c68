package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
)

// formatItemsText formats CLIItem results as aligned columns.
func formatItemsText(w io.Writer, items []CLIItem) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tKIND\tBRIDGE\tHEADER\tSTATUS")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.Key, it.Kind, it.BridgeName, it.Header, itemStatus(it))
	}
	tw.Flush()
}

func itemStatus(it CLIItem) string {
	if it.Accepted {
		return "accepted"
	}
	return "excluded: " + it.Reason
}

func formatTypeClassesText(w io.Writer, tcs []CLITypeClass) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tCLASS\tFLAGS\tREASON")
	for _, tc := range tcs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", tc.Type, tc.Class, strings.Join(tc.Flags, ","), tc.Reason)
	}
	tw.Flush()
}

// formatDiagnosticsText prints one diagnostic per line in the same form the
// gen command reports them.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s: %s: %s\n", d.QualifiedName, d.ReasonKind, d.HumanMessage)
	}
}

func formatShimsText(w io.Writer, shims []CLIShim) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SHIM\tKIND\tITEM")
	for _, sh := range shims {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", sh.Name, sh.Kind, sh.Item)
	}
	tw.Flush()
}

func formatRenamesText(w io.Writer, renames []CLIRename) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GENERATED\tSIGNATURE")
	for _, rn := range renames {
		fmt.Fprintf(tw, "%s\t%s\n", rn.Generated, rn.Signature)
	}
	tw.Flush()
}

func formatCountsText(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, counts[k])
	}
	fmt.Fprintln(w)
}

func formatSummaryText(w io.Writer, s CLISummary) {
	fmt.Fprintln(w, "Run Summary")
	fmt.Fprintln(w, "===========")
	if s.Module == "" {
		fmt.Fprintln(w, "No run recorded.")
		return
	}
	fmt.Fprintf(w, "Module: %s\n", s.Module)
	fmt.Fprintf(w, "Digest: %s\n", s.Digest)
	fmt.Fprintf(w, "Created: %s\n", s.CreatedAt)
	fmt.Fprintln(w)
	formatCountsText(w, "Items by kind", s.KindCounts)
	formatCountsText(w, "Exclusions by reason", s.ReasonCounts)
	formatCountsText(w, "Types by class", s.ClassCounts)
}

func formatGenText(w io.Writer, g CLIGenResult) {
	fmt.Fprintf(w, "Module: %s (%s)\n", g.Module, g.Digest)
	for _, f := range g.Files {
		fmt.Fprintf(w, "  wrote %s\n", f)
	}
	fmt.Fprintf(w, "Items: %d accepted, %d excluded, %d shims\n", g.Stats.Accepted, g.Stats.Excluded, g.Stats.Shims)
	if len(g.Diagnostics) > 0 {
		fmt.Fprintln(w)
		formatDiagnosticsText(w, g.Diagnostics)
	}
}

func formatItemDetailText(w io.Writer, d CLIItemDetail) {
	fmt.Fprintf(w, "Item: %s (%s)\n", d.Item.Key, d.Item.Kind)
	if d.Item.BridgeName != "" {
		fmt.Fprintf(w, "Bridge: %s\n", d.Item.BridgeName)
	}
	if d.Item.Header != "" {
		fmt.Fprintf(w, "Header: %s\n", d.Item.Header)
	}
	fmt.Fprintf(w, "Status: %s\n", itemStatus(d.Item))
	if d.Diagnostic != nil {
		fmt.Fprintf(w, "Diagnostic: %s\n", d.Diagnostic.HumanMessage)
	}
	for _, tc := range d.TypeClasses {
		fmt.Fprintf(w, "Class: %s\n", tc.Class)
	}
	printKeys := func(title string, items []CLIItem) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s:\n", title)
		for _, it := range items {
			fmt.Fprintf(w, "  %s\n", it.Key)
		}
	}
	printKeys("Depends on", d.DependsOn)
	printKeys("Depended by", d.DependedBy)
	if len(d.Shims) > 0 {
		fmt.Fprintln(w, "\nShims:")
		for _, sh := range d.Shims {
			fmt.Fprintf(w, "  %s\n", sh.Native)
		}
	}
}

func formatGraphText(w io.Writer, g CLIDependencyGraph) {
	for _, n := range g.Nodes {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", n.Depth), n.Item.Key)
	}
}

func formatHierarchyText(w io.Writer, h CLITypeHierarchy) {
	fmt.Fprintf(w, "%s\n", h.Item.Key)
	for _, b := range h.Bases {
		fmt.Fprintf(w, "  base %d: %s\n", b.Ordinal, b.Item.Key)
	}
	for _, a := range h.Ancestors {
		fmt.Fprintf(w, "  ancestor: %s\n", a.Key)
	}
	for _, d := range h.Derived {
		fmt.Fprintf(w, "  derived: %s\n", d.Key)
	}
}

func formatHeaderGraphText(w io.Writer, g CLIHeaderGraph) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HEADER\tITEMS\tACCEPTED")
	for _, h := range g.Headers {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", h.Name, h.Items, h.Accepted)
	}
	tw.Flush()
	if len(g.Edges) > 0 {
		fmt.Fprintln(w)
		for _, e := range g.Edges {
			fmt.Fprintf(w, "%s -> %s (%d)\n", e.From, e.To, e.Count)
		}
	}
}

func formatCyclesText(w io.Writer, cycles []CLICycle) {
	for _, c := range cycles {
		fmt.Fprintln(w, strings.Join(c.Headers, " -> "))
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case CLIGenResult:
		formatGenText(w, v)
	case CLIParseResult:
		fmt.Fprintf(w, "%d entities from %d headers\n", v.Entities, v.Headers)
	case []CLIItem:
		formatItemsText(w, v)
	case []CLITypeClass:
		formatTypeClassesText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case []CLIShim:
		formatShimsText(w, v)
	case []CLIRename:
		formatRenamesText(w, v)
	case CLISummary:
		formatSummaryText(w, v)
	case CLIItemDetail:
		formatItemDetailText(w, v)
	case CLIDependencyGraph:
		formatGraphText(w, v)
	case CLITypeHierarchy:
		formatHierarchyText(w, v)
	case CLIHeaderGraph:
		formatHeaderGraphText(w, v)
	case []CLICycle:
		formatCyclesText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIItem:
		return len(r)
	case []CLITypeClass:
		return len(r)
	case []CLIDiagnostic:
		return len(r)
	case []CLIShim:
		return len(r)
	case []CLIRename:
		return len(r)
	case []CLICycle:
		return len(r)
	case CLIDependencyGraph:
		return len(r.Nodes)
	case CLIHeaderGraph:
		return len(r.Headers)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
