package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIGenResult summarizes one gen run.
type CLIGenResult struct {
	Module      string          `json:"module"`
	Digest      string          `json:"digest"`
	Files       []string        `json:"files"`
	Stats       CLIStats        `json:"stats"`
	Diagnostics []CLIDiagnostic `json:"diagnostics"`
	Renames     []CLIRename     `json:"renames"`
}

type CLIStats struct {
	Items    int            `json:"items"`
	Accepted int            `json:"accepted"`
	Excluded int            `json:"excluded"`
	Emitted  int            `json:"emitted"`
	Shims    int            `json:"shims"`
	ByReason map[string]int `json:"by_reason"`
}

// CLIParseResult summarizes a parse run.
type CLIParseResult struct {
	Output   string `json:"output,omitempty"`
	Headers  int    `json:"headers"`
	Entities int    `json:"entities"`
}

// CLIItem is a JSON-friendly recorded item.
type CLIItem struct {
	ID         int64  `json:"id"`
	Key        string `json:"key"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	BridgeName string `json:"bridge_name,omitempty"`
	Header     string `json:"header,omitempty"`
	Accepted   bool   `json:"accepted"`
	Reason     string `json:"reason,omitempty"`
}

// CLITypeClass is a JSON-friendly type database entry.
type CLITypeClass struct {
	Type   string   `json:"type"`
	Class  string   `json:"class"`
	Flags  []string `json:"flags,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

type CLIDiagnostic struct {
	QualifiedName string `json:"qualified_name"`
	ReasonKind    string `json:"reason_kind"`
	HumanMessage  string `json:"human_message"`
}

type CLIShim struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Item   string `json:"item"`
	Native string `json:"native"`
}

type CLIRename struct {
	Generated string `json:"generated"`
	Original  string `json:"original"`
	Signature string `json:"signature"`
}

// CLIItemDetail is a JSON-friendly item detail.
type CLIItemDetail struct {
	Item        CLIItem         `json:"item"`
	TypeClasses []CLITypeClass  `json:"type_classes"`
	DependsOn   []CLIItem       `json:"depends_on"`
	DependedBy  []CLIItem       `json:"depended_by"`
	Shims       []CLIShim       `json:"shims"`
	Renames     []CLIRename     `json:"renames"`
	Diagnostic  *CLIDiagnostic  `json:"diagnostic,omitempty"`
}

// CLIDependencyGraph is a JSON-friendly transitive dependency graph.
type CLIDependencyGraph struct {
	Root  string         `json:"root"`
	Nodes []CLIGraphNode `json:"nodes"`
	Edges []CLIGraphEdge `json:"edges"`
	Depth int            `json:"depth"`
}

type CLIGraphNode struct {
	Item  CLIItem `json:"item"`
	Depth int     `json:"depth"`
}

type CLIGraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CLITypeHierarchy is a JSON-friendly base-class hierarchy.
type CLITypeHierarchy struct {
	Item      CLIItem           `json:"item"`
	Bases     []CLIBaseRelation `json:"bases"`
	Ancestors []CLIItem         `json:"ancestors"`
	Derived   []CLIItem         `json:"derived"`
}

type CLIBaseRelation struct {
	Item    CLIItem `json:"item"`
	Ordinal int     `json:"ordinal"`
}

// CLISummary is a JSON-friendly run summary.
type CLISummary struct {
	Module       string         `json:"module,omitempty"`
	Digest       string         `json:"digest,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty"`
	KindCounts   map[string]int `json:"kind_counts"`
	ReasonCounts map[string]int `json:"reason_counts"`
	ClassCounts  map[string]int `json:"class_counts"`
}

// CLIHeaderGraph is a JSON-friendly header dependency graph.
type CLIHeaderGraph struct {
	Headers []CLIHeaderNode `json:"headers"`
	Edges   []CLIHeaderEdge `json:"edges"`
}

type CLIHeaderNode struct {
	Name     string `json:"name"`
	Items    int    `json:"items"`
	Accepted int    `json:"accepted"`
}

type CLIHeaderEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// CLICycle is a group of mutually dependent headers.
type CLICycle struct {
	Headers []string `json:"headers"`
}
