package store

import "time"

// Run summarizes one committed generation run.
type Run struct {
	ID        int64
	Module    string
	Digest    string
	Items     int
	Accepted  int
	Excluded  int
	Shims     int
	CreatedAt time.Time
}

// Item is one API item of the analysed graph.
type Item struct {
	ID         int64
	Key        string // item ID in the graph
	Kind       string
	Name       string
	BridgeName string
	Header     string
	Accepted   bool
	Reason     string // exclusion reason kind, empty when accepted
}

// TypeClass is one type database entry.
type TypeClass struct {
	ID      int64
	TypeKey string
	Class   string
	Flags   []string
	Reason  string
	ItemID  *int64 // defining item, nil for builtins and library types
}

// Dependency is an edge from an item to an item it depends on.
type Dependency struct {
	ID          int64
	ItemID      int64
	DependsOnID int64
}

// Base is one base-class clause resolved to a graph item.
type Base struct {
	ID        int64
	DerivedID int64
	BaseID    int64
	Ordinal   int
}

type Diagnostic struct {
	ID            int64
	QualifiedName string
	ReasonKind    string
	HumanMessage  string
}

type Shim struct {
	ID     int64
	ItemID int64
	Name   string
	Kind   string
	Native string
}

type Rename struct {
	ID        int64
	Generated string
	Original  string
	Signature string
}
