// Package diag defines the diagnostics channel: per-item exclusion reports
// and the crossing-name rename map.
package diag

import (
	"fmt"
	"sort"
)

// Reason is the machine-readable kind of a diagnostic.
type Reason string

const (
	UnsupportedType      Reason = "unsupported_type"
	BlockedDependency    Reason = "blocked_dependency"
	NameCollision        Reason = "name_collision"
	IncompleteDefinition Reason = "incomplete_definition"
	ShimGenerationFailed Reason = "shim_generation_failed"
)

// Reasons lists every reason kind in a fixed order.
var Reasons = []Reason{
	UnsupportedType,
	BlockedDependency,
	NameCollision,
	IncompleteDefinition,
	ShimGenerationFailed,
}

// Valid reports whether r is a known reason kind.
func (r Reason) Valid() bool {
	for _, k := range Reasons {
		if k == r {
			return true
		}
	}
	return false
}

// Diagnostic explains why one C++ entity was not emitted.
type Diagnostic struct {
	QualifiedName string `json:"qualified_name"`
	Reason        Reason `json:"reason_kind"`
	Message       string `json:"human_message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.QualifiedName, d.Reason, d.Message)
}

// Rename maps a generated crossing name back to the C++ entity it names.
type Rename struct {
	Generated string `json:"generated"`
	Original  string `json:"original"`
	Signature string `json:"signature"`
}

// Sort orders diagnostics by qualified name, then reason, then message.
func Sort(ds []Diagnostic) {
	sort.Slice(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.QualifiedName != b.QualifiedName {
			return a.QualifiedName < b.QualifiedName
		}
		if a.Reason != b.Reason {
			return a.Reason < b.Reason
		}
		return a.Message < b.Message
	})
}

// SortRenames orders renames by generated name.
func SortRenames(rs []Rename) {
	sort.Slice(rs, func(i, j int) bool {
		return rs[i].Generated < rs[j].Generated
	})
}

// Count tallies diagnostics per reason.
func Count(ds []Diagnostic) map[Reason]int {
	out := make(map[Reason]int, len(Reasons))
	for _, d := range ds {
		out[d.Reason]++
	}
	return out
}
