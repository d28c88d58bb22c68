package typedb

import "strings"

// StdKind identifies a standard library type the bridge backend supports
// natively.
type StdKind int

const (
	StdNone StdKind = iota
	StdString
	StdUniquePtr
	StdSharedPtr
	StdVector
)

func (k StdKind) String() string {
	switch k {
	case StdString:
		return "string"
	case StdUniquePtr:
		return "unique_ptr"
	case StdSharedPtr:
		return "shared_ptr"
	case StdVector:
		return "vector"
	default:
		return "none"
	}
}

var stdNames = map[string]StdKind{
	"std::string":     StdString,
	"std::unique_ptr": StdUniquePtr,
	"std::shared_ptr": StdSharedPtr,
	"std::vector":     StdVector,
}

// Std reports which bridge-known library type name refers to. For
// templates, name is the template name without arguments.
func Std(name string) StdKind {
	return stdNames[name]
}

// IsStd reports whether name lives in namespace std.
func IsStd(name string) bool {
	return strings.HasPrefix(name, "std::")
}

// StdArity is the number of template arguments a bridge-known template
// takes, zero for non-templates.
func (k StdKind) StdArity() int {
	switch k {
	case StdUniquePtr, StdSharedPtr, StdVector:
		return 1
	default:
		return 0
	}
}

// SeedStd declares the bridge-known non-template library types.
func SeedStd(db *DB) {
	e := db.Declare("std::string", "", Flags{
		CopyConstructible: true,
		MoveConstructible: true,
		UserDestructor:    true,
		BridgeKnown:       true,
	})
	db.Refine(e.Key, NonTrivial, "")
}
