// Package typedb is the classification table consulted and refined by every
// analysis pass. Each known C++ type key maps to a crossing classification
// plus the trait flags it was derived from.
package typedb

import (
	"fmt"
	"sort"
	"strings"
)

// Class is a crossing classification. The numeric order is the refinement
// order: a type's class only ever moves to a higher value within a run.
type Class int

const (
	Unresolved Class = iota
	Trivial
	NonTrivial
	ReferenceOnly
	Unsupported
)

func (c Class) String() string {
	switch c {
	case Unresolved:
		return "unresolved"
	case Trivial:
		return "trivial-value"
	case NonTrivial:
		return "non-trivial-by-value"
	case ReferenceOnly:
		return "reference-only"
	case Unsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// ParseClass is the inverse of Class.String.
func ParseClass(s string) (Class, error) {
	for c := Unresolved; c <= Unsupported; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return Unresolved, fmt.Errorf("typedb: unknown classification %q", s)
}

// Terminal reports whether the class is a final decision.
func (c Class) Terminal() bool {
	return c != Unresolved
}

// Crossable reports whether values of the class may cross the boundary in
// some form (by value, boxed, or behind a pointer).
func (c Class) Crossable() bool {
	return c == Trivial || c == NonTrivial || c == ReferenceOnly
}

// Flags are the trait facts recorded for a type.
type Flags struct {
	CopyConstructible    bool
	MoveConstructible    bool
	TriviallyRelocatable bool
	UserDestructor       bool
	Abstract             bool
	AddressSensitive     bool
	Polymorphic          bool
	Incomplete           bool
	// Ambiguous means the frontend could not derive traits at all.
	Ambiguous bool
	// BridgeKnown types are understood natively by the bridge backend and
	// need no special-member shims.
	BridgeKnown bool
	// Owning marks the standard smart pointers.
	Owning bool
}

// Names returns the set flags by name, in a fixed order.
func (f Flags) Names() []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(f.CopyConstructible, "copy_constructible")
	add(f.MoveConstructible, "move_constructible")
	add(f.TriviallyRelocatable, "trivially_relocatable")
	add(f.UserDestructor, "user_destructor")
	add(f.Abstract, "abstract")
	add(f.AddressSensitive, "address_sensitive")
	add(f.Polymorphic, "polymorphic")
	add(f.Incomplete, "incomplete")
	add(f.Ambiguous, "ambiguous")
	add(f.BridgeKnown, "bridge_known")
	add(f.Owning, "owning")
	return out
}

func (f Flags) String() string {
	return strings.Join(f.Names(), ",")
}

// Entry is one row of the database.
type Entry struct {
	Key   string
	Class Class
	Flags Flags
	// Def is the ID of the defining item, empty for builtins and seeded
	// library types.
	Def string
	// Reason explains an Unsupported or ReferenceOnly decision.
	Reason string
}

// DB maps type keys to entries. It is not safe for concurrent use; a run
// owns exactly one DB.
type DB struct {
	entries map[string]*Entry
}

// New returns an empty database.
func New() *DB {
	return &DB{entries: make(map[string]*Entry)}
}

// Declare registers a type key with its defining item and trait flags. A
// second declaration keeps the existing class and fills in a missing Def.
func (db *DB) Declare(key, def string, flags Flags) *Entry {
	e, ok := db.entries[key]
	if !ok {
		e = &Entry{Key: key, Def: def, Flags: flags}
		db.entries[key] = e
		return e
	}
	if e.Def == "" {
		e.Def = def
	}
	return e
}

// Refine records class c for key and returns the class now stored. The
// stored class never decreases: refining a non-trivial type to trivial
// leaves it non-trivial. Refining an undeclared key declares it.
func (db *DB) Refine(key string, c Class, reason string) Class {
	e := db.Declare(key, "", Flags{})
	if c > e.Class {
		e.Class = c
		if reason != "" {
			e.Reason = reason
		}
	}
	return e.Class
}

// Class returns the stored class for key, Unresolved when unknown.
func (db *DB) Class(key string) Class {
	if e, ok := db.entries[key]; ok {
		return e.Class
	}
	return Unresolved
}

// Lookup returns the entry for key.
func (db *DB) Lookup(key string) (*Entry, bool) {
	e, ok := db.entries[key]
	return e, ok
}

// Len returns the number of entries.
func (db *DB) Len() int {
	return len(db.entries)
}

// Entries returns all entries sorted by key.
func (db *DB) Entries() []*Entry {
	out := make([]*Entry, 0, len(db.entries))
	for _, e := range db.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Unresolved returns the keys still lacking a terminal class, sorted.
func (db *DB) Unresolved() []string {
	var out []string
	for k, e := range db.entries {
		if !e.Class.Terminal() {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
