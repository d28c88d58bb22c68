package analysis

import (
	"fmt"

	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/ir"
	"github.com/jward/cxxbind/internal/typedb"
)

// classify assigns a terminal classification to every type item, bottom-up
// over value membership, then checks every function signature against the
// result.
func (r *Result) classify() error {
	g := r.Graph
	typedb.SeedStd(r.DB)
	// Blocked roots and their users are settled before anything is
	// classified, so their dependents keep the blocked_dependency reason.
	r.Propagate()

	var nodes []string
	edges := make(map[string][]string)
	refs := make(map[string][]string)
	for _, it := range g.Items() {
		switch it.Kind {
		case ir.KindStruct, ir.KindInstantiation, ir.KindEnum, ir.KindTypedef:
			r.DB.Declare(it.ID, it.ID, flagsOf(it))
			if !it.Accepted() {
				r.DB.Refine(it.ID, typedb.Unsupported, "excluded: "+it.Excluded.Message)
				continue
			}
			nodes = append(nodes, it.ID)
			edges[it.ID] = valueDeps(it)
			refs[it.ID] = refDeps(it)
		case ir.KindFunction, ir.KindMethod, ir.KindTemplate, ir.KindSubclass:
		default:
			panic(fmt.Sprintf("classify: unhandled kind %s", it.Kind))
		}
	}

	order, cyclic := valueOrder(nodes, edges)
	if len(cyclic) > 0 {
		return &FatalError{Pass: "classify", Msg: "cyclic value membership", Members: cycleMembers(cyclic, edges)}
	}
	for _, id := range order {
		r.classifyType(g.Item(id))
	}
	r.TypeOrder = declOrder(nodes, refs)
	r.Propagate()

	for _, it := range g.Items() {
		if !it.Accepted() {
			continue
		}
		switch it.Kind {
		case ir.KindFunction, ir.KindMethod:
			r.checkSignature(it)
		case ir.KindStruct, ir.KindInstantiation, ir.KindEnum, ir.KindTypedef, ir.KindTemplate, ir.KindSubclass:
		default:
			panic(fmt.Sprintf("classify: unhandled kind %s", it.Kind))
		}
	}
	r.Propagate()
	return nil
}

func (r *Result) classifyType(it *ir.Item) {
	var (
		c      typedb.Class
		reason string
	)
	switch it.Kind {
	case ir.KindEnum:
		c = typedb.Trivial
	case ir.KindTypedef:
		c, reason = r.typeClass(it.Target)
		if it.IllFormed {
			c, reason = typedb.Unsupported, "declaration is ill-formed"
		}
	case ir.KindStruct, ir.KindInstantiation:
		c, reason = r.recordClass(it)
	default:
		panic(fmt.Sprintf("classify: %s is not a type", it.Kind))
	}
	e, _ := r.DB.Lookup(it.ID)
	e.Flags.Polymorphic = it.Polymorphic
	c = r.DB.Refine(it.ID, c, reason)

	switch {
	case c == typedb.Unsupported:
		r.exclude(it.ID, diag.UnsupportedType, reason)
	case it.Pod && c != typedb.Trivial:
		msg := fmt.Sprintf("generate_pod: type is %s", c)
		if reason != "" {
			msg += " (" + reason + ")"
		}
		r.exclude(it.ID, diag.UnsupportedType, msg)
	}
}

// recordClass applies the record rules in order; the first rule that
// decides wins, and member checks can only raise the result.
func (r *Result) recordClass(it *ir.Item) (typedb.Class, string) {
	if it.IllFormed {
		return typedb.Unsupported, "declaration is ill-formed"
	}
	if it.Incomplete {
		return typedb.ReferenceOnly, "incomplete type"
	}
	for _, b := range it.Bases {
		if base := r.Graph.Item(b.Def); base != nil && base.Polymorphic {
			it.Polymorphic = true
		}
	}
	if it.Abstract {
		return typedb.ReferenceOnly, "abstract class"
	}

	c, reason := typedb.Trivial, ""
	raise := func(to typedb.Class, why string) {
		if to > c {
			c, reason = to, why
		}
	}
	switch {
	case it.Traits == nil:
		raise(typedb.NonTrivial, "trait flags unavailable")
	case it.Polymorphic:
		raise(typedb.NonTrivial, "has virtual methods")
	case it.Traits.UserDestructor:
		raise(typedb.NonTrivial, "user-declared destructor")
	case !it.Traits.TriviallyRelocatable:
		raise(typedb.NonTrivial, "not trivially relocatable")
	case it.Traits.AddressSensitive:
		raise(typedb.NonTrivial, "address-sensitive")
	}

	for _, b := range it.Bases {
		bc, why, unknown := r.valueClass(b)
		switch {
		case unknown:
			raise(typedb.NonTrivial, fmt.Sprintf("base %s has unknown classification", b.Spell()))
		case bc == typedb.Unresolved:
			raise(typedb.NonTrivial, fmt.Sprintf("base %s is unresolved", b.Spell()))
		case bc == typedb.Unsupported:
			raise(typedb.Unsupported, fmt.Sprintf("base %s: %s", b.Spell(), why))
		case bc == typedb.ReferenceOnly && r.incomplete(b):
			raise(typedb.Unsupported, fmt.Sprintf("base %s is incomplete", b.Spell()))
		case bc != typedb.Trivial:
			raise(typedb.NonTrivial, fmt.Sprintf("base %s is %s", b.Spell(), bc))
		}
	}
	for _, f := range it.Fields {
		if f.Type.IsIndirect() {
			pc, _, unknown := r.valueClass(f.Type.Named())
			if unknown || pc == typedb.Unsupported {
				raise(typedb.NonTrivial, fmt.Sprintf("field %s points to a type of unknown classification", f.Name))
			}
			continue
		}
		fc, why, unknown := r.valueClass(f.Type)
		if f.Private {
			// Private members never cross; they only decide whether the
			// record may be relocated bitwise.
			if unknown || fc != typedb.Trivial {
				raise(typedb.NonTrivial, fmt.Sprintf("private field %s is not trivially relocatable", f.Name))
			}
			continue
		}
		switch {
		case unknown, fc == typedb.Unresolved:
			raise(typedb.NonTrivial, fmt.Sprintf("field %s has unknown classification", f.Name))
		case fc == typedb.Unsupported:
			raise(typedb.Unsupported, fmt.Sprintf("field %s: %s", f.Name, why))
		case fc == typedb.ReferenceOnly:
			raise(typedb.Unsupported, fmt.Sprintf("field %s has reference-only type %s", f.Name, f.Type.Spell()))
		case fc == typedb.NonTrivial:
			raise(typedb.NonTrivial, fmt.Sprintf("field %s is %s", f.Name, fc))
		}
	}
	return c, reason
}

// typeClass classifies any type use. Pointers and references are trivial
// when their pointee is known.
func (r *Result) typeClass(t *ir.Type) (typedb.Class, string) {
	if t.Kind == ir.TypeOpaque {
		return typedb.Unsupported, fmt.Sprintf("%s cannot be represented", t.Spelling)
	}
	if t.IsIndirect() {
		pc, why, unknown := r.valueClass(t.Named())
		if unknown || pc == typedb.Unsupported {
			return typedb.Unsupported, why
		}
		return typedb.Trivial, ""
	}
	c, why, _ := r.valueClass(t)
	return c, why
}

// valueClass classifies a non-indirect type, registering primitive,
// library and unknown keys in the database. unknown is set for names no
// frontend entity defines.
func (r *Result) valueClass(t *ir.Type) (c typedb.Class, reason string, unknown bool) {
	key := t.Key()
	switch t.Kind {
	case ir.TypePrimitive:
		r.DB.Declare(key, "", typedb.Flags{CopyConstructible: true, MoveConstructible: true, TriviallyRelocatable: true})
		return r.DB.Refine(key, typedb.Trivial, ""), "", false
	case ir.TypeOpaque:
		return typedb.Unsupported, fmt.Sprintf("%s cannot be represented", t.Spelling), false
	case ir.TypeValue, ir.TypeInstantiation:
		if typedb.IsStd(t.Name) {
			c, reason := r.stdClass(t)
			return c, reason, false
		}
		if t.Def == "" {
			what := "unknown type"
			if t.Kind == ir.TypeInstantiation {
				what = "unknown template"
			}
			r.DB.Refine(key, typedb.Unsupported, what)
			return typedb.Unsupported, fmt.Sprintf("%s %s", what, key), true
		}
		e, ok := r.DB.Lookup(t.Def)
		if !ok || !e.Class.Terminal() {
			if def := r.Graph.Item(t.Def); def != nil && def.Kind == ir.KindTemplate {
				return typedb.Unsupported, fmt.Sprintf("%s is a template, not a type", t.Name), false
			}
			return typedb.Unresolved, fmt.Sprintf("%s is unresolved", key), false
		}
		return e.Class, e.Reason, false
	case ir.TypePointer, ir.TypeReference, ir.TypeRValueReference:
		return r.typeClassNoReason(t), "", false
	default:
		panic(fmt.Sprintf("classify: unhandled type kind %s", t.Kind))
	}
}

func (r *Result) typeClassNoReason(t *ir.Type) typedb.Class {
	c, _ := r.typeClass(t)
	return c
}

// stdClass classifies names in namespace std. Only the bridge-known types
// cross; everything else in std is unsupported.
func (r *Result) stdClass(t *ir.Type) (typedb.Class, string) {
	key := t.Key()
	kind := typedb.Std(t.Name)
	if kind == typedb.StdNone || (t.Kind == ir.TypeInstantiation) != (kind.StdArity() > 0) || len(t.Args) != kind.StdArity() {
		reason := fmt.Sprintf("%s is not supported", key)
		r.DB.Refine(key, typedb.Unsupported, reason)
		return typedb.Unsupported, reason
	}
	if kind == typedb.StdString {
		return r.DB.Class(key), ""
	}

	arg := t.Args[0]
	if arg.IsIndirect() {
		reason := fmt.Sprintf("%s of a pointer or reference is not supported", key)
		r.DB.Refine(key, typedb.Unsupported, reason)
		return typedb.Unsupported, reason
	}
	ac, why, _ := r.valueClass(arg)
	flags := typedb.Flags{MoveConstructible: true, UserDestructor: true, BridgeKnown: true}
	switch kind {
	case typedb.StdUniquePtr:
		flags.Owning = true
	case typedb.StdSharedPtr:
		flags.Owning = true
		flags.CopyConstructible = true
	case typedb.StdVector:
		flags.CopyConstructible = true
	default:
		panic(fmt.Sprintf("classify: unhandled std kind %s", kind))
	}
	r.DB.Declare(key, "", flags)

	switch {
	case ac == typedb.Unresolved && arg.Def != "":
		// The argument is a record still being classified, as in a node
		// owning its children; owning it through the heap is always valid.
	case ac == typedb.Unsupported:
		return r.DB.Refine(key, typedb.Unsupported, why), why
	case ac == typedb.ReferenceOnly && (kind == typedb.StdVector || r.incomplete(arg)):
		reason := fmt.Sprintf("%s requires a complete value type", key)
		return r.DB.Refine(key, typedb.Unsupported, reason), reason
	}
	return r.DB.Refine(key, typedb.NonTrivial, ""), ""
}

func (r *Result) incomplete(t *ir.Type) bool {
	it := r.Graph.Item(t.Named().Def)
	return it != nil && it.Incomplete
}

// checkSignature excludes a function or method whose parameters or return
// type cannot cross.
func (r *Result) checkSignature(it *ir.Item) {
	if it.IllFormed {
		r.exclude(it.ID, diag.UnsupportedType, "declaration is ill-formed")
		return
	}
	for _, p := range it.Params {
		if reason, msg, ok := r.checkCrossing(p.Type); !ok {
			r.exclude(it.ID, reason, fmt.Sprintf("parameter %s: %s", p.Name, msg))
			return
		}
	}
	if it.Return != nil {
		if reason, msg, ok := r.checkCrossing(it.Return); !ok {
			r.exclude(it.ID, reason, "return type: "+msg)
			return
		}
	}
}

func (r *Result) checkCrossing(t *ir.Type) (diag.Reason, string, bool) {
	if t.Kind == ir.TypeOpaque {
		return diag.UnsupportedType, fmt.Sprintf("%s cannot be represented", t.Spelling), false
	}
	if t.IsIndirect() {
		pointee := t.Named()
		if pointee.IsVoid() {
			return "", "", true
		}
		pc, why, _ := r.valueClass(pointee)
		if pc == typedb.Unsupported {
			return diag.UnsupportedType, why, false
		}
		if t.Kind == ir.TypeRValueReference && pc == typedb.ReferenceOnly {
			return diag.UnsupportedType, fmt.Sprintf("%s cannot be moved", pointee.Spell()), false
		}
		return "", "", true
	}
	if t.IsVoid() {
		return diag.UnsupportedType, "void by value", false
	}
	c, why, _ := r.valueClass(t)
	switch c {
	case typedb.Trivial, typedb.NonTrivial:
		return "", "", true
	case typedb.ReferenceOnly:
		if r.incomplete(t) {
			return diag.IncompleteDefinition, fmt.Sprintf("%s is incomplete and cannot be passed by value", t.Spell()), false
		}
		return diag.UnsupportedType, fmt.Sprintf("%s is reference-only (%s) and cannot be passed by value", t.Spell(), why), false
	case typedb.Unsupported:
		return diag.UnsupportedType, why, false
	case typedb.Unresolved:
		return diag.UnsupportedType, why, false
	default:
		panic(fmt.Sprintf("classify: unhandled class %s", c))
	}
}

// valueDeps lists the type items whose classification the item's own
// classification needs: by-value fields, bases and typedef targets. Owning
// library templates do not count; they hold their argument on the heap.
func valueDeps(it *ir.Item) []string {
	var types []*ir.Type
	for _, f := range it.Fields {
		types = append(types, f.Type)
	}
	types = append(types, it.Bases...)
	if it.Target != nil {
		types = append(types, it.Target)
	}
	var out []string
	for _, t := range types {
		if t.IsIndirect() || t.Def == "" {
			continue
		}
		if t.Def == it.ID && it.Kind == ir.KindTypedef {
			// typedef struct S S; names the tag, not itself.
			continue
		}
		out = append(out, t.Def)
	}
	return out
}

// cycleMembers trims nodes that merely contain a cycle member, leaving the
// members of the cycles themselves.
func cycleMembers(remaining []string, edges map[string][]string) []string {
	left := make(map[string]bool, len(remaining))
	for _, n := range remaining {
		left[n] = true
	}
	for changed := true; changed; {
		changed = false
		used := make(map[string]bool)
		for n := range left {
			for _, d := range edges[n] {
				if left[d] {
					used[d] = true
				}
			}
		}
		for n := range left {
			if !used[n] {
				delete(left, n)
				changed = true
			}
		}
	}
	var out []string
	for _, n := range remaining {
		if left[n] {
			out = append(out, n)
		}
	}
	return out
}

func flagsOf(it *ir.Item) typedb.Flags {
	f := typedb.Flags{
		Polymorphic: it.Polymorphic,
		Incomplete:  it.Incomplete,
		Abstract:    it.Abstract,
	}
	if it.Kind == ir.KindEnum {
		f.CopyConstructible = true
		f.MoveConstructible = true
		f.TriviallyRelocatable = true
		return f
	}
	if it.Traits == nil {
		f.Ambiguous = it.Kind.IsRecord() && !it.Incomplete
		return f
	}
	f.CopyConstructible = it.Traits.CopyConstructible
	f.MoveConstructible = it.Traits.MoveConstructible
	f.TriviallyRelocatable = it.Traits.TriviallyRelocatable
	f.UserDestructor = it.Traits.UserDestructor
	f.AddressSensitive = it.Traits.AddressSensitive
	return f
}
