// Package ir is the in-memory model of the C++ API being bridged: the items
// selected from the frontend's entity list, the types they reference, and
// the facts the analysis passes attach to them.
package ir

import (
	"fmt"
	"strings"

	"github.com/jward/cxxbind/internal/diag"
)

// Kind discriminates the variants of Item. The set is closed: every pass
// switches over all kinds and panics on an unknown one.
type Kind int

const (
	KindFunction Kind = iota + 1
	KindMethod
	KindStruct
	KindEnum
	KindTypedef
	KindTemplate
	KindInstantiation
	KindSubclass
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindTypedef:
		return "typedef"
	case KindTemplate:
		return "template"
	case KindInstantiation:
		return "instantiation"
	case KindSubclass:
		return "subclass"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsRecord reports whether items of this kind define a class type.
func (k Kind) IsRecord() bool {
	return k == KindStruct || k == KindInstantiation
}

// DefinesType reports whether items of this kind introduce a type name.
func (k Kind) DefinesType() bool {
	switch k {
	case KindStruct, KindEnum, KindTypedef, KindTemplate, KindInstantiation:
		return true
	}
	return false
}

// Param is a named function parameter.
type Param struct {
	Name string
	Type *Type
}

// Field is a data member. Private fields are classified but not emitted.
type Field struct {
	Name    string
	Type    *Type
	Private bool
}

// Variant is an enumerator and its initializer, if any.
type Variant struct {
	Name  string
	Value string
}

// MethodFlags describe a member function declaration.
type MethodFlags struct {
	Static      bool
	Const       bool
	Virtual     bool
	Pure        bool
	Constructor bool
	Deleted     bool
	// Implicit marks a constructor the compiler provides but the header
	// never declares.
	Implicit    bool
}

// Traits are the special-member facts the frontend derived for a record.
type Traits struct {
	CopyConstructible    bool
	MoveConstructible    bool
	TriviallyRelocatable bool
	UserDestructor       bool
	Abstract             bool
	AddressSensitive     bool
}

// Exclusion records why an item will not be emitted.
type Exclusion struct {
	Reason  diag.Reason
	Message string
	// Cause is the ID of the item whose exclusion propagated here, empty
	// for root exclusions.
	Cause   string
}

// Item is one C++ entity. Fields are grouped by the kinds that use them;
// fields irrelevant to an item's kind stay zero.
type Item struct {
	ID     string
	Kind   Kind
	Name   string // qualified C++ name; methods use Class::method
	// Header is the header the entity was declared in, when known.
	Header string

	// Functions and methods.
	Receiver string // ID of the owning record
	Params   []Param
	Return   *Type // nil for void and constructors
	Flags    MethodFlags

	// Records, templates and instantiations.
	Fields         []Field
	Bases          []*Type
	Traits         *Traits // nil when the frontend could not derive them
	Incomplete     bool
	Polymorphic    bool
	Abstract       bool
	HasCtor        bool // declares any constructor, deleted or not
	// Ctors lists the parameters of each public constructor other than
	// copy and move. Only subclass targets carry them.
	Ctors          [][]Param
	TemplateParams []string
	// Pattern holds the member functions of a template declaration. They
	// are not graph items; the closure pass instantiates them.
	Pattern        []*Item
	Template       string  // instantiations: ID of the template declaration
	Args           []*Type // instantiations: template arguments
	Depth          int     // instantiations: nesting depth from the seed

	Variants []Variant // enums
	Target   *Type     // typedefs

	// IllFormed marks an entity the frontend could not fully parse.
	IllFormed bool

	// Directive facts, set by the frontend adapter.
	Explicit    bool // named by generate or generate_ns
	Pod         bool // named by generate_pod
	Subclassing bool // named by subclass

	// Facts attached by the analysis passes.
	BridgeName string
	Shim       *ShimPlan
	Specials   []Special
	Trampoline *Trampoline
	Excluded   *Exclusion
}

// Accepted reports whether the item is still eligible for output.
func (it *Item) Accepted() bool {
	return it.Excluded == nil
}

// ShortName returns the unqualified name of the item.
func (it *Item) ShortName() string {
	return ShortName(it.Name)
}

// Scope returns the enclosing scope of the item's qualified name.
func (it *Item) Scope() string {
	return ScopeOf(it.Name)
}

// IsOperator reports whether a function or method is an operator overload.
func (it *Item) IsOperator() bool {
	return strings.HasPrefix(it.ShortName(), "operator")
}

// TypeRefs returns every type the item exposes, in declaration order.
// Private fields are left out; nothing outside the record can reach them.
func (it *Item) TypeRefs() []*Type {
	var refs []*Type
	for _, p := range it.Params {
		refs = append(refs, p.Type)
	}
	if it.Return != nil {
		refs = append(refs, it.Return)
	}
	for _, f := range it.Fields {
		if !f.Private {
			refs = append(refs, f.Type)
		}
	}
	refs = append(refs, it.Bases...)
	refs = append(refs, it.Args...)
	if it.Target != nil {
		refs = append(refs, it.Target)
	}
	return refs
}

// SelfType returns the type naming a record, enum, typedef or
// instantiation item.
func (it *Item) SelfType() *Type {
	if it.Kind == KindInstantiation {
		args := make([]*Type, len(it.Args))
		for i, a := range it.Args {
			args[i] = a.Clone()
		}
		return &Type{Kind: TypeInstantiation, Name: ShortTemplateName(it), Args: args, Def: it.ID}
	}
	return &Type{Kind: TypeValue, Name: it.Name, Def: it.ID}
}

// ShortTemplateName returns the template name of an instantiation.
func ShortTemplateName(it *Item) string {
	if i := strings.Index(it.Name, "<"); i >= 0 {
		return it.Name[:i]
	}
	return it.Name
}

// ShortName returns the last component of a qualified name, ignoring
// scope separators inside template argument lists.
func ShortName(name string) string {
	if i := lastScopeSep(name); i >= 0 {
		return name[i+2:]
	}
	return name
}

// ScopeOf returns the qualifier of a qualified name, or "" at global scope.
func ScopeOf(name string) string {
	if i := lastScopeSep(name); i >= 0 {
		return name[:i]
	}
	return ""
}

func lastScopeSep(name string) int {
	depth := 0
	for i := len(name) - 1; i > 0; i-- {
		switch name[i] {
		case '>':
			depth++
		case '<':
			depth--
		case ':':
			if depth == 0 && name[i-1] == ':' {
				return i - 1
			}
		}
	}
	return -1
}

// ShimKind says what kind of native adaptation an item needs.
type ShimKind int

const (
	ShimNone ShimKind = iota
	ShimFunction
	ShimMethod
	ShimStatic
	ShimConstructor
	ShimOperator
	ShimTrampoline
)

func (k ShimKind) String() string {
	switch k {
	case ShimNone:
		return "none"
	case ShimFunction:
		return "function"
	case ShimMethod:
		return "method"
	case ShimStatic:
		return "static"
	case ShimConstructor:
		return "constructor"
	case ShimOperator:
		return "operator"
	case ShimTrampoline:
		return "trampoline"
	default:
		return fmt.Sprintf("ShimKind(%d)", int(k))
	}
}

// ShimPlan is the shim-necessity decision for one item.
type ShimPlan struct {
	NeedsShim   bool
	Kind        ShimKind
	// Name is the generated shim function; it equals the item's bridge name.
	Name        string
	// MovedParams lists parameter indexes passed by move through a pointer.
	MovedParams []int
	// BoxedReturn means a non-trivial return value is boxed in a
	// std::unique_ptr by the shim.
	BoxedReturn bool
	// Operator is the symbolic suffix for ShimOperator ("eq", "lt", ...).
	Operator    string
	// Unsafe is set when a raw pointer crosses the boundary.
	Unsafe      bool

	Self   *Crossing // nil for free functions, static methods and constructors
	Params []Crossing
	Return *Crossing // nil for void

	NativeSignature string
	BridgeSignature string
}

// SpecialKind enumerates generated special-member accessors.
type SpecialKind int

const (
	SpecialNew SpecialKind = iota + 1
	SpecialDrop
	SpecialMove
	SpecialCopy
	SpecialUpcast
)

func (k SpecialKind) String() string {
	switch k {
	case SpecialNew:
		return "new"
	case SpecialDrop:
		return "drop"
	case SpecialMove:
		return "move"
	case SpecialCopy:
		return "copy"
	case SpecialUpcast:
		return "upcast"
	default:
		return fmt.Sprintf("SpecialKind(%d)", int(k))
	}
}

// Special is one generated special-member shim of a record.
type Special struct {
	Kind SpecialKind
	Name string
	// Base is the target of an upcast.
	Base *Type
}

// Trampoline is the plan for a subclass item: a C++ class deriving from the
// subclassed record and forwarding each virtual to a registered callback.
type Trampoline struct {
	Class     string // generated C++ class name
	Base      string // ID of the subclassed record
	Ctors     []TrampolineCtor
	Overrides []Override
}

// TrampolineCtor is one way to construct a trampoline: a shim taking the
// peer pointer plus the arguments of the base constructor it forwards to.
// A ctor with no Params default-constructs the base.
type TrampolineCtor struct {
	Shim   string
	Params []Param
}

// Override is one virtual method forwarded by a trampoline.
type Override struct {
	Method   string // ID of the overridden method
	Callback string // name of the safe-side callback
}
