package ir

import (
	"fmt"
	"strings"
)

// TypeKind is the structural kind of a C++ type reference.
type TypeKind int

const (
	TypeInvalid TypeKind = iota
	TypePrimitive
	TypePointer
	TypeReference
	TypeRValueReference
	TypeValue
	TypeInstantiation
	TypeOpaque
)

func (k TypeKind) String() string {
	switch k {
	case TypeInvalid:
		return "invalid"
	case TypePrimitive:
		return "primitive"
	case TypePointer:
		return "pointer"
	case TypeReference:
		return "reference"
	case TypeRValueReference:
		return "rvalue_reference"
	case TypeValue:
		return "value"
	case TypeInstantiation:
		return "instantiation"
	case TypeOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("TypeKind(%d)", int(k))
	}
}

// Type is a reference to a C++ type as it appears in a signature, field or
// base clause. Pointers and references wrap their pointee in Elem.
type Type struct {
	Kind  TypeKind
	Name  string  // builtin name, qualified record name, or template name
	Args  []*Type // template arguments (TypeInstantiation)
	Elem  *Type   // pointee (TypePointer, TypeReference, TypeRValueReference)
	Const bool    // const qualification at this level

	// Def is the ID of the defining item, set by the frontend adapter.
	Def string

	// Spelling preserves the original text of types the parser could not
	// model (TypeOpaque).
	Spelling string
}

// Key returns the canonical name of the type without top-level cv
// qualification. It is the key used by the type database.
func (t *Type) Key() string {
	switch t.Kind {
	case TypePrimitive, TypeValue:
		return t.Name
	case TypeInstantiation:
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = a.Spell()
		}
		return t.Name + "<" + strings.Join(args, ", ") + ">"
	case TypePointer:
		return t.Elem.Spell() + " *"
	case TypeReference:
		return t.Elem.Spell() + " &"
	case TypeRValueReference:
		return t.Elem.Spell() + " &&"
	case TypeOpaque:
		return t.Spelling
	default:
		return "<invalid>"
	}
}

// Spell returns the C++ spelling of the type, including const.
func (t *Type) Spell() string {
	switch t.Kind {
	case TypePointer:
		if t.Const {
			return t.Key() + " const"
		}
		return t.Key()
	case TypeReference, TypeRValueReference, TypeOpaque:
		return t.Key()
	default:
		if t.Const {
			return "const " + t.Key()
		}
		return t.Key()
	}
}

func (t *Type) String() string {
	return t.Spell()
}

// IsIndirect reports whether the type is a pointer or a reference.
func (t *Type) IsIndirect() bool {
	switch t.Kind {
	case TypePointer, TypeReference, TypeRValueReference:
		return true
	}
	return false
}

// IsVoid reports whether the type is the builtin void.
func (t *Type) IsVoid() bool {
	return t.Kind == TypePrimitive && t.Name == "void"
}

// Named strips pointers and references and returns the innermost type.
func (t *Type) Named() *Type {
	cur := t
	for cur.IsIndirect() {
		cur = cur.Elem
	}
	return cur
}

// Clone returns a deep copy of t.
func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}
	c := *t
	c.Elem = t.Elem.Clone()
	if t.Args != nil {
		c.Args = make([]*Type, len(t.Args))
		for i, a := range t.Args {
			c.Args[i] = a.Clone()
		}
	}
	return &c
}

// Walk visits t and every type nested in it (pointees and template
// arguments), outermost first. It uses an explicit stack.
func (t *Type) Walk(fn func(*Type)) {
	if t == nil {
		return
	}
	stack := []*Type{t}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(cur)
		if cur.Elem != nil {
			stack = append(stack, cur.Elem)
		}
		for i := len(cur.Args) - 1; i >= 0; i-- {
			stack = append(stack, cur.Args[i])
		}
	}
}

// Substitute returns a copy of t with every bare template parameter named in
// params replaced by its argument. Const on the parameter use is preserved.
func Substitute(t *Type, params map[string]*Type) *Type {
	if t == nil {
		return nil
	}
	if t.Kind == TypeValue {
		if arg, ok := params[t.Name]; ok {
			out := arg.Clone()
			if t.Const {
				out.Const = true
			}
			return out
		}
	}
	out := *t
	out.Elem = Substitute(t.Elem, params)
	if t.Args != nil {
		out.Args = make([]*Type, len(t.Args))
		for i, a := range t.Args {
			out.Args[i] = Substitute(a, params)
		}
	}
	return &out
}
