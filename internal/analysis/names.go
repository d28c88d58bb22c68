package analysis

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/ir"
)

// namer is the registry of crossing names. Every generated name is owned by
// exactly one item (or one special member of an item).
type namer struct {
	owners map[string]string
}

func newNamer() *namer {
	return &namer{owners: make(map[string]string)}
}

// claim registers name for owner. It reports the current owner when the
// name is already taken by someone else.
func (n *namer) claim(name, owner string) (string, bool) {
	if prev, ok := n.owners[name]; ok && prev != owner {
		return prev, false
	}
	n.owners[name] = owner
	return "", true
}

func (n *namer) release(name string) {
	delete(n.owners, name)
}

// operatorNames maps overloadable operators to the suffix of their named
// shim. Operators missing from the table cannot be bridged.
var operatorNames = map[string]string{
	"==": "eq", "!=": "ne", "<": "lt", "<=": "le", ">": "gt", ">=": "ge",
	"+": "add", "-": "sub", "*": "mul", "/": "div", "%": "rem",
	"&": "bitand", "|": "bitor", "^": "bitxor", "<<": "shl", ">>": "shr",
	"!": "not", "~": "bitnot", "[]": "index", "()": "call",
}

// OperatorSymbol extracts the symbol of an operator function name such as
// "operator==".
func OperatorSymbol(short string) string {
	return strings.TrimSpace(strings.TrimPrefix(short, "operator"))
}

// operatorName returns the named-shim suffix of an operator item. Unary
// minus and plus are distinguished from the binary forms by arity.
func operatorName(it *ir.Item) (string, bool) {
	sym := OperatorSymbol(it.ShortName())
	arity := len(it.Params)
	if it.Kind == ir.KindMethod && !it.Flags.Static {
		arity++
	}
	if arity == 1 {
		switch sym {
		case "-":
			return "neg", true
		case "+":
			return "pos", true
		}
	}
	name, ok := operatorNames[sym]
	return name, ok
}

// Mangle turns a qualified C++ name into an identifier: scope separators
// and template punctuation become underscores.
func Mangle(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = r == '_'
			continue
		}
		if r == '*' {
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteString("ptr")
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// typeToken is the overload-suffix spelling of a parameter type, such as
// "int", "double", "Point_cref" or "char_cptr".
func typeToken(t *ir.Type) string {
	switch t.Kind {
	case ir.TypePrimitive:
		return strings.ReplaceAll(t.Name, " ", "_")
	case ir.TypeValue:
		return Mangle(ir.ShortName(t.Name))
	case ir.TypeInstantiation:
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = typeToken(a)
		}
		return Mangle(ir.ShortName(t.Name)) + "_" + strings.Join(args, "_")
	case ir.TypePointer:
		if t.Elem.Const {
			return typeToken(t.Elem) + "_cptr"
		}
		return typeToken(t.Elem) + "_ptr"
	case ir.TypeReference:
		if t.Elem.Const {
			return typeToken(t.Elem) + "_cref"
		}
		return typeToken(t.Elem) + "_ref"
	case ir.TypeRValueReference:
		return typeToken(t.Elem) + "_rref"
	case ir.TypeOpaque:
		return Mangle(t.Spelling)
	default:
		panic(fmt.Sprintf("names: unhandled type kind %s", t.Kind))
	}
}

// overloadSuffix derives the suffix of one overload from its parameters.
func overloadSuffix(it *ir.Item) string {
	return paramSuffix(it.Params)
}

func paramSuffix(params []ir.Param) string {
	if len(params) == 0 {
		return "_void"
	}
	toks := make([]string, len(params))
	for i, p := range params {
		toks[i] = typeToken(p.Type)
	}
	return "_" + strings.Join(toks, "_")
}

// baseName is the crossing name of a function or method before overload
// suffixing.
func (r *Result) baseName(it *ir.Item) string {
	short := it.ShortName()
	if it.Kind == ir.KindFunction {
		if it.IsOperator() {
			if op, ok := operatorName(it); ok {
				return Mangle(it.Scope()) + joinScope(it.Scope()) + "op_" + op
			}
		}
		return Mangle(it.Name)
	}
	recv := r.Graph.Item(it.Receiver)
	switch {
	case it.Flags.Constructor:
		short = "new"
	case it.IsOperator():
		if op, ok := operatorName(it); ok {
			short = "op_" + op
		}
	}
	return recv.BridgeName + "_" + Mangle(short)
}

func joinScope(scope string) string {
	if scope == "" {
		return ""
	}
	return "_"
}

// disambiguate assigns every accepted crossing point a unique name. Type
// names are assigned first; a collision among them is fatal. Function and
// method names follow: singletons keep their base name, overload sets get
// parameter-derived suffixes, and a name already taken excludes the later
// item.
func (r *Result) disambiguate() error {
	g := r.Graph
	var funcs []*ir.Item
	for _, it := range g.Items() {
		if !it.Accepted() {
			continue
		}
		switch it.Kind {
		case ir.KindStruct, ir.KindEnum, ir.KindTypedef, ir.KindInstantiation:
			it.BridgeName = Mangle(it.Name)
			if prev, ok := r.names.claim(it.BridgeName, it.ID); !ok {
				return &FatalError{
					Pass:    "names",
					Msg:     fmt.Sprintf("type name %s is generated for more than one type", it.BridgeName),
					Members: []string{prev, it.ID},
				}
			}
		case ir.KindFunction, ir.KindMethod:
			funcs = append(funcs, it)
		case ir.KindTemplate, ir.KindSubclass:
		default:
			panic(fmt.Sprintf("names: unhandled kind %s", it.Kind))
		}
	}

	sets := make(map[string][]*ir.Item)
	var bases []string
	for _, it := range funcs {
		if it.Kind == ir.KindMethod && !r.Graph.Item(it.Receiver).Accepted() {
			continue
		}
		b := r.baseName(it)
		if _, ok := sets[b]; !ok {
			bases = append(bases, b)
		}
		sets[b] = append(sets[b], it)
	}
	sort.Strings(bases)

	// Singletons claim their unsuffixed names before any suffixed name.
	var suffixed []*ir.Item
	for _, b := range bases {
		set := sets[b]
		if len(set) == 1 {
			r.assign(set[0], b)
			continue
		}
		sort.Slice(set, func(i, j int) bool { return signatureKey(set[i]) < signatureKey(set[j]) })
		suffixed = append(suffixed, set...)
	}
	for _, it := range suffixed {
		name := r.baseName(it) + overloadSuffix(it)
		if it.Flags.Const && constTwin(sets[r.baseName(it)], it) {
			name += "_const"
		}
		r.assign(it, name)
	}
	return nil
}

// assign claims name for it, excluding it on collision.
func (r *Result) assign(it *ir.Item, name string) {
	if prev, ok := r.names.claim(name, it.ID); !ok {
		r.exclude(it.ID, diag.NameCollision,
			fmt.Sprintf("generated name %s is already used by %s", name, prev))
		return
	}
	it.BridgeName = name
	r.renames = append(r.renames, diag.Rename{
		Generated: name,
		Original:  it.Name,
		Signature: it.ID,
	})
}

// signatureKey orders an overload set independently of source order.
func signatureKey(it *ir.Item) string {
	return strings.TrimPrefix(it.ID, it.Name)
}

// constTwin reports whether another member of the set has the same
// parameters and differs only in const qualification.
func constTwin(set []*ir.Item, it *ir.Item) bool {
	suffix := overloadSuffix(it)
	for _, other := range set {
		if other != it && other.Flags.Const != it.Flags.Const && overloadSuffix(other) == suffix {
			return true
		}
	}
	return false
}
