package ir

import (
	"fmt"
	"strings"
	"unicode"
)

// fixedWidth lists typedef'd builtin names that cross as primitives.
var fixedWidth = map[string]bool{
	"int8_t": true, "int16_t": true, "int32_t": true, "int64_t": true,
	"uint8_t": true, "uint16_t": true, "uint32_t": true, "uint64_t": true,
	"size_t": true, "ssize_t": true, "ptrdiff_t": true,
	"intptr_t": true, "uintptr_t": true,
	"char16_t": true, "char32_t": true, "wchar_t": true,
}

// builtinWords are the keywords that compose a builtin arithmetic type.
var builtinWords = map[string]bool{
	"void": true, "bool": true, "char": true, "short": true, "int": true,
	"long": true, "signed": true, "unsigned": true, "float": true, "double": true,
}

// elaborated keywords carry no type information once parsed.
var elaborated = map[string]bool{
	"struct": true, "class": true, "enum": true, "union": true, "typename": true,
}

// IsPrimitiveName reports whether name is a canonical builtin name.
func IsPrimitiveName(name string) bool {
	if fixedWidth[name] {
		return true
	}
	for _, w := range strings.Fields(name) {
		if !builtinWords[w] {
			return false
		}
	}
	return name != ""
}

// ParseType parses a C++ type spelling such as "const std::string &" or
// "Container<int> *". Constructs the model cannot represent (function
// pointers, arrays, variadics, non-type template arguments) parse to a
// TypeOpaque carrying the original spelling; an error is returned only for
// empty or unbalanced input.
func ParseType(s string) (*Type, error) {
	src := strings.TrimSpace(s)
	if src == "" {
		return nil, fmt.Errorf("parse type: empty spelling")
	}
	toks, ok := tokenize(src)
	if !ok {
		return &Type{Kind: TypeOpaque, Spelling: src}, nil
	}
	p := &typeParser{toks: toks}
	t, err := p.parseType()
	if err != nil {
		return nil, fmt.Errorf("parse type %q: %w", src, err)
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("parse type %q: unexpected %q", src, p.toks[p.pos])
	}
	return t, nil
}

// MustParseType is ParseType for spellings known to be valid.
func MustParseType(s string) *Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// tokenize splits a spelling into identifiers (with :: joined), and the
// punctuation the parser understands. It reports false on any character
// belonging to a construct the model treats as opaque.
func tokenize(s string) ([]string, bool) {
	var toks []string
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '<' || r == '>' || r == ',' || r == '*':
			toks = append(toks, string(r))
			i++
		case r == '&':
			if i+1 < len(rs) && rs[i+1] == '&' {
				toks = append(toks, "&&")
				i += 2
			} else {
				toks = append(toks, "&")
				i++
			}
		case r == ':' || r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(rs) && (rs[i] == '_' || rs[i] == ':' || unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i])) {
				i++
			}
			word := strings.TrimPrefix(string(rs[start:i]), "::")
			if word == "" || strings.HasSuffix(word, ":") {
				return nil, false
			}
			toks = append(toks, word)
		default:
			// Digits (non-type template arguments), parentheses, brackets
			// and ellipses.
			return nil, false
		}
	}
	return toks, true
}

type typeParser struct {
	toks []string
	pos  int
}

func (p *typeParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *typeParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *typeParser) parseType() (*Type, error) {
	isConst := p.qualifiers()
	base, err := p.parseBase()
	if err != nil {
		return nil, err
	}
	if p.qualifiers() {
		isConst = true
	}
	base.Const = isConst

	t := base
	for {
		switch p.peek() {
		case "*":
			p.next()
			t = &Type{Kind: TypePointer, Elem: t}
			if p.qualifiers() {
				t.Const = true
			}
		case "&":
			p.next()
			t = &Type{Kind: TypeReference, Elem: t}
		case "&&":
			p.next()
			t = &Type{Kind: TypeRValueReference, Elem: t}
		default:
			return t, nil
		}
	}
}

// qualifiers consumes cv qualifiers and reports whether const was present.
func (p *typeParser) qualifiers() bool {
	isConst := false
	for {
		switch p.peek() {
		case "const":
			isConst = true
			p.next()
		case "volatile":
			p.next()
		default:
			return isConst
		}
	}
}

func (p *typeParser) parseBase() (*Type, error) {
	tok := p.peek()
	if tok == "" {
		return nil, fmt.Errorf("missing type name")
	}
	if elaborated[tok] {
		p.next()
		tok = p.peek()
	}
	if builtinWords[tok] {
		return p.parseBuiltin()
	}
	if !isIdent(tok) {
		return nil, fmt.Errorf("unexpected %q", tok)
	}
	name := p.next()
	if trimmed := strings.TrimPrefix(name, "std::"); fixedWidth[trimmed] {
		return &Type{Kind: TypePrimitive, Name: trimmed}, nil
	}
	if p.peek() != "<" {
		return &Type{Kind: TypeValue, Name: name}, nil
	}
	p.next()
	t := &Type{Kind: TypeInstantiation, Name: name}
	for {
		arg, err := p.parseType()
		if err != nil {
			return nil, err
		}
		t.Args = append(t.Args, arg)
		switch p.next() {
		case ",":
			continue
		case ">":
			return t, nil
		default:
			return nil, fmt.Errorf("unterminated template arguments for %s", name)
		}
	}
}

func (p *typeParser) parseBuiltin() (*Type, error) {
	var unsigned, signed, short, char, integer, boolean, float, double, void bool
	longs := 0
	for builtinWords[p.peek()] || p.peek() == "const" || p.peek() == "volatile" {
		switch p.next() {
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		case "short":
			short = true
		case "long":
			longs++
		case "char":
			char = true
		case "int":
			integer = true
		case "bool":
			boolean = true
		case "float":
			float = true
		case "double":
			double = true
		case "void":
			void = true
		case "const", "volatile":
			// Trailing qualifiers interleaved with builtin words bind to the
			// type; step back so parseType sees them.
			p.pos--
			return builtinType(unsigned, signed, short, char, integer, boolean, float, double, void, longs)
		}
	}
	return builtinType(unsigned, signed, short, char, integer, boolean, float, double, void, longs)
}

func builtinType(unsigned, signed, short, char, integer, boolean, float, double, void bool, longs int) (*Type, error) {
	prim := func(n string) (*Type, error) { return &Type{Kind: TypePrimitive, Name: n}, nil }
	sign := ""
	if unsigned {
		sign = "unsigned "
	}
	switch {
	case void:
		return prim("void")
	case boolean:
		return prim("bool")
	case float:
		return prim("float")
	case double && longs > 0:
		return prim("long double")
	case double:
		return prim("double")
	case char:
		if signed {
			return prim("signed char")
		}
		return prim(sign + "char")
	case short:
		return prim(sign + "short")
	case longs >= 2:
		return prim(sign + "long long")
	case longs == 1:
		return prim(sign + "long")
	case integer, unsigned, signed:
		return prim(sign + "int")
	default:
		return nil, fmt.Errorf("malformed builtin type")
	}
}

func isIdent(tok string) bool {
	if tok == "" {
		return false
	}
	r := []rune(tok)[0]
	return r == '_' || unicode.IsLetter(r)
}
