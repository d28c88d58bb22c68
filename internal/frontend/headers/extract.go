package headers

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/cxxbind/internal/frontend"
	"github.com/jward/cxxbind/internal/ir"
)

// extractor walks one syntax tree and appends entities in source order.
type extractor struct {
	src    []byte
	header string
	out    []frontend.RawEntity
}

func (x *extractor) text(n *sitter.Node) string {
	return n.Content(x.src)
}

func (x *extractor) span(from, to uint32) string {
	if to <= from {
		return ""
	}
	return string(x.src[from:to])
}

func (x *extractor) emit(e frontend.RawEntity) {
	e.Header = x.header
	x.out = append(x.out, e)
}

func qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "::" + name
}

// declarations visits the top-level items of a translation unit, namespace
// body or linkage block.
func (x *extractor) declarations(n *sitter.Node, scope string) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if isAlternative(n, i) {
			continue
		}
		x.declaration(n.NamedChild(i), scope)
	}
}

// isAlternative reports whether child i is the #else branch of a
// conditional; only the primary branch is read.
func isAlternative(n *sitter.Node, i int) bool {
	c := n.NamedChild(i)
	switch c.Type() {
	case "preproc_else", "preproc_elif", "preproc_elifdef":
		return true
	}
	return false
}

func (x *extractor) declaration(n *sitter.Node, scope string) {
	switch n.Type() {
	case "namespace_definition":
		name := n.ChildByFieldName("name")
		body := n.ChildByFieldName("body")
		// Anonymous namespaces have internal linkage.
		if name == nil || body == nil {
			return
		}
		x.declarations(body, qualify(scope, x.text(name)))
	case "linkage_specification":
		body := n.ChildByFieldName("body")
		if body == nil {
			return
		}
		if body.Type() == "declaration_list" {
			x.declarations(body, scope)
		} else {
			x.declaration(body, scope)
		}
	case "preproc_ifdef", "preproc_if":
		x.declarations(n, scope)
	case "class_specifier", "struct_specifier":
		x.record(n, scope, nil, "")
	case "enum_specifier":
		x.enum(n, scope, "")
	case "type_definition":
		x.typedef(n, scope)
	case "alias_declaration":
		x.alias(n, scope)
	case "template_declaration":
		x.template(n, scope)
	case "declaration", "function_definition":
		if x.nestedType(n, scope) {
			return
		}
		d := x.parseDecl(n)
		if d.fn == nil || d.static || d.qualified {
			return
		}
		d.fn.Kind = frontend.EntityFunction
		d.fn.Name = qualify(scope, d.fn.Name)
		x.emit(*d.fn)
	}
}

// nestedType handles a declaration whose type is a class or enum
// definition, such as "struct S { ... } s;". It reports whether n was one.
func (x *extractor) nestedType(n *sitter.Node, scope string) bool {
	t := n.ChildByFieldName("type")
	if t == nil || t.ChildByFieldName("body") == nil {
		return false
	}
	switch t.Type() {
	case "class_specifier", "struct_specifier":
		x.record(t, scope, nil, "")
		return true
	case "enum_specifier":
		x.enum(t, scope, "")
		return true
	}
	return false
}

func (x *extractor) template(n *sitter.Node, scope string) {
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	var names []string
	illFormed := false
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "type_parameter_declaration":
			if id := lastNamed(p, "type_identifier"); id != nil {
				names = append(names, x.text(id))
			}
		case "optional_type_parameter_declaration":
			if id := p.ChildByFieldName("name"); id != nil {
				names = append(names, x.text(id))
			}
		case "parameter_declaration", "optional_parameter_declaration":
			if id := declaratorName(p.ChildByFieldName("declarator")); id != nil {
				names = append(names, x.text(id))
			}
			illFormed = true
		case "comment":
		default:
			// Variadic and template-template parameters.
			illFormed = true
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "class_specifier", "struct_specifier":
			x.record(c, scope, names, "")
			if illFormed {
				x.markIllFormed(qualify(scope, x.recordName(c)))
			}
			return
		}
	}
	// Function and alias templates are not bridged.
}

func (x *extractor) markIllFormed(name string) {
	for i := range x.out {
		if x.out[i].Name == name && x.out[i].Kind == frontend.EntityTemplate {
			x.out[i].IllFormed = true
		}
	}
}

func (x *extractor) recordName(n *sitter.Node) string {
	if name := n.ChildByFieldName("name"); name != nil {
		return x.text(name)
	}
	return ""
}

func lastNamed(n *sitter.Node, typ string) *sitter.Node {
	var found *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == typ {
			found = c
		}
	}
	return found
}

func (x *extractor) enum(n *sitter.Node, scope, alias string) {
	name := x.recordName(n)
	if name == "" {
		name = alias
	}
	if name == "" {
		return
	}
	e := frontend.RawEntity{Name: qualify(scope, name), Kind: frontend.EntityEnum}
	if body := n.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			v := body.NamedChild(i)
			if v.Type() != "enumerator" {
				continue
			}
			rv := frontend.RawVariant{Name: x.text(v.ChildByFieldName("name"))}
			if val := v.ChildByFieldName("value"); val != nil {
				rv.Value = x.text(val)
			}
			e.Variants = append(e.Variants, rv)
		}
	}
	x.emit(e)
}

func (x *extractor) typedef(n *sitter.Node, scope string) {
	t := n.ChildByFieldName("type")
	if t == nil {
		return
	}
	defines := t.ChildByFieldName("body") != nil
	tag := x.recordName(t)
	if defines && tag != "" {
		x.nestedType(n, scope)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) != "declarator" {
			continue
		}
		d := n.Child(i)
		name := declaratorName(d)
		if name == nil {
			continue
		}
		alias := x.text(name)
		switch {
		case defines && tag == "":
			// typedef struct { ... } Name;
			if t.Type() == "enum_specifier" {
				x.enum(t, scope, alias)
			} else {
				x.record(t, scope, nil, alias)
			}
		case defines:
			if alias == tag && strings.TrimSpace(x.declPart(d, name)) == "" {
				continue
			}
			x.emit(frontend.RawEntity{
				Name:   qualify(scope, alias),
				Kind:   frontend.EntityTypedef,
				Target: strings.TrimSpace(tag + x.declPart(d, name)),
			})
		default:
			x.emit(frontend.RawEntity{
				Name:   qualify(scope, alias),
				Kind:   frontend.EntityTypedef,
				Target: x.spelling(n, t, d, name),
			})
		}
	}
}

func (x *extractor) alias(n *sitter.Node, scope string) {
	name := n.ChildByFieldName("name")
	t := n.ChildByFieldName("type")
	if name == nil || t == nil {
		return
	}
	x.emit(frontend.RawEntity{
		Name:   qualify(scope, x.text(name)),
		Kind:   frontend.EntityTypedef,
		Target: strings.TrimSpace(x.text(t)),
	})
}

// declaratorName returns the identifier a declarator introduces, or nil
// for abstract declarators.
func declaratorName(d *sitter.Node) *sitter.Node {
	for d != nil {
		switch d.Type() {
		case "identifier", "field_identifier", "type_identifier", "destructor_name",
			"operator_name", "qualified_identifier", "template_function":
			return d
		case "type_qualifier":
			return nil
		}
		if inner := d.ChildByFieldName("declarator"); inner != nil {
			d = inner
			continue
		}
		d = firstDeclarator(d)
	}
	return nil
}

func firstDeclarator(d *sitter.Node) *sitter.Node {
	for i := 0; i < int(d.NamedChildCount()); i++ {
		c := d.NamedChild(i)
		if c.Type() != "type_qualifier" && c.Type() != "attribute_declaration" {
			return c
		}
	}
	return nil
}

// functionDeclarator finds the function declarator inside d, looking
// through pointer and reference wrappers around the return type. Function
// pointers (a parenthesized inner declarator) are not functions.
func functionDeclarator(d *sitter.Node) *sitter.Node {
	for d != nil {
		switch d.Type() {
		case "function_declarator":
			if inner := d.ChildByFieldName("declarator"); inner != nil && inner.Type() == "parenthesized_declarator" {
				return nil
			}
			return d
		case "pointer_declarator", "reference_declarator", "attributed_declarator":
			if inner := d.ChildByFieldName("declarator"); inner != nil {
				d = inner
				continue
			}
			d = firstDeclarator(d)
		default:
			return nil
		}
	}
	return nil
}

// qualifiers returns the cv qualifiers written around the type of a
// declaration, parameter or field.
func (x *extractor) qualifiers(n *sitter.Node) string {
	var quals []string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() != "type_qualifier" {
			continue
		}
		switch q := x.text(c); q {
		case "const", "volatile":
			quals = append(quals, q)
		}
	}
	return strings.Join(quals, " ")
}

// declPart is the declarator text with the declared name cut out: the
// pointer, reference and array parts of the type.
func (x *extractor) declPart(d, name *sitter.Node) string {
	if d == nil {
		return ""
	}
	if name == nil {
		return " " + x.text(d)
	}
	return " " + x.span(d.StartByte(), name.StartByte()) + x.span(name.EndByte(), d.EndByte())
}

// spelling reassembles the full type of a declarator of n.
func (x *extractor) spelling(n, t, d, name *sitter.Node) string {
	s := x.text(t) + x.declPart(d, name)
	if q := x.qualifiers(n); q != "" {
		s = q + " " + s
	}
	return strings.Join(strings.Fields(s), " ")
}

// decl is one parsed declaration: a function (when fn is set) or a list of
// data members.
type decl struct {
	fn         *frontend.RawEntity
	fields     []frontend.RawField
	static     bool
	qualified  bool // out-of-line definition of a scoped name
	destructor bool
	defaulted  bool
}

// parseDecl reads a declaration, field declaration or function definition.
func (x *extractor) parseDecl(n *sitter.Node) *decl {
	out := &decl{}
	virtual := false
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == "declarator" {
			break
		}
		switch x.text(n.Child(i)) {
		case "static":
			out.static = true
		case "virtual":
			virtual = true
		}
	}
	t := n.ChildByFieldName("type")

	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) != "declarator" {
			continue
		}
		d := n.Child(i)
		fd := functionDeclarator(d)
		if fd == nil {
			name := declaratorName(d)
			if name == nil || t == nil {
				continue
			}
			out.fields = append(out.fields, frontend.RawField{
				Name: x.text(name),
				Type: x.spelling(n, t, d, name),
			})
			continue
		}
		if out.fn != nil {
			continue
		}
		name := fd.ChildByFieldName("declarator")
		if name == nil {
			continue
		}
		e := &frontend.RawEntity{Virtual: virtual}
		switch name.Type() {
		case "qualified_identifier":
			out.qualified = true
			e.Name = x.text(name)
		case "template_function":
			continue
		case "destructor_name":
			out.destructor = true
			e.Name = x.text(name)
		default:
			e.Name = strings.Join(strings.Fields(x.text(name)), "")
		}
		e.Static = out.static
		if t != nil {
			if trailing := lastNamed(fd, "trailing_return_type"); trailing != nil {
				e.Return = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(x.text(trailing)), "->"))
			} else {
				e.Return = x.spelling(n, t, d, fd)
			}
		}
		x.params(fd, e)
		for j := 0; j < int(fd.ChildCount()); j++ {
			c := fd.Child(j)
			if c.Type() == "type_qualifier" && x.text(c) == "const" {
				e.Const = true
			}
		}
		switch x.tail(n, fd) {
		case "=0":
			e.PureVirtual = true
			e.Virtual = true
		case "=delete":
			e.Deleted = true
		case "=default":
			out.defaulted = true
		}
		if lastNamed(fd, "virtual_specifier") != nil {
			e.Virtual = true
		}
		out.fn = e
	}
	return out
}

// tail returns the normalized text between a function declarator and the
// end of its declaration: "=0", "=delete", "=default" or "".
func (x *extractor) tail(n, fd *sitter.Node) string {
	if n.Type() == "function_definition" {
		body := n.ChildByFieldName("body")
		if body == nil {
			return ""
		}
		switch body.Type() {
		case "delete_method_clause":
			return "=delete"
		case "default_method_clause":
			return "=default"
		case "pure_virtual_clause":
			return "=0"
		}
		if body.Type() == "compound_statement" || body.Type() == "try_statement" {
			return ""
		}
	}
	rest := strings.Join(strings.Fields(x.span(fd.EndByte(), n.EndByte())), "")
	for _, marker := range []string{"=0", "=delete", "=default"} {
		if strings.HasPrefix(rest, marker) {
			return marker
		}
	}
	return ""
}

func (x *extractor) params(fd *sitter.Node, e *frontend.RawEntity) {
	list := fd.ChildByFieldName("parameters")
	if list == nil {
		return
	}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration":
			t := p.ChildByFieldName("type")
			if t == nil {
				e.IllFormed = true
				continue
			}
			d := p.ChildByFieldName("declarator")
			if d == nil && x.text(t) == "void" && list.NamedChildCount() == 1 {
				return
			}
			name := declaratorName(d)
			rp := frontend.RawParam{Type: x.spelling(p, t, d, name)}
			if name != nil {
				rp.Name = x.text(name)
			}
			e.Params = append(e.Params, rp)
		case "comment":
		default:
			// C varargs and parameter packs.
			e.IllFormed = true
		}
	}
}

// access is a member access level.
type access int

const (
	accessPublic access = iota
	accessProtected
	accessPrivate
)

func parseAccess(s string) access {
	switch strings.TrimSpace(s) {
	case "private":
		return accessPrivate
	case "protected":
		return accessProtected
	default:
		return accessPublic
	}
}

// specialFacts accumulates the declared special members of a record.
type specialFacts struct {
	destructor, destructorDefaulted          bool
	copyDeclared, copyDeleted, copyDefaulted bool
	moveDeclared, moveDeleted, moveDefaulted bool
	virtual, pure                            bool
}

func (f *specialFacts) traits() *frontend.RawTraits {
	userDtor := f.destructor && !f.destructorDefaulted
	copyable := !f.moveDeclared
	if f.copyDeclared {
		copyable = !f.copyDeleted
	}
	movable := copyable
	if f.moveDeclared {
		movable = !f.moveDeleted
	}
	relocatable := !userDtor && !f.virtual &&
		!(f.copyDeclared && !f.copyDefaulted) &&
		!(f.moveDeclared && !f.moveDefaulted)
	return &frontend.RawTraits{
		CopyConstructible:    copyable,
		MoveConstructible:    movable,
		TriviallyRelocatable: relocatable,
		UserDestructor:       userDtor,
		Abstract:             f.pure,
	}
}

// record emits a class, struct or class template with its public members.
// alias names an anonymous struct introduced by a typedef.
func (x *extractor) record(n *sitter.Node, scope string, tparams []string, alias string) {
	nameNode := n.ChildByFieldName("name")
	name := alias
	if nameNode != nil {
		if nameNode.Type() == "template_type" {
			// Explicit specializations are not modeled.
			return
		}
		name = x.text(nameNode)
	}
	if name == "" {
		return
	}
	qname := qualify(scope, name)
	kind := frontend.EntityClass
	def := accessPrivate
	if n.Type() == "struct_specifier" {
		kind = frontend.EntityStruct
		def = accessPublic
	}
	if tparams != nil {
		kind = frontend.EntityTemplate
	}
	e := frontend.RawEntity{Name: qname, Kind: kind, TemplateParams: tparams, IllFormed: n.HasError()}

	body := n.ChildByFieldName("body")
	if body == nil {
		e.Incomplete = true
		x.emit(e)
		return
	}
	e.Bases = x.bases(n, def)

	// The record precedes its members in the entity list.
	idx := len(x.out)
	x.emit(e)

	facts := &specialFacts{}
	x.out[idx].Fields = x.members(body, qname, ir.ShortName(name), def, facts)
	x.out[idx].Traits = facts.traits()
}

func (x *extractor) bases(n *sitter.Node, def access) []string {
	var clause *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "base_class_clause" {
			clause = c
		}
	}
	if clause == nil {
		return nil
	}
	var out []string
	acc := def
	for i := 0; i < int(clause.ChildCount()); i++ {
		c := clause.Child(i)
		switch c.Type() {
		case ",":
			acc = def
		case "access_specifier":
			acc = parseAccess(x.text(c))
		case "type_identifier", "qualified_type_identifier", "template_type":
			if acc == accessPublic {
				out = append(out, x.text(c))
			}
		default:
			if s := x.text(c); s == "public" || s == "protected" || s == "private" {
				acc = parseAccess(s)
			}
		}
	}
	return out
}

// members walks a class body and returns its data members, non-public
// ones marked private. Non-public functions are read only for the
// special-member facts they contribute.
func (x *extractor) members(body *sitter.Node, class, short string, acc access, facts *specialFacts) []frontend.RawField {
	var fields []frontend.RawField
	for i := 0; i < int(body.NamedChildCount()); i++ {
		if isAlternative(body, i) {
			continue
		}
		m := body.NamedChild(i)
		switch m.Type() {
		case "access_specifier":
			acc = parseAccess(x.text(m))
		case "preproc_ifdef", "preproc_if":
			fields = append(fields, x.members(m, class, short, acc, facts)...)
		case "class_specifier", "struct_specifier":
			if acc == accessPublic {
				x.record(m, class, nil, "")
			}
		case "enum_specifier":
			if acc == accessPublic {
				x.enum(m, class, "")
			}
		case "type_definition":
			if acc == accessPublic {
				x.typedef(m, class)
			}
		case "alias_declaration":
			if acc == accessPublic {
				x.alias(m, class)
			}
		case "field_declaration", "declaration", "function_definition":
			fields = append(fields, x.member(m, class, short, acc, facts)...)
		}
	}
	return fields
}

// member handles one member declaration, emitting public functions and
// returning non-static data members.
func (x *extractor) member(m *sitter.Node, class, short string, acc access, facts *specialFacts) []frontend.RawField {
	if t := m.ChildByFieldName("type"); t != nil && t.ChildByFieldName("body") != nil {
		switch t.Type() {
		case "class_specifier", "struct_specifier":
			if acc == accessPublic {
				x.record(t, class, nil, "")
			}
		case "enum_specifier":
			if acc == accessPublic {
				x.enum(t, class, "")
			}
		}
	}
	d := x.parseDecl(m)
	if d.qualified {
		return nil
	}
	if d.fn == nil {
		if d.static {
			return nil
		}
		if acc != accessPublic {
			for i := range d.fields {
				d.fields[i].Private = true
			}
		}
		return d.fields
	}
	e := d.fn
	e.Class = class
	if e.Virtual {
		facts.virtual = true
	}
	if e.PureVirtual {
		facts.pure = true
	}
	switch {
	case d.destructor:
		e.Kind = frontend.EntityDestructor
		e.Return = ""
		facts.destructor = true
		facts.destructorDefaulted = d.defaulted
		x.emit(*e)
		return nil
	case e.Return == "" && e.Name == short:
		e.Kind = frontend.EntityConstructor
		switch copyOrMove(e, class, short) {
		case ir.TypeReference:
			facts.copyDeclared = true
			facts.copyDeleted = e.Deleted
			facts.copyDefaulted = d.defaulted
		case ir.TypeRValueReference:
			facts.moveDeclared = true
			facts.moveDeleted = e.Deleted
			facts.moveDefaulted = d.defaulted
		}
	default:
		e.Kind = frontend.EntityMethod
	}
	if acc == accessPublic {
		x.emit(*e)
	}
	return nil
}

// copyOrMove classifies a constructor taking one reference to its own
// class: TypeReference for copy, TypeRValueReference for move, and
// TypeInvalid otherwise.
func copyOrMove(e *frontend.RawEntity, class, short string) ir.TypeKind {
	if len(e.Params) != 1 {
		return ir.TypeInvalid
	}
	t, err := ir.ParseType(e.Params[0].Type)
	if err != nil || !t.IsIndirect() || t.Kind == ir.TypePointer {
		return ir.TypeInvalid
	}
	named := t.Elem
	if named.Name != short && named.Name != class {
		return ir.TypeInvalid
	}
	return t.Kind
}
