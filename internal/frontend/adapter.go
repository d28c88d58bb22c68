package frontend

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/directives"
	"github.com/jward/cxxbind/internal/ir"
	"github.com/jward/cxxbind/internal/typedb"
)

// Adapter normalizes a frontend Input into an ir.Graph rooted at the
// directive-selected entities.
type Adapter struct {
	in     *Input
	d      *directives.Directives
	logger logrus.FieldLogger

	types   map[string]*RawEntity   // type-defining entities after merging
	funcs   map[string][]*RawEntity // free functions by qualified name
	members map[string][]*RawEntity // methods, constructors, destructors by owner
	order   []string                // type and function names in first-seen order

	graph    *ir.Graph
	// pending holds type items added but not yet expanded.
	pending  []*ir.Item
	filled   map[string]bool
	// explicit records the type names whose members have been added.
	explicit map[string]bool
}

// Adapt builds the graph for one run. Errors are configuration problems:
// directives naming unknown or unusable entities.
func Adapt(in *Input, d *directives.Directives, logger logrus.FieldLogger) (*ir.Graph, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	a := &Adapter{
		in:       in,
		d:        d,
		logger:   logger,
		types:    make(map[string]*RawEntity),
		funcs:    make(map[string][]*RawEntity),
		members:  make(map[string][]*RawEntity),
		graph:    ir.NewGraph(),
		filled:   make(map[string]bool),
		explicit: make(map[string]bool),
	}
	a.index()
	if err := a.roots(); err != nil {
		return nil, err
	}
	a.headers()
	logger.WithFields(logrus.Fields{
		"entities": len(in.Entities),
		"items":    a.graph.Len(),
	}).Debug("frontend adapted")
	return a.graph, nil
}

// index merges forward declarations with definitions and groups members by
// owner.
func (a *Adapter) index() {
	seen := make(map[string]bool)
	for i := range a.in.Entities {
		e := &a.in.Entities[i]
		e.Name = strings.TrimPrefix(e.Name, "::")
		e.Class = strings.TrimPrefix(e.Class, "::")
		switch e.Kind {
		case EntityClass, EntityStruct, EntityEnum, EntityTypedef, EntityTemplate:
			if prev, ok := a.types[e.Name]; ok {
				// The definition wins over any forward declaration.
				if prev.Incomplete && !e.Incomplete {
					a.types[e.Name] = e
				}
			} else {
				a.types[e.Name] = e
			}
		case EntityFunction:
			a.funcs[e.Name] = append(a.funcs[e.Name], e)
		case EntityMethod, EntityConstructor, EntityDestructor:
			a.members[e.Class] = append(a.members[e.Class], e)
			continue
		default:
			panic(fmt.Sprintf("frontend: unhandled entity kind %q", e.Kind))
		}
		if !seen[e.Name] {
			seen[e.Name] = true
			a.order = append(a.order, e.Name)
		}
	}
}

// roots seeds the graph from the directives.
func (a *Adapter) roots() error {
	for _, name := range a.d.Generate {
		if err := a.generate(name); err != nil {
			return err
		}
	}
	for _, ns := range a.d.GenerateNS {
		found := false
		for _, name := range a.order {
			if ir.ScopeOf(name) != ns {
				continue
			}
			if e := a.types[name]; e != nil && e.Kind == EntityTemplate {
				continue
			}
			found = true
			if err := a.generate(name); err != nil {
				return err
			}
		}
		if !found {
			return fmt.Errorf("generate_ns(%s): no entities in namespace", ns)
		}
	}
	for _, name := range a.d.GeneratePOD {
		e := a.types[name]
		if e == nil || !isRecord(e) {
			return fmt.Errorf("generate_pod(%s): no such class or struct", name)
		}
		it := a.addType(name, true)
		it.Pod = true
	}
	for _, name := range a.d.Subclass {
		e := a.types[name]
		if e == nil || !isRecord(e) {
			return fmt.Errorf("subclass(%s): no such class or struct", name)
		}
		it := a.addType(name, true)
		it.Subclassing = true
	}
	for _, spelling := range a.d.Instantiate {
		t, err := ir.ParseType(spelling)
		if err != nil || t.Kind != ir.TypeInstantiation {
			return fmt.Errorf("instantiate(%s): not a template instantiation", spelling)
		}
		a.resolve(t, "", nil)
		tmpl := a.types[t.Name]
		if tmpl == nil || tmpl.Kind != EntityTemplate {
			return fmt.Errorf("instantiate(%s): no such class template", spelling)
		}
		a.graph.Requests = append(a.graph.Requests, t)
	}
	a.drain()
	return nil
}

// generate selects one name: a type, every overload of a free function, or
// every overload of a method written as Class::method.
func (a *Adapter) generate(name string) error {
	if e, ok := a.types[name]; ok {
		if e.Kind == EntityTemplate {
			return fmt.Errorf("generate(%s): class templates are generated through instantiate", name)
		}
		a.addType(name, true)
		return nil
	}
	if fns, ok := a.funcs[name]; ok {
		for _, fn := range fns {
			a.addFunction(fn, true)
		}
		return nil
	}
	owner := ir.ScopeOf(name)
	if owner != "" && a.types[owner] != nil && isRecord(a.types[owner]) {
		found := false
		for _, m := range a.members[owner] {
			if m.Kind == EntityMethod && m.Name == ir.ShortName(name) {
				found = true
			}
		}
		if found {
			rec := a.addType(owner, false)
			for _, m := range a.members[owner] {
				if m.Kind == EntityMethod && m.Name == ir.ShortName(name) {
					a.addMember(rec, m, true)
				}
			}
			return nil
		}
	}
	return fmt.Errorf("generate(%s): no such entity", name)
}

// addType registers the type-defining entity name. Its declaration is
// expanded later by drain; explicit records also bring their members.
func (a *Adapter) addType(name string, explicit bool) *ir.Item {
	if it := a.graph.Item(name); it != nil {
		if explicit && !it.Explicit {
			it.Explicit = true
			if a.filled[name] {
				a.addMembers(it)
			}
		}
		return it
	}
	e := a.types[name]
	it := &ir.Item{ID: name, Name: name, Header: e.Header, Explicit: explicit}
	switch e.Kind {
	case EntityClass, EntityStruct:
		it.Kind = ir.KindStruct
	case EntityEnum:
		it.Kind = ir.KindEnum
	case EntityTypedef:
		it.Kind = ir.KindTypedef
	case EntityTemplate:
		it.Kind = ir.KindTemplate
	default:
		panic(fmt.Sprintf("frontend: %s is not a type entity", e.Kind))
	}
	if err := a.graph.Add(it); err != nil {
		panic(err)
	}
	if a.d.Blocked(name) {
		a.block(it)
		return it
	}
	a.pending = append(a.pending, it)
	return it
}

// drain expands pending type items until no new ones appear.
func (a *Adapter) drain() {
	for len(a.pending) > 0 {
		it := a.pending[0]
		a.pending = a.pending[1:]
		a.expand(it)
	}
}

func (a *Adapter) expand(it *ir.Item) {
	e := a.types[it.ID]
	switch it.Kind {
	case ir.KindStruct, ir.KindTemplate:
		a.fillRecord(it, e)
	case ir.KindEnum:
		for _, v := range e.Variants {
			it.Variants = append(it.Variants, ir.Variant{Name: v.Name, Value: v.Value})
		}
	case ir.KindTypedef:
		it.Target = a.parse(e.Target, &it.IllFormed)
		a.resolve(it.Target, ir.ScopeOf(it.Name), nil)
	default:
		panic(fmt.Sprintf("frontend: unhandled type kind %s", it.Kind))
	}
	a.filled[it.ID] = true
	if it.Explicit {
		a.addMembers(it)
	}
}

func (a *Adapter) fillRecord(it *ir.Item, e *RawEntity) {
	it.Incomplete = e.Incomplete || e.IllFormed
	it.IllFormed = e.IllFormed
	it.TemplateParams = e.TemplateParams
	if e.Traits != nil {
		it.Traits = &ir.Traits{
			CopyConstructible:    e.Traits.CopyConstructible,
			MoveConstructible:    e.Traits.MoveConstructible,
			TriviallyRelocatable: e.Traits.TriviallyRelocatable,
			UserDestructor:       e.Traits.UserDestructor,
			Abstract:             e.Traits.Abstract,
			AddressSensitive:     e.Traits.AddressSensitive,
		}
		it.Abstract = e.Traits.Abstract
	}
	for _, m := range a.members[e.Name] {
		if m.Kind == EntityConstructor {
			it.HasCtor = true
		}
		if m.Virtual || m.PureVirtual {
			it.Polymorphic = true
		}
		if m.PureVirtual {
			it.Abstract = true
		}
	}
	if it.Incomplete {
		return
	}
	if it.Subclassing {
		a.baseCtors(it, e)
	}
	tparams := paramSet(e.TemplateParams)
	for _, f := range e.Fields {
		ft := a.parse(f.Type, &it.IllFormed)
		a.resolve(ft, e.Name, tparams)
		it.Fields = append(it.Fields, ir.Field{Name: f.Name, Type: ft, Private: f.Private})
	}
	for _, b := range e.Bases {
		bt := a.parse(b, &it.IllFormed)
		a.resolve(bt, ir.ScopeOf(e.Name), tparams)
		it.Bases = append(it.Bases, bt)
	}
	if it.Kind == ir.KindTemplate {
		// Template members are patterns; their types are pulled in now so
		// that every instantiation can resolve them.
		for _, m := range a.members[e.Name] {
			if pm := a.member(it, m); pm != nil {
				it.Pattern = append(it.Pattern, pm)
			}
		}
	}
}

// baseCtors records the constructors a trampoline deriving from it can
// forward to. They are kept even for abstract records, whose constructors
// are otherwise never items.
func (a *Adapter) baseCtors(it *ir.Item, e *RawEntity) {
	for _, m := range a.members[e.Name] {
		if m.Kind != EntityConstructor || m.Deleted || isCopyOrMove(m, it.Name) {
			continue
		}
		ctor := &ir.Item{}
		a.signature(ctor, m, it.Name, nil)
		if ctor.IllFormed {
			continue
		}
		it.Ctors = append(it.Ctors, ctor.Params)
	}
}

// addMembers adds the methods and constructors of an explicit record.
func (a *Adapter) addMembers(rec *ir.Item) {
	if rec.Kind != ir.KindStruct || rec.Incomplete || rec.Excluded != nil || a.explicit[rec.ID] {
		return
	}
	a.explicit[rec.ID] = true
	for _, m := range a.members[rec.ID] {
		a.addMember(rec, m, true)
	}
}

func (a *Adapter) addMember(rec *ir.Item, m *RawEntity, explicit bool) {
	it := a.member(rec, m)
	if it == nil || a.graph.Item(it.ID) != nil {
		return
	}
	it.Explicit = explicit
	if err := a.graph.Add(it); err != nil {
		panic(err)
	}
	if a.d.Blocked(it.Name) {
		a.block(it)
	}
}

// member converts a method or constructor entity. Destructors, deleted
// members, copy and move constructors, and constructors of abstract classes
// are represented by the record's traits instead and yield nil.
func (a *Adapter) member(rec *ir.Item, m *RawEntity) *ir.Item {
	if m.Kind == EntityDestructor || m.Deleted {
		return nil
	}
	ctor := m.Kind == EntityConstructor
	if ctor && (rec.Abstract || isCopyOrMove(m, rec.Name)) {
		return nil
	}
	short := m.Name
	if i := strings.LastIndex(short, "::"); i >= 0 {
		short = short[i+2:]
	}
	if ctor {
		short = ir.ShortName(rec.Name)
		if i := strings.Index(short, "<"); i >= 0 {
			short = short[:i]
		}
	}
	it := &ir.Item{
		Kind:     ir.KindMethod,
		Name:     rec.Name + "::" + short,
		Header:   m.Header,
		Receiver: rec.ID,
		Flags: ir.MethodFlags{
			Static:      m.Static,
			Const:       m.Const,
			Virtual:     m.Virtual || m.PureVirtual,
			Pure:        m.PureVirtual,
			Constructor: ctor,
		},
		IllFormed: m.IllFormed,
	}
	if it.Header == "" {
		it.Header = rec.Header
	}
	a.signature(it, m, rec.Name, paramSet(rec.TemplateParams))
	return it
}

func (a *Adapter) addFunction(e *RawEntity, explicit bool) {
	it := &ir.Item{
		Kind:      ir.KindFunction,
		Name:      e.Name,
		Header:    e.Header,
		Explicit:  explicit,
		IllFormed: e.IllFormed,
	}
	a.signature(it, e, ir.ScopeOf(e.Name), nil)
	if a.graph.Item(it.ID) != nil {
		return
	}
	if err := a.graph.Add(it); err != nil {
		panic(err)
	}
	if a.d.Blocked(e.Name) {
		a.block(it)
	}
}

func (a *Adapter) block(it *ir.Item) {
	a.graph.Exclude(it.ID, ir.Exclusion{Reason: diag.BlockedDependency, Message: "blocked by directive"})
	a.logger.WithField("item", it.ID).Debug("blocked")
}

// signature parses and resolves parameters and return type, then derives
// the item ID from them.
func (a *Adapter) signature(it *ir.Item, e *RawEntity, scope string, tparams map[string]bool) {
	for i, p := range e.Params {
		pt := a.parse(p.Type, &it.IllFormed)
		a.resolve(pt, scope, tparams)
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		it.Params = append(it.Params, ir.Param{Name: name, Type: pt})
	}
	if e.Kind != EntityConstructor && e.Return != "" {
		rt := a.parse(e.Return, &it.IllFormed)
		if !rt.IsVoid() {
			a.resolve(rt, scope, tparams)
			it.Return = rt
		}
	}
	it.ID = ir.SignatureID(it.Name, it.Params, it.Flags.Const)
}

// resolve qualifies every named type inside t against scope, innermost
// scope first, and pulls the defining entities into the graph. Template
// parameters and names in std are left as written.
func (a *Adapter) resolve(t *ir.Type, scope string, tparams map[string]bool) {
	t.Walk(func(n *ir.Type) {
		if n.Kind != ir.TypeValue && n.Kind != ir.TypeInstantiation {
			return
		}
		if tparams[n.Name] || typedb.IsStd(n.Name) {
			return
		}
		q, ok := a.lookup(n.Name, scope)
		if !ok {
			return
		}
		n.Name = q
		if n.Kind == ir.TypeValue {
			n.Def = q
		}
		a.addType(q, false)
	})
}

func (a *Adapter) lookup(name, scope string) (string, bool) {
	for s := scope; ; s = ir.ScopeOf(s) {
		candidate := name
		if s != "" {
			candidate = s + "::" + name
		}
		if _, ok := a.types[candidate]; ok {
			return candidate, true
		}
		if s == "" {
			return "", false
		}
	}
}

// parse converts a spelling, degrading to an opaque type and marking the
// owner ill-formed when the spelling is malformed.
func (a *Adapter) parse(spelling string, illFormed *bool) *ir.Type {
	t, err := ir.ParseType(spelling)
	if err != nil {
		*illFormed = true
		return &ir.Type{Kind: ir.TypeOpaque, Spelling: strings.TrimSpace(spelling)}
	}
	return t
}

// headers records the include list: the frontend's header list when given,
// otherwise the headers of the adapted items in entity order.
func (a *Adapter) headers() {
	if len(a.in.Headers) > 0 {
		for _, h := range a.in.Headers {
			a.graph.AddHeader(h)
		}
		return
	}
	for _, e := range a.in.Entities {
		if e.Header == "" {
			continue
		}
		owner := e.Name
		if e.Class != "" {
			owner = e.Class
		}
		if len(a.graph.Lookup(owner)) > 0 {
			a.graph.AddHeader(e.Header)
		}
	}
}

func isRecord(e *RawEntity) bool {
	return e.Kind == EntityClass || e.Kind == EntityStruct
}

// isCopyOrMove reports whether a constructor takes exactly one reference to
// its own class.
func isCopyOrMove(m *RawEntity, class string) bool {
	if len(m.Params) != 1 {
		return false
	}
	t, err := ir.ParseType(m.Params[0].Type)
	if err != nil || (t.Kind != ir.TypeReference && t.Kind != ir.TypeRValueReference) {
		return false
	}
	name := t.Elem.Name
	return name == class || name == ir.ShortName(class)
}

func paramSet(params []string) map[string]bool {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]bool, len(params))
	for _, p := range params {
		out[p] = true
	}
	return out
}

// Summaries lists every entity as (qualified name, kind) for directive
// scripts.
func (in *Input) Summaries() [][2]string {
	out := make([][2]string, 0, len(in.Entities))
	for _, e := range in.Entities {
		name := e.Name
		if e.Class != "" {
			name = e.Class + "::" + e.Name
		}
		out = append(out, [2]string{name, e.Kind})
	}
	return out
}
