package analysis

import (
	"fmt"

	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/directives"
	"github.com/jward/cxxbind/internal/ir"
	"github.com/jward/cxxbind/internal/typedb"
)

// use is one instantiation occurrence waiting to be expanded.
type use struct {
	t        *ir.Type
	depth    int
	explicit bool
}

// closure expands every required template instantiation into a concrete
// KindInstantiation item. The worklist is deduplicated by the
// instantiation key; instantiations past the count or depth limits are
// created excluded so their users are excluded too.
func (r *Result) closure(d *directives.Directives, opts Options) error {
	g := r.Graph
	blocked := d.BlockSet()
	var work []use

	for _, t := range g.Requests {
		work = appendUses(work, t, 0, true)
	}
	for _, it := range g.Ordered() {
		if it.Kind == ir.KindTemplate {
			continue
		}
		for _, t := range it.TypeRefs() {
			work = appendUses(work, t, 0, false)
		}
	}

	created := 0
	for len(work) > 0 {
		u := work[0]
		work = work[1:]
		t := u.t
		if typedb.IsStd(t.Name) {
			continue
		}
		key := t.Key()
		if existing := g.Item(key); existing != nil {
			t.Def = key
			if u.explicit && !existing.Explicit && existing.Accepted() {
				existing.Explicit = true
				work = r.instantiateMethods(existing, work, blocked)
			}
			continue
		}
		tmpl := g.Item(t.Name)
		if tmpl == nil || tmpl.Kind != ir.KindTemplate {
			continue
		}
		if hasTemplateParam(t, tmpl) {
			continue
		}
		t.Def = key

		inst := &ir.Item{
			ID:       key,
			Kind:     ir.KindInstantiation,
			Name:     key,
			Header:   tmpl.Header,
			Template: tmpl.ID,
			Args:     cloneTypes(t.Args),
			Depth:    u.depth,
			Explicit: u.explicit,
		}
		if err := g.Add(inst); err != nil {
			return fmt.Errorf("closure: %w", err)
		}

		switch {
		case blocked[key]:
			r.exclude(key, diag.BlockedDependency, "blocked by directive")
			continue
		case !tmpl.Accepted():
			g.Exclude(key, ir.Exclusion{
				Reason:  tmpl.Excluded.Reason,
				Message: fmt.Sprintf("depends on excluded template %s", tmpl.Name),
				Cause:   tmpl.ID,
			})
			continue
		case u.depth > opts.MaxTemplateDepth:
			r.exclude(key, diag.UnsupportedType,
				fmt.Sprintf("template nesting depth %d exceeds limit %d", u.depth, opts.MaxTemplateDepth))
			continue
		case created >= opts.MaxInstantiations:
			r.exclude(key, diag.UnsupportedType,
				fmt.Sprintf("instantiation limit %d reached", opts.MaxInstantiations))
			continue
		case len(t.Args) != len(tmpl.TemplateParams):
			r.exclude(key, diag.UnsupportedType,
				fmt.Sprintf("%s takes %d template arguments, got %d", tmpl.Name, len(tmpl.TemplateParams), len(t.Args)))
			continue
		}
		created++

		params := bindings(tmpl, t.Args)
		inst.Incomplete = tmpl.Incomplete
		inst.IllFormed = tmpl.IllFormed
		inst.Polymorphic = tmpl.Polymorphic
		inst.Abstract = tmpl.Abstract
		inst.HasCtor = tmpl.HasCtor
		if tmpl.Traits != nil {
			traits := *tmpl.Traits
			inst.Traits = &traits
		}
		for _, f := range tmpl.Fields {
			ft := ir.Substitute(f.Type, params)
			inst.Fields = append(inst.Fields, ir.Field{Name: f.Name, Type: ft, Private: f.Private})
			work = appendUses(work, ft, u.depth, false)
		}
		for _, b := range tmpl.Bases {
			bt := ir.Substitute(b, params)
			inst.Bases = append(inst.Bases, bt)
			work = appendUses(work, bt, u.depth, false)
		}
		if inst.Explicit {
			work = r.instantiateMethods(inst, work, blocked)
		}
	}

	r.logger.WithField("instantiations", created).Debug("closure complete")
	r.invalidateDeps()
	return nil
}

// instantiateMethods adds the substituted pattern members of an
// instantiation to the graph and queues the instantiations they use. A
// member is blocked under either its instantiated or its template name.
func (r *Result) instantiateMethods(inst *ir.Item, work []use, blocked map[string]bool) []use {
	tmpl := r.Graph.Item(inst.Template)
	params := bindings(tmpl, inst.Args)
	for _, pm := range tmpl.Pattern {
		m := &ir.Item{
			Kind:      ir.KindMethod,
			Name:      inst.Name + "::" + pm.ShortName(),
			Header:    pm.Header,
			Receiver:  inst.ID,
			Flags:     pm.Flags,
			IllFormed: pm.IllFormed,
			Explicit:  true,
		}
		for _, p := range pm.Params {
			m.Params = append(m.Params, ir.Param{Name: p.Name, Type: ir.Substitute(p.Type, params)})
		}
		if pm.Return != nil {
			m.Return = ir.Substitute(pm.Return, params)
		}
		m.ID = ir.SignatureID(m.Name, m.Params, m.Flags.Const)
		if r.Graph.Item(m.ID) != nil {
			continue
		}
		if err := r.Graph.Add(m); err != nil {
			panic(err)
		}
		if blocked[m.Name] || blocked[tmpl.Name+"::"+pm.ShortName()] {
			r.exclude(m.ID, diag.BlockedDependency, "blocked by directive")
			continue
		}
		for _, t := range m.TypeRefs() {
			work = appendUses(work, t, inst.Depth, false)
		}
	}
	return work
}

// appendUses queues every instantiation inside t. Nesting inside template
// arguments adds one level of depth per level.
func appendUses(work []use, t *ir.Type, depth int, explicit bool) []use {
	type frame struct {
		t     *ir.Type
		depth int
	}
	stack := []frame{{t, depth}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.t == nil {
			continue
		}
		d := f.depth
		if f.t.Kind == ir.TypeInstantiation {
			d++
			work = append(work, use{t: f.t, depth: d, explicit: explicit && d == depth+1})
		}
		if f.t.Elem != nil {
			stack = append(stack, frame{f.t.Elem, f.depth})
		}
		for i := len(f.t.Args) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.t.Args[i], d})
		}
	}
	return work
}

func bindings(tmpl *ir.Item, args []*ir.Type) map[string]*ir.Type {
	out := make(map[string]*ir.Type, len(tmpl.TemplateParams))
	for i, p := range tmpl.TemplateParams {
		if i < len(args) {
			out[p] = args[i]
		}
	}
	return out
}

// hasTemplateParam reports whether an instantiation still mentions a
// parameter of its own template, as in the template's own member
// declarations.
func hasTemplateParam(t *ir.Type, tmpl *ir.Item) bool {
	found := false
	params := make(map[string]bool, len(tmpl.TemplateParams))
	for _, p := range tmpl.TemplateParams {
		params[p] = true
	}
	for _, a := range t.Args {
		a.Walk(func(n *ir.Type) {
			if n.Kind == ir.TypeValue && n.Def == "" && params[n.Name] {
				found = true
			}
		})
	}
	return found
}

func cloneTypes(ts []*ir.Type) []*ir.Type {
	out := make([]*ir.Type, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}
