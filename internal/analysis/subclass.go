package analysis

import (
	"fmt"
	"strings"

	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/ir"
	"github.com/jward/cxxbind/internal/typedb"
)

// SubclassSuffix is appended to a record ID to form the ID of its
// subclass item.
const SubclassSuffix = "#subclass"

// planSubclasses creates one KindSubclass item per subclass directive. The
// trampoline overrides the record's own forwardable virtual methods; a pure
// virtual that cannot be forwarded leaves the trampoline abstract, so the
// subclass item is excluded.
func (r *Result) planSubclasses() error {
	g := r.Graph
	for _, rec := range g.Items() {
		if !rec.Subclassing || !rec.Accepted() {
			continue
		}
		if !rec.Polymorphic {
			return &FatalError{
				Pass:    "subclass",
				Msg:     "subclass target has no virtual methods",
				Members: []string{rec.Name},
			}
		}

		class := rec.BridgeName + "_trampoline"
		sub := &ir.Item{
			ID:         rec.ID + SubclassSuffix,
			Kind:       ir.KindSubclass,
			Name:       rec.Name,
			Header:     rec.Header,
			Receiver:   rec.ID,
			Explicit:   true,
			BridgeName: class,
			Trampoline: &ir.Trampoline{
				Class: class,
				Base:  rec.ID,
			},
		}
		if err := g.Add(sub); err != nil {
			return fmt.Errorf("subclass: %w", err)
		}

		failed := r.planOverrides(rec, sub)
		if failed == "" {
			failed = r.planCtors(rec, sub)
		}
		if failed == "" {
			failed = r.claimTrampolineNames(sub)
		}
		if failed != "" {
			r.exclude(sub.ID, diag.ShimGenerationFailed, failed)
			continue
		}
		r.logger.WithField("class", rec.Name).
			WithField("overrides", len(sub.Trampoline.Overrides)).
			WithField("ctors", len(sub.Trampoline.Ctors)).
			Debug("trampoline planned")
	}
	r.invalidateDeps()
	r.Propagate()
	return nil
}

// planOverrides fills the override list and returns a failure message when
// the trampoline could not be instantiated.
func (r *Result) planOverrides(rec, sub *ir.Item) string {
	ownPure := false
	for _, m := range r.Graph.Methods(rec.ID) {
		if !m.Flags.Virtual || m.Flags.Static || m.Flags.Constructor {
			continue
		}
		if m.Flags.Pure {
			ownPure = true
		}
		why := ""
		if !m.Accepted() {
			why = m.Excluded.Message
		} else {
			why = r.unforwardable(m)
		}
		if why != "" {
			if m.Flags.Pure {
				return fmt.Sprintf("pure virtual %s cannot be forwarded: %s", m.ID, why)
			}
			continue
		}
		suffix := strings.TrimPrefix(m.BridgeName, rec.BridgeName+"_")
		sub.Trampoline.Overrides = append(sub.Trampoline.Overrides, ir.Override{
			Method:   m.ID,
			Callback: sub.Trampoline.Class + "_" + suffix,
		})
	}
	switch {
	case rec.Abstract && !ownPure:
		return "class is abstract through inherited pure virtual methods"
	case len(sub.Trampoline.Overrides) == 0:
		return "no virtual method can be forwarded"
	}
	return ""
}

// planCtors gives the trampoline one constructor per forwardable public
// base constructor. A record declaring no constructor has the implicit
// default one.
func (r *Result) planCtors(rec, sub *ir.Item) string {
	tr := sub.Trampoline
	if !rec.HasCtor {
		tr.Ctors = []ir.TrampolineCtor{{Shim: tr.Class + "_new"}}
		return ""
	}
	for _, params := range rec.Ctors {
		if why := r.unforwardableParams(params); why != "" {
			r.logger.WithField("class", rec.Name).Debug("constructor not forwarded: " + why)
			continue
		}
		tr.Ctors = append(tr.Ctors, ir.TrampolineCtor{Params: params})
	}
	switch len(tr.Ctors) {
	case 0:
		return fmt.Sprintf("no public constructor of %s can be forwarded", rec.Name)
	case 1:
		tr.Ctors[0].Shim = tr.Class + "_new"
	default:
		for i := range tr.Ctors {
			tr.Ctors[i].Shim = tr.Class + "_new" + paramSuffix(tr.Ctors[i].Params)
		}
	}
	return ""
}

// unforwardable explains why a virtual method cannot be forwarded to a
// callback, or returns "". Callbacks take trivial values, references and
// pointers only.
func (r *Result) unforwardable(m *ir.Item) string {
	if why := r.unforwardableParams(m.Params); why != "" {
		return why
	}
	if m.Return != nil {
		if why := r.forwardable(m.Return); why != "" {
			return "return type: " + why
		}
	}
	return ""
}

func (r *Result) unforwardableParams(params []ir.Param) string {
	for _, p := range params {
		why := r.forwardable(p.Type)
		if why == "" {
			_, why = r.paramCrossing(p.Name, p.Type)
		}
		if why != "" {
			return "parameter " + p.Name + ": " + why
		}
	}
	return ""
}

func (r *Result) forwardable(t *ir.Type) string {
	if t.IsIndirect() {
		if t.Kind == ir.TypeRValueReference {
			return fmt.Sprintf("%s cannot be forwarded", t.Spell())
		}
		if c, why := r.typeClass(t); c == typedb.Unsupported {
			return why
		}
		return ""
	}
	if c, _ := r.typeClass(t); c != typedb.Trivial {
		return fmt.Sprintf("%s is %s", t.Spell(), c)
	}
	return ""
}

func (r *Result) claimTrampolineNames(sub *ir.Item) string {
	tr := sub.Trampoline
	names := []string{tr.Class}
	for _, c := range tr.Ctors {
		names = append(names, c.Shim)
	}
	for _, o := range tr.Overrides {
		names = append(names, o.Callback)
	}
	for _, n := range names {
		if prev, ok := r.names.claim(n, sub.ID); !ok {
			return fmt.Sprintf("generated name %s is already used by %s", n, prev)
		}
	}
	return ""
}
