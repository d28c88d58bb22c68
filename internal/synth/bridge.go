package synth

import (
	"fmt"
	"strings"

	"github.com/jward/cxxbind/internal/analysis"
	"github.com/jward/cxxbind/internal/ir"
	"github.com/jward/cxxbind/internal/typedb"
)

// bridge renders the declaration module: includes, then types in value
// order, then functions and methods by name, then subclasses.
func (s *synth) bridge() []byte {
	var b strings.Builder
	b.WriteString(generatedHeader)
	fmt.Fprintf(&b, "bridge %s v1\n", s.cfg.Module)
	for _, h := range s.r.Graph.Headers {
		fmt.Fprintf(&b, "include %q\n", h)
	}
	fmt.Fprintf(&b, "include %q\n", s.cfg.Module+"_shim.h")

	for _, it := range s.types {
		b.WriteByte('\n')
		s.bridgeType(&b, it)
	}
	if len(s.funcs) > 0 {
		b.WriteByte('\n')
	}
	for _, it := range s.funcs {
		s.bridgeFunc(&b, it)
	}
	for _, it := range s.subclasses {
		b.WriteByte('\n')
		s.bridgeSubclass(&b, it)
	}
	return []byte(b.String())
}

func (s *synth) bridgeType(b *strings.Builder, it *ir.Item) {
	switch it.Kind {
	case ir.KindStruct, ir.KindInstantiation:
		class := s.r.DB.Class(it.ID)
		fmt.Fprintf(b, "type %s %s cxx=%q\n", it.BridgeName, class, it.Name)
		if class == typedb.Trivial {
			for _, f := range it.Fields {
				if f.Private {
					continue
				}
				fmt.Fprintf(b, "\tfield %s: %s %s\n", f.Name, analysis.FieldCrossing(f.Type), s.r.BridgeType(f.Type))
			}
		}
		for _, sp := range it.Specials {
			fmt.Fprintf(b, "\tspecial %s %s shim=%s\n", sp.Kind, s.specialSignature(it, sp), sp.Name)
		}
		b.WriteString("end\n")
	case ir.KindEnum:
		fmt.Fprintf(b, "enum %s cxx=%q\n", it.BridgeName, it.Name)
		for _, v := range it.Variants {
			if v.Value == "" {
				fmt.Fprintf(b, "\tvariant %s\n", v.Name)
				continue
			}
			fmt.Fprintf(b, "\tvariant %s = %s\n", v.Name, v.Value)
		}
		b.WriteString("end\n")
	case ir.KindTypedef:
		fmt.Fprintf(b, "alias %s = %s %s cxx=%q\n",
			it.BridgeName, analysis.FieldCrossing(it.Target), s.r.BridgeType(it.Target), it.Name)
	default:
		panic(fmt.Sprintf("synth: %s is not a type", it.Kind))
	}
}

// specialSignature is the bridge signature of a special member.
func (s *synth) specialSignature(it *ir.Item, sp ir.Special) string {
	self := it.BridgeName
	switch sp.Kind {
	case ir.SpecialNew:
		return fmt.Sprintf("%s() -> boxed %s", sp.Name, self)
	case ir.SpecialDrop:
		return fmt.Sprintf("%s(self: mut_ptr %s)", sp.Name, self)
	case ir.SpecialMove:
		return fmt.Sprintf("%s(dest: mut_ptr %s, src: mut_ptr %s)", sp.Name, self, self)
	case ir.SpecialCopy:
		return fmt.Sprintf("%s(dest: mut_ptr %s, src: ref %s)", sp.Name, self, self)
	case ir.SpecialUpcast:
		return fmt.Sprintf("%s(self: ref %s) -> ref %s", sp.Name, self, s.r.BridgeType(sp.Base))
	default:
		panic(fmt.Sprintf("synth: unhandled special %s", sp.Kind))
	}
}

// bridgeFunc writes one fn or method line. Methods taking self are
// "method"; free functions, static methods and constructors are "fn".
func (s *synth) bridgeFunc(b *strings.Builder, it *ir.Item) {
	plan := it.Shim
	kw := "fn"
	if plan.Self != nil {
		kw = "method"
	}
	fmt.Fprintf(b, "%s %s cxx=%q", kw, plan.BridgeSignature, it.Name)
	if plan.NeedsShim {
		fmt.Fprintf(b, " shim=%s", plan.Name)
	}
	if plan.Unsafe {
		b.WriteString(" unsafe")
	}
	b.WriteByte('\n')
}

func (s *synth) bridgeSubclass(b *strings.Builder, it *ir.Item) {
	tr := it.Trampoline
	base := s.r.Graph.Item(tr.Base)
	fmt.Fprintf(b, "subclass %s base=%s\n", tr.Class, base.BridgeName)
	for _, c := range tr.Ctors {
		parts := []string{"peer: mut_ptr void"}
		for _, p := range c.Params {
			parts = append(parts, s.r.FormatCrossing(s.r.ArgCrossing(p)))
		}
		fmt.Fprintf(b, "\tconstructor %s(%s) -> unique_ptr %s shim=%s\n",
			c.Shim, strings.Join(parts, ", "), base.BridgeName, c.Shim)
	}
	for _, o := range tr.Overrides {
		m := s.r.Graph.Item(o.Method)
		parts := []string{"peer: mut_ptr void"}
		for _, p := range m.Shim.Params {
			parts = append(parts, s.r.FormatCrossing(p))
		}
		fmt.Fprintf(b, "\tcallback %s(%s)", o.Callback, strings.Join(parts, ", "))
		if m.Shim.Return != nil {
			fmt.Fprintf(b, " -> %s", s.r.FormatCrossing(*m.Shim.Return))
		}
		fmt.Fprintf(b, " overrides=%s\n", m.BridgeName)
	}
	b.WriteString("end\n")
}
