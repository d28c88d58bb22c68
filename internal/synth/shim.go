package synth

import (
	"fmt"
	"strings"

	"github.com/jward/cxxbind/internal/analysis"
	"github.com/jward/cxxbind/internal/ir"
)

// shimHeader declares every shim, every callback the safe side implements
// and every trampoline constructor.
func (s *synth) shimHeader() []byte {
	var b strings.Builder
	b.WriteString(generatedHeader)
	b.WriteString("#pragma once\n\n#include <memory>\n#include <new>\n#include <utility>\n")
	for _, h := range s.r.Graph.Headers {
		fmt.Fprintf(&b, "#include %q\n", h)
	}
	for _, text := range s.cfg.ExtraNative {
		b.WriteByte('\n')
		b.WriteString(strings.TrimRight(text, "\n"))
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "\nnamespace %s {\n", s.cfg.ShimNamespace)
	for _, it := range s.types {
		for _, sp := range it.Specials {
			fmt.Fprintf(&b, "%s;\n", s.specialDecl(it, sp))
		}
	}
	for _, it := range s.funcs {
		if it.Shim.NeedsShim {
			fmt.Fprintf(&b, "%s;\n", it.Shim.NativeSignature)
		}
	}
	for _, it := range s.subclasses {
		for _, o := range it.Trampoline.Overrides {
			fmt.Fprintf(&b, "%s;\n", s.callbackDecl(o))
		}
		for _, c := range it.Trampoline.Ctors {
			fmt.Fprintf(&b, "%s;\n", s.trampolineNewDecl(it, c))
		}
	}
	fmt.Fprintf(&b, "} // namespace %s\n", s.cfg.ShimNamespace)
	return []byte(b.String())
}

// shimSource defines every shim declared in the header.
func (s *synth) shimSource() []byte {
	var b strings.Builder
	b.WriteString(generatedHeader)
	fmt.Fprintf(&b, "#include %q\n", s.cfg.Module+"_shim.h")
	fmt.Fprintf(&b, "\nnamespace %s {\n", s.cfg.ShimNamespace)
	for _, it := range s.types {
		for _, sp := range it.Specials {
			fmt.Fprintf(&b, "\n%s {\n\t%s\n}\n", s.specialDecl(it, sp), s.specialBody(it, sp))
		}
	}
	for _, it := range s.funcs {
		if it.Shim.NeedsShim {
			fmt.Fprintf(&b, "\n%s {\n\t%s\n}\n", it.Shim.NativeSignature, s.shimBody(it))
		}
	}
	for _, it := range s.subclasses {
		b.WriteByte('\n')
		s.trampolineClass(&b, it)
		for _, c := range it.Trampoline.Ctors {
			args := append([]string{"peer"}, paramNames(c.Params)...)
			fmt.Fprintf(&b, "\n%s {\n\treturn std::make_unique<%s>(%s);\n}\n",
				s.trampolineNewDecl(it, c), it.Trampoline.Class, strings.Join(args, ", "))
		}
	}
	fmt.Fprintf(&b, "\n} // namespace %s\n", s.cfg.ShimNamespace)
	return []byte(b.String())
}

func valueSpelling(it *ir.Item) string {
	return it.SelfType().Spell()
}

func (s *synth) specialDecl(it *ir.Item, sp ir.Special) string {
	self := valueSpelling(it)
	switch sp.Kind {
	case ir.SpecialNew:
		return fmt.Sprintf("std::unique_ptr<%s> %s()", self, sp.Name)
	case ir.SpecialDrop:
		return fmt.Sprintf("void %s(%s *self)", sp.Name, self)
	case ir.SpecialMove:
		return fmt.Sprintf("void %s(%s *dest, %s *src)", sp.Name, self, self)
	case ir.SpecialCopy:
		return fmt.Sprintf("void %s(%s *dest, const %s &src)", sp.Name, self, self)
	case ir.SpecialUpcast:
		base := sp.Base.Clone()
		base.Const = false
		return fmt.Sprintf("const %s &%s(const %s &self)", base.Spell(), sp.Name, self)
	default:
		panic(fmt.Sprintf("synth: unhandled special %s", sp.Kind))
	}
}

func (s *synth) specialBody(it *ir.Item, sp ir.Special) string {
	self := valueSpelling(it)
	switch sp.Kind {
	case ir.SpecialNew:
		return fmt.Sprintf("return std::make_unique<%s>();", self)
	case ir.SpecialDrop:
		return "std::destroy_at(self);"
	case ir.SpecialMove:
		return fmt.Sprintf("new (dest) %s(std::move(*src));", self)
	case ir.SpecialCopy:
		return fmt.Sprintf("new (dest) %s(src);", self)
	case ir.SpecialUpcast:
		return "return self;"
	default:
		panic(fmt.Sprintf("synth: unhandled special %s", sp.Kind))
	}
}

// shimBody is the single statement of a function or method shim.
func (s *synth) shimBody(it *ir.Item) string {
	plan := it.Shim
	args := callArgs(it)

	if plan.Kind == ir.ShimConstructor {
		self := valueSpelling(s.r.Graph.Item(it.Receiver))
		if plan.BoxedReturn {
			return fmt.Sprintf("return std::make_unique<%s>(%s);", self, strings.Join(args, ", "))
		}
		return fmt.Sprintf("return %s(%s);", self, strings.Join(args, ", "))
	}

	var call string
	switch plan.Kind {
	case ir.ShimOperator:
		if plan.Self != nil {
			args = append([]string{"self"}, args...)
		}
		call = operatorCall(analysis.OperatorSymbol(it.ShortName()), args)
	case ir.ShimStatic, ir.ShimFunction:
		// Shims share their names with the functions they wrap; qualify
		// from the global scope so the shim does not call itself.
		call = fmt.Sprintf("::%s(%s)", it.Name, strings.Join(args, ", "))
	case ir.ShimMethod:
		call = fmt.Sprintf("self.%s(%s)", it.ShortName(), strings.Join(args, ", "))
	default:
		panic(fmt.Sprintf("synth: unhandled shim kind %s", plan.Kind))
	}

	switch {
	case plan.Return == nil:
		return call + ";"
	case plan.BoxedReturn:
		bare := plan.Return.Type.Clone()
		bare.Const = false
		return fmt.Sprintf("return std::make_unique<%s>(%s);", bare.Spell(), call)
	default:
		return "return " + call + ";"
	}
}

// callArgs forwards the shim parameters, moving out of the pointers of
// moved values.
func callArgs(it *ir.Item) []string {
	moved := make(map[int]bool, len(it.Shim.MovedParams))
	for _, i := range it.Shim.MovedParams {
		moved[i] = true
	}
	args := make([]string, len(it.Shim.Params))
	for i, p := range it.Shim.Params {
		if moved[i] {
			args[i] = "std::move(*" + p.Name + ")"
			continue
		}
		args[i] = p.Name
	}
	return args
}

func operatorCall(sym string, operands []string) string {
	switch {
	case sym == "[]" && len(operands) == 2:
		return fmt.Sprintf("%s[%s]", operands[0], operands[1])
	case sym == "()":
		return fmt.Sprintf("%s(%s)", operands[0], strings.Join(operands[1:], ", "))
	case len(operands) == 1:
		return fmt.Sprintf("(%s%s)", sym, operands[0])
	case len(operands) == 2:
		return fmt.Sprintf("(%s %s %s)", operands[0], sym, operands[1])
	default:
		panic(fmt.Sprintf("synth: operator%s with %d operands", sym, len(operands)))
	}
}

func (s *synth) callbackDecl(o ir.Override) string {
	m := s.r.Graph.Item(o.Method)
	params := []string{"void *peer"}
	for _, p := range m.Params {
		params = append(params, analysis.DeclSpelling(p.Type, p.Name))
	}
	ret := "void"
	if m.Return != nil {
		ret = m.Return.Spell()
	}
	return fmt.Sprintf("%s %s(%s)", ret, o.Callback, strings.Join(params, ", "))
}

func (s *synth) trampolineNewDecl(it *ir.Item, c ir.TrampolineCtor) string {
	base := s.r.Graph.Item(it.Trampoline.Base)
	return fmt.Sprintf("std::unique_ptr<%s> %s(%s)", valueSpelling(base), c.Shim, strings.Join(peerParams(c.Params), ", "))
}

// peerParams declares the peer pointer followed by params.
func peerParams(params []ir.Param) []string {
	out := []string{"void *peer"}
	for _, p := range params {
		out = append(out, analysis.DeclSpelling(p.Type, p.Name))
	}
	return out
}

func paramNames(params []ir.Param) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Name
	}
	return out
}

// trampolineClass writes the class that forwards each overridden virtual
// to its callback with the peer pointer. Each constructor passes its
// arguments on to the matching base constructor.
func (s *synth) trampolineClass(b *strings.Builder, it *ir.Item) {
	tr := it.Trampoline
	base := s.r.Graph.Item(tr.Base)
	fmt.Fprintf(b, "class %s : public %s {\npublic:\n", tr.Class, valueSpelling(base))
	for _, c := range tr.Ctors {
		if len(c.Params) == 0 {
			fmt.Fprintf(b, "\texplicit %s(void *peer) : peer_(peer) {}\n", tr.Class)
			continue
		}
		fmt.Fprintf(b, "\t%s(%s) : %s(%s), peer_(peer) {}\n", tr.Class,
			strings.Join(peerParams(c.Params), ", "), valueSpelling(base), strings.Join(paramNames(c.Params), ", "))
	}
	for _, o := range tr.Overrides {
		m := s.r.Graph.Item(o.Method)
		params := make([]string, len(m.Params))
		args := []string{"peer_"}
		for i, p := range m.Params {
			params[i] = analysis.DeclSpelling(p.Type, p.Name)
			args = append(args, p.Name)
		}
		ret := "void"
		if m.Return != nil {
			ret = m.Return.Spell()
		}
		qual := ""
		if m.Flags.Const {
			qual = " const"
		}
		call := fmt.Sprintf("%s(%s);", o.Callback, strings.Join(args, ", "))
		if m.Return != nil {
			call = "return " + call
		}
		fmt.Fprintf(b, "\t%s %s(%s)%s override { %s }\n", ret, m.ShortName(), strings.Join(params, ", "), qual, call)
	}
	b.WriteString("\nprivate:\n\tvoid *peer_;\n};\n")
}
