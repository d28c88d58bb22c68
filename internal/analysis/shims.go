package analysis

import (
	"fmt"
	"strings"

	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/ir"
	"github.com/jward/cxxbind/internal/typedb"
)

// planShims decides, for every accepted function and method, how each value
// crosses and whether a native shim must adapt the call.
func (r *Result) planShims() error {
	for _, it := range r.Graph.Items() {
		if !it.Accepted() {
			continue
		}
		switch it.Kind {
		case ir.KindFunction, ir.KindMethod:
			plan, why := r.shimPlan(it)
			if why != "" {
				r.Exclude(it.ID, diag.ShimGenerationFailed, why)
				continue
			}
			it.Shim = plan
		case ir.KindStruct, ir.KindEnum, ir.KindTypedef, ir.KindTemplate, ir.KindInstantiation, ir.KindSubclass:
		default:
			panic(fmt.Sprintf("shims: unhandled kind %s", it.Kind))
		}
	}
	return nil
}

func (r *Result) shimPlan(it *ir.Item) (*ir.ShimPlan, string) {
	plan := &ir.ShimPlan{Name: it.BridgeName}
	var recv *ir.Item
	if it.Kind == ir.KindMethod {
		recv = r.Graph.Item(it.Receiver)
	}

	switch {
	case it.Flags.Constructor:
		plan.Kind = ir.ShimConstructor
	case it.IsOperator():
		op, ok := operatorName(it)
		if !ok {
			return nil, fmt.Sprintf("operator%s has no named shim", OperatorSymbol(it.ShortName()))
		}
		plan.Kind = ir.ShimOperator
		plan.Operator = op
	case it.Flags.Static:
		plan.Kind = ir.ShimStatic
	}

	if recv != nil && !it.Flags.Static && !it.Flags.Constructor {
		self := recv.SelfType()
		self.Const = it.Flags.Const
		c := ir.Crossing{Name: "self", Type: &ir.Type{Kind: ir.TypeReference, Elem: self}, Strategy: ir.StrategyMutRef}
		if it.Flags.Const {
			c.Strategy = ir.StrategyRef
		}
		plan.Self = &c
	}

	adapt := false
	for i, p := range it.Params {
		c, why := r.paramCrossing(p.Name, p.Type)
		if why != "" {
			return nil, fmt.Sprintf("parameter %s: %s", p.Name, why)
		}
		if c.Strategy == ir.StrategyMove {
			plan.MovedParams = append(plan.MovedParams, i)
			adapt = true
		}
		if c.Strategy == ir.StrategyPtr || c.Strategy == ir.StrategyMutPtr {
			plan.Unsafe = true
		}
		plan.Params = append(plan.Params, c)
	}

	if it.Flags.Constructor {
		ret := &ir.Crossing{Type: recv.SelfType(), Strategy: ir.StrategyValue}
		if r.DB.Class(recv.ID) != typedb.Trivial {
			ret.Strategy = ir.StrategyBoxed
			plan.BoxedReturn = true
		}
		plan.Return = ret
	} else if it.Return != nil {
		c, why := r.returnCrossing(it.Return)
		if why != "" {
			return nil, "return type: " + why
		}
		if c.Strategy == ir.StrategyBoxed {
			plan.BoxedReturn = true
			adapt = true
		}
		if c.Strategy == ir.StrategyPtr || c.Strategy == ir.StrategyMutPtr {
			plan.Unsafe = true
		}
		plan.Return = &c
	}

	switch {
	case plan.Kind != ir.ShimNone:
	case adapt && it.Kind == ir.KindMethod:
		plan.Kind = ir.ShimMethod
	case adapt:
		plan.Kind = ir.ShimFunction
	}
	plan.NeedsShim = plan.Kind != ir.ShimNone
	plan.BridgeSignature = r.bridgeSignature(plan)
	plan.NativeSignature = r.nativeSignature(it, plan)
	return plan, ""
}

// paramCrossing picks the strategy of one parameter. Non-trivial values
// and rvalue references move through a pointer.
func (r *Result) paramCrossing(name string, t *ir.Type) (ir.Crossing, string) {
	c := ir.Crossing{Name: name, Type: t}
	if t.IsIndirect() && t.Elem.IsIndirect() {
		return c, fmt.Sprintf("%s has more than one level of indirection", t.Spell())
	}
	switch t.Kind {
	case ir.TypeReference:
		c.Strategy = ir.StrategyMutRef
		if t.Elem.Const {
			c.Strategy = ir.StrategyRef
		}
		return c, ""
	case ir.TypePointer:
		c.Strategy = ir.StrategyMutPtr
		if t.Elem.Const {
			c.Strategy = ir.StrategyPtr
		}
		return c, ""
	case ir.TypeRValueReference:
		c.Strategy = ir.StrategyMove
		return c, ""
	}
	c.Strategy = r.valueStrategy(t, ir.StrategyMove)
	return c, ""
}

// ArgCrossing is the crossing of a forwarded argument, such as a
// trampoline constructor parameter.
func (r *Result) ArgCrossing(p ir.Param) ir.Crossing {
	c, _ := r.paramCrossing(p.Name, p.Type)
	return c
}

// returnCrossing picks the strategy of a return type. Non-trivial values
// come back boxed in a std::unique_ptr.
func (r *Result) returnCrossing(t *ir.Type) (ir.Crossing, string) {
	if t.Kind == ir.TypeRValueReference {
		return ir.Crossing{Type: t}, fmt.Sprintf("%s cannot be returned", t.Spell())
	}
	c, why := r.paramCrossing("", t)
	if why != "" {
		return c, why
	}
	if c.Strategy == ir.StrategyMove {
		c.Strategy = ir.StrategyBoxed
	}
	return c, ""
}

// valueStrategy is the strategy of a by-value use: owning library pointers
// keep their own strategy, trivial values cross directly and everything
// else takes nonTrivial.
func (r *Result) valueStrategy(t *ir.Type, nonTrivial ir.Strategy) ir.Strategy {
	switch typedb.Std(t.Name) {
	case typedb.StdUniquePtr:
		return ir.StrategyUniquePtr
	case typedb.StdSharedPtr:
		return ir.StrategySharedPtr
	}
	if c, _ := r.typeClass(t); c == typedb.Trivial {
		return ir.StrategyValue
	}
	return nonTrivial
}

// BridgeType is the spelling of a type in bridge declarations: primitives
// and bridge-known library types by name, everything else by the bridge
// name of its definition. Indirection is carried by the strategy, not the
// type.
func (r *Result) BridgeType(t *ir.Type) string {
	t = t.Named()
	switch t.Kind {
	case ir.TypePrimitive:
		return Mangle(t.Name)
	case ir.TypeValue, ir.TypeInstantiation:
		switch typedb.Std(t.Name) {
		case typedb.StdString:
			return "string"
		case typedb.StdVector:
			return "vector<" + r.BridgeType(t.Args[0]) + ">"
		case typedb.StdUniquePtr, typedb.StdSharedPtr:
			return r.BridgeType(t.Args[0])
		}
		if def := r.Graph.Item(t.Def); def != nil && def.BridgeName != "" {
			return def.BridgeName
		}
		return Mangle(t.Key())
	default:
		return Mangle(t.Key())
	}
}

// FieldCrossing is the strategy of a record field or typedef target. By
// value members always cross as values.
func FieldCrossing(t *ir.Type) ir.Strategy {
	switch t.Kind {
	case ir.TypeReference:
		if t.Elem.Const {
			return ir.StrategyRef
		}
		return ir.StrategyMutRef
	case ir.TypePointer:
		if t.Elem.Const {
			return ir.StrategyPtr
		}
		return ir.StrategyMutPtr
	case ir.TypeRValueReference:
		return ir.StrategyMove
	}
	switch typedb.Std(t.Name) {
	case typedb.StdUniquePtr:
		return ir.StrategyUniquePtr
	case typedb.StdSharedPtr:
		return ir.StrategySharedPtr
	}
	return ir.StrategyValue
}

// FormatCrossing renders "name: strategy type", or "strategy type" for an
// unnamed crossing.
func (r *Result) FormatCrossing(c ir.Crossing) string {
	s := string(c.Strategy) + " " + r.BridgeType(c.Type)
	if c.Name == "" {
		return s
	}
	return c.Name + ": " + s
}

func (r *Result) bridgeSignature(plan *ir.ShimPlan) string {
	var parts []string
	if plan.Self != nil {
		parts = append(parts, r.FormatCrossing(*plan.Self))
	}
	for _, p := range plan.Params {
		parts = append(parts, r.FormatCrossing(p))
	}
	sig := plan.Name + "(" + strings.Join(parts, ", ") + ")"
	if plan.Return != nil {
		sig += " -> " + r.FormatCrossing(*plan.Return)
	}
	return sig
}

// nativeSignature is the C++ declaration the bridge calls: the shim
// function when one is needed, the original declaration otherwise.
func (r *Result) nativeSignature(it *ir.Item, plan *ir.ShimPlan) string {
	if !plan.NeedsShim {
		ret := "void"
		if it.Return != nil {
			ret = it.Return.Spell()
		}
		params := make([]string, len(it.Params))
		for i, p := range it.Params {
			params[i] = DeclSpelling(p.Type, p.Name)
		}
		sig := ret + " " + it.Name + "(" + strings.Join(params, ", ") + ")"
		if it.Flags.Const {
			sig += " const"
		}
		return sig
	}
	var params []string
	if plan.Self != nil {
		params = append(params, DeclSpelling(plan.Self.Type, "self"))
	}
	for _, p := range plan.Params {
		params = append(params, ShimParamDecl(p))
	}
	return ShimReturnSpelling(plan) + " " + plan.Name + "(" + strings.Join(params, ", ") + ")"
}

// DeclSpelling declares name with type t, keeping pointer and reference
// punctuation attached to the name.
func DeclSpelling(t *ir.Type, name string) string {
	s := t.Spell()
	if strings.HasSuffix(s, "*") || strings.HasSuffix(s, "&") {
		return s + name
	}
	return s + " " + name
}

// ShimParamDecl declares one shim parameter. Moved values arrive as a
// pointer the shim moves out of.
func ShimParamDecl(c ir.Crossing) string {
	if c.Strategy == ir.StrategyMove {
		inner := c.Type
		if inner.Kind == ir.TypeRValueReference {
			inner = inner.Elem
		}
		bare := inner.Clone()
		bare.Const = false
		return bare.Spell() + " *" + c.Name
	}
	return DeclSpelling(c.Type, c.Name)
}

// ShimReturnSpelling is the C++ return type of a shim.
func ShimReturnSpelling(plan *ir.ShimPlan) string {
	if plan.Return == nil {
		return "void"
	}
	if plan.Return.Strategy == ir.StrategyBoxed {
		bare := plan.Return.Type.Clone()
		bare.Const = false
		return "std::unique_ptr<" + bare.Spell() + ">"
	}
	return plan.Return.Type.Spell()
}
