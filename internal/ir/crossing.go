package ir

import "strings"

// Strategy is how one value crosses the language boundary.
type Strategy string

const (
	StrategyValue     Strategy = "value"
	StrategyRef       Strategy = "ref"
	StrategyMutRef    Strategy = "mut_ref"
	StrategyPtr       Strategy = "ptr"
	StrategyMutPtr    Strategy = "mut_ptr"
	StrategyMove      Strategy = "move"
	StrategyBoxed     Strategy = "boxed"
	StrategyUniquePtr Strategy = "unique_ptr"
	StrategySharedPtr Strategy = "shared_ptr"
)

// Crossing pairs a declared C++ type with its crossing strategy.
type Crossing struct {
	Name     string
	Type     *Type
	Strategy Strategy
}

// SignatureID is the identity of a function or method: its qualified name
// plus parameter spellings, so overloads are distinct items.
func SignatureID(name string, params []Param, isConst bool) string {
	spells := make([]string, len(params))
	for i, p := range params {
		spells[i] = p.Type.Spell()
	}
	id := name + "(" + strings.Join(spells, ", ") + ")"
	if isConst {
		id += " const"
	}
	return id
}
