package analysis

import (
	"fmt"
	"strings"

	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/ir"
	"github.com/jward/cxxbind/internal/typedb"
)

// specialMembers plans the generated accessors of every accepted record:
// drop, implicit new, move and copy for non-trivial values, and upcasts for
// explicit records with accepted bases. Special names win over user methods
// that happen to mangle to the same name.
func (r *Result) specialMembers() error {
	for _, it := range r.Graph.Items() {
		if !it.Accepted() {
			continue
		}
		switch it.Kind {
		case ir.KindStruct, ir.KindInstantiation:
			r.planSpecials(it)
		case ir.KindFunction, ir.KindMethod, ir.KindEnum, ir.KindTypedef, ir.KindTemplate, ir.KindSubclass:
		default:
			panic(fmt.Sprintf("specials: unhandled kind %s", it.Kind))
		}
	}
	return nil
}

func (r *Result) planSpecials(it *ir.Item) {
	e, ok := r.DB.Lookup(it.ID)
	if !ok {
		return
	}
	var specials []ir.Special
	if e.Class == typedb.NonTrivial && !e.Flags.BridgeKnown {
		specials = append(specials, ir.Special{Kind: ir.SpecialDrop, Name: it.BridgeName + "_drop"})
		if it.Explicit && !it.HasCtor && !it.Abstract {
			specials = append(specials, ir.Special{Kind: ir.SpecialNew, Name: it.BridgeName + "_new"})
		}
		if it.Traits != nil && it.Traits.MoveConstructible {
			specials = append(specials, ir.Special{Kind: ir.SpecialMove, Name: it.BridgeName + "_move"})
		}
		if it.Traits != nil && it.Traits.CopyConstructible {
			specials = append(specials, ir.Special{Kind: ir.SpecialCopy, Name: it.BridgeName + "_copy"})
		}
	}
	if it.Explicit {
		for _, b := range it.Bases {
			base := r.Graph.Item(b.Def)
			if base == nil || !base.Accepted() || base.BridgeName == "" {
				continue
			}
			specials = append(specials, ir.Special{
				Kind: ir.SpecialUpcast,
				Name: it.BridgeName + "_as_" + base.BridgeName,
				Base: b,
			})
		}
	}

	for _, s := range specials {
		owner := it.ID + "#" + s.Kind.String()
		if s.Kind == ir.SpecialUpcast {
			owner += ":" + s.Base.Def
		}
		if prev, ok := r.names.claim(s.Name, owner); !ok {
			if strings.Contains(prev, "#") {
				r.Exclude(it.ID, diag.NameCollision,
					fmt.Sprintf("special member name %s is already used by %s", s.Name, prev))
				return
			}
			r.evict(prev, s.Name)
			r.names.claim(s.Name, owner)
		}
		it.Specials = append(it.Specials, s)
	}
}

// evict takes name away from the item that owns it. The losing item and
// its dependents are excluded.
func (r *Result) evict(owner, name string) {
	r.names.release(name)
	r.Exclude(owner, diag.NameCollision,
		fmt.Sprintf("generated name %s is reserved for a special member", name))
}
