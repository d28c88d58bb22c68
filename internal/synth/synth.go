// Package synth renders an analysed graph into the bridge declaration module
// and the native shim header and source. Rendering is a pure function of the
// graph: identical input yields byte-identical output.
package synth

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/jward/cxxbind/internal/analysis"
	"github.com/jward/cxxbind/internal/ir"
)

const (
	DefaultModule        = "ffi"
	DefaultShimNamespace = "cxxbind_shim"

	generatedHeader = "// Code generated by cxxbind. DO NOT EDIT.\n"
)

// Config names the outputs.
type Config struct {
	Module        string
	ShimNamespace string
	ExtraNative   []string
}

func (c Config) withDefaults() Config {
	if c.Module == "" {
		c.Module = DefaultModule
	}
	if c.ShimNamespace == "" {
		c.ShimNamespace = DefaultShimNamespace
	}
	return c
}

// Output holds the three rendered artifacts.
type Output struct {
	Module     string
	Bridge     []byte
	ShimHeader []byte
	ShimSource []byte
	// Digest is the xxh3 fingerprint of all three artifacts.
	Digest string
	// Shims lists every generated native function, sorted.
	Shims []Shim
}

// Shim is one generated native function and the bridge declaration it
// serves.
type Shim struct {
	Name   string
	ItemID string
	Kind   string
	// Native is the C++ declaration of the shim.
	Native string
}

// Failure is an item that could not be rendered.
type Failure struct {
	ID      string
	Message string
}

// BridgeFile is the file name of the bridge declaration.
func (o *Output) BridgeFile() string {
	return o.Module + ".bridge"
}

// ShimHeaderFile is the file name of the shim header.
func (o *Output) ShimHeaderFile() string {
	return o.Module + "_shim.h"
}

// ShimSourceFile is the file name of the shim source.
func (o *Output) ShimSourceFile() string {
	return o.Module + "_shim.cc"
}

// Files maps artifact file names to their contents.
func (o *Output) Files() map[string][]byte {
	return map[string][]byte{
		o.BridgeFile():     o.Bridge,
		o.ShimHeaderFile(): o.ShimHeader,
		o.ShimSourceFile(): o.ShimSource,
	}
}

// Synthesize renders r. When some items reference something that will not
// be emitted, it returns those items as failures and no output; the caller
// excludes them and synthesizes again.
func Synthesize(r *analysis.Result, cfg Config) (*Output, []Failure) {
	cfg = cfg.withDefaults()
	s := &synth{r: r, cfg: cfg}
	s.collect()
	if fails := s.verify(); len(fails) > 0 {
		return nil, fails
	}
	out := &Output{
		Module:     cfg.Module,
		Bridge:     s.bridge(),
		ShimHeader: s.shimHeader(),
		ShimSource: s.shimSource(),
		Shims:      s.shimList(),
	}
	h := xxh3.New()
	h.Write(out.Bridge)
	h.Write(out.ShimHeader)
	h.Write(out.ShimSource)
	out.Digest = hex.EncodeToString(h.Sum(nil))
	return out, nil
}

// synth holds the emitted items of one rendering in output order.
type synth struct {
	r   *analysis.Result
	cfg Config

	types      []*ir.Item
	funcs      []*ir.Item // functions and methods, by bridge name
	subclasses []*ir.Item
}

func (s *synth) collect() {
	g := s.r.Graph
	for _, id := range s.r.TypeOrder {
		if it := g.Item(id); analysis.Emitted(it) {
			s.types = append(s.types, it)
		}
	}
	for _, it := range g.Items() {
		if !analysis.Emitted(it) {
			continue
		}
		switch it.Kind {
		case ir.KindFunction, ir.KindMethod:
			s.funcs = append(s.funcs, it)
		case ir.KindSubclass:
			s.subclasses = append(s.subclasses, it)
		case ir.KindStruct, ir.KindEnum, ir.KindTypedef, ir.KindInstantiation, ir.KindTemplate:
		default:
			panic(fmt.Sprintf("synth: unhandled kind %s", it.Kind))
		}
	}
	sort.Slice(s.funcs, func(i, j int) bool { return s.funcs[i].BridgeName < s.funcs[j].BridgeName })
}

// verify checks that every emitted item only names emitted types and
// carries the facts rendering needs.
func (s *synth) verify() []Failure {
	var fails []Failure
	fail := func(it *ir.Item, format string, args ...any) {
		fails = append(fails, Failure{ID: it.ID, Message: fmt.Sprintf(format, args...)})
	}
	check := func(it *ir.Item, types []*ir.Type) {
		for _, t := range types {
			if name := s.missing(t); name != "" {
				fail(it, "references %s, which is not generated", name)
				return
			}
		}
	}

	for _, it := range s.types {
		if it.BridgeName == "" {
			fail(it, "no bridge name assigned")
			continue
		}
		check(it, it.TypeRefs())
	}
	for _, it := range s.funcs {
		switch {
		case it.Shim == nil || it.BridgeName == "":
			fail(it, "no crossing plan")
			continue
		case it.Kind == ir.KindMethod && !analysis.Emitted(s.r.Graph.Item(it.Receiver)):
			fail(it, "receiver %s is not generated", it.Receiver)
			continue
		}
		check(it, it.TypeRefs())
	}
	for _, it := range s.subclasses {
		base := s.r.Graph.Item(it.Trampoline.Base)
		if !analysis.Emitted(base) {
			fail(it, "base %s is not generated", base.Name)
			continue
		}
		for _, o := range it.Trampoline.Overrides {
			m := s.r.Graph.Item(o.Method)
			if !analysis.Emitted(m) || m.Shim == nil {
				fail(it, "overridden method %s is not generated", o.Method)
				break
			}
		}
		for _, c := range it.Trampoline.Ctors {
			var types []*ir.Type
			for _, p := range c.Params {
				types = append(types, p.Type)
			}
			check(it, types)
		}
	}
	sort.Slice(fails, func(i, j int) bool { return fails[i].ID < fails[j].ID })
	return fails
}

// missing returns the spelling of the first type inside t whose definition
// is not emitted, or "".
func (s *synth) missing(t *ir.Type) string {
	name := ""
	t.Walk(func(n *ir.Type) {
		if name != "" || n.Def == "" {
			return
		}
		def := s.r.Graph.Item(n.Def)
		if def == nil || !analysis.Emitted(def) || def.BridgeName == "" {
			name = n.Spell()
		}
	})
	return name
}

func (s *synth) shimList() []Shim {
	var out []Shim
	for _, it := range s.types {
		for _, sp := range it.Specials {
			out = append(out, Shim{Name: sp.Name, ItemID: it.ID, Kind: sp.Kind.String(), Native: s.specialDecl(it, sp)})
		}
	}
	for _, it := range s.funcs {
		if it.Shim.NeedsShim {
			out = append(out, Shim{Name: it.Shim.Name, ItemID: it.ID, Kind: it.Shim.Kind.String(), Native: it.Shim.NativeSignature})
		}
	}
	for _, it := range s.subclasses {
		for _, c := range it.Trampoline.Ctors {
			out = append(out, Shim{Name: c.Shim, ItemID: it.ID, Kind: ir.ShimTrampoline.String(), Native: s.trampolineNewDecl(it, c)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
