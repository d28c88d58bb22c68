// Package directives holds the typed directive set that selects which C++
// entities a run exposes. Directives are parsed once, up front, from a TOML
// file or a Risor script, and validated before the pipeline starts.
package directives

import (
	"fmt"
	"sort"
	"strings"
)

// Key is one recognized directive.
type Key string

const (
	Generate    Key = "generate"
	GenerateNS  Key = "generate_ns"
	GeneratePOD Key = "generate_pod"
	Block       Key = "block"
	Subclass    Key = "subclass"
	Instantiate Key = "instantiate"
	ExtraNative Key = "extra_native"
)

// Keys lists every recognized directive in a fixed order.
var Keys = []Key{Generate, GenerateNS, GeneratePOD, Block, Subclass, Instantiate, ExtraNative}

// ParseKey validates a directive name.
func ParseKey(s string) (Key, error) {
	for _, k := range Keys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown directive %q", s)
}

// Directives is the allowlist, blocklist and generation options for a run.
type Directives struct {
	Generate    []string `toml:"generate"`
	GenerateNS  []string `toml:"generate_ns"`
	GeneratePOD []string `toml:"generate_pod"`
	Block       []string `toml:"block"`
	Subclass    []string `toml:"subclass"`
	Instantiate []string `toml:"instantiate"`
	ExtraNative []string `toml:"extra_native"`
}

// Add appends one directive value.
func (d *Directives) Add(key, value string) error {
	k, err := ParseKey(key)
	if err != nil {
		return err
	}
	if k != ExtraNative {
		value = normalizeName(value)
	}
	switch k {
	case Generate:
		d.Generate = append(d.Generate, value)
	case GenerateNS:
		d.GenerateNS = append(d.GenerateNS, value)
	case GeneratePOD:
		d.GeneratePOD = append(d.GeneratePOD, value)
	case Block:
		d.Block = append(d.Block, value)
	case Subclass:
		d.Subclass = append(d.Subclass, value)
	case Instantiate:
		d.Instantiate = append(d.Instantiate, value)
	case ExtraNative:
		d.ExtraNative = append(d.ExtraNative, value)
	default:
		panic(fmt.Sprintf("directives: unhandled key %q", k))
	}
	return nil
}

// Validate normalizes names, removes duplicates, and rejects contradictory
// or malformed directives.
func (d *Directives) Validate() error {
	lists := []struct {
		key  Key
		list *[]string
	}{
		{Generate, &d.Generate},
		{GenerateNS, &d.GenerateNS},
		{GeneratePOD, &d.GeneratePOD},
		{Block, &d.Block},
		{Subclass, &d.Subclass},
		{Instantiate, &d.Instantiate},
	}
	for _, l := range lists {
		out, err := dedupNames(l.key, *l.list)
		if err != nil {
			return err
		}
		*l.list = out
	}

	blocked := d.BlockSet()
	for _, l := range lists {
		if l.key == Block {
			continue
		}
		for _, name := range *l.list {
			if blocked[name] {
				return fmt.Errorf("%s(%s) contradicts block(%s)", l.key, name, name)
			}
		}
	}
	if len(d.Generate)+len(d.GenerateNS)+len(d.GeneratePOD)+len(d.Subclass)+len(d.Instantiate) == 0 {
		return fmt.Errorf("no generate, generate_ns, generate_pod, subclass or instantiate directive")
	}
	return nil
}

// BlockSet returns the blocklist as a set.
func (d *Directives) BlockSet() map[string]bool {
	out := make(map[string]bool, len(d.Block))
	for _, b := range d.Block {
		out[b] = true
	}
	return out
}

// Blocked reports whether a qualified name is blocklisted.
func (d *Directives) Blocked(name string) bool {
	for _, b := range d.Block {
		if b == name {
			return true
		}
	}
	return false
}

// Pairs returns every directive as (key, value) in key order, then value
// order.
func (d *Directives) Pairs() [][2]string {
	var out [][2]string
	add := func(k Key, vs []string) {
		sorted := append([]string(nil), vs...)
		if k != ExtraNative {
			sort.Strings(sorted)
		}
		for _, v := range sorted {
			out = append(out, [2]string{string(k), v})
		}
	}
	add(Generate, d.Generate)
	add(GenerateNS, d.GenerateNS)
	add(GeneratePOD, d.GeneratePOD)
	add(Block, d.Block)
	add(Subclass, d.Subclass)
	add(Instantiate, d.Instantiate)
	add(ExtraNative, d.ExtraNative)
	return out
}

func dedupNames(key Key, names []string) ([]string, error) {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = normalizeName(n)
		if n == "" {
			return nil, fmt.Errorf("%s: empty name", key)
		}
		if strings.ContainsAny(n, "();{}") {
			return nil, fmt.Errorf("%s: malformed name %q", key, n)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}

// normalizeName trims whitespace and a leading global-scope qualifier.
func normalizeName(n string) string {
	return strings.TrimPrefix(strings.TrimSpace(n), "::")
}
