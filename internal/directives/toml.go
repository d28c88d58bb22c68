package directives

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// DecodeTOML reads a directive file. Keys outside the recognized set are an
// error.
func DecodeTOML(r io.Reader) (*Directives, error) {
	var d Directives
	md, err := toml.NewDecoder(r).Decode(&d)
	if err != nil {
		return nil, fmt.Errorf("directives: decode: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("directives: unknown directive %s", strings.Join(keys, ", "))
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("directives: %w", err)
	}
	return &d, nil
}

// LoadTOML reads and validates a directive file from disk.
func LoadTOML(path string) (*Directives, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("directives: %w", err)
	}
	defer f.Close()
	return DecodeTOML(f)
}

// EncodeTOML writes d in the same format DecodeTOML reads.
func EncodeTOML(w io.Writer, d *Directives) error {
	if err := toml.NewEncoder(w).Encode(d); err != nil {
		return fmt.Errorf("directives: encode: %w", err)
	}
	return nil
}
