package cxxbind

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jward/cxxbind/internal/analysis"
	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/synth"
)

// Result is the output of one successful generation.
type Result struct {
	// Output holds the bridge declaration and the shim header and source.
	Output *synth.Output
	// Diagnostics lists every excluded entity, sorted by qualified name.
	Diagnostics []diag.Diagnostic
	// Renames maps generated crossing names back to C++ entities.
	Renames []diag.Rename
	Stats   Stats

	analysis *analysis.Result
}

// Stats counts the items of a run.
type Stats struct {
	Items    int
	Accepted int
	Excluded int
	// Emitted counts accepted items that produce a bridge declaration.
	Emitted int
	Shims   int
	// ByReason counts diagnostics per reason kind.
	ByReason map[diag.Reason]int
}

func newResult(r *analysis.Result, out *synth.Output) *Result {
	res := &Result{
		Output:      out,
		Diagnostics: r.Diagnostics(),
		Renames:     r.Renames(),
		analysis:    r,
	}
	if res.Diagnostics == nil {
		res.Diagnostics = []diag.Diagnostic{}
	}
	if res.Renames == nil {
		res.Renames = []diag.Rename{}
	}
	for _, it := range r.Graph.Items() {
		res.Stats.Items++
		if it.Accepted() {
			res.Stats.Accepted++
		} else {
			res.Stats.Excluded++
		}
		if analysis.Emitted(it) {
			res.Stats.Emitted++
		}
	}
	res.Stats.Shims = len(out.Shims)
	res.Stats.ByReason = diag.Count(res.Diagnostics)
	return res
}

// Files maps output file names to contents.
func (r *Result) Files() map[string][]byte {
	return r.Output.Files()
}

// WriteFiles writes the three artifacts into dir, creating it if needed,
// and returns the paths written in name order.
func (r *Result) WriteFiles(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cxxbind: write files: %w", err)
	}
	files := r.Files()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, files[name], 0o644); err != nil {
			return nil, fmt.Errorf("cxxbind: write files: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
