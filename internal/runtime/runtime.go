package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"github.com/sirupsen/logrus"

	"github.com/jward/cxxbind/internal/directives"
)

// Entity is the summary of a frontend entity exposed to directive scripts
// through entities().
type Entity struct {
	Name string
	Kind string
}

// Runtime embeds a Risor VM and evaluates directive scripts. Each directive
// key is a host function; a script builds the directive set by calling them.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	entities   []Entity
	logger     *logrus.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithEntities makes the frontend entity list visible to scripts so they can
// select entities by name or kind.
func WithEntities(entities []Entity) RuntimeOption {
	return func(r *Runtime) {
		r.entities = entities
	}
}

// WithRuntimeLogger routes the script log object to logger.
func WithRuntimeLogger(logger *logrus.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// NewRuntime creates a Runtime resolving relative script paths and imports
// against scriptsDir.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{scriptsDir: scriptsDir}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logrus.StandardLogger()
	}
	return r
}

// RunScript loads and executes a directive script and returns the validated
// directive set it built.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string) (*directives.Directives, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, scriptPath)
}

// RunSource executes directive script source directly. Useful for testing
// without script files.
func (r *Runtime) RunSource(ctx context.Context, source string) (*directives.Directives, error) {
	return r.eval(ctx, source, "<inline>")
}

func (r *Runtime) eval(ctx context.Context, source, label string) (*directives.Directives, error) {
	c := &collector{}
	globals := r.buildGlobals(c)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	_, err := risor.Eval(ctx, source, opts...)
	if c.err != nil {
		// The host function error is more precise than the VM's wrapping of it.
		return nil, fmt.Errorf("runtime: script %s: %w", label, c.err)
	}
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	if err := c.d.Validate(); err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	r.logger.WithFields(logrus.Fields{
		"script":     label,
		"directives": len(c.d.Pairs()),
	}).Debug("directive script evaluated")
	return &c.d, nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on that filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) && r.scriptsDir != "" {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to directive
// scripts.
func (r *Runtime) buildGlobals(c *collector) map[string]any {
	globals := map[string]any{
		"entities": makeEntitiesFn(r.entities),
		"log":      mustProxy(&logObject{logger: r.logger}),
	}
	for _, k := range directives.Keys {
		globals[string(k)] = makeDirectiveFn(c, k)
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
