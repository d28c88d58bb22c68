package cxxbind

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jward/cxxbind/internal/analysis"
	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/directives"
	"github.com/jward/cxxbind/internal/frontend"
	"github.com/jward/cxxbind/internal/frontend/headers"
	"github.com/jward/cxxbind/internal/runtime"
	"github.com/jward/cxxbind/internal/store"
	"github.com/jward/cxxbind/internal/synth"
)

// Engine orchestrates one bridge generation: frontend adaptation, the
// analysis passes, synthesis, and optionally recording the run to SQLite.
// Runs share nothing; an Engine may be reused for independent inputs.
type Engine struct {
	logger *logrus.Logger
	store  *store.Store

	storePath         string
	scriptsFS         fs.FS
	workers           int
	maxInstantiations int
	maxTemplateDepth  int
	module            string
	shimNamespace     string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger routes pass and run logging to logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStore records every successful run in a SQLite database at path,
// replacing the previous run. Query reads from it.
func WithStore(path string) Option {
	return func(e *Engine) {
		e.storePath = path
	}
}

// WithScriptsFS loads directive scripts from fsys instead of from disk.
// Imports inside scripts resolve against the same filesystem.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithWorkers bounds concurrent header parsing in ParseHeaders.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithMaxInstantiations caps the number of template instantiations the
// closure may create.
func WithMaxInstantiations(n int) Option {
	return func(e *Engine) {
		e.maxInstantiations = n
	}
}

// WithMaxTemplateDepth caps template argument nesting during closure.
func WithMaxTemplateDepth(n int) Option {
	return func(e *Engine) {
		e.maxTemplateDepth = n
	}
}

// WithModuleName names the bridge module and the output files.
func WithModuleName(name string) Option {
	return func(e *Engine) {
		e.module = name
	}
}

// WithShimNamespace sets the C++ namespace generated shims live in.
func WithShimNamespace(ns string) Option {
	return func(e *Engine) {
		e.shimNamespace = ns
	}
}

// New creates an Engine. When WithStore is given the database is opened and
// migrated here, so a bad path fails early.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		module:        synth.DefaultModule,
		shimNamespace: synth.DefaultShimNamespace,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logrus.New()
		e.logger.SetOutput(os.Stderr)
	}
	if e.storePath != "" {
		s, err := store.NewStore(e.storePath)
		if err != nil {
			return nil, fmt.Errorf("cxxbind: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("cxxbind: migrate: %w", err)
		}
		e.store = s
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Store returns the run store, nil when the Engine was built without one.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a QueryBuilder over the recorded run. It returns nil when
// the Engine has no store.
func (e *Engine) Query() *QueryBuilder {
	if e.store == nil {
		return nil
	}
	return &QueryBuilder{store: e.store}
}

// Generate runs the whole pipeline over one entity list and directive set.
// Configuration problems are returned as *ConfigError and produce no output.
// Soft exclusions are reported in Result.Diagnostics. A cancelled context
// yields ctx.Err() and no output.
func (e *Engine) Generate(ctx context.Context, in *frontend.Input, d *directives.Directives) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, &ConfigError{Op: "input", Err: err}
	}
	if err := d.Validate(); err != nil {
		return nil, &ConfigError{Op: "directives", Err: err}
	}

	g, err := frontend.Adapt(in, d, e.logger)
	if err != nil {
		return nil, &ConfigError{Op: "adapt", Err: err}
	}

	r, err := analysis.Run(ctx, g, d, analysis.Options{
		MaxInstantiations: e.maxInstantiations,
		MaxTemplateDepth:  e.maxTemplateDepth,
		Logger:            e.logger,
	})
	if err != nil {
		var fatal *analysis.FatalError
		if errors.As(err, &fatal) {
			return nil, &ConfigError{Op: "analyse", Err: err}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("cxxbind: analyse: %w", err)
	}

	out, err := e.synthesize(ctx, r, d)
	if err != nil {
		return nil, err
	}

	res := newResult(r, out)
	if res.Stats.Emitted == 0 {
		return nil, &ConfigError{Op: "generate", Err: errors.New("no entity was accepted for generation")}
	}

	if e.store != nil {
		if err := e.record(ctx, res); err != nil {
			return nil, err
		}
	}

	e.logger.WithFields(logrus.Fields{
		"module":   out.Module,
		"items":    res.Stats.Items,
		"accepted": res.Stats.Accepted,
		"excluded": res.Stats.Excluded,
		"shims":    res.Stats.Shims,
		"digest":   out.Digest,
	}).Info("bridge generated")
	return res, nil
}

// synthesize renders r, excluding items the synthesizer cannot render until
// rendering succeeds. Each round excludes at least one more item, so the
// loop terminates.
func (e *Engine) synthesize(ctx context.Context, r *analysis.Result, d *directives.Directives) (*synth.Output, error) {
	cfg := synth.Config{
		Module:        e.module,
		ShimNamespace: e.shimNamespace,
		ExtraNative:   d.ExtraNative,
	}
	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, fails := synth.Synthesize(r, cfg)
		if len(fails) == 0 {
			return out, nil
		}
		progress := false
		for _, f := range fails {
			if r.Exclude(f.ID, diag.ShimGenerationFailed, f.Message) {
				progress = true
			}
		}
		e.logger.WithFields(logrus.Fields{
			"round":    round,
			"failures": len(fails),
		}).Debug("synthesis excluded unrenderable items")
		if !progress {
			return nil, fmt.Errorf("cxxbind: synthesize: %d items cannot be rendered: %s", len(fails), fails[0].Message)
		}
	}
}

// LoadDirectives reads a directive file. *.toml files are decoded directly;
// *.risor scripts are evaluated with the frontend entity list visible
// through entities(). in may be nil for scripts that do not consult it.
func (e *Engine) LoadDirectives(ctx context.Context, path string, in *frontend.Input) (*directives.Directives, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		d, err := directives.LoadTOML(path)
		if err != nil {
			return nil, &ConfigError{Op: "directives", Err: err}
		}
		return d, nil
	case ".risor":
		rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(e.logger)}
		if in != nil {
			var ents []runtime.Entity
			for _, s := range in.Summaries() {
				ents = append(ents, runtime.Entity{Name: s[0], Kind: s[1]})
			}
			rtOpts = append(rtOpts, runtime.WithEntities(ents))
		}
		scriptsDir, script := filepath.Dir(path), filepath.Base(path)
		if e.scriptsFS != nil {
			rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
			scriptsDir, script = "", path
		}
		d, err := runtime.NewRuntime(scriptsDir, rtOpts...).RunScript(ctx, script)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &ConfigError{Op: "directives", Err: err}
		}
		return d, nil
	default:
		return nil, &ConfigError{Op: "directives", Err: fmt.Errorf("%s: unknown directive format (want .toml or .risor)", path)}
	}
}

// ParseHeaders runs the tree-sitter header frontend over paths. Header names
// recorded for the shim's includes are relative to includeDir when it is
// set.
func (e *Engine) ParseHeaders(ctx context.Context, includeDir string, paths []string) (*frontend.Input, error) {
	p := headers.NewParser(
		headers.WithLogger(e.logger),
		headers.WithWorkers(e.workers),
		headers.WithIncludeDir(includeDir),
	)
	in, err := p.ParseFiles(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("cxxbind: parse headers: %w", err)
	}
	return in, nil
}

// LoadInput reads a frontend entity list from a .json or .cbor file.
func LoadInput(path string) (*frontend.Input, error) {
	in, err := frontend.Load(path)
	if err != nil {
		return nil, &ConfigError{Op: "input", Err: err}
	}
	return in, nil
}
