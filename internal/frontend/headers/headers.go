// Package headers is the reference C++ frontend: it parses header files
// with tree-sitter and reports the declarations it finds as a
// frontend.Input. It understands the declaration subset the generator can
// bridge (namespaces, classes, enums, aliases, class templates and free
// functions) and derives record traits from the declared special members.
package headers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/jward/cxxbind/internal/frontend"
)

// Parser turns header files into a frontend.Input.
type Parser struct {
	logger     logrus.FieldLogger
	workers    int
	includeDir string
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for parse warnings.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithWorkers bounds the number of files parsed concurrently.
func WithWorkers(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithIncludeDir makes header names relative to dir, so the generated shim
// includes them the way a build passing -I dir would.
func WithIncludeDir(dir string) Option {
	return func(p *Parser) {
		p.includeDir = dir
	}
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{
		logger:  logrus.StandardLogger(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFiles parses every path concurrently and merges the entity lists in
// argument order, so the result does not depend on scheduling.
func (p *Parser) ParseFiles(ctx context.Context, paths []string) (*frontend.Input, error) {
	results := make([][]frontend.RawEntity, len(paths))
	names := make([]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range paths {
		names[i] = p.includeName(path)
		g.Go(func() error {
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("headers: %w", err)
			}
			ents, err := p.ParseSource(gctx, names[i], src)
			if err != nil {
				return err
			}
			results[i] = ents
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in := &frontend.Input{Headers: names}
	for _, ents := range results {
		in.Entities = append(in.Entities, ents...)
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("headers: %w", err)
	}
	p.logger.WithFields(logrus.Fields{
		"files":    len(paths),
		"entities": len(in.Entities),
	}).Debug("headers parsed")
	return in, nil
}

// ParseSource parses one header held in memory. header is the include name
// recorded on every entity.
func (p *Parser) ParseSource(ctx context.Context, header string, src []byte) ([]frontend.RawEntity, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(Language())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("headers: parse %s: %w", header, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		p.logger.WithField("header", header).Warn("syntax errors; declarations inside them are skipped")
	}
	x := &extractor{src: src, header: header}
	x.declarations(root, "")
	return x.out, nil
}

func (p *Parser) includeName(path string) string {
	if p.includeDir != "" {
		if rel, err := filepath.Rel(p.includeDir, path); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(filepath.Clean(path))
}
