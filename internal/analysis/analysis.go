// Package analysis runs the passes that turn an adapted ir.Graph into a
// fully annotated one: instantiation closure, type classification, name
// disambiguation, special members, subclass planning, shim necessity and
// exclusion propagation.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/directives"
	"github.com/jward/cxxbind/internal/ir"
	"github.com/jward/cxxbind/internal/typedb"
)

const (
	DefaultMaxInstantiations = 256
	DefaultMaxTemplateDepth  = 8
)

// Options bound the closure and carry the logger.
type Options struct {
	MaxInstantiations int
	MaxTemplateDepth  int
	Logger            logrus.FieldLogger
}

// FatalError is a configuration problem that aborts the run: cyclic value
// membership, colliding type names, or an unusable subclass target.
type FatalError struct {
	Pass    string
	Msg     string
	Members []string
}

func (e *FatalError) Error() string {
	if len(e.Members) == 0 {
		return fmt.Sprintf("%s: %s", e.Pass, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Pass, e.Msg, strings.Join(e.Members, ", "))
}

// Result is the annotated graph plus everything the synthesizer and the run
// store consume.
type Result struct {
	Graph *ir.Graph
	DB    *typedb.DB
	// TypeOrder lists accepted type items, each after every type it names.
	TypeOrder []string

	names   *namer
	deps    *depGraph
	logger  logrus.FieldLogger
	renames []diag.Rename
}

type pass struct {
	name string
	run  func(*Result) error
}

// Run executes every pass in order. The context is checked between passes;
// a cancelled run returns ctx.Err() and a nil Result.
func Run(ctx context.Context, g *ir.Graph, d *directives.Directives, opts Options) (*Result, error) {
	if opts.MaxInstantiations <= 0 {
		opts.MaxInstantiations = DefaultMaxInstantiations
	}
	if opts.MaxTemplateDepth <= 0 {
		opts.MaxTemplateDepth = DefaultMaxTemplateDepth
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	r := &Result{
		Graph:  g,
		DB:     typedb.New(),
		names:  newNamer(),
		logger: opts.Logger,
	}

	passes := []pass{
		{"closure", func(r *Result) error { return r.closure(d, opts) }},
		{"classify", (*Result).classify},
		{"names", (*Result).disambiguate},
		{"specials", (*Result).specialMembers},
		{"subclass", (*Result).planSubclasses},
		{"shims", (*Result).planShims},
		{"propagate", func(r *Result) error {
			r.Propagate()
			return nil
		}},
	}
	for _, p := range passes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log := r.logger.WithField("pass", p.name)
		log.Debug("pass start")
		if err := p.run(r); err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"items":    g.Len(),
			"accepted": len(g.Accepted()),
		}).Debug("pass end")
	}
	return r, nil
}

// Exclude marks one item excluded and propagates the exclusion to its
// dependents. It reports false when the item was already excluded.
func (r *Result) Exclude(id string, reason diag.Reason, msg string) bool {
	if !r.exclude(id, reason, msg) {
		return false
	}
	r.Propagate()
	return true
}

func (r *Result) exclude(id string, reason diag.Reason, msg string) bool {
	if !r.Graph.Exclude(id, ir.Exclusion{Reason: reason, Message: msg}) {
		return false
	}
	r.logger.WithFields(logrus.Fields{
		"item":   id,
		"reason": reason,
	}).Debug("excluded: " + msg)
	return true
}

// Diagnostics returns one record per excluded item, sorted.
func (r *Result) Diagnostics() []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, it := range r.Graph.Items() {
		if it.Excluded == nil {
			continue
		}
		out = append(out, diag.Diagnostic{
			QualifiedName: it.Name,
			Reason:        it.Excluded.Reason,
			Message:       describe(it) + ": " + it.Excluded.Message,
		})
	}
	diag.Sort(out)
	return out
}

// Renames returns the crossing-name map of accepted functions and methods.
func (r *Result) Renames() []diag.Rename {
	var out []diag.Rename
	for _, rn := range r.renames {
		if it := r.Graph.Item(rn.Signature); it != nil && it.Accepted() {
			out = append(out, rn)
		}
	}
	diag.SortRenames(out)
	return out
}

// Emitted reports whether an accepted item produces a bridge declaration.
func Emitted(it *ir.Item) bool {
	if !it.Accepted() {
		return false
	}
	switch it.Kind {
	case ir.KindFunction, ir.KindMethod, ir.KindStruct, ir.KindEnum,
		ir.KindTypedef, ir.KindInstantiation, ir.KindSubclass:
		return true
	case ir.KindTemplate:
		return false
	default:
		panic(fmt.Sprintf("analysis: unhandled kind %s", it.Kind))
	}
}

func describe(it *ir.Item) string {
	switch it.Kind {
	case ir.KindFunction, ir.KindMethod:
		return it.ID
	case ir.KindSubclass:
		return it.Name + " subclass"
	case ir.KindStruct, ir.KindEnum, ir.KindTypedef, ir.KindTemplate, ir.KindInstantiation:
		return it.Kind.String() + " " + it.Name
	default:
		panic(fmt.Sprintf("analysis: unhandled kind %s", it.Kind))
	}
}
