// Package cxxbind generates the bridge between a C++ API and a safe host
// language. Given the entities a C++ frontend reports and a set of
// directives naming what to expose, it produces a bridge declaration module
// plus a native shim header and source that adapt every C++ construct the
// bridge cannot call directly.
//
// # Pipeline
//
//  1. Adapt: the frontend entity list is resolved into an item graph rooted
//     at the directive allowlist, pulling in every type reachable from it.
//  2. Analyse: passes run in a fixed order (instantiation closure, type
//     classification, name disambiguation, special members, subclass
//     planning, shim necessity, exclusion propagation). Soft problems
//     exclude an item and everything depending on it; configuration
//     problems abort the run with a [ConfigError].
//  3. Synthesize: accepted items are rendered into the bridge declaration
//     and the shim pair. Rendering is deterministic: identical inputs give
//     byte-identical output.
//
// # Usage
//
//	e, err := cxxbind.New(cxxbind.WithModuleName("geo"))
//	if err != nil { ... }
//	defer e.Close()
//
//	in, err := e.ParseHeaders(ctx, "include", []string{"include/geo/point.h"})
//	d, err := e.LoadDirectives(ctx, "bind.toml", in)
//	res, err := e.Generate(ctx, in, d)
//	paths, err := res.WriteFiles("gen")
//
// Entity lists produced by another frontend can be read with [LoadInput]
// from JSON or CBOR.
//
// # Run store
//
// With [WithStore] every successful run is committed to SQLite, replacing
// the previous one. [Engine.Query] returns a [QueryBuilder] over it:
// classifications, diagnostics, shims, renames, transitive dependencies and
// dependents, base-class hierarchies and the header dependency graph.
//
// # Directive scripts
//
// Directives may be written as TOML or as Risor scripts. A script calls one
// host function per directive key (generate, generate_ns, generate_pod,
// block, subclass, instantiate, extra_native) and may consult entities() to
// select by name or kind. See the internal/runtime package.
package cxxbind
