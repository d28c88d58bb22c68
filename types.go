package cxxbind

import (
	"github.com/jward/cxxbind/internal/diag"
	"github.com/jward/cxxbind/internal/directives"
	"github.com/jward/cxxbind/internal/frontend"
	"github.com/jward/cxxbind/internal/store"
)

// Public type aliases for the internal types used by the Engine and the
// QueryBuilder API.

type Input = frontend.Input
type RawEntity = frontend.RawEntity
type RawParam = frontend.RawParam
type RawField = frontend.RawField
type RawTraits = frontend.RawTraits
type Directives = directives.Directives
type Diagnostic = diag.Diagnostic
type Reason = diag.Reason
type Rename = diag.Rename

type Store = store.Store
type Run = store.Run
type Item = store.Item
type TypeClass = store.TypeClass
type Shim = store.Shim
type Base = store.Base
