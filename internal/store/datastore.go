package store

// DataStore is the interface the run recorder writes through. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering committed in one
// transaction) implement this interface.
type DataStore interface {
	// Inserts return the assigned ID. Item IDs from a BatchedStore are
	// provisional and may be used in the rows that reference them.
	InsertItem(it *Item) (int64, error)
	InsertTypeClass(tc *TypeClass) (int64, error)
	InsertDependency(d *Dependency) (int64, error)
	InsertBase(b *Base) (int64, error)
	InsertDiagnostic(d *Diagnostic) (int64, error)
	InsertShim(sh *Shim) (int64, error)
	InsertRename(rn *Rename) (int64, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
