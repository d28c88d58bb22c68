package store

import "sync"

// BatchedStore buffers run rows in memory using fake (negative) IDs. It
// implements DataStore so the recorder writes to it without knowing whether
// it is hitting SQLite or an in-memory buffer. Nothing reaches the database
// until CommitBatch, so a failed or cancelled run leaves the previous run
// intact.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	mu sync.Mutex

	Items        []Item
	TypeClasses  []TypeClass
	Dependencies []Dependency
	Bases        []Base
	Diagnostics  []Diagnostic
	Shims        []Shim
	Renames      []Rename

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates an empty BatchedStore.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertItem(it *Item) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	it.ID = fakeID
	b.Items = append(b.Items, *it)
	return fakeID, nil
}

func (b *BatchedStore) InsertTypeClass(tc *TypeClass) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	tc.ID = fakeID
	b.TypeClasses = append(b.TypeClasses, *tc)
	return fakeID, nil
}

func (b *BatchedStore) InsertDependency(d *Dependency) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	d.ID = fakeID
	b.Dependencies = append(b.Dependencies, *d)
	return fakeID, nil
}

func (b *BatchedStore) InsertBase(base *Base) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	base.ID = fakeID
	b.Bases = append(b.Bases, *base)
	return fakeID, nil
}

func (b *BatchedStore) InsertDiagnostic(d *Diagnostic) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	d.ID = fakeID
	b.Diagnostics = append(b.Diagnostics, *d)
	return fakeID, nil
}

func (b *BatchedStore) InsertShim(sh *Shim) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	sh.ID = fakeID
	b.Shims = append(b.Shims, *sh)
	return fakeID, nil
}

func (b *BatchedStore) InsertRename(rn *Rename) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	rn.ID = fakeID
	b.Renames = append(b.Renames, *rn)
	return fakeID, nil
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Items) + len(b.TypeClasses) + len(b.Dependencies) + len(b.Bases) +
		len(b.Diagnostics) + len(b.Shims) + len(b.Renames)
}
