package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch replaces the database contents with a run: the previous rows
// are deleted and the run summary plus all buffered rows are inserted in a
// single transaction. Fake (negative) item IDs are remapped to real ones
// and every reference within the batch is rewritten through the fakeToReal
// mapping.
//
// Insert order respects FK dependencies:
//  1. Run summary
//  2. Items
//  3. TypeClasses (depend on item_id)
//  4. Dependencies and Bases (depend on two item IDs)
//  5. Shims (depend on item_id)
//  6. Diagnostics and Renames (no references)
func (s *Store) CommitBatch(run *Run, batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	if err := resetTx(tx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	// 1. Run summary
	runID, err := insertRunTx(tx, run)
	if err != nil {
		return fmt.Errorf("commit batch: run: %w", err)
	}
	run.ID = runID

	fakeToReal := make(map[int64]int64, len(batch.Items))
	remap := func(id int64) (int64, error) {
		if id >= 0 {
			return id, nil
		}
		realID, ok := fakeToReal[id]
		if !ok {
			return 0, fmt.Errorf("item id %d not in fakeToReal map (have %d items)", id, len(batch.Items))
		}
		return realID, nil
	}

	// 2. Items
	for _, it := range batch.Items {
		realID, err := insertItemTx(tx, &it)
		if err != nil {
			return fmt.Errorf("commit batch: item %q: %w", it.Key, err)
		}
		fakeToReal[it.ID] = realID
	}

	// 3. TypeClasses
	for _, tc := range batch.TypeClasses {
		if tc.ItemID != nil {
			realID, err := remap(*tc.ItemID)
			if err != nil {
				return fmt.Errorf("commit batch: type class %q: %w", tc.TypeKey, err)
			}
			tc.ItemID = &realID
		}
		if _, err := insertTypeClassTx(tx, &tc); err != nil {
			return fmt.Errorf("commit batch: type class %q: %w", tc.TypeKey, err)
		}
	}

	// 4. Dependencies and Bases
	for _, d := range batch.Dependencies {
		if d.ItemID, err = remap(d.ItemID); err != nil {
			return fmt.Errorf("commit batch: dependency: %w", err)
		}
		if d.DependsOnID, err = remap(d.DependsOnID); err != nil {
			return fmt.Errorf("commit batch: dependency: %w", err)
		}
		if _, err := insertDependencyTx(tx, &d); err != nil {
			return fmt.Errorf("commit batch: dependency: %w", err)
		}
	}
	for _, b := range batch.Bases {
		if b.DerivedID, err = remap(b.DerivedID); err != nil {
			return fmt.Errorf("commit batch: base: %w", err)
		}
		if b.BaseID, err = remap(b.BaseID); err != nil {
			return fmt.Errorf("commit batch: base: %w", err)
		}
		if _, err := insertBaseTx(tx, &b); err != nil {
			return fmt.Errorf("commit batch: base: %w", err)
		}
	}

	// 5. Shims
	for _, sh := range batch.Shims {
		if sh.ItemID, err = remap(sh.ItemID); err != nil {
			return fmt.Errorf("commit batch: shim %q: %w", sh.Name, err)
		}
		if _, err := insertShimTx(tx, &sh); err != nil {
			return fmt.Errorf("commit batch: shim %q: %w", sh.Name, err)
		}
	}

	// 6. Diagnostics and Renames
	for _, d := range batch.Diagnostics {
		if _, err := insertDiagnosticTx(tx, &d); err != nil {
			return fmt.Errorf("commit batch: diagnostic %q: %w", d.QualifiedName, err)
		}
	}
	for _, rn := range batch.Renames {
		if _, err := insertRenameTx(tx, &rn); err != nil {
			return fmt.Errorf("commit batch: rename %q: %w", rn.Generated, err)
		}
	}

	return tx.Commit()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertID(ex execer, query string, args ...any) (int64, error) {
	res, err := ex.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// --- Transaction-scoped insert helpers ---
// The Store insert methods call the same helpers with s.db.

func insertRunTx(ex execer, run *Run) (int64, error) {
	return insertID(ex,
		`INSERT INTO runs (module, digest, items, accepted, excluded, shims, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.Module, run.Digest, run.Items, run.Accepted, run.Excluded, run.Shims, run.CreatedAt,
	)
}

func insertItemTx(ex execer, it *Item) (int64, error) {
	return insertID(ex,
		`INSERT INTO items (item_key, kind, name, bridge_name, header, accepted, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		it.Key, it.Kind, it.Name, it.BridgeName, it.Header, it.Accepted, it.Reason,
	)
}

func insertTypeClassTx(ex execer, tc *TypeClass) (int64, error) {
	return insertID(ex,
		`INSERT INTO type_classes (type_key, class, flags, reason, item_id)
		 VALUES (?, ?, ?, ?, ?)`,
		tc.TypeKey, tc.Class, marshalFlags(tc.Flags), tc.Reason, tc.ItemID,
	)
}

func insertDependencyTx(ex execer, d *Dependency) (int64, error) {
	return insertID(ex,
		`INSERT INTO dependencies (item_id, depends_on_id) VALUES (?, ?)`,
		d.ItemID, d.DependsOnID,
	)
}

func insertBaseTx(ex execer, b *Base) (int64, error) {
	return insertID(ex,
		`INSERT INTO bases (derived_id, base_id, ordinal) VALUES (?, ?, ?)`,
		b.DerivedID, b.BaseID, b.Ordinal,
	)
}

func insertDiagnosticTx(ex execer, d *Diagnostic) (int64, error) {
	return insertID(ex,
		`INSERT INTO diagnostics (qualified_name, reason_kind, human_message) VALUES (?, ?, ?)`,
		d.QualifiedName, d.ReasonKind, d.HumanMessage,
	)
}

func insertShimTx(ex execer, sh *Shim) (int64, error) {
	return insertID(ex,
		`INSERT INTO shims (item_id, name, kind, native) VALUES (?, ?, ?, ?)`,
		sh.ItemID, sh.Name, sh.Kind, sh.Native,
	)
}

func insertRenameTx(ex execer, rn *Rename) (int64, error) {
	return insertID(ex,
		`INSERT INTO renames (generated, original, signature) VALUES (?, ?, ?)`,
		rn.Generated, rn.Original, rn.Signature,
	)
}
