package store

import (
	"database/sql"
	"fmt"
)

// --- Inserts ---

func (s *Store) InsertItem(it *Item) (int64, error) {
	id, err := insertItemTx(s.db, it)
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	it.ID = id
	return id, nil
}

func (s *Store) InsertTypeClass(tc *TypeClass) (int64, error) {
	id, err := insertTypeClassTx(s.db, tc)
	if err != nil {
		return 0, fmt.Errorf("insert type class: %w", err)
	}
	tc.ID = id
	return id, nil
}

func (s *Store) InsertDependency(d *Dependency) (int64, error) {
	id, err := insertDependencyTx(s.db, d)
	if err != nil {
		return 0, fmt.Errorf("insert dependency: %w", err)
	}
	d.ID = id
	return id, nil
}

func (s *Store) InsertBase(b *Base) (int64, error) {
	id, err := insertBaseTx(s.db, b)
	if err != nil {
		return 0, fmt.Errorf("insert base: %w", err)
	}
	b.ID = id
	return id, nil
}

func (s *Store) InsertDiagnostic(d *Diagnostic) (int64, error) {
	id, err := insertDiagnosticTx(s.db, d)
	if err != nil {
		return 0, fmt.Errorf("insert diagnostic: %w", err)
	}
	d.ID = id
	return id, nil
}

func (s *Store) InsertShim(sh *Shim) (int64, error) {
	id, err := insertShimTx(s.db, sh)
	if err != nil {
		return 0, fmt.Errorf("insert shim: %w", err)
	}
	sh.ID = id
	return id, nil
}

func (s *Store) InsertRename(rn *Rename) (int64, error) {
	id, err := insertRenameTx(s.db, rn)
	if err != nil {
		return 0, fmt.Errorf("insert rename: %w", err)
	}
	rn.ID = id
	return id, nil
}

// --- Runs ---

// LatestRun returns the committed run, or nil when the database is empty.
func (s *Store) LatestRun() (*Run, error) {
	r := &Run{}
	err := s.db.QueryRow(
		`SELECT id, module, digest, items, accepted, excluded, shims, created_at
		 FROM runs ORDER BY id DESC LIMIT 1`,
	).Scan(&r.ID, &r.Module, &r.Digest, &r.Items, &r.Accepted, &r.Excluded, &r.Shims, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// --- Items ---

// ItemCols is the column list for item queries, exported for use by QueryBuilder.
const ItemCols = `id, item_key, kind, name, bridge_name, header, accepted, reason`

// ScanItemRow scans a single row selected with ItemCols.
func ScanItemRow(scanner interface{ Scan(...any) error }) (*Item, error) {
	it := &Item{}
	var bridge, header, reason sql.NullString
	err := scanner.Scan(&it.ID, &it.Key, &it.Kind, &it.Name, &bridge, &header, &it.Accepted, &reason)
	if err != nil {
		return nil, err
	}
	it.BridgeName = bridge.String
	it.Header = header.String
	it.Reason = reason.String
	return it, nil
}

func (s *Store) queryItems(query string, args ...any) ([]*Item, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		it, err := ScanItemRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ItemByKey returns the item with the given graph ID, or nil.
func (s *Store) ItemByKey(key string) (*Item, error) {
	items, err := s.queryItems("SELECT "+ItemCols+" FROM items WHERE item_key = ?", key)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

func (s *Store) ItemsByName(name string) ([]*Item, error) {
	return s.queryItems("SELECT "+ItemCols+" FROM items WHERE name = ? ORDER BY item_key", name)
}

func (s *Store) ItemsByKind(kind string) ([]*Item, error) {
	return s.queryItems("SELECT "+ItemCols+" FROM items WHERE kind = ? ORDER BY item_key", kind)
}

// ItemsByIDs returns the items with the given row IDs, ordered by key.
func (s *Store) ItemsByIDs(ids []int64) ([]*Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryItems(
		"SELECT "+ItemCols+" FROM items WHERE id IN ("+placeholderList(len(ids))+") ORDER BY item_key",
		int64sToArgs(ids)...,
	)
}

// --- Type classes ---

func (s *Store) TypeClasses() ([]*TypeClass, error) {
	return s.queryTypeClasses("SELECT id, type_key, class, flags, reason, item_id FROM type_classes ORDER BY type_key")
}

func (s *Store) TypeClassesByClass(class string) ([]*TypeClass, error) {
	return s.queryTypeClasses(
		"SELECT id, type_key, class, flags, reason, item_id FROM type_classes WHERE class = ? ORDER BY type_key",
		class,
	)
}

// TypeClassesByItem returns the entries whose type the item defines.
func (s *Store) TypeClassesByItem(itemID int64) ([]*TypeClass, error) {
	return s.queryTypeClasses(
		"SELECT id, type_key, class, flags, reason, item_id FROM type_classes WHERE item_id = ? ORDER BY type_key",
		itemID,
	)
}

func (s *Store) queryTypeClasses(query string, args ...any) ([]*TypeClass, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*TypeClass
	for rows.Next() {
		tc := &TypeClass{}
		var flags, reason sql.NullString
		if err := rows.Scan(&tc.ID, &tc.TypeKey, &tc.Class, &flags, &reason, &tc.ItemID); err != nil {
			return nil, fmt.Errorf("scan type class: %w", err)
		}
		tc.Flags = unmarshalFlags(flags.String)
		tc.Reason = reason.String
		out = append(out, tc)
	}
	return out, rows.Err()
}

// --- Edges ---

// DependencyTargets returns the row IDs item itemID depends on.
func (s *Store) DependencyTargets(itemID int64) ([]int64, error) {
	return s.queryIDs("SELECT depends_on_id FROM dependencies WHERE item_id = ? ORDER BY depends_on_id", itemID)
}

// DependencySources returns the row IDs of items depending on itemID.
func (s *Store) DependencySources(itemID int64) ([]int64, error) {
	return s.queryIDs("SELECT item_id FROM dependencies WHERE depends_on_id = ? ORDER BY item_id", itemID)
}

// AllDependencies loads every dependency edge, for in-memory traversal.
func (s *Store) AllDependencies() ([]*Dependency, error) {
	rows, err := s.db.Query("SELECT id, item_id, depends_on_id FROM dependencies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("all dependencies: %w", err)
	}
	defer rows.Close()
	var out []*Dependency
	for rows.Next() {
		d := &Dependency{}
		if err := rows.Scan(&d.ID, &d.ItemID, &d.DependsOnID); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// AllBases loads every base-class edge.
func (s *Store) AllBases() ([]*Base, error) {
	return s.queryBases("SELECT id, derived_id, base_id, ordinal FROM bases ORDER BY derived_id, ordinal")
}

func (s *Store) BasesOf(itemID int64) ([]*Base, error) {
	return s.queryBases("SELECT id, derived_id, base_id, ordinal FROM bases WHERE derived_id = ? ORDER BY ordinal", itemID)
}

func (s *Store) DerivedOf(itemID int64) ([]*Base, error) {
	return s.queryBases("SELECT id, derived_id, base_id, ordinal FROM bases WHERE base_id = ? ORDER BY derived_id", itemID)
}

func (s *Store) queryBases(query string, args ...any) ([]*Base, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Base
	for rows.Next() {
		b := &Base{}
		if err := rows.Scan(&b.ID, &b.DerivedID, &b.BaseID, &b.Ordinal); err != nil {
			return nil, fmt.Errorf("scan base: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) queryIDs(query string, args ...any) ([]int64, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Diagnostics, shims, renames ---

// Diagnostics returns every diagnostic, optionally filtered by reason kind.
func (s *Store) Diagnostics(reasonKind string) ([]*Diagnostic, error) {
	query := "SELECT id, qualified_name, reason_kind, human_message FROM diagnostics"
	var args []any
	if reasonKind != "" {
		query += " WHERE reason_kind = ?"
		args = append(args, reasonKind)
	}
	rows, err := s.db.Query(query+" ORDER BY qualified_name, reason_kind, human_message", args...)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	defer rows.Close()
	var out []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		if err := rows.Scan(&d.ID, &d.QualifiedName, &d.ReasonKind, &d.HumanMessage); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) Shims() ([]*Shim, error) {
	rows, err := s.db.Query("SELECT id, item_id, name, kind, native FROM shims ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("shims: %w", err)
	}
	defer rows.Close()
	var out []*Shim
	for rows.Next() {
		sh := &Shim{}
		if err := rows.Scan(&sh.ID, &sh.ItemID, &sh.Name, &sh.Kind, &sh.Native); err != nil {
			return nil, fmt.Errorf("scan shim: %w", err)
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

// Renames returns the rename map, optionally filtered by original name.
func (s *Store) Renames(original string) ([]*Rename, error) {
	query := "SELECT id, generated, original, signature FROM renames"
	var args []any
	if original != "" {
		query += " WHERE original = ?"
		args = append(args, original)
	}
	rows, err := s.db.Query(query+" ORDER BY generated", args...)
	if err != nil {
		return nil, fmt.Errorf("renames: %w", err)
	}
	defer rows.Close()
	var out []*Rename
	for rows.Next() {
		rn := &Rename{}
		if err := rows.Scan(&rn.ID, &rn.Generated, &rn.Original, &rn.Signature); err != nil {
			return nil, fmt.Errorf("scan rename: %w", err)
		}
		out = append(out, rn)
	}
	return out, rows.Err()
}
