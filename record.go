package cxxbind

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jward/cxxbind/internal/store"
)

// record commits a finished run to the store in two phases:
//
//	Phase A: write every row into a BatchedStore under fake IDs.
//	Phase B: replace the database contents with the batch in one transaction.
//
// A failure in either phase leaves the previous run in place.
func (e *Engine) record(ctx context.Context, res *Result) error {
	batch := store.NewBatchedStore()
	if err := writeRun(batch, res); err != nil {
		return fmt.Errorf("cxxbind: record: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	run := &store.Run{
		Module:    res.Output.Module,
		Digest:    res.Output.Digest,
		Items:     res.Stats.Items,
		Accepted:  res.Stats.Accepted,
		Excluded:  res.Stats.Excluded,
		Shims:     res.Stats.Shims,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.CommitBatch(run, batch); err != nil {
		return fmt.Errorf("cxxbind: record: %w", err)
	}
	e.logger.WithFields(logrus.Fields{
		"run":  run.ID,
		"rows": batch.Len(),
	}).Debug("run recorded")
	return nil
}

// writeRun writes the rows of res into ds. Items go first so every other
// row can reference them by the ID ds assigned.
func writeRun(ds store.DataStore, res *Result) error {
	r := res.analysis
	ids := make(map[string]int64, r.Graph.Len())

	items := r.Graph.Items()
	for _, it := range items {
		row := &store.Item{
			Key:        it.ID,
			Kind:       it.Kind.String(),
			Name:       it.Name,
			BridgeName: it.BridgeName,
			Header:     it.Header,
			Accepted:   it.Accepted(),
		}
		if it.Excluded != nil {
			row.Reason = string(it.Excluded.Reason)
		}
		id, err := ds.InsertItem(row)
		if err != nil {
			return fmt.Errorf("item %s: %w", it.ID, err)
		}
		ids[it.ID] = id
	}

	for _, ent := range r.DB.Entries() {
		tc := &store.TypeClass{
			TypeKey: ent.Key,
			Class:   ent.Class.String(),
			Flags:   ent.Flags.Names(),
			Reason:  ent.Reason,
		}
		if id, ok := ids[ent.Def]; ok {
			tc.ItemID = &id
		}
		if _, err := ds.InsertTypeClass(tc); err != nil {
			return fmt.Errorf("type class %s: %w", ent.Key, err)
		}
	}

	for _, it := range items {
		for _, dep := range r.Deps(it.ID) {
			target, ok := ids[dep]
			if !ok {
				continue
			}
			if _, err := ds.InsertDependency(&store.Dependency{ItemID: ids[it.ID], DependsOnID: target}); err != nil {
				return fmt.Errorf("dependency %s -> %s: %w", it.ID, dep, err)
			}
		}
		for i, b := range it.Bases {
			base, ok := ids[b.Def]
			if !ok {
				continue
			}
			if _, err := ds.InsertBase(&store.Base{DerivedID: ids[it.ID], BaseID: base, Ordinal: i}); err != nil {
				return fmt.Errorf("base %s of %s: %w", b.Def, it.ID, err)
			}
		}
	}

	for _, sh := range res.Output.Shims {
		itemID, ok := ids[sh.ItemID]
		if !ok {
			return fmt.Errorf("shim %s: unknown item %s", sh.Name, sh.ItemID)
		}
		row := &store.Shim{ItemID: itemID, Name: sh.Name, Kind: sh.Kind, Native: sh.Native}
		if _, err := ds.InsertShim(row); err != nil {
			return fmt.Errorf("shim %s: %w", sh.Name, err)
		}
	}

	for _, d := range res.Diagnostics {
		row := &store.Diagnostic{QualifiedName: d.QualifiedName, ReasonKind: string(d.Reason), HumanMessage: d.Message}
		if _, err := ds.InsertDiagnostic(row); err != nil {
			return fmt.Errorf("diagnostic %s: %w", d.QualifiedName, err)
		}
	}
	for _, rn := range res.Renames {
		if _, err := ds.InsertRename(&store.Rename{Generated: rn.Generated, Original: rn.Original, Signature: rn.Signature}); err != nil {
			return fmt.Errorf("rename %s: %w", rn.Generated, err)
		}
	}
	return nil
}
