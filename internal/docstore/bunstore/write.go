package bunstore

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/uptrace/bun"

	"github.com/Black-And-White-Club/flagboard/internal/docstore"
)

func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any, opts ...docstore.SetOption) error {
	return s.exec(ctx, s.db, docstore.SetWrite(collection, id, fields, opts...))
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.exec(ctx, s.db, docstore.UpdateWrite(collection, id, fields))
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.exec(ctx, s.db, docstore.DeleteWrite(collection, id))
}

func (s *Store) Batch() docstore.Batch {
	return &batch{store: s}
}

// exec runs a single write. Increments are evaluated in SQL against the
// current row so concurrent writers never lose an update.
func (s *Store) exec(ctx context.Context, db bun.IDB, w docstore.Write) error {
	switch w.Kind {
	case docstore.WriteDelete:
		if _, err := db.ExecContext(ctx,
			"DELETE FROM documents WHERE collection = ? AND id = ?", w.Collection, w.ID); err != nil {
			return fmt.Errorf("failed to delete %s/%s: %w", w.Collection, w.ID, err)
		}
		return nil

	case docstore.WriteSet:
		plain, increments := docstore.SplitTransforms(w.Fields, s.now())
		seed := maps.Clone(plain)
		for k, d := range increments {
			seed[k] = d
		}
		seedJSON, err := encodeData(seed)
		if err != nil {
			return err
		}
		plainJSON, err := encodeData(plain)
		if err != nil {
			return err
		}

		base := "?::jsonb"
		if w.Merge {
			base = "documents.data || ?::jsonb"
		}
		expr, exprArgs := withIncrements(base, []any{string(plainJSON)}, increments)

		query := `INSERT INTO documents (collection, id, data, created_at, updated_at)
			VALUES (?, ?, ?::jsonb, NOW(), NOW())
			ON CONFLICT (collection, id) DO UPDATE SET data = ` + expr + `, updated_at = NOW()`
		args := append([]any{w.Collection, w.ID, string(seedJSON)}, exprArgs...)
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to set %s/%s: %w", w.Collection, w.ID, err)
		}
		return nil

	case docstore.WriteUpdate:
		plain, increments := docstore.SplitTransforms(w.Fields, s.now())
		plainJSON, err := encodeData(plain)
		if err != nil {
			return err
		}
		expr, exprArgs := withIncrements("documents.data || ?::jsonb", []any{string(plainJSON)}, increments)

		query := `UPDATE documents SET data = ` + expr + `, updated_at = NOW() WHERE collection = ? AND id = ?`
		args := append(exprArgs, w.Collection, w.ID)
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update %s/%s: %w", w.Collection, w.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update %s/%s: %w", w.Collection, w.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("%s/%s: %w", w.Collection, w.ID, docstore.ErrNotFound)
		}
		return nil
	}
	return fmt.Errorf("unknown write kind %d", w.Kind)
}

// withIncrements wraps expr in one jsonb_set per incremented field, reading
// the base value from the stored row. Fields are applied in name order so the
// generated SQL is stable.
func withIncrements(expr string, args []any, increments map[string]int64) (string, []any) {
	for _, field := range slices.Sorted(maps.Keys(increments)) {
		expr = "jsonb_set(" + expr + ", ARRAY[?]::text[], to_jsonb(COALESCE((documents.data->>?)::numeric, 0) + ?))"
		args = append(args, field, field, increments[field])
	}
	return expr, args
}

type batch struct {
	store  *Store
	writes []docstore.Write
}

func (b *batch) Set(collection, id string, fields map[string]any, opts ...docstore.SetOption) docstore.Batch {
	b.writes = append(b.writes, docstore.SetWrite(collection, id, fields, opts...))
	return b
}

func (b *batch) Update(collection, id string, fields map[string]any) docstore.Batch {
	b.writes = append(b.writes, docstore.UpdateWrite(collection, id, fields))
	return b
}

func (b *batch) Delete(collection, id string) docstore.Batch {
	b.writes = append(b.writes, docstore.DeleteWrite(collection, id))
	return b
}

func (b *batch) Len() int { return len(b.writes) }

func (b *batch) Commit(ctx context.Context) error {
	if len(b.writes) > b.store.maxBatch {
		return fmt.Errorf("%d writes, limit %d: %w", len(b.writes), b.store.maxBatch, docstore.ErrBatchTooLarge)
	}
	if len(b.writes) == 0 {
		return nil
	}
	return b.store.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, w := range b.writes {
			if err := b.store.exec(ctx, tx, w); err != nil {
				return err
			}
		}
		return nil
	})
}
