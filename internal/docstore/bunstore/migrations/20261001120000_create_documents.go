package docstoremigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating documents table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS documents (
					collection  VARCHAR(128) NOT NULL,
					id          VARCHAR(256) NOT NULL,
					data        JSONB NOT NULL DEFAULT '{}'::jsonb,
					created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (collection, id)
				);
				CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data jsonb_path_ops);
				CREATE INDEX IF NOT EXISTS idx_documents_total_points
					ON documents (collection, ((data->>'totalPoints')::numeric) DESC)
					WHERE collection IN ('users', 'leaderboard');
			`); err != nil {
				return fmt.Errorf("failed to create documents table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Rolling back documents table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS documents;`); err != nil {
				return fmt.Errorf("failed to drop documents: %w", err)
			}
			return nil
		})
	})
}
