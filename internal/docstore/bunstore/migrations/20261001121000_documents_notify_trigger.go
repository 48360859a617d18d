package docstoremigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating documents change trigger...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE OR REPLACE FUNCTION documents_notify() RETURNS trigger AS $$
				BEGIN
					IF TG_OP = 'DELETE' THEN
						PERFORM pg_notify('docstore_changes',
							json_build_object('op', TG_OP, 'collection', OLD.collection, 'id', OLD.id)::text);
						RETURN OLD;
					END IF;
					PERFORM pg_notify('docstore_changes',
						json_build_object('op', TG_OP, 'collection', NEW.collection, 'id', NEW.id)::text);
					RETURN NEW;
				END;
				$$ LANGUAGE plpgsql;

				DROP TRIGGER IF EXISTS documents_notify ON documents;
				CREATE TRIGGER documents_notify
					AFTER INSERT OR UPDATE OR DELETE ON documents
					FOR EACH ROW EXECUTE FUNCTION documents_notify();
			`); err != nil {
				return fmt.Errorf("failed to create documents trigger: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Rolling back documents change trigger...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TRIGGER IF EXISTS documents_notify ON documents;
				DROP FUNCTION IF EXISTS documents_notify();
			`); err != nil {
				return fmt.Errorf("failed to drop documents trigger: %w", err)
			}
			return nil
		})
	})
}
