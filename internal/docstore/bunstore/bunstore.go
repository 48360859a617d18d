// Package bunstore implements docstore.Store on a single Postgres table of
// JSONB documents using bun. Live queries are fed by a pg_notify trigger.
package bunstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/Black-And-White-Club/flagboard/internal/docstore"
)

// notifyChannel must match the channel used by the documents_notify trigger.
const notifyChannel = "docstore_changes"

// timeLayout keeps stored timestamps fixed-width so they order correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	Collection string    `bun:"collection,pk"`
	ID         string    `bun:"id,pk"`
	Data       string    `bun:"data"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type Option func(*Store)

func WithMaxBatchSize(n int) Option {
	return func(s *Store) { s.maxBatch = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Store is a Postgres-backed docstore.Store.
type Store struct {
	db       *bun.DB
	ownsDB   bool
	maxBatch int
	logger   *slog.Logger
	now      func() time.Time
}

var _ docstore.Store = (*Store)(nil)

// New wraps an existing bun.DB. The caller keeps ownership of db.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		maxBatch: docstore.DefaultMaxBatchSize,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := New(bun.NewDB(sqldb, pgdialect.New()), opts...)
	s.ownsDB = true
	return s, nil
}

// DB exposes the underlying connection pool for migrations.
func (s *Store) DB() *bun.DB { return s.db }

func (s *Store) MaxBatchSize() int { return s.maxBatch }

func (s *Store) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	return s.get(ctx, s.db, collection, id)
}

func (s *Store) get(ctx context.Context, db bun.IDB, collection, id string) (docstore.Document, error) {
	var row documentRow
	err := db.NewSelect().
		Model(&row).
		Column("id").
		ColumnExpr("d.data::text AS data").
		Where("d.collection = ?", collection).
		Where("d.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return docstore.Document{}, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
		}
		return docstore.Document{}, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return row.document()
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var rows []documentRow
	sel := s.db.NewSelect().
		Model(&rows).
		Column("id").
		ColumnExpr("d.data::text AS data").
		Where("d.collection = ?", q.Collection)

	for _, f := range q.Filters {
		if err := applyFilter(sel, f); err != nil {
			return nil, err
		}
	}
	for _, o := range q.Orders {
		if o.Direction == docstore.Desc {
			sel = sel.OrderExpr("d.data->? DESC NULLS LAST", o.Field)
		} else {
			sel = sel.OrderExpr("d.data->? ASC NULLS LAST", o.Field)
		}
	}
	sel = sel.OrderExpr("d.id ASC")
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}

	if err := sel.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}

	docs := make([]docstore.Document, 0, len(rows))
	for _, r := range rows {
		d, err := r.document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// applyFilter translates one filter. Equality uses JSONB containment so it can
// hit the GIN index; ranges cast the extracted field by the filter value's kind.
func applyFilter(sel *bun.SelectQuery, f docstore.Filter) error {
	if f.Op == docstore.OpEqual {
		probe, err := encodeData(map[string]any{f.Field: f.Value})
		if err != nil {
			return err
		}
		sel.Where("d.data @> ?::jsonb", string(probe))
		return nil
	}

	op := string(f.Op)
	switch v := f.Value.(type) {
	case int64, float64:
		sel.Where("(d.data->>?)::numeric "+op+" ?", f.Field, v)
	case time.Time:
		sel.Where("(d.data->>?)::timestamptz "+op+" ?", f.Field, v)
	case string:
		sel.Where("d.data->>? "+op+" ?", f.Field, v)
	default:
		return fmt.Errorf("%w: range filter on %s with %T", docstore.ErrInvalidQuery, f.Field, f.Value)
	}
	return nil
}

func (r documentRow) document() (docstore.Document, error) {
	data, err := decodeData([]byte(r.Data))
	if err != nil {
		return docstore.Document{}, fmt.Errorf("failed to decode %s/%s: %w", r.Collection, r.ID, err)
	}
	return docstore.Document{ID: r.ID, Data: data}, nil
}

func encodeData(fields map[string]any) ([]byte, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if t, ok := v.(time.Time); ok {
			out[k] = t.UTC().Format(timeLayout)
			continue
		}
		out[k] = v
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return b, nil
}

func decodeData(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	for k, v := range data {
		if n, ok := v.(json.Number); ok {
			data[k] = docstore.NormalizeValue(n)
		}
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}
