// Package docstore defines the document store contract the scoring services run
// against: id-keyed documents grouped in collections, point reads and writes,
// equality/range queries, live query subscriptions and bounded atomic batches.
//
// Implementations live in the memstore (in-process) and bunstore (Postgres)
// subpackages.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
)

// DefaultMaxBatchSize is the operation cap of a single atomic batch.
const DefaultMaxBatchSize = 500

// Document is a single stored document.
type Document struct {
	ID   string
	Data map[string]any
}

// DataTo decodes the document fields into v, which must be a pointer to a
// struct with json tags matching the stored field names.
func (d Document) DataTo(v any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("docstore: encode %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("docstore: decode %s: %w", d.ID, err)
	}
	return nil
}

// Field returns the raw value stored under name.
func (d Document) Field(name string) (any, bool) {
	v, ok := d.Data[name]
	return v, ok
}

// Clone returns a copy whose top-level map can be mutated independently.
func (d Document) Clone() Document {
	return Document{ID: d.ID, Data: maps.Clone(d.Data)}
}

// ChangeType classifies a change delivered to a subscription.
type ChangeType int

const (
	ChangeAdded ChangeType = iota + 1
	ChangeModified
	ChangeRemoved
)

func (t ChangeType) String() string {
	switch t {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is one event of a live query. For removals Doc carries only the id
// when the document no longer exists.
type Change struct {
	Type ChangeType
	Doc  Document
}

// Subscription is a live query. Changes is closed once the subscription is
// closed or its context is done.
type Subscription interface {
	Changes() <-chan Change
	Close() error
}

// Store is the document store contract.
type Store interface {
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)

	Query(ctx context.Context, q Query) ([]Document, error)

	// Subscribe delivers changes to documents matching q that happen after the
	// call returns. WithInitialSnapshot additionally replays the current
	// matches as ChangeAdded first.
	Subscribe(ctx context.Context, q Query, opts ...SubscribeOption) (Subscription, error)

	// Set replaces the document, or merges fields into it with Merge().
	Set(ctx context.Context, collection, id string, fields map[string]any, opts ...SetOption) error

	// Update merges fields into an existing document and returns ErrNotFound
	// when it does not exist.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	Batch() Batch

	MaxBatchSize() int

	Close() error
}

// Batch is an all-or-nothing group of writes.
type Batch interface {
	Set(collection, id string, fields map[string]any, opts ...SetOption) Batch
	Update(collection, id string, fields map[string]any) Batch
	Delete(collection, id string) Batch
	Len() int
	// Commit applies every write atomically. It fails with ErrBatchTooLarge
	// when Len exceeds the store's MaxBatchSize.
	Commit(ctx context.Context) error
}

// SetOption configures a Set write.
type SetOption func(*SetOptions)

// SetOptions is the resolved form of a list of SetOption.
type SetOptions struct {
	Merge bool
}

// Merge makes Set merge the given fields into an existing document instead of
// replacing it.
func Merge() SetOption {
	return func(o *SetOptions) { o.Merge = true }
}

// ResolveSetOptions folds opts into a SetOptions value.
func ResolveSetOptions(opts ...SetOption) SetOptions {
	var o SetOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SubscribeOption configures Subscribe.
type SubscribeOption func(*SubscribeOptions)

// SubscribeOptions is the resolved form of a list of SubscribeOption.
type SubscribeOptions struct {
	InitialSnapshot bool
}

// WithInitialSnapshot replays documents that already match the query as
// ChangeAdded before live changes.
func WithInitialSnapshot() SubscribeOption {
	return func(o *SubscribeOptions) { o.InitialSnapshot = true }
}

// ResolveSubscribeOptions folds opts into a SubscribeOptions value.
func ResolveSubscribeOptions(opts ...SubscribeOption) SubscribeOptions {
	var o SubscribeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// IncrementField atomically adds delta to a numeric field of an existing
// document.
func IncrementField(ctx context.Context, s Store, collection, id, field string, delta int64) error {
	return s.Update(ctx, collection, id, map[string]any{field: Increment(delta)})
}
