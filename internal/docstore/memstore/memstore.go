// Package memstore is an in-process docstore.Store used by tests and local
// development.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/Black-And-White-Club/flagboard/internal/docstore"
)

// CommitHook runs before any write or batch is applied. A non-nil error fails it
// without applying any write.
type CommitHook func(writes []docstore.Write) error

// Option configures a Store.
type Option func(*Store)

// WithMaxBatchSize overrides docstore.DefaultMaxBatchSize.
func WithMaxBatchSize(n int) Option {
	return func(s *Store) { s.maxBatch = n }
}

// WithClock replaces the clock used for ServerTimestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCommitHook installs a hook called for every commit.
func WithCommitHook(h CommitHook) Option {
	return func(s *Store) { s.hook = h }
}

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	subs        map[*subscription]struct{}
	commits     []int
	closed      bool

	maxBatch int
	now      func() time.Time
	hook     CommitHook
}

var _ docstore.Store = (*Store)(nil)

func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]map[string]map[string]any),
		subs:        make(map[*subscription]struct{}),
		maxBatch:    docstore.DefaultMaxBatchSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) MaxBatchSize() int { return s.maxBatch }

// CommitSizes returns the operation count of every successful batch commit.
func (s *Store) CommitSizes() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int(nil), s.commits...)
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return docstore.Document{}, docstore.ErrClosed
	}
	data, ok := s.collections[collection][id]
	if !ok {
		return docstore.Document{}, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	return docstore.Document{ID: id, Data: maps.Clone(data)}, nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	docs := s.snapshotLocked(q.Collection)
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, docstore.ErrClosed
	}
	return q.Apply(docs), nil
}

func (s *Store) snapshotLocked(collection string) []docstore.Document {
	coll := s.collections[collection]
	docs := make([]docstore.Document, 0, len(coll))
	for id, data := range coll {
		docs = append(docs, docstore.Document{ID: id, Data: maps.Clone(data)})
	}
	return docs
}

func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any, opts ...docstore.SetOption) error {
	return s.commit(ctx, []docstore.Write{docstore.SetWrite(collection, id, fields, opts...)}, false)
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.commit(ctx, []docstore.Write{docstore.UpdateWrite(collection, id, fields)}, false)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.commit(ctx, []docstore.Write{docstore.DeleteWrite(collection, id)}, false)
}

func (s *Store) Batch() docstore.Batch {
	return &batch{store: s}
}

// commit validates every write against the current state before applying any
// of them, so a failing batch leaves the store untouched.
func (s *Store) commit(ctx context.Context, writes []docstore.Write, isBatch bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(writes) > s.maxBatch {
		return fmt.Errorf("%d writes, limit %d: %w", len(writes), s.maxBatch, docstore.ErrBatchTooLarge)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.ErrClosed
	}
	if s.hook != nil {
		if err := s.hook(writes); err != nil {
			return err
		}
	}

	// Stage against a copy-on-write overlay so later writes in the batch see
	// earlier ones.
	staged := make(map[string]map[string]any)
	key := func(c, id string) string { return c + "\x00" + id }
	current := func(c, id string) (map[string]any, bool) {
		if data, ok := staged[key(c, id)]; ok {
			return data, data != nil
		}
		data, ok := s.collections[c][id]
		return data, ok
	}

	now := s.now()
	type applied struct {
		write  docstore.Write
		before map[string]any
		after  map[string]any
	}
	var log []applied
	for _, w := range writes {
		before, exists := current(w.Collection, w.ID)
		var after map[string]any
		switch w.Kind {
		case docstore.WriteSet:
			after = docstore.ApplyFields(before, w.Fields, !w.Merge, now)
		case docstore.WriteUpdate:
			if !exists {
				return fmt.Errorf("%s/%s: %w", w.Collection, w.ID, docstore.ErrNotFound)
			}
			after = docstore.ApplyFields(before, w.Fields, false, now)
		case docstore.WriteDelete:
			after = nil
		default:
			return fmt.Errorf("unknown write kind %d", w.Kind)
		}
		if !exists {
			before = nil
		}
		staged[key(w.Collection, w.ID)] = after
		log = append(log, applied{write: w, before: before, after: after})
	}

	for _, a := range log {
		coll := s.collections[a.write.Collection]
		if a.after == nil {
			delete(coll, a.write.ID)
		} else {
			if coll == nil {
				coll = make(map[string]map[string]any)
				s.collections[a.write.Collection] = coll
			}
			coll[a.write.ID] = a.after
		}
		s.notifyLocked(a.write.Collection, a.write.ID, a.before, a.after)
	}
	if isBatch {
		s.commits = append(s.commits, len(writes))
	}
	return nil
}

func (s *Store) notifyLocked(collection, id string, before, after map[string]any) {
	for sub := range s.subs {
		if sub.query.Collection != collection {
			continue
		}
		wasMatch := before != nil && sub.query.Matches(docstore.Document{ID: id, Data: before})
		isMatch := after != nil && sub.query.Matches(docstore.Document{ID: id, Data: after})
		kind, ok := docstore.Classify(wasMatch, isMatch)
		if !ok {
			continue
		}
		data := after
		if kind == docstore.ChangeRemoved {
			data = before
		}
		sub.queue.Push(docstore.Change{Type: kind, Doc: docstore.Document{ID: id, Data: maps.Clone(data)}})
	}
}

// Close closes every open subscription. Further calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	subs := make([]*subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.closed = true
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return nil
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
	return b.store.commit(ctx, b.writes, true)
}
