package memstore

import (
	"context"
	"sync"

	"github.com/Black-And-White-Club/flagboard/internal/docstore"
)

type subscription struct {
	store *Store
	query docstore.Query
	queue *docstore.ChangeQueue
	once  sync.Once
}

// Subscribe registers a live query. Registration and the optional snapshot
// happen under the write lock, so no write is lost or seen twice.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query, opts ...docstore.SubscribeOption) (docstore.Subscription, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := docstore.ResolveSubscribeOptions(opts...)

	sub := &subscription{store: s, query: q, queue: docstore.NewChangeQueue()}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.queue.Close()
		return nil, docstore.ErrClosed
	}
	if o.InitialSnapshot {
		for _, doc := range q.Apply(s.snapshotLocked(q.Collection)) {
			sub.queue.Push(docstore.Change{Type: docstore.ChangeAdded, Doc: doc})
		}
	}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.queue.Done():
		}
	}()
	return sub, nil
}

func (sub *subscription) Changes() <-chan docstore.Change { return sub.queue.Out() }

func (sub *subscription) Close() error {
	sub.once.Do(func() {
		sub.store.mu.Lock()
		delete(sub.store.subs, sub)
		sub.store.mu.Unlock()
		sub.queue.Close()
	})
	return nil
}
