package bunstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/Black-And-White-Club/flagboard/internal/attr"
	"github.com/Black-And-White-Club/flagboard/internal/docstore"
)

type notification struct {
	Op         string `json:"op"`
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

type subscription struct {
	store    *Store
	query    docstore.Query
	listener *pgdriver.Listener
	queue    *docstore.ChangeQueue
	cancel   context.CancelFunc
	once     sync.Once

	// ids of documents currently matching the query, used to tell added,
	// modified and removed apart after the fact.
	matching map[string]struct{}
}

// Subscribe starts listening before reading the current matches, so a write
// racing the subscription is seen either in the snapshot or as a change.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query, opts ...docstore.SubscribeOption) (docstore.Subscription, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	o := docstore.ResolveSubscribeOptions(opts...)

	ln := pgdriver.NewListener(s.db)
	if err := ln.Listen(ctx, notifyChannel); err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", notifyChannel, err)
	}
	ch := ln.Channel(pgdriver.WithChannelSize(1024))

	current, err := s.Query(ctx, q)
	if err != nil {
		ln.Close()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		store:    s,
		query:    q,
		listener: ln,
		queue:    docstore.NewChangeQueue(),
		cancel:   cancel,
		matching: make(map[string]struct{}, len(current)),
	}
	for _, d := range current {
		sub.matching[d.ID] = struct{}{}
		if o.InitialSnapshot {
			sub.queue.Push(docstore.Change{Type: docstore.ChangeAdded, Doc: d})
		}
	}

	go sub.run(subCtx, ch)
	return sub, nil
}

func (sub *subscription) Changes() <-chan docstore.Change { return sub.queue.Out() }

func (sub *subscription) Close() error {
	var err error
	sub.once.Do(func() {
		sub.cancel()
		sub.queue.Close()
		err = sub.listener.Close()
	})
	return err
}

func (sub *subscription) run(ctx context.Context, ch <-chan pgdriver.Notification) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.queue.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := sub.handle(ctx, n.Payload); err != nil && ctx.Err() == nil {
				sub.store.logger.ErrorContext(ctx, "Failed to process document change",
					attr.String("collection", sub.query.Collection),
					attr.Error(err),
				)
			}
		}
	}
}

func (sub *subscription) handle(ctx context.Context, payload string) error {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return fmt.Errorf("malformed notification: %w", err)
	}
	if n.Collection != sub.query.Collection {
		return nil
	}

	_, was := sub.matching[n.ID]
	doc, err := sub.store.Get(ctx, n.Collection, n.ID)
	exists := true
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		exists = false
		doc = docstore.Document{ID: n.ID, Data: map[string]any{}}
	}
	is := exists && sub.query.Matches(doc)

	kind, ok := docstore.Classify(was, is)
	if !ok {
		return nil
	}
	if is {
		sub.matching[n.ID] = struct{}{}
	} else {
		delete(sub.matching, n.ID)
	}
	sub.queue.Push(docstore.Change{Type: kind, Doc: doc})
	return nil
}
