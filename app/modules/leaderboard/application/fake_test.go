package leaderboardservice

import (
	"context"
	"sync"

	"github.com/Black-And-White-Club/flagboard/internal/docstore"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ------------------------
// Fake Event Bus
// ------------------------

// FakeEventBus records published messages per topic.
type FakeEventBus struct {
	mu        sync.Mutex
	published map[string][]*message.Message

	PublishFunc func(topic string, messages ...*message.Message) error
}

func (f *FakeEventBus) Publish(topic string, messages ...*message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishFunc != nil {
		if err := f.PublishFunc(topic, messages...); err != nil {
			return err
		}
	}
	if f.published == nil {
		f.published = make(map[string][]*message.Message)
	}
	f.published[topic] = append(f.published[topic], messages...)
	return nil
}

func (f *FakeEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (f *FakeEventBus) Close() error { return nil }

// Published returns the messages sent to topic.
func (f *FakeEventBus) Published(topic string) []*message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*message.Message(nil), f.published[topic]...)
}

// ------------------------
// Fake Subscription
// ------------------------

// FakeSubscription delivers whatever is sent on C.
type FakeSubscription struct {
	C      chan docstore.Change
	once   sync.Once
	closes int
}

func NewFakeSubscription() *FakeSubscription {
	return &FakeSubscription{C: make(chan docstore.Change, 16)}
}

func (f *FakeSubscription) Changes() <-chan docstore.Change { return f.C }

func (f *FakeSubscription) Close() error {
	f.closes++
	f.once.Do(func() { close(f.C) })
	return nil
}
