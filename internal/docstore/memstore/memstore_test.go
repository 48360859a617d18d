package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Black-And-White-Club/flagboard/internal/docstore"
)

var fixedNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func newTestStore(opts ...Option) *Store {
	return New(append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func TestStore_SetGetMerge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.Set(ctx, "users", "u1", map[string]any{"displayName": "Ada", "totalPoints": 5}))
	require.NoError(t, s.Set(ctx, "users", "u1", map[string]any{"email": "ada@example.com"}, docstore.Merge()))

	doc, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", doc.String("displayName"))
	assert.Equal(t, "ada@example.com", doc.String("email"))
	assert.EqualValues(t, 5, doc.Int64("totalPoints"))

	require.NoError(t, s.Set(ctx, "users", "u1", map[string]any{"displayName": "Grace"}))
	doc, err = s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	_, hasEmail := doc.Field("email")
	assert.False(t, hasEmail, "Set without Merge should replace the document")
}

func TestStore_UpdateMissingReturnsNotFound(t *testing.T) {
	s := newTestStore()
	err := s.Update(context.Background(), "users", "ghost", map[string]any{"x": 1})
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	_, err = s.Get(context.Background(), "users", "ghost")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestStore_IncrementField(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	require.NoError(t, s.Set(ctx, "users", "u1", map[string]any{"totalPoints": 0}))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, docstore.IncrementField(ctx, s, "users", "u1", "totalPoints", 2))
		}()
	}
	wg.Wait()

	doc, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 100, doc.Int64("totalPoints"))
}

func TestStore_ServerTimestamp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	require.NoError(t, s.Set(ctx, "users", "u1", map[string]any{"lastActive": docstore.ServerTimestamp}))
	doc, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.True(t, doc.Time("lastActive").Equal(fixedNow))
}

func TestStore_BatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	require.NoError(t, s.Set(ctx, "users", "u1", map[string]any{"totalPoints": 1}))

	err := s.Batch().
		Update("users", "u1", map[string]any{"totalPoints": docstore.Increment(10)}).
		Update("users", "missing", map[string]any{"totalPoints": 1}).
		Commit(ctx)
	require.ErrorIs(t, err, docstore.ErrNotFound)

	doc, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc.Int64("totalPoints"), "failed batch must not apply earlier writes")
	assert.Empty(t, s.CommitSizes())
}

func TestStore_BatchSeesEarlierWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	err := s.Batch().
		Set("usernames", "ada", map[string]any{"userId": "u1"}).
		Update("usernames", "ada", map[string]any{"displayName": "Ada"}).
		Delete("usernames", "old").
		Commit(ctx)
	require.NoError(t, err)

	doc, err := s.Get(ctx, "usernames", "ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", doc.String("displayName"))
	assert.Equal(t, []int{3}, s.CommitSizes())
}

func TestStore_BatchTooLarge(t *testing.T) {
	s := newTestStore(WithMaxBatchSize(2))
	b := s.Batch()
	for _, id := range []string{"a", "b", "c"} {
		b.Delete("x", id)
	}
	assert.Equal(t, 3, b.Len())
	assert.ErrorIs(t, b.Commit(context.Background()), docstore.ErrBatchTooLarge)
}

func TestStore_CommitHookFailsCommit(t *testing.T) {
	boom := errors.New("boom")
	s := newTestStore(WithCommitHook(func(writes []docstore.Write) error {
		if len(writes) == 2 {
			return boom
		}
		return nil
	}))
	ctx := context.Background()

	require.NoError(t, s.Batch().Set("c", "1", map[string]any{}).Commit(ctx))
	err := s.Batch().Set("c", "2", map[string]any{}).Set("c", "3", map[string]any{}).Commit(ctx)
	assert.ErrorIs(t, err, boom)

	docs, err := s.Query(ctx, docstore.From("c"))
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestStore_QueryFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for id, pts := range map[string]int{"a": 10, "b": 30, "c": 20, "d": 30} {
		require.NoError(t, s.Set(ctx, "users", id, map[string]any{"totalPoints": pts, "active": pts > 10}))
	}

	docs, err := s.Query(ctx, docstore.From("users").
		Where("active", docstore.OpEqual, true).
		OrderBy("totalPoints", docstore.Desc))
	require.NoError(t, err)

	var ids []string
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"b", "d", "c"}, ids)

	_, err = s.Query(ctx, docstore.Query{})
	assert.ErrorIs(t, err, docstore.ErrInvalidQuery)
}

func receive(t *testing.T, sub docstore.Subscription) docstore.Change {
	t.Helper()
	select {
	case c, ok := <-sub.Changes():
		require.True(t, ok, "subscription closed unexpectedly")
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	return docstore.Change{}
}

func TestStore_SubscribeDeliversLiveChanges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	require.NoError(t, s.Set(ctx, "submissions", "pre", map[string]any{"isCorrect": true, "points": 5}))

	sub, err := s.Subscribe(ctx, docstore.From("submissions").Where("isCorrect", docstore.OpEqual, true))
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, s.Set(ctx, "submissions", "wrong", map[string]any{"isCorrect": false, "points": 5}))
	require.NoError(t, s.Set(ctx, "submissions", "s1", map[string]any{"isCorrect": true, "points": 10}))
	require.NoError(t, s.Update(ctx, "submissions", "s1", map[string]any{"points": 20}))
	require.NoError(t, s.Update(ctx, "submissions", "wrong", map[string]any{"isCorrect": true}))
	require.NoError(t, s.Delete(ctx, "submissions", "s1"))

	c := receive(t, sub)
	assert.Equal(t, docstore.ChangeAdded, c.Type)
	assert.Equal(t, "s1", c.Doc.ID)

	c = receive(t, sub)
	assert.Equal(t, docstore.ChangeModified, c.Type)
	assert.EqualValues(t, 20, c.Doc.Int64("points"))

	c = receive(t, sub)
	assert.Equal(t, docstore.ChangeAdded, c.Type)
	assert.Equal(t, "wrong", c.Doc.ID)

	c = receive(t, sub)
	assert.Equal(t, docstore.ChangeRemoved, c.Type)
	assert.Equal(t, "s1", c.Doc.ID)
}

func TestStore_SubscribeInitialSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	require.NoError(t, s.Set(ctx, "submissions", "pre", map[string]any{"isCorrect": true}))

	sub, err := s.Subscribe(ctx, docstore.From("submissions"), docstore.WithInitialSnapshot())
	require.NoError(t, err)
	defer sub.Close()

	c := receive(t, sub)
	assert.Equal(t, docstore.ChangeAdded, c.Type)
	assert.Equal(t, "pre", c.Doc.ID)
}

func TestStore_SubscriptionClosesWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestStore()
	sub, err := s.Subscribe(ctx, docstore.From("submissions"))
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-sub.Changes():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after context cancellation")
	}
	assert.NoError(t, sub.Close())
}

func TestStore_CloseRejectsFurtherUse(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Set(context.Background(), "c", "1", map[string]any{}), docstore.ErrClosed)
	_, err := s.Subscribe(context.Background(), docstore.From("c"))
	assert.ErrorIs(t, err, docstore.ErrClosed)
}
