package leaderboarddb

import (
	"context"

	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	userdomain "github.com/Black-And-White-Club/flagboard/app/modules/user/domain"
	"github.com/Black-And-White-Club/flagboard/internal/docstore"
)

// FakeRepository is a programmable Repository for tests in other packages.
// Unset functions return zero values.
type FakeRepository struct {
	SubscribeCorrectSubmissionsFn func(ctx context.Context) (docstore.Subscription, error)
	ListCorrectSubmissionsFn      func(ctx context.Context) ([]leaderboarddomain.Submission, error)
	GetUserFn                     func(ctx context.Context, userID string) (*userdomain.User, error)
	ListUsersByPointsFn           func(ctx context.Context) ([]userdomain.User, error)
	ApplySubmissionFn             func(ctx context.Context, sub leaderboarddomain.Submission, dedup bool) error
	IncrementEntryFn              func(ctx context.Context, userID string, points int64) error
	CreateEntryFn                 func(ctx context.Context, entry leaderboarddomain.Entry) error
	ListEntriesFn                 func(ctx context.Context, limit int) ([]leaderboarddomain.Entry, error)
	ListEntryIDsFn                func(ctx context.Context) ([]string, error)
	GetMetaFn                     func(ctx context.Context) (*leaderboarddomain.Meta, error)
	WriteAggregatesFn             func(ctx context.Context, aggs []leaderboarddomain.Aggregate, onCommit CommitFunc) (int, error)
	WriteStandingsFn              func(ctx context.Context, entries []leaderboarddomain.Entry, removed []string, meta leaderboarddomain.Meta, onCommit CommitFunc) (int, error)

	trace []string
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeRepository) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeRepository) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeRepository) MaxBatchSize() int { return docstore.DefaultMaxBatchSize }

func (f *FakeRepository) SubscribeCorrectSubmissions(ctx context.Context) (docstore.Subscription, error) {
	f.record("SubscribeCorrectSubmissions")
	if f.SubscribeCorrectSubmissionsFn != nil {
		return f.SubscribeCorrectSubmissionsFn(ctx)
	}
	return nil, nil
}

func (f *FakeRepository) ListCorrectSubmissions(ctx context.Context) ([]leaderboarddomain.Submission, error) {
	f.record("ListCorrectSubmissions")
	if f.ListCorrectSubmissionsFn != nil {
		return f.ListCorrectSubmissionsFn(ctx)
	}
	return nil, nil
}

func (f *FakeRepository) GetUser(ctx context.Context, userID string) (*userdomain.User, error) {
	f.record("GetUser")
	if f.GetUserFn != nil {
		return f.GetUserFn(ctx, userID)
	}
	return nil, ErrUserNotFound
}

func (f *FakeRepository) ListUsersByPoints(ctx context.Context) ([]userdomain.User, error) {
	f.record("ListUsersByPoints")
	if f.ListUsersByPointsFn != nil {
		return f.ListUsersByPointsFn(ctx)
	}
	return nil, nil
}

func (f *FakeRepository) ApplySubmission(ctx context.Context, sub leaderboarddomain.Submission, dedup bool) error {
	f.record("ApplySubmission")
	if f.ApplySubmissionFn != nil {
		return f.ApplySubmissionFn(ctx, sub, dedup)
	}
	return nil
}

func (f *FakeRepository) IncrementEntry(ctx context.Context, userID string, points int64) error {
	f.record("IncrementEntry")
	if f.IncrementEntryFn != nil {
		return f.IncrementEntryFn(ctx, userID, points)
	}
	return nil
}

func (f *FakeRepository) CreateEntry(ctx context.Context, entry leaderboarddomain.Entry) error {
	f.record("CreateEntry")
	if f.CreateEntryFn != nil {
		return f.CreateEntryFn(ctx, entry)
	}
	return nil
}

func (f *FakeRepository) ListEntries(ctx context.Context, limit int) ([]leaderboarddomain.Entry, error) {
	f.record("ListEntries")
	if f.ListEntriesFn != nil {
		return f.ListEntriesFn(ctx, limit)
	}
	return nil, nil
}

func (f *FakeRepository) ListEntryIDs(ctx context.Context) ([]string, error) {
	f.record("ListEntryIDs")
	if f.ListEntryIDsFn != nil {
		return f.ListEntryIDsFn(ctx)
	}
	return nil, nil
}

func (f *FakeRepository) GetMeta(ctx context.Context) (*leaderboarddomain.Meta, error) {
	f.record("GetMeta")
	if f.GetMetaFn != nil {
		return f.GetMetaFn(ctx)
	}
	return nil, nil
}

func (f *FakeRepository) WriteAggregates(ctx context.Context, aggs []leaderboarddomain.Aggregate, onCommit CommitFunc) (int, error) {
	f.record("WriteAggregates")
	if f.WriteAggregatesFn != nil {
		return f.WriteAggregatesFn(ctx, aggs, onCommit)
	}
	return len(aggs), nil
}

func (f *FakeRepository) WriteStandings(ctx context.Context, entries []leaderboarddomain.Entry, removed []string, meta leaderboarddomain.Meta, onCommit CommitFunc) (int, error) {
	f.record("WriteStandings")
	if f.WriteStandingsFn != nil {
		return f.WriteStandingsFn(ctx, entries, removed, meta, onCommit)
	}
	return len(entries) + len(removed) + 1, nil
}

var _ Repository = (*FakeRepository)(nil)
