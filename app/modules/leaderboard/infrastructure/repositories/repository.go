package leaderboarddb

import (
	"context"
	"errors"
	"fmt"

	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	userdomain "github.com/Black-And-White-Club/flagboard/app/modules/user/domain"
	userdb "github.com/Black-And-White-Club/flagboard/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/flagboard/internal/docstore"
)

// Impl is the docstore-backed Repository.
type Impl struct {
	store docstore.Store
}

// NewRepository creates a Repository over store.
func NewRepository(store docstore.Store) Repository {
	return &Impl{store: store}
}

func (r *Impl) MaxBatchSize() int { return r.store.MaxBatchSize() }

func correctSubmissions() docstore.Query {
	return docstore.From(SubmissionsCollection).Where("isCorrect", docstore.OpEqual, true)
}

func (r *Impl) SubscribeCorrectSubmissions(ctx context.Context) (docstore.Subscription, error) {
	sub, err := r.store.Subscribe(ctx, correctSubmissions())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to submissions: %w", err)
	}
	return sub, nil
}

func (r *Impl) ListCorrectSubmissions(ctx context.Context) ([]leaderboarddomain.Submission, error) {
	docs, err := r.store.Query(ctx, correctSubmissions())
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	subs := make([]leaderboarddomain.Submission, len(docs))
	for i, d := range docs {
		subs[i] = SubmissionFromDocument(d)
	}
	return subs, nil
}

func (r *Impl) GetUser(ctx context.Context, userID string) (*userdomain.User, error) {
	doc, err := r.store.Get(ctx, userdb.UsersCollection, userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	u := userdb.UserFromDocument(doc)
	return &u, nil
}

func (r *Impl) ListUsersByPoints(ctx context.Context) ([]userdomain.User, error) {
	docs, err := r.store.Query(ctx, docstore.From(userdb.UsersCollection).OrderBy("totalPoints", docstore.Desc))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]userdomain.User, len(docs))
	for i, d := range docs {
		users[i] = userdb.UserFromDocument(d)
	}
	return users, nil
}

func (r *Impl) ApplySubmission(ctx context.Context, sub leaderboarddomain.Submission, dedup bool) error {
	fields := map[string]any{
		"totalPoints":      docstore.Increment(sub.Points),
		"challengesSolved": docstore.Increment(1),
		"lastActive":       docstore.ServerTimestamp,
	}

	var err error
	if !dedup {
		err = r.store.Update(ctx, userdb.UsersCollection, sub.UserID, fields)
	} else {
		if _, getErr := r.store.Get(ctx, ProcessedCollection, sub.ID); getErr == nil {
			return ErrAlreadyProcessed
		} else if !errors.Is(getErr, docstore.ErrNotFound) {
			return fmt.Errorf("failed to check processed marker %s: %w", sub.ID, getErr)
		}
		err = r.store.Batch().
			Update(userdb.UsersCollection, sub.UserID, fields).
			Set(ProcessedCollection, sub.ID, map[string]any{
				"userId":      sub.UserID,
				"points":      sub.Points,
				"processedAt": docstore.ServerTimestamp,
			}).
			Commit(ctx)
	}
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to apply submission %s: %w", sub.ID, err)
	}
	return nil
}

func (r *Impl) IncrementEntry(ctx context.Context, userID string, points int64) error {
	err := r.store.Update(ctx, LeaderboardCollection, userID, map[string]any{
		"totalPoints":      docstore.Increment(points),
		"challengesSolved": docstore.Increment(1),
		"lastUpdated":      docstore.ServerTimestamp,
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("failed to update leaderboard entry %s: %w", userID, err)
	}
	return nil
}

func (r *Impl) CreateEntry(ctx context.Context, entry leaderboarddomain.Entry) error {
	if err := r.store.Set(ctx, LeaderboardCollection, entry.UserID, entryFields(entry)); err != nil {
		return fmt.Errorf("failed to create leaderboard entry %s: %w", entry.UserID, err)
	}
	return nil
}

// ListEntries returns ranked entries by rank, then entries the processor
// created since the last recalculation by points.
func (r *Impl) ListEntries(ctx context.Context, limit int) ([]leaderboarddomain.Entry, error) {
	q := docstore.From(LeaderboardCollection).
		OrderBy("provisional", docstore.Asc).
		OrderBy("rank", docstore.Asc).
		OrderBy("totalPoints", docstore.Desc).
		WithLimit(limit)
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard: %w", err)
	}
	entries := make([]leaderboarddomain.Entry, len(docs))
	for i, d := range docs {
		entries[i] = entryFromDocument(d)
	}
	return entries, nil
}

func (r *Impl) ListEntryIDs(ctx context.Context) ([]string, error) {
	docs, err := r.store.Query(ctx, docstore.From(LeaderboardCollection))
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard ids: %w", err)
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// GetMeta returns nil without error when no recalculation has run yet.
func (r *Impl) GetMeta(ctx context.Context) (*leaderboarddomain.Meta, error) {
	doc, err := r.store.Get(ctx, MetaCollection, MetaDocumentID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get leaderboard meta: %w", err)
	}
	m := metaFromDocument(doc)
	return &m, nil
}

func (r *Impl) WriteAggregates(ctx context.Context, aggs []leaderboarddomain.Aggregate, onCommit CommitFunc) (int, error) {
	writes := make([]docstore.Write, len(aggs))
	for i, a := range aggs {
		writes[i] = docstore.SetWrite(userdb.UsersCollection, a.UserID, map[string]any{
			"totalPoints":      a.TotalPoints,
			"challengesSolved": a.ChallengesSolved,
			"lastSubmissionAt": a.LastSubmissionAt,
		}, docstore.Merge())
	}
	return r.commit(ctx, writes, onCommit)
}

func (r *Impl) WriteStandings(ctx context.Context, entries []leaderboarddomain.Entry, removed []string, meta leaderboarddomain.Meta, onCommit CommitFunc) (int, error) {
	writes := make([]docstore.Write, 0, len(entries)+len(removed)+1)
	for _, e := range entries {
		writes = append(writes, docstore.SetWrite(LeaderboardCollection, e.UserID, entryFields(e)))
	}
	for _, id := range removed {
		writes = append(writes, docstore.DeleteWrite(LeaderboardCollection, id))
	}
	writes = append(writes, docstore.SetWrite(MetaCollection, MetaDocumentID, metaFields(meta)))
	return r.commit(ctx, writes, onCommit)
}

func (r *Impl) commit(ctx context.Context, writes []docstore.Write, onCommit CommitFunc) (int, error) {
	chunks, err := docstore.PlanChunks(docstore.Singles(writes), r.store.MaxBatchSize())
	if err != nil {
		return 0, fmt.Errorf("failed to plan batches: %w", err)
	}
	return docstore.CommitChunks(ctx, r.store, chunks, onCommit)
}
