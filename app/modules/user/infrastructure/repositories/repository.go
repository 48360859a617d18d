package userdb

import (
	"context"
	"errors"
	"fmt"

	userdomain "github.com/Black-And-White-Club/flagboard/app/modules/user/domain"
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

func (r *Impl) GetUser(ctx context.Context, userID string) (*userdomain.User, error) {
	doc, err := r.store.Get(ctx, UsersCollection, userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	u := UserFromDocument(doc)
	return &u, nil
}

func (r *Impl) ListUsers(ctx context.Context) ([]userdomain.User, error) {
	docs, err := r.store.Query(ctx, docstore.From(UsersCollection))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]userdomain.User, len(docs))
	for i, d := range docs {
		users[i] = UserFromDocument(d)
	}
	return users, nil
}

func (r *Impl) ListUsernames(ctx context.Context) ([]userdomain.UsernameEntry, error) {
	docs, err := r.store.Query(ctx, docstore.From(UsernamesCollection))
	if err != nil {
		return nil, fmt.Errorf("failed to list usernames: %w", err)
	}
	entries := make([]userdomain.UsernameEntry, len(docs))
	for i, d := range docs {
		entries[i] = entryFromDocument(d)
	}
	return entries, nil
}

func (r *Impl) ApplyPlan(ctx context.Context, plan userdomain.Plan, onCommit func(done, total int)) (int, error) {
	chunks, err := docstore.PlanChunks(planUnits(plan), r.store.MaxBatchSize())
	if err != nil {
		return 0, fmt.Errorf("failed to plan username repair: %w", err)
	}
	return docstore.CommitChunks(ctx, r.store, chunks, onCommit)
}
