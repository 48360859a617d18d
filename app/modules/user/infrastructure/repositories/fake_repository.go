package userdb

import (
	"context"

	userdomain "github.com/Black-And-White-Club/flagboard/app/modules/user/domain"
)

// FakeRepository is a programmable Repository for tests in other packages.
type FakeRepository struct {
	GetUserFn       func(ctx context.Context, userID string) (*userdomain.User, error)
	ListUsersFn     func(ctx context.Context) ([]userdomain.User, error)
	ListUsernamesFn func(ctx context.Context) ([]userdomain.UsernameEntry, error)
	ApplyPlanFn     func(ctx context.Context, plan userdomain.Plan, onCommit func(done, total int)) (int, error)
	MaxBatchSizeFn  func() int

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

func (f *FakeRepository) GetUser(ctx context.Context, userID string) (*userdomain.User, error) {
	f.record("GetUser")
	if f.GetUserFn != nil {
		return f.GetUserFn(ctx, userID)
	}
	return nil, ErrNotFound
}

func (f *FakeRepository) ListUsers(ctx context.Context) ([]userdomain.User, error) {
	f.record("ListUsers")
	if f.ListUsersFn != nil {
		return f.ListUsersFn(ctx)
	}
	return nil, nil
}

func (f *FakeRepository) ListUsernames(ctx context.Context) ([]userdomain.UsernameEntry, error) {
	f.record("ListUsernames")
	if f.ListUsernamesFn != nil {
		return f.ListUsernamesFn(ctx)
	}
	return nil, nil
}

func (f *FakeRepository) ApplyPlan(ctx context.Context, plan userdomain.Plan, onCommit func(done, total int)) (int, error) {
	f.record("ApplyPlan")
	if f.ApplyPlanFn != nil {
		return f.ApplyPlanFn(ctx, plan, onCommit)
	}
	return plan.Operations(), nil
}

func (f *FakeRepository) MaxBatchSize() int {
	if f.MaxBatchSizeFn != nil {
		return f.MaxBatchSizeFn()
	}
	return 500
}
