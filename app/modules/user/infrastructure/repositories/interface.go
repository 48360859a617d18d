package userdb

import (
	"context"

	userdomain "github.com/Black-And-White-Club/flagboard/app/modules/user/domain"
)

// Repository defines the persistence contract for users and the username index.
//
// Error semantics:
//   - ErrNotFound: requested user does not exist (GetUser)
//   - other errors: store failures
type Repository interface {
	GetUser(ctx context.Context, userID string) (*userdomain.User, error)
	ListUsers(ctx context.Context) ([]userdomain.User, error)
	ListUsernames(ctx context.Context) ([]userdomain.UsernameEntry, error)

	// ApplyPlan commits plan in as few batches as the store allows without
	// splitting a unit. It returns the number of writes committed, which is
	// less than plan.Operations() only when err is non-nil.
	ApplyPlan(ctx context.Context, plan userdomain.Plan, onCommit func(done, total int)) (int, error)
	MaxBatchSize() int
}
