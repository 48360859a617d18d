package leaderboarddb

import (
	"context"

	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	userdomain "github.com/Black-And-White-Club/flagboard/app/modules/user/domain"
	"github.com/Black-And-White-Club/flagboard/internal/docstore"
)

// CommitFunc receives the writes committed so far and the total after each
// committed chunk.
type CommitFunc func(done, total int)

// Repository is the leaderboard's view of the document store.
type Repository interface {
	// SubscribeCorrectSubmissions opens a live query on correct submissions.
	SubscribeCorrectSubmissions(ctx context.Context) (docstore.Subscription, error)
	ListCorrectSubmissions(ctx context.Context) ([]leaderboarddomain.Submission, error)

	GetUser(ctx context.Context, userID string) (*userdomain.User, error)
	// ListUsersByPoints returns every user ordered by total points descending.
	ListUsersByPoints(ctx context.Context) ([]userdomain.User, error)

	// ApplySubmission adds the submission's points and one solve to its user
	// and stamps lastActive. With dedup a processed marker is written in the
	// same batch and ErrAlreadyProcessed is returned when it already exists.
	ApplySubmission(ctx context.Context, sub leaderboarddomain.Submission, dedup bool) error
	// IncrementEntry applies the same increments to an existing entry and
	// returns ErrEntryNotFound when there is none.
	IncrementEntry(ctx context.Context, userID string, points int64) error
	CreateEntry(ctx context.Context, entry leaderboarddomain.Entry) error

	// ListEntries returns entries ordered by rank, then points. A limit of
	// zero returns all of them.
	ListEntries(ctx context.Context, limit int) ([]leaderboarddomain.Entry, error)
	ListEntryIDs(ctx context.Context) ([]string, error)
	GetMeta(ctx context.Context) (*leaderboarddomain.Meta, error)

	// WriteAggregates merges recomputed totals into user documents.
	WriteAggregates(ctx context.Context, aggs []leaderboarddomain.Aggregate, onCommit CommitFunc) (int, error)
	// WriteStandings replaces the ranked entries, deletes removed ones and
	// finally writes the meta document.
	WriteStandings(ctx context.Context, entries []leaderboarddomain.Entry, removed []string, meta leaderboarddomain.Meta, onCommit CommitFunc) (int, error)

	MaxBatchSize() int
}
