package leaderboardservice

import (
	"context"
	"time"

	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
)

// Service is the leaderboard application service.
type Service interface {
	// ProcessSubmission applies one correct submission to its user and
	// leaderboard entry.
	ProcessSubmission(ctx context.Context, sub leaderboarddomain.Submission) (ProcessResult, error)

	// RecalculateFull rebuilds user aggregates and the ranked leaderboard from
	// the submission history.
	RecalculateFull(ctx context.Context, progress ProgressFunc) (RecalcResult, error)
	// RecalculateQuick re-ranks the aggregates stored on users.
	RecalculateQuick(ctx context.Context, progress ProgressFunc) (RecalcResult, error)
	// Recalculate dispatches on mode.
	Recalculate(ctx context.Context, mode leaderboarddomain.Mode, progress ProgressFunc) (RecalcResult, error)

	GetLeaderboard(ctx context.Context, limit int) (Standings, error)
	ExportLeaderboard(ctx context.Context) (ExportResult, error)
	RenderChart(ctx context.Context, limit int) ([]byte, error)
}

// Processor drives ProcessSubmission from the live submission stream.
type Processor interface {
	Start(ctx context.Context) error
	Stop() error
	Running() bool
}

// Config tunes the service.
type Config struct {
	// Deduplicate records processed submission ids so redelivered events are
	// not counted twice.
	Deduplicate bool
	// ExportPath is the blob path prefix of XLSX exports.
	ExportPath string
}

// Outcome of a processed submission event.
const (
	OutcomeProcessed   = "processed"
	OutcomeDuplicate   = "duplicate"
	OutcomeSkipped     = "skipped"
	OutcomeUnknownUser = "unknown_user"
	OutcomeFailed      = "failed"
)

// ProcessResult reports what ProcessSubmission did.
type ProcessResult struct {
	Outcome      string `json:"outcome"`
	EntryCreated bool   `json:"entryCreated"`
}

// Recalculation phases reported through Progress.
const (
	PhaseUsers       = "users"
	PhaseLeaderboard = "leaderboard"
)

// Progress is reported after every committed chunk.
type Progress struct {
	Phase   string `json:"phase"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

// ProgressFunc receives recalculation progress. It may be nil.
type ProgressFunc func(Progress)

// RecalcResult summarizes a recalculation.
type RecalcResult struct {
	Mode               leaderboarddomain.Mode `json:"mode"`
	Entries            int                    `json:"entries"`
	Removed            int                    `json:"removed"`
	UsersUpdated       int                    `json:"usersUpdated"`
	SkippedSubmissions int                    `json:"skippedSubmissions"`
	SkippedSubmitters  []string               `json:"skippedSubmitters,omitempty"`
	Committed          int                    `json:"committed"`
	RecalculatedAt     time.Time              `json:"recalculatedAt"`
}

// Standings is the leaderboard as read by clients.
type Standings struct {
	Entries []leaderboarddomain.Entry `json:"entries"`
	Meta    *leaderboarddomain.Meta   `json:"meta,omitempty"`
}

// ExportResult locates an uploaded export.
type ExportResult struct {
	Path    string `json:"path"`
	URL     string `json:"url"`
	Entries int    `json:"entries"`
}
