// Package events declares the topics and payloads broadcast on the event bus.
package events

import "time"

const (
	// LeaderboardEntryUpdatedV1 is published after the submission processor
	// applies an event.
	LeaderboardEntryUpdatedV1 = "leaderboard.entry.updated.v1"
	// LeaderboardRecalculatedV1 is published after a successful recalculation.
	LeaderboardRecalculatedV1 = "leaderboard.recalculated.v1"
	// LeaderboardRecalculateRequestedV1 is the inbound command asking for a
	// recalculation.
	LeaderboardRecalculateRequestedV1 = "leaderboard.recalculate.requested.v1"
	// UsernamesReconciledV1 is published after a committed username repair.
	UsernamesReconciledV1 = "usernames.reconciled.v1"
)

// LeaderboardEntryUpdatedPayload describes one applied submission.
type LeaderboardEntryUpdatedPayload struct {
	SubmissionID string `json:"submissionId"`
	UserID       string `json:"userId"`
	Points       int64  `json:"points"`
	Created      bool   `json:"created"`
}

// LeaderboardRecalculatedPayload summarizes a finished recalculation.
type LeaderboardRecalculatedPayload struct {
	Mode              string    `json:"mode"`
	Entries           int       `json:"entries"`
	Removed           int       `json:"removed"`
	SkippedSubmitters []string  `json:"skippedSubmitters,omitempty"`
	RecalculatedAt    time.Time `json:"recalculatedAt"`
}

// LeaderboardRecalculateRequestedPayload asks for a recalculation in Mode
// ("full" or "quick").
type LeaderboardRecalculateRequestedPayload struct {
	Mode        string `json:"mode"`
	RequestedBy string `json:"requestedBy,omitempty"`
}

// UsernamesReconciledPayload summarizes a committed username repair.
type UsernamesReconciledPayload struct {
	ActorID         string    `json:"actorId"`
	Creates         int       `json:"creates"`
	Deletes         int       `json:"deletes"`
	UsernameUpdates int       `json:"usernameUpdates"`
	Committed       int       `json:"committed"`
	CompletedAt     time.Time `json:"completedAt"`
}
