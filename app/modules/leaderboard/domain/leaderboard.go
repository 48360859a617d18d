package leaderboarddomain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// UnrankedRank is the placeholder rank of an entry created by the submission
// processor. A recalculation can also assign 999, so Provisional is what marks
// an entry as not yet ranked.
const UnrankedRank = 999

// Mode selects how a recalculation derives standings.
type Mode string

const (
	// ModeFull rebuilds user aggregates from the submission history.
	ModeFull Mode = "full"
	// ModeQuick re-sorts the aggregates already stored on users.
	ModeQuick Mode = "quick"
)

var ErrUnknownMode = errors.New("unknown recalculation mode")

// ParseMode accepts "full" or "quick" in any case. An empty string is full.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeFull:
		return ModeFull, nil
	case ModeQuick:
		return ModeQuick, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Submission is a document of the submissions collection.
type Submission struct {
	ID                 string
	UserID             string
	ChallengeID        string
	IsCorrect          bool
	Points             int64
	SubmittedAt        time.Time
	ChallengeStartedAt time.Time
}

// Countable reports whether the submission contributes to a score.
func (s Submission) Countable() bool {
	return s.UserID != "" && s.Points > 0
}

// Entry is a document of the leaderboard collection.
type Entry struct {
	UserID           string    `json:"userId"`
	Username         string    `json:"username"`
	DisplayName      string    `json:"displayName"`
	TotalPoints      int64     `json:"totalPoints"`
	ChallengesSolved int64     `json:"challengesSolved"`
	Rank             int       `json:"rank"`
	Provisional      bool      `json:"provisional,omitempty"`
	LastUpdated      time.Time `json:"lastUpdated,omitzero"`
}

// Ranked reports whether a recalculation has assigned the entry's rank.
func (e Entry) Ranked() bool {
	return e.Rank > 0 && !e.Provisional
}

// Meta describes the last successful recalculation.
type Meta struct {
	Mode              Mode      `json:"mode"`
	EntryCount        int       `json:"entryCount"`
	RecalculatedAt    time.Time `json:"recalculatedAt,omitzero"`
	SkippedSubmitters []string  `json:"skippedSubmitters,omitempty"`
}
