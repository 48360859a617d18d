package leaderboarddomain

import (
	"cmp"
	"maps"
	"slices"
	"time"
)

// Aggregate is the score of one user derived from their correct submissions.
type Aggregate struct {
	UserID           string
	TotalPoints      int64
	ChallengesSolved int64
	LastSubmissionAt time.Time
}

// AggregateSubmissions groups countable submissions by user. The result is
// ordered by user id; skipped counts submissions without a user or points.
func AggregateSubmissions(subs []Submission) (aggs []Aggregate, skipped int) {
	byUser := make(map[string]*Aggregate)
	for _, s := range subs {
		if !s.Countable() {
			skipped++
			continue
		}
		a, ok := byUser[s.UserID]
		if !ok {
			a = &Aggregate{UserID: s.UserID}
			byUser[s.UserID] = a
		}
		a.TotalPoints += s.Points
		a.ChallengesSolved++
		if s.SubmittedAt.After(a.LastSubmissionAt) {
			a.LastSubmissionAt = s.SubmittedAt
		}
	}

	for _, id := range slices.Sorted(maps.Keys(byUser)) {
		aggs = append(aggs, *byUser[id])
	}
	return aggs, skipped
}

// SortByScore orders aggregates for a full recalculation: points descending,
// then whoever reached the score first, then user id.
func SortByScore(aggs []Aggregate) {
	slices.SortStableFunc(aggs, func(a, b Aggregate) int {
		if c := cmp.Compare(b.TotalPoints, a.TotalPoints); c != 0 {
			return c
		}
		if c := a.LastSubmissionAt.Compare(b.LastSubmissionAt); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
}

// SortByPoints orders aggregates for a quick recalculation: points
// descending, then user id.
func SortByPoints(aggs []Aggregate) {
	slices.SortStableFunc(aggs, func(a, b Aggregate) int {
		if c := cmp.Compare(b.TotalPoints, a.TotalPoints); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
}

// RankOf returns the 1-based rank of position i.
func RankOf(i int) int { return i + 1 }
