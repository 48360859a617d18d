package leaderboardservice

import (
	"context"
	"fmt"
	"slices"

	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	leaderboarddb "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/infrastructure/repositories"
	userdomain "github.com/Black-And-White-Club/flagboard/app/modules/user/domain"
	"github.com/Black-And-White-Club/flagboard/internal/attr"
	"github.com/Black-And-White-Club/flagboard/internal/events"
	"github.com/Black-And-White-Club/flagboard/internal/results"
)

// Recalculate runs the recalculation selected by mode.
func (s *LeaderboardService) Recalculate(ctx context.Context, mode leaderboarddomain.Mode, progress ProgressFunc) (RecalcResult, error) {
	switch mode {
	case leaderboarddomain.ModeFull:
		return s.RecalculateFull(ctx, progress)
	case leaderboarddomain.ModeQuick:
		return s.RecalculateQuick(ctx, progress)
	}
	return RecalcResult{}, fmt.Errorf("%w: %q", leaderboarddomain.ErrUnknownMode, mode)
}

// RecalculateFull derives every submitter's totals from the correct
// submissions, merges them into the user documents and rewrites the ranked
// leaderboard. Submitters without a user document are skipped and reported.
func (s *LeaderboardService) RecalculateFull(ctx context.Context, progress ProgressFunc) (RecalcResult, error) {
	return s.runRecalculation(ctx, leaderboarddomain.ModeFull, func(ctx context.Context) (results.OperationResult[RecalcResult, error], error) {
		return s.recalculateFullLogic(ctx, progress)
	})
}

// RecalculateQuick ranks users by their stored totals without reading
// submissions.
func (s *LeaderboardService) RecalculateQuick(ctx context.Context, progress ProgressFunc) (RecalcResult, error) {
	return s.runRecalculation(ctx, leaderboarddomain.ModeQuick, func(ctx context.Context) (results.OperationResult[RecalcResult, error], error) {
		return s.recalculateQuickLogic(ctx, progress)
	})
}

func (s *LeaderboardService) runRecalculation(ctx context.Context, mode leaderboarddomain.Mode, op operationFunc[RecalcResult, error]) (RecalcResult, error) {
	opName := "RecalculateFull"
	if mode == leaderboarddomain.ModeQuick {
		opName = "RecalculateQuick"
	}

	result, err := withTelemetry(s, ctx, opName, string(mode), func(ctx context.Context) (results.OperationResult[RecalcResult, error], error) {
		if !s.recalcMu.TryLock() {
			return results.FailureResult[RecalcResult, error](ErrRecalculationInProgress), nil
		}
		defer s.recalcMu.Unlock()
		return op(ctx)
	})
	if err != nil {
		return RecalcResult{}, err
	}
	if result.IsFailure() {
		return RecalcResult{}, *result.Failure
	}

	res := *result.Success
	if s.metrics != nil {
		s.metrics.RecordRecalculation(ctx, string(mode), res.Entries)
	}
	s.publish(ctx, events.LeaderboardRecalculatedV1, events.LeaderboardRecalculatedPayload{
		Mode:              string(res.Mode),
		Entries:           res.Entries,
		Removed:           res.Removed,
		SkippedSubmitters: res.SkippedSubmitters,
		RecalculatedAt:    res.RecalculatedAt,
	})
	return res, nil
}

func (s *LeaderboardService) recalculateFullLogic(ctx context.Context, progress ProgressFunc) (results.OperationResult[RecalcResult, error], error) {
	subs, err := s.repo.ListCorrectSubmissions(ctx)
	if err != nil {
		return results.OperationResult[RecalcResult, error]{}, err
	}
	users, err := s.repo.ListUsersByPoints(ctx)
	if err != nil {
		return results.OperationResult[RecalcResult, error]{}, err
	}
	byID := indexUsers(users)

	aggs, skippedSubs := leaderboarddomain.AggregateSubmissions(subs)
	res := RecalcResult{Mode: leaderboarddomain.ModeFull, SkippedSubmissions: skippedSubs}

	var ranked []leaderboarddomain.Aggregate
	for _, a := range aggs {
		if _, ok := byID[a.UserID]; !ok {
			s.logger.WarnContext(ctx, "Skipping submitter without user document",
				attr.UserID(a.UserID),
				attr.Int64("points", a.TotalPoints),
			)
			res.SkippedSubmitters = append(res.SkippedSubmitters, a.UserID)
			continue
		}
		ranked = append(ranked, a)
	}

	committed, err := s.repo.WriteAggregates(ctx, ranked, s.commitReporter(ctx, PhaseUsers, progress))
	res.Committed += committed
	if err != nil {
		return results.OperationResult[RecalcResult, error]{}, fmt.Errorf("recalculation stopped after %d user writes: %w", committed, err)
	}
	res.UsersUpdated = committed

	leaderboarddomain.SortByScore(ranked)
	return s.writeStandings(ctx, res, ranked, byID, progress)
}

func (s *LeaderboardService) recalculateQuickLogic(ctx context.Context, progress ProgressFunc) (results.OperationResult[RecalcResult, error], error) {
	users, err := s.repo.ListUsersByPoints(ctx)
	if err != nil {
		return results.OperationResult[RecalcResult, error]{}, err
	}

	aggs := make([]leaderboarddomain.Aggregate, len(users))
	for i, u := range users {
		aggs[i] = leaderboarddomain.Aggregate{
			UserID:           u.ID,
			TotalPoints:      u.TotalPoints,
			ChallengesSolved: u.ChallengesSolved,
			LastSubmissionAt: u.LastSubmissionAt,
		}
	}
	leaderboarddomain.SortByPoints(aggs)

	res := RecalcResult{Mode: leaderboarddomain.ModeQuick}
	return s.writeStandings(ctx, res, aggs, indexUsers(users), progress)
}

// writeStandings ranks ordered by position, removes entries of users that
// are no longer ranked and writes the meta document.
func (s *LeaderboardService) writeStandings(
	ctx context.Context,
	res RecalcResult,
	ordered []leaderboarddomain.Aggregate,
	users map[string]userdomain.User,
	progress ProgressFunc,
) (results.OperationResult[RecalcResult, error], error) {
	existing, err := s.repo.ListEntryIDs(ctx)
	if err != nil {
		return results.OperationResult[RecalcResult, error]{}, err
	}

	entries := make([]leaderboarddomain.Entry, len(ordered))
	keep := make(map[string]struct{}, len(ordered))
	for i, a := range ordered {
		u := users[a.UserID]
		entries[i] = leaderboarddomain.Entry{
			UserID:           a.UserID,
			Username:         u.Username,
			DisplayName:      u.DisplayName,
			TotalPoints:      a.TotalPoints,
			ChallengesSolved: a.ChallengesSolved,
			Rank:             leaderboarddomain.RankOf(i),
		}
		keep[a.UserID] = struct{}{}
	}

	var removed []string
	for _, id := range existing {
		if _, ok := keep[id]; !ok {
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)

	res.RecalculatedAt = s.now().UTC()
	meta := leaderboarddomain.Meta{
		Mode:              res.Mode,
		EntryCount:        len(entries),
		RecalculatedAt:    res.RecalculatedAt,
		SkippedSubmitters: res.SkippedSubmitters,
	}

	committed, err := s.repo.WriteStandings(ctx, entries, removed, meta, s.commitReporter(ctx, PhaseLeaderboard, progress))
	res.Committed += committed
	if err != nil {
		return results.OperationResult[RecalcResult, error]{}, fmt.Errorf("recalculation stopped after %d of %d leaderboard writes: %w", committed, len(entries)+len(removed)+1, err)
	}

	res.Entries = len(entries)
	res.Removed = len(removed)

	s.logger.InfoContext(ctx, "Leaderboard recalculated",
		attr.String("mode", string(res.Mode)),
		attr.Int("entries", res.Entries),
		attr.Int("removed", res.Removed),
		attr.Int("skipped_submitters", len(res.SkippedSubmitters)),
		attr.Int("committed", res.Committed),
	)
	return results.SuccessResult[RecalcResult, error](res), nil
}

// commitReporter forwards chunk commits to progress, the log and metrics.
func (s *LeaderboardService) commitReporter(ctx context.Context, phase string, progress ProgressFunc) leaderboarddb.CommitFunc {
	prev := 0
	return func(done, total int) {
		if s.metrics != nil {
			s.metrics.RecordBatchCommit(ctx, phase, done-prev)
		}
		prev = done
		s.logger.DebugContext(ctx, "Recalculation chunk committed",
			attr.String("phase", phase),
			attr.Int("done", done),
			attr.Int("total", total),
		)
		if progress != nil {
			progress(Progress{Phase: phase, Current: done, Total: total})
		}
	}
}

func indexUsers(users []userdomain.User) map[string]userdomain.User {
	byID := make(map[string]userdomain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID
}
