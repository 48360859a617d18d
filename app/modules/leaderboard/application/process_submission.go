package leaderboardservice

import (
	"context"
	"errors"
	"fmt"

	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	leaderboarddb "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/infrastructure/repositories"
	"github.com/Black-And-White-Club/flagboard/internal/attr"
	"github.com/Black-And-White-Club/flagboard/internal/eventbus"
	"github.com/Black-And-White-Club/flagboard/internal/events"
	"github.com/Black-And-White-Club/flagboard/internal/results"
)

// ProcessSubmission increments the submitter's totals and upserts their
// leaderboard entry. A submission for an unknown user is returned as
// leaderboarddb.ErrUserNotFound and leaves the store untouched.
func (s *LeaderboardService) ProcessSubmission(ctx context.Context, sub leaderboarddomain.Submission) (ProcessResult, error) {
	result, err := withTelemetry(s, ctx, "ProcessSubmission", sub.ID, func(ctx context.Context) (results.OperationResult[ProcessResult, error], error) {
		return s.processSubmissionLogic(ctx, sub)
	})
	if err != nil {
		s.recordEvent(ctx, OutcomeFailed)
		return ProcessResult{}, err
	}
	if result.IsFailure() {
		s.recordEvent(ctx, OutcomeUnknownUser)
		return ProcessResult{Outcome: OutcomeUnknownUser}, *result.Failure
	}
	s.recordEvent(ctx, result.Success.Outcome)
	return *result.Success, nil
}

func (s *LeaderboardService) processSubmissionLogic(ctx context.Context, sub leaderboarddomain.Submission) (results.OperationResult[ProcessResult, error], error) {
	if !sub.Countable() {
		return results.SuccessResult[ProcessResult, error](ProcessResult{Outcome: OutcomeSkipped}), nil
	}

	err := s.repo.ApplySubmission(ctx, sub, s.config.Deduplicate)
	switch {
	case errors.Is(err, leaderboarddb.ErrAlreadyProcessed):
		s.logger.InfoContext(ctx, "Skipping already processed submission",
			attr.SubmissionID(sub.ID),
			attr.UserID(sub.UserID),
		)
		return results.SuccessResult[ProcessResult, error](ProcessResult{Outcome: OutcomeDuplicate}), nil
	case errors.Is(err, leaderboarddb.ErrUserNotFound):
		return results.FailureResult[ProcessResult, error](fmt.Errorf("submission %s: %w", sub.ID, leaderboarddb.ErrUserNotFound)), nil
	case err != nil:
		return results.OperationResult[ProcessResult, error]{}, err
	}

	created, err := s.upsertEntry(ctx, sub)
	if err != nil {
		return results.OperationResult[ProcessResult, error]{}, err
	}

	s.publish(ctx, events.LeaderboardEntryUpdatedV1, events.LeaderboardEntryUpdatedPayload{
		SubmissionID: sub.ID,
		UserID:       sub.UserID,
		Points:       sub.Points,
		Created:      created,
	})

	return results.SuccessResult[ProcessResult, error](ProcessResult{Outcome: OutcomeProcessed, EntryCreated: created}), nil
}

// upsertEntry increments an existing entry or seeds a new unranked one from
// the already incremented user.
func (s *LeaderboardService) upsertEntry(ctx context.Context, sub leaderboarddomain.Submission) (bool, error) {
	err := s.repo.IncrementEntry(ctx, sub.UserID, sub.Points)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, leaderboarddb.ErrEntryNotFound) {
		return false, err
	}

	user, err := s.repo.GetUser(ctx, sub.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to read user for new leaderboard entry: %w", err)
	}
	entry := leaderboarddomain.Entry{
		UserID:           user.ID,
		Username:         user.Username,
		DisplayName:      user.DisplayName,
		TotalPoints:      user.TotalPoints,
		ChallengesSolved: user.ChallengesSolved,
		Rank:             leaderboarddomain.UnrankedRank,
		Provisional:      true,
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return false, err
	}
	return true, nil
}

func (s *LeaderboardService) recordEvent(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordSubmissionEvent(ctx, outcome)
	}
}

// publish broadcasts payload on topic. Failures are logged only.
func (s *LeaderboardService) publish(ctx context.Context, topic string, payload any) {
	if s.eventBus == nil {
		return
	}
	if err := eventbus.PublishJSON(ctx, s.eventBus, topic, payload); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish leaderboard event",
			attr.String("topic", topic),
			attr.Error(err),
		)
	}
}
