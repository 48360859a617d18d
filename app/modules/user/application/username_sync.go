package userservice

import (
	"context"
	"fmt"

	authdomain "github.com/Black-And-White-Club/flagboard/app/modules/auth/domain"
	userdomain "github.com/Black-And-White-Club/flagboard/app/modules/user/domain"
	"github.com/Black-And-White-Club/flagboard/internal/attr"
	"github.com/Black-And-White-Club/flagboard/internal/eventbus"
	"github.com/Black-And-White-Club/flagboard/internal/events"
	"github.com/Black-And-White-Club/flagboard/internal/results"
)

// Scan loads both collections and classifies drift.
func (s *UsernameSync) Scan(ctx context.Context) (ScanReport, error) {
	result, err := withTelemetry(s, ctx, "ScanUsernames", "usernames", func(ctx context.Context) (results.OperationResult[ScanReport, error], error) {
		rec, err := s.reconcile(ctx)
		if err != nil {
			return results.OperationResult[ScanReport, error]{}, err
		}
		return results.SuccessResult[ScanReport, error](newScanReport(rec.Report)), nil
	})
	if err != nil {
		return ScanReport{}, err
	}
	return *result.Success, nil
}

// Fix repairs the username index. Authorization is checked before anything
// is read.
func (s *UsernameSync) Fix(ctx context.Context, caller *authdomain.Claims, confirm ConfirmFunc) (FixResult, error) {
	actor := ""
	if caller != nil {
		actor = caller.UserID
	}

	result, err := withTelemetry(s, ctx, "FixUsernames", actor, func(ctx context.Context) (results.OperationResult[FixResult, error], error) {
		return s.fixLogic(ctx, caller, confirm)
	})
	if err != nil {
		return FixResult{}, err
	}
	if result.IsFailure() {
		return FixResult{}, *result.Failure
	}
	return *result.Success, nil
}

func (s *UsernameSync) fixLogic(ctx context.Context, caller *authdomain.Claims, confirm ConfirmFunc) (results.OperationResult[FixResult, error], error) {
	if !caller.IsAdmin() {
		return results.FailureResult[FixResult, error](ErrInsufficientPrivilege), nil
	}

	rec, err := s.reconcile(ctx)
	if err != nil {
		return results.OperationResult[FixResult, error]{}, err
	}

	res := FixResult{
		Report: newScanReport(rec.Report),
		Plan:   summarize(rec.Plan),
	}
	if rec.Report.Total() == 0 || rec.Plan.Operations() == 0 {
		res.Status = FixNothingToDo
		return results.SuccessResult[FixResult, error](res), nil
	}

	approved := false
	if confirm != nil {
		approved, err = confirm(ctx, res.Plan)
		if err != nil {
			return results.OperationResult[FixResult, error]{}, fmt.Errorf("confirmation failed: %w", err)
		}
	}
	if !approved {
		s.logger.InfoContext(ctx, "Username repair cancelled",
			attr.UserID(caller.UserID),
			attr.Int("operations", res.Plan.Operations),
		)
		res.Status = FixCancelled
		return results.SuccessResult[FixResult, error](res), nil
	}

	committed, err := s.repo.ApplyPlan(ctx, rec.Plan, func(done, total int) {
		s.logger.InfoContext(ctx, "Username repair chunk committed",
			attr.Int("done", done),
			attr.Int("total", total),
		)
	})
	if s.metrics != nil && committed > 0 {
		s.metrics.RecordReconciliationWrites(ctx, committed)
	}
	if err != nil {
		return results.OperationResult[FixResult, error]{}, fmt.Errorf("username repair stopped after %d of %d writes: %w", committed, res.Plan.Operations, err)
	}

	res.Status = FixCompleted
	res.Committed = committed
	s.publishReconciled(ctx, caller.UserID, res)

	return results.SuccessResult[FixResult, error](res), nil
}

func (s *UsernameSync) reconcile(ctx context.Context) (userdomain.Reconciliation, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return userdomain.Reconciliation{}, err
	}
	entries, err := s.repo.ListUsernames(ctx)
	if err != nil {
		return userdomain.Reconciliation{}, err
	}

	rec := userdomain.Reconcile(users, entries)
	if s.metrics != nil {
		s.metrics.RecordReconciliationIssues(ctx, string(userdomain.IssueOrphan), len(rec.Report.Orphans))
		s.metrics.RecordReconciliationIssues(ctx, string(userdomain.IssueMissing), len(rec.Report.Missing))
		s.metrics.RecordReconciliationIssues(ctx, string(userdomain.IssueMismatch), len(rec.Report.Mismatches))
		s.metrics.RecordReconciliationIssues(ctx, string(userdomain.IssueConflict), len(rec.Report.Conflicts))
	}
	return rec, nil
}

func (s *UsernameSync) publishReconciled(ctx context.Context, actor string, res FixResult) {
	if s.eventBus == nil {
		return
	}
	payload := events.UsernamesReconciledPayload{
		ActorID:         actor,
		Creates:         res.Plan.Creates,
		Deletes:         res.Plan.Deletes,
		UsernameUpdates: res.Plan.UsernameUpdates,
		Committed:       res.Committed,
		CompletedAt:     s.now().UTC(),
	}
	if err := eventbus.PublishJSON(ctx, s.eventBus, events.UsernamesReconciledV1, payload); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish reconciliation event", attr.Error(err))
	}
}

func newScanReport(r userdomain.Report) ScanReport {
	return ScanReport{Report: r, Issues: r.Total(), Lines: r.Lines()}
}

func summarize(p userdomain.Plan) PlanSummary {
	sum := PlanSummary{
		Operations:      p.Operations(),
		Creates:         p.Count(userdomain.OpPutEntry),
		Deletes:         p.Count(userdomain.OpDeleteEntry),
		UsernameUpdates: p.Count(userdomain.OpSetUsername),
		Units:           len(p.Units),
	}
	for _, u := range p.Units {
		for _, op := range u.Ops {
			sum.Lines = append(sum.Lines, describeOp(op))
		}
	}
	return sum
}

func describeOp(op userdomain.PlanOp) string {
	switch op.Kind {
	case userdomain.OpPutEntry:
		return fmt.Sprintf("write usernames/%s -> %s", op.Key, op.UserID)
	case userdomain.OpDeleteEntry:
		return fmt.Sprintf("delete usernames/%s", op.Key)
	case userdomain.OpSetUsername:
		return fmt.Sprintf("set users/%s.username = %q", op.UserID, op.Username)
	}
	return fmt.Sprintf("unknown op %d", op.Kind)
}
