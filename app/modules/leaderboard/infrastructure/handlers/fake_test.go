package leaderboardhandlers

import (
	"context"

	leaderboardservice "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/application"
	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
)

// FakeService implements leaderboardservice.Service for handler testing.
type FakeService struct {
	trace []string

	ProcessSubmissionFunc func(ctx context.Context, sub leaderboarddomain.Submission) (leaderboardservice.ProcessResult, error)
	RecalculateFunc       func(ctx context.Context, mode leaderboarddomain.Mode, progress leaderboardservice.ProgressFunc) (leaderboardservice.RecalcResult, error)
	GetLeaderboardFunc    func(ctx context.Context, limit int) (leaderboardservice.Standings, error)
	ExportLeaderboardFunc func(ctx context.Context) (leaderboardservice.ExportResult, error)
	RenderChartFunc       func(ctx context.Context, limit int) ([]byte, error)
}

var _ leaderboardservice.Service = (*FakeService)(nil)

func NewFakeService() *FakeService {
	return &FakeService{trace: []string{}}
}

func (f *FakeService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeService) Trace() []string {
	return f.trace
}

func (f *FakeService) ProcessSubmission(ctx context.Context, sub leaderboarddomain.Submission) (leaderboardservice.ProcessResult, error) {
	f.record("ProcessSubmission")
	if f.ProcessSubmissionFunc != nil {
		return f.ProcessSubmissionFunc(ctx, sub)
	}
	return leaderboardservice.ProcessResult{Outcome: leaderboardservice.OutcomeProcessed}, nil
}

func (f *FakeService) RecalculateFull(ctx context.Context, progress leaderboardservice.ProgressFunc) (leaderboardservice.RecalcResult, error) {
	return f.Recalculate(ctx, leaderboarddomain.ModeFull, progress)
}

func (f *FakeService) RecalculateQuick(ctx context.Context, progress leaderboardservice.ProgressFunc) (leaderboardservice.RecalcResult, error) {
	return f.Recalculate(ctx, leaderboarddomain.ModeQuick, progress)
}

func (f *FakeService) Recalculate(ctx context.Context, mode leaderboarddomain.Mode, progress leaderboardservice.ProgressFunc) (leaderboardservice.RecalcResult, error) {
	f.record("Recalculate:" + string(mode))
	if f.RecalculateFunc != nil {
		return f.RecalculateFunc(ctx, mode, progress)
	}
	return leaderboardservice.RecalcResult{Mode: mode}, nil
}

func (f *FakeService) GetLeaderboard(ctx context.Context, limit int) (leaderboardservice.Standings, error) {
	f.record("GetLeaderboard")
	if f.GetLeaderboardFunc != nil {
		return f.GetLeaderboardFunc(ctx, limit)
	}
	return leaderboardservice.Standings{}, nil
}

func (f *FakeService) ExportLeaderboard(ctx context.Context) (leaderboardservice.ExportResult, error) {
	f.record("ExportLeaderboard")
	if f.ExportLeaderboardFunc != nil {
		return f.ExportLeaderboardFunc(ctx)
	}
	return leaderboardservice.ExportResult{}, nil
}

func (f *FakeService) RenderChart(ctx context.Context, limit int) ([]byte, error) {
	f.record("RenderChart")
	if f.RenderChartFunc != nil {
		return f.RenderChartFunc(ctx, limit)
	}
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

// FakeQueue records enqueued recalculations.
type FakeQueue struct {
	EnqueueFunc func(ctx context.Context, mode leaderboarddomain.Mode, requestedBy string) (int64, error)

	Modes       []leaderboarddomain.Mode
	RequestedBy []string
}

func (f *FakeQueue) EnqueueRecalculation(ctx context.Context, mode leaderboarddomain.Mode, requestedBy string) (int64, error) {
	f.Modes = append(f.Modes, mode)
	f.RequestedBy = append(f.RequestedBy, requestedBy)
	if f.EnqueueFunc != nil {
		return f.EnqueueFunc(ctx, mode, requestedBy)
	}
	return int64(len(f.Modes)), nil
}
