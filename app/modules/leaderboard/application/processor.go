package leaderboardservice

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	leaderboarddb "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/infrastructure/repositories"
	"github.com/Black-And-White-Club/flagboard/internal/attr"
	"github.com/Black-And-White-Club/flagboard/internal/docstore"
)

// SubmissionProcessor feeds live correct-submission changes into
// ProcessSubmission. Changes are handled one at a time by a single goroutine.
type SubmissionProcessor struct {
	service Service
	repo    leaderboarddb.Repository
	logger  *slog.Logger

	mu   sync.Mutex
	sub  docstore.Subscription
	done chan struct{}
}

var _ Processor = (*SubmissionProcessor)(nil)

// NewSubmissionProcessor creates a stopped processor.
func NewSubmissionProcessor(service Service, repo leaderboarddb.Repository, logger *slog.Logger) *SubmissionProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionProcessor{service: service, repo: repo, logger: logger}
}

// Start subscribes to correct submissions. Calling it while running is a no-op.
// The subscription ends when ctx is done or Stop is called.
func (p *SubmissionProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.runningLocked() {
		return nil
	}

	sub, err := p.repo.SubscribeCorrectSubmissions(ctx)
	if err != nil {
		return err
	}
	p.sub = sub
	p.done = make(chan struct{})
	go p.consume(context.WithoutCancel(ctx), sub, p.done)

	p.logger.InfoContext(ctx, "Submission processor started")
	return nil
}

// Stop closes the subscription and waits for the event being handled, if
// any, to finish. It is safe to call when not running.
func (p *SubmissionProcessor) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sub == nil {
		return nil
	}
	err := p.sub.Close()
	<-p.done
	p.sub = nil
	p.done = nil

	p.logger.Info("Submission processor stopped")
	return err
}

// Running reports whether the consumer loop is active.
func (p *SubmissionProcessor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runningLocked()
}

func (p *SubmissionProcessor) runningLocked() bool {
	if p.sub == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// consume handles changes until the subscription's channel closes. ctx is
// detached from the caller's cancellation so an event is never cut off
// between its two writes.
func (p *SubmissionProcessor) consume(ctx context.Context, sub docstore.Subscription, done chan struct{}) {
	defer close(done)
	for change := range sub.Changes() {
		p.handle(ctx, change)
	}
}

func (p *SubmissionProcessor) handle(ctx context.Context, change docstore.Change) {
	if change.Type == docstore.ChangeRemoved {
		return
	}
	sub := leaderboarddb.SubmissionFromDocument(change.Doc)

	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(ctx, "Recovered panic while handling submission",
				attr.SubmissionID(sub.ID),
				attr.Any("panic", r),
			)
		}
	}()

	res, err := p.service.ProcessSubmission(ctx, sub)
	switch {
	case errors.Is(err, leaderboarddb.ErrUserNotFound):
		p.logger.WarnContext(ctx, "Submission references unknown user",
			attr.SubmissionID(sub.ID),
			attr.UserID(sub.UserID),
		)
	case err != nil:
		p.logger.ErrorContext(ctx, "Failed to process submission",
			attr.SubmissionID(sub.ID),
			attr.UserID(sub.UserID),
			attr.Error(err),
		)
	case res.Outcome == OutcomeSkipped:
		p.logger.DebugContext(ctx, "Ignoring submission without user or points", attr.SubmissionID(sub.ID))
	default:
		p.logger.InfoContext(ctx, "Submission applied",
			attr.SubmissionID(sub.ID),
			attr.UserID(sub.UserID),
			attr.Int64("points", sub.Points),
			attr.String("outcome", res.Outcome),
			attr.Bool("entry_created", res.EntryCreated),
		)
	}
}
