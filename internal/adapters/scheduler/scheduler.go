// Package scheduler runs the weekly close and rollover jobs in the club timezone.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"fineclub/internal/application/orchestrators"

	"github.com/robfig/cron/v3"
)

// Cron specs, evaluated in the club timezone.
const (
	FinalizeSpec = "59 23 * * 0" // Sunday 23:59
	RolloverSpec = "0 0 * * 1"   // Monday 00:00
	RetrySpec    = "@every 10m"
)

// jobTimeout bounds a single run.
const jobTimeout = 2 * time.Minute

// Deps supplies the orchestrator dependencies for each run.
// Both funcs are called per run so clocks and stores stay current.
type Deps struct {
	Finalize     func() orchestrators.FinalizeWeekDeps
	EnsureWeek   func() orchestrators.EnsureWeekDeps
	RetryNotices func() orchestrators.RetryNoticesDeps // optional: nil disables notice retries
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron *cron.Cron
	deps Deps

	finalizeID cron.EntryID
	rolloverID cron.EntryID
}

// New registers both jobs without starting them.
// PRE: loc is non-nil; both deps funcs are non-nil
// POST: Start begins firing jobs
func New(loc *time.Location, deps Deps) (*Scheduler, error) {
	logger := slogLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		deps: deps,
	}

	var err error
	if s.finalizeID, err = s.cron.AddFunc(FinalizeSpec, func() { s.RunFinalize(context.Background()) }); err != nil {
		return nil, err
	}
	if s.rolloverID, err = s.cron.AddFunc(RolloverSpec, func() { s.RunRollover(context.Background()) }); err != nil {
		return nil, err
	}
	if deps.RetryNotices != nil {
		if _, err = s.cron.AddFunc(RetrySpec, func() { s.RunRetryNotices(context.Background()) }); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start launches the cron goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler_started",
		"finalize_next", s.cron.Entry(s.finalizeID).Next,
		"rollover_next", s.cron.Entry(s.rolloverID).Next,
	)
}

// Stop halts scheduling and waits for running jobs, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		slog.Warn("scheduler_stop_timeout")
	}
}

// NextRuns returns the next finalize and rollover instants after t.
func (s *Scheduler) NextRuns(t time.Time) (finalize, rollover time.Time) {
	return s.cron.Entry(s.finalizeID).Schedule.Next(t), s.cron.Entry(s.rolloverID).Schedule.Next(t)
}

// RunFinalize closes the current week. Errors are logged, never returned.
func (s *Scheduler) RunFinalize(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	res, err := orchestrators.ExecuteFinalizeWeek(ctx, orchestrators.FinalizeWeekInput{}, s.deps.Finalize())
	if err != nil {
		slog.Error("scheduled_finalize_failed", "error", err)
		return
	}
	slog.Info("scheduled_finalize", "week_id", res.WeekID, "already_finalized", res.AlreadyFinalized, "entries", len(res.Created))
}

// RunRollover creates the new week and backs up the ledger. Errors are logged, never returned.
func (s *Scheduler) RunRollover(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	res, err := orchestrators.ExecuteEnsureWeek(ctx, s.deps.EnsureWeek())
	if err != nil {
		slog.Error("scheduled_rollover_failed", "error", err)
		return
	}
	slog.Info("scheduled_rollover", "week_id", res.WeekID, "created", res.Created, "backup", res.BackupKey)
}

// RunRetryNotices resends queued fine notices. Errors are logged, never returned.
func (s *Scheduler) RunRetryNotices(ctx context.Context) {
	if s.deps.RetryNotices == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	if _, err := orchestrators.ExecuteRetryNotices(ctx, s.deps.RetryNotices()); err != nil {
		slog.Error("scheduled_retry_failed", "error", err)
	}
}

// slogLogger adapts cron's logger interface to slog.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron_"+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron_"+msg, append([]any{"error", err}, keysAndValues...)...)
}
