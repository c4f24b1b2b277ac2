package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	emailAdapter "fineclub/internal/adapters/email"
	"fineclub/internal/domain/outbox"
)

// Retry backoff defaults: 2^attempts * base, capped.
const (
	DefaultRetryBaseDelay = time.Minute
	DefaultRetryMaxDelay  = time.Hour
	retryBatchLimit       = 100
)

// RetryNoticesResult counts what one retry pass did.
type RetryNoticesResult struct {
	Processed int
	Succeeded int
	Failed    int
}

// RetryNoticesDeps holds dependencies for RetryNotices.
type RetryNoticesDeps struct {
	Outbox    NoticeOutbox
	Sender    emailAdapter.Sender
	Now       func() time.Time
	BaseDelay time.Duration // optional: defaults to DefaultRetryBaseDelay
	MaxDelay  time.Duration // optional: defaults to DefaultRetryMaxDelay
}

// ExecuteRetryNotices resends queued fine notices whose backoff has elapsed.
// PRE: Deps are valid
// POST: Every due entry was attempted once and its new state saved
func ExecuteRetryNotices(ctx context.Context, deps RetryNoticesDeps) (RetryNoticesResult, error) {
	entries, err := deps.Outbox.ListPending(ctx, retryBatchLimit)
	if err != nil {
		return RetryNoticesResult{}, fmt.Errorf("list pending notices: %w", err)
	}

	base, maxDelay := deps.BaseDelay, deps.MaxDelay
	if base <= 0 {
		base = DefaultRetryBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultRetryMaxDelay
	}
	now := clock(deps.Now)

	var result RetryNoticesResult
	for _, entry := range entries {
		if !entry.Due(now, base, maxDelay) {
			slog.Debug("outbox_retry_skipped_backoff", "entry_id", entry.ID)
			continue
		}
		result.Processed++

		entry.MarkAttempt(now)
		if err := resendNotices(ctx, deps.Sender, entry); err != nil {
			entry.MarkFailed(err)
			result.Failed++
			slog.Warn("outbox_retry_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "status", entry.Status, "error", err)
		} else {
			entry.MarkSuccess()
			result.Succeeded++
			slog.Info("outbox_retry_succeeded", "entry_id", entry.ID, "attempt", entry.Attempts)
		}

		if err := deps.Outbox.Save(ctx, entry); err != nil {
			return result, fmt.Errorf("save outbox entry %s: %w", entry.ID, err)
		}
	}

	if result.Processed > 0 {
		slog.Info("outbox_retry_complete", "processed", result.Processed, "succeeded", result.Succeeded, "failed", result.Failed)
	}
	return result, nil
}

func resendNotices(ctx context.Context, sender emailAdapter.Sender, entry outbox.Entry) error {
	if entry.Kind != outbox.KindFineNotice {
		return fmt.Errorf("unknown outbox kind %q", entry.Kind)
	}
	var reqs []emailAdapter.SendRequest
	if err := json.Unmarshal([]byte(entry.Payload), &reqs); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	_, err := sender.SendBatch(ctx, reqs)
	return err
}
