package outbox

import (
	"errors"
	"time"
)

// Status constants for outbox entry lifecycle.
const (
	StatusPending  = "pending"
	StatusRetrying = "retrying"
	StatusDone     = "done"
	StatusFailed   = "failed"
)

// KindFineNotice is a batch of fine notice emails.
const KindFineNotice = "fine_notice"

// DefaultMaxAttempts bounds retries when an entry does not set its own limit.
const DefaultMaxAttempts = 5

// Domain errors.
var (
	ErrEmptyKind    = errors.New("kind is required")
	ErrEmptyPayload = errors.New("payload is required")
)

// Entry is one deferred external action.
type Entry struct {
	ID              string    `json:"id"`
	Kind            string    `json:"kind"`
	Payload         string    `json:"payload"` // JSON, replayed as-is
	Status          string    `json:"status"`
	Attempts        int       `json:"attempts"`
	MaxAttempts     int       `json:"maxAttempts"`
	LastAttemptedAt time.Time `json:"lastAttemptedAt,omitzero"`
	CreatedAt       time.Time `json:"createdAt"`
	LastError       string    `json:"lastError,omitempty"`
}

// New builds a pending entry.
// PRE: id, kind and payload are non-empty
// POST: Returns a valid pending entry or a validation error
func New(id, kind, payload string, now time.Time) (Entry, error) {
	e := Entry{
		ID:          id,
		Kind:        kind,
		Payload:     payload,
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
	}
	return e, e.Validate()
}

// Validate checks that the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Entry) Validate() error {
	if e.ID == "" {
		return errors.New("id is required")
	}
	if e.Kind == "" {
		return ErrEmptyKind
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	return nil
}

func (e *Entry) maxAttempts() int {
	if e.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return e.MaxAttempts
}

// CanRetry reports whether another attempt is allowed.
func (e *Entry) CanRetry() bool {
	return (e.Status == StatusPending || e.Status == StatusRetrying) && e.Attempts < e.maxAttempts()
}

// IsTerminal reports whether the entry will never be attempted again.
func (e *Entry) IsTerminal() bool {
	return e.Status == StatusDone || e.Status == StatusFailed
}

// MarkAttempt records an attempt.
// PRE: CanRetry is true
// POST: Attempts incremented, LastAttemptedAt is now, status retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSuccess marks the entry done.
func (e *Entry) MarkSuccess() {
	e.Status = StatusDone
	e.LastError = ""
}

// MarkFailed records an error. The entry fails permanently once attempts are used up.
// POST: LastError set; Status is failed when Attempts >= MaxAttempts
func (e *Entry) MarkFailed(err error) {
	e.LastError = err.Error()
	if e.Attempts >= e.maxAttempts() {
		e.Status = StatusFailed
	}
}

// NextRetryDelay returns 2^attempts * baseDelay, capped at maxDelay.
func (e *Entry) NextRetryDelay(baseDelay, maxDelay time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return maxDelay
	}
	delay := baseDelay * (1 << e.Attempts)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}

// Due reports whether the entry may be attempted at now.
// INVARIANT: A never-attempted entry is always due while retryable
func (e *Entry) Due(now time.Time, baseDelay, maxDelay time.Duration) bool {
	if !e.CanRetry() {
		return false
	}
	if e.LastAttemptedAt.IsZero() {
		return true
	}
	return !now.Before(e.LastAttemptedAt.Add(e.NextRetryDelay(baseDelay, maxDelay)))
}
