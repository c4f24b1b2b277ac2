package orchestrators

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fineclub/internal/application/apperr"
	"fineclub/internal/domain/week"
)

// EnsureWeekResult reports whether a new week document was started.
type EnsureWeekResult struct {
	WeekID    string
	Created   bool
	BackupKey string // empty when no ledger existed or the week was already present
}

// EnsureWeekDeps holds dependencies for EnsureWeek.
type EnsureWeekDeps struct {
	WeekStore WeekStore
	Backups   LedgerBackupStore
	Location  *time.Location
	Now       func() time.Time
	Lock      sync.Locker
}

// ExecuteEnsureWeek starts the current week if it has no document yet,
// snapshotting the ledger first.
// PRE: none
// POST: The current week document exists; a ledger backup was taken iff the week was created and a ledger existed
// INVARIANT: Idempotent within a week
func ExecuteEnsureWeek(ctx context.Context, deps EnsureWeekDeps) (EnsureWeekResult, error) {
	loc := zone(deps.Location)
	now := clock(deps.Now)
	bounds := week.Current(now, loc)

	release := acquire(deps.Lock)
	defer release()

	if _, found, err := deps.WeekStore.Get(ctx, bounds.ID); err != nil {
		return EnsureWeekResult{}, apperr.Internal("load week", err)
	} else if found {
		return EnsureWeekResult{WeekID: bounds.ID}, nil
	}

	key, ok, err := deps.Backups.Backup(ctx, now)
	if err != nil {
		return EnsureWeekResult{}, apperr.Internal("backup ledger", err)
	}
	if !ok {
		key = ""
	}

	if err := deps.WeekStore.Save(ctx, week.New(bounds)); err != nil {
		return EnsureWeekResult{}, apperr.Internal("create week", err)
	}

	slog.Info("rollover_event", "event", "week_created", "week_id", bounds.ID, "backup", key)
	return EnsureWeekResult{WeekID: bounds.ID, Created: true, BackupKey: key}, nil
}
