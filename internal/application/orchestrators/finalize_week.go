package orchestrators

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fineclub/internal/application/apperr"
	"fineclub/internal/domain/ledger"
	"fineclub/internal/domain/week"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
)

// FinalizeWeekInput carries input for week finalization.
type FinalizeWeekInput struct {
	WeekID string // optional: empty finalizes the current week
}

// FinalizeWeekResult reports what finalization did.
type FinalizeWeekResult struct {
	WeekID           string
	AlreadyFinalized bool
	Created          []ledger.Entry
}

// FinalizeWeekDeps holds dependencies for FinalizeWeek.
type FinalizeWeekDeps struct {
	Roster      RosterReader
	WeekStore   WeekStore
	LedgerStore LedgerStore
	Location    *time.Location
	Now         func() time.Time
	Lock        sync.Locker
	Metrics     FinalizeRecorder // optional: nil skips counting
	NotifyDeps  *NotifyFinesDeps // optional: nil skips fine notices
}

// ExecuteFinalizeWeek closes a week and issues fines for attendance deficits.
// PRE: WeekID, when set, is a well-formed id of the current or a past week
// POST: The week is finalized and the ledger holds one entry per active member with a deficit
// INVARIANT: Idempotent; a second run on a finalized week changes nothing
func ExecuteFinalizeWeek(ctx context.Context, input FinalizeWeekInput, deps FinalizeWeekDeps) (FinalizeWeekResult, error) {
	loc := zone(deps.Location)
	now := clock(deps.Now).In(loc)
	current := week.Current(now, loc)

	bounds := current
	if id := strings.TrimSpace(input.WeekID); id != "" {
		b, err := week.BoundsOf(id, loc)
		if err != nil {
			return FinalizeWeekResult{}, apperr.Wrap(connect.CodeInvalidArgument, err)
		}
		if b.ID > current.ID {
			return FinalizeWeekResult{}, apperr.FailedPrecondition("cannot finalize a future week")
		}
		bounds = b
	}

	result, err := finalizeLocked(ctx, bounds, now, deps)
	if err != nil {
		return FinalizeWeekResult{}, err
	}

	total := decimal.Zero
	for _, e := range result.Created {
		total = total.Add(e.Fine)
	}
	if deps.Metrics != nil {
		deps.Metrics.WeekFinalized(result.AlreadyFinalized, len(result.Created), total)
	}
	if result.AlreadyFinalized {
		slog.Info("finalize_event", "event", "week_already_finalized", "week_id", bounds.ID)
		return result, nil
	}
	slog.Info("finalize_event", "event", "week_finalized", "week_id", bounds.ID, "entries", len(result.Created), "total_fine", total.String())

	if deps.NotifyDeps != nil && len(result.Created) > 0 {
		if _, err := ExecuteNotifyFines(ctx, NotifyFinesInput{Entries: result.Created}, *deps.NotifyDeps); err != nil {
			slog.Warn("fine_notice_failed", "week_id", bounds.ID, "error", err)
		}
	}
	return result, nil
}

// finalizeLocked does the read-modify-write under the mutation lock.
// The ledger is written before the week so that a failure between the two
// writes leaves the week open and a retry skips the entries already created.
func finalizeLocked(ctx context.Context, bounds week.Bounds, now time.Time, deps FinalizeWeekDeps) (FinalizeWeekResult, error) {
	release := acquire(deps.Lock)
	defer release()

	w, _, err := loadOrNewWeek(ctx, deps.WeekStore, bounds)
	if err != nil {
		return FinalizeWeekResult{}, apperr.Internal("load week", err)
	}
	if w.Finalized {
		return FinalizeWeekResult{WeekID: bounds.ID, AlreadyFinalized: true, Created: []ledger.Entry{}}, nil
	}

	roster, err := deps.Roster.Load(ctx)
	if err != nil {
		return FinalizeWeekResult{}, apperr.Internal("load roster", err)
	}
	l, err := deps.LedgerStore.Load(ctx)
	if err != nil {
		return FinalizeWeekResult{}, apperr.Internal("load ledger", err)
	}

	days := w.DistinctDays()
	created := []ledger.Entry{}
	for _, m := range roster.Active() {
		entry, ok := ledger.NewEntry(bounds.ID, m.ID, days[m.ID], now)
		if !ok {
			continue
		}
		if l.Append(entry) {
			created = append(created, entry)
		}
	}

	if len(created) > 0 {
		if err := deps.LedgerStore.Save(ctx, l); err != nil {
			return FinalizeWeekResult{}, apperr.Internal("save ledger", err)
		}
	}
	if err := w.Finalize(); err != nil {
		return FinalizeWeekResult{}, apperr.Internal("finalize week", err)
	}
	if err := deps.WeekStore.Save(ctx, w); err != nil {
		return FinalizeWeekResult{}, apperr.Internal("save week", err)
	}
	return FinalizeWeekResult{WeekID: bounds.ID, Created: created}, nil
}
