package orchestrators

import (
	"context"
	"sync"
	"time"

	"fineclub/internal/domain/ledger"
	"fineclub/internal/domain/member"
	"fineclub/internal/domain/outbox"
	"fineclub/internal/domain/week"

	"github.com/shopspring/decimal"
)

// RosterReader loads the member roster.
type RosterReader interface {
	Load(ctx context.Context) (member.Roster, error)
}

// WeekStore defines the week persistence needed by orchestrators.
type WeekStore interface {
	Get(ctx context.Context, weekID string) (week.Week, bool, error)
	Save(ctx context.Context, w week.Week) error
}

// LedgerStore defines the ledger persistence needed by orchestrators.
type LedgerStore interface {
	Load(ctx context.Context) (ledger.Ledger, error)
	Save(ctx context.Context, l ledger.Ledger) error
}

// LedgerBackupStore snapshots the ledger document.
type LedgerBackupStore interface {
	Backup(ctx context.Context, at time.Time) (string, bool, error)
}

// NoticeOutbox queues notices that could not be delivered.
type NoticeOutbox interface {
	Enqueue(ctx context.Context, e outbox.Entry) error
	ListPending(ctx context.Context, limit int) ([]outbox.Entry, error)
	Save(ctx context.Context, e outbox.Entry) error
}

// CheckInRecorder counts successful check-ins.
type CheckInRecorder interface {
	CheckedIn()
}

// FinalizeRecorder counts finalize runs and the fines they issue.
type FinalizeRecorder interface {
	WeekFinalized(alreadyFinalized bool, entries int, total decimal.Decimal)
}

// PaymentRecorder counts recorded payments.
type PaymentRecorder interface {
	PaymentRecorded(amount decimal.Decimal)
}

// acquire takes the shared mutation lock and returns its release func.
// A nil lock means the caller runs unserialized.
func acquire(l sync.Locker) func() {
	if l == nil {
		return func() {}
	}
	l.Lock()
	return l.Unlock
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}

func zone(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// loadOrNewWeek reads a week, creating an empty one in memory when it does
// not exist yet. Stored weeks missing their bounds get them filled in.
func loadOrNewWeek(ctx context.Context, store WeekStore, b week.Bounds) (week.Week, bool, error) {
	w, found, err := store.Get(ctx, b.ID)
	if err != nil {
		return week.Week{}, false, err
	}
	if !found {
		return week.New(b), false, nil
	}
	if w.WeekID == "" {
		w.WeekID = b.ID
	}
	if w.Start == "" || w.End == "" {
		w.Start, w.End = b.Start, b.End
	}
	return w, true, nil
}
