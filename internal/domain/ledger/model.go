package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Business rule constants
const (
	RequiredVisits = 4
	finePerVisit   = 10000
)

// FinePerVisit is the fine charged for each missing visit day.
var FinePerVisit = decimal.NewFromInt(finePerVisit)

// Domain errors
var (
	ErrEntryNotFound     = errors.New("ledger entry not found (check weekId & memberId)")
	ErrNonPositiveAmount = errors.New("paidAmount must be a positive number")
	ErrMethodRequired    = errors.New("method is required (e.g., cash, transfer)")
)

func init() {
	// Amounts render as JSON numbers, matching the stored document format.
	decimal.MarshalJSONWithoutQuotes = true
}

// Payment is one recorded payment against a fine.
type Payment struct {
	ID     string          `json:"id,omitempty"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	Note   string          `json:"note"`
	PaidAt string          `json:"paidAt"`
}

// Validate checks if the Payment has valid data.
// PRE: Payment struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Amount > 0 and Method is non-empty
func (p *Payment) Validate() error {
	if !p.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if p.Method == "" {
		return ErrMethodRequired
	}
	return nil
}

// Entry is the fine issued to one member for one week.
type Entry struct {
	WeekID      string          `json:"weekId"`
	MemberID    string          `json:"memberId"`
	Deficit     int             `json:"deficit"`
	Fine        decimal.Decimal `json:"fine"`
	FinalizedAt string          `json:"finalizedAt"`
	Payments    []Payment       `json:"payments,omitempty"`
}

// Deficit returns the number of visits short of the weekly requirement.
func Deficit(distinctDays int) int {
	if distinctDays >= RequiredVisits {
		return 0
	}
	if distinctDays < 0 {
		return RequiredVisits
	}
	return RequiredVisits - distinctDays
}

// NewEntry builds the fine for a member who visited distinctDays times.
// POST: ok is false when there is no deficit and nothing should be recorded
// INVARIANT: Fine == Deficit * FinePerVisit
func NewEntry(weekID, memberID string, distinctDays int, finalizedAt time.Time) (Entry, bool) {
	deficit := Deficit(distinctDays)
	if deficit == 0 {
		return Entry{}, false
	}
	return Entry{
		WeekID:      weekID,
		MemberID:    memberID,
		Deficit:     deficit,
		Fine:        FinePerVisit.Mul(decimal.NewFromInt(int64(deficit))),
		FinalizedAt: finalizedAt.UTC().Format(time.RFC3339Nano),
	}, true
}

// Totals holds the derived balance of an entry.
type Totals struct {
	TotalPaid   decimal.Decimal `json:"totalPaid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	FullyPaid   bool            `json:"fullyPaid"`
}

// Totals recomputes paid and outstanding amounts from the payment list.
// INVARIANT: Outstanding = max(0, Fine - sum(Payments.Amount)); independent of payment order
func (e *Entry) Totals() Totals {
	paid := decimal.Zero
	for _, p := range e.Payments {
		paid = paid.Add(p.Amount)
	}
	outstanding := e.Fine.Sub(paid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	return Totals{
		TotalPaid:   paid,
		Outstanding: outstanding,
		FullyPaid:   outstanding.IsZero(),
	}
}

// Ledger is the full list of fines.
type Ledger struct {
	Entries []Entry `json:"entries"`
}

// Has reports whether an entry exists for the week/member pair.
func (l *Ledger) Has(weekID, memberID string) bool {
	return l.indexOf(weekID, memberID) >= 0
}

// Append adds a new entry unless the pair already exists.
// POST: Returns false and leaves the ledger unchanged for a duplicate pair
// INVARIANT: (WeekID, MemberID) is unique across Entries
func (l *Ledger) Append(e Entry) bool {
	if l.Has(e.WeekID, e.MemberID) {
		return false
	}
	l.Entries = append(l.Entries, e)
	return true
}

// AddPayment appends a payment to the matching entry.
// PRE: p has been validated
// POST: Returns the updated entry, or ErrEntryNotFound
// INVARIANT: Payments are append-only
func (l *Ledger) AddPayment(weekID, memberID string, p Payment) (Entry, error) {
	i := l.indexOf(weekID, memberID)
	if i < 0 {
		return Entry{}, ErrEntryNotFound
	}
	l.Entries[i].Payments = append(l.Entries[i].Payments, p)
	return l.Entries[i], nil
}

func (l *Ledger) indexOf(weekID, memberID string) int {
	for i, e := range l.Entries {
		if e.WeekID == weekID && e.MemberID == memberID {
			return i
		}
	}
	return -1
}
