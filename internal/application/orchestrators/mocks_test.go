package orchestrators

import (
	"context"
	"errors"
	"sync"
	"time"

	"fineclub/internal/domain/ledger"
	"fineclub/internal/domain/member"
	"fineclub/internal/domain/week"

	"github.com/shopspring/decimal"
)

var (
	kst = time.FixedZone("KST", 9*60*60)
	// Wednesday of 2025-W02 (Mon 2025-01-06 .. Sun 2025-01-12).
	wednesday = time.Date(2025, 1, 8, 10, 0, 0, 0, kst)
)

func nowAt(t time.Time) func() time.Time { return func() time.Time { return t } }

var errStoreDown = errors.New("store down")

type mockRoster struct {
	roster member.Roster
	err    error
}

// Load returns the seeded roster.
// PRE: none
// POST: Returns roster or the seeded error
func (m *mockRoster) Load(_ context.Context) (member.Roster, error) {
	return m.roster, m.err
}

func rosterOf(members ...member.Member) *mockRoster {
	return &mockRoster{roster: member.Roster{Members: members}}
}

type mockWeekStore struct {
	weeks   map[string]week.Week
	saves   int
	saveErr error
}

func newMockWeekStore() *mockWeekStore {
	return &mockWeekStore{weeks: make(map[string]week.Week)}
}

// Get returns a stored week.
// PRE: weekID is non-empty
// POST: found is false when nothing was saved under weekID
func (m *mockWeekStore) Get(_ context.Context, weekID string) (week.Week, bool, error) {
	w, ok := m.weeks[weekID]
	if !ok {
		return week.Week{}, false, nil
	}
	w.Checkins = append([]week.CheckIn(nil), w.Checkins...)
	return w, true, nil
}

// Save stores a week.
// PRE: w.WeekID is non-empty
// POST: week persisted unless saveErr is set
func (m *mockWeekStore) Save(_ context.Context, w week.Week) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.weeks[w.WeekID] = w
	return nil
}

type mockLedgerStore struct {
	ledger  ledger.Ledger
	saves   int
	backups []time.Time
	exists  bool
	saveErr error
}

// Load returns a copy of the stored ledger.
// PRE: none
// POST: Returns the ledger; entries are copied so callers cannot mutate storage
func (m *mockLedgerStore) Load(_ context.Context) (ledger.Ledger, error) {
	entries := make([]ledger.Entry, len(m.ledger.Entries))
	for i, e := range m.ledger.Entries {
		e.Payments = append([]ledger.Payment(nil), e.Payments...)
		entries[i] = e
	}
	return ledger.Ledger{Entries: entries}, nil
}

// Save replaces the stored ledger.
// PRE: none
// POST: ledger persisted unless saveErr is set
func (m *mockLedgerStore) Save(_ context.Context, l ledger.Ledger) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.exists = true
	m.ledger = l
	return nil
}

// Backup records a snapshot request.
// PRE: none
// POST: ok is true only when a ledger has been saved
func (m *mockLedgerStore) Backup(_ context.Context, at time.Time) (string, bool, error) {
	if !m.exists {
		return "", false, nil
	}
	m.backups = append(m.backups, at)
	return "backups/" + at.UTC().Format("20060102") + "-ledger", true, nil
}

type countingLock struct {
	sync.Mutex
	locks int
}

// Lock counts acquisitions.
// PRE: none
// POST: mutex held
func (c *countingLock) Lock() {
	c.Mutex.Lock()
	c.locks++
}

type mockMetrics struct {
	checkIns   int
	finalized  []bool
	entries    int
	fineTotal  decimal.Decimal
	payments   int
	paidAmount decimal.Decimal
}

// CheckedIn implements CheckInRecorder.
func (m *mockMetrics) CheckedIn() { m.checkIns++ }

// WeekFinalized implements FinalizeRecorder.
func (m *mockMetrics) WeekFinalized(already bool, entries int, total decimal.Decimal) {
	m.finalized = append(m.finalized, already)
	m.entries += entries
	m.fineTotal = m.fineTotal.Add(total)
}

// PaymentRecorded implements PaymentRecorder.
func (m *mockMetrics) PaymentRecorded(amount decimal.Decimal) {
	m.payments++
	m.paidAmount = m.paidAmount.Add(amount)
}
