package projections

import (
	"context"
	"errors"
	"time"

	"fineclub/internal/domain/attendance"
	"fineclub/internal/domain/ledger"
	"fineclub/internal/domain/member"
	"fineclub/internal/domain/week"
)

var (
	kst = time.FixedZone("KST", 9*60*60)
	// Late Sunday UTC is already Monday of 2025-W03 in KST.
	sundayUTC = time.Date(2025, 1, 12, 16, 30, 0, 0, time.UTC)
)

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

type mockWeekReader struct {
	weeks   map[string]week.Week
	records map[string]attendance.Record
}

// Get returns a seeded week.
// PRE: weekID is non-empty
// POST: found is false for unknown ids
func (m *mockWeekReader) Get(_ context.Context, weekID string) (week.Week, bool, error) {
	w, ok := m.weeks[weekID]
	return w, ok, nil
}

// GetRecord returns a seeded raw record.
// PRE: weekID is non-empty
// POST: Unknown ids yield an empty record and found=false
func (m *mockWeekReader) GetRecord(_ context.Context, weekID string) (attendance.Record, bool, error) {
	rec, ok := m.records[weekID]
	if !ok {
		return attendance.Record{}, false, nil
	}
	return rec, true, nil
}

type mockLedgerReader struct {
	ledger ledger.Ledger
	err    error
}

// Load returns the seeded ledger.
// PRE: none
// POST: Returns ledger or the seeded error
func (m *mockLedgerReader) Load(_ context.Context) (ledger.Ledger, error) {
	return m.ledger, m.err
}
