package projections

import (
	"context"
	"testing"
	"time"

	"fineclub/internal/domain/attendance"
	"fineclub/internal/domain/member"
)

func boardDeps(records map[string]attendance.Record) GetCurrentAttendanceDeps {
	return GetCurrentAttendanceDeps{
		Roster: &mockRoster{roster: member.Roster{Members: []member.Member{
			{ID: "u01", Name: "Kim", Active: true},
			{ID: "u02", Active: true},
			{ID: "u03", Name: "Park", Active: false},
		}}},
		WeekStore: &mockWeekReader{records: records},
		Location:  kst,
		Now:       func() time.Time { return sundayUTC },
	}
}

// TestQueryGetCurrentAttendance_MixedShapes verifies dated and counter-only evidence are reconciled.
func TestQueryGetCurrentAttendance_MixedShapes(t *testing.T) {
	res, err := QueryGetCurrentAttendance(context.Background(), boardDeps(map[string]attendance.Record{
		"2025-W03": {
			"start":     "2025-01-13",
			"end":       "2025-01-19",
			"finalized": false,
			"checkins": []any{
				map[string]any{"memberId": "u01", "date": "2025-01-13T09:00:00+09:00"},
				map[string]any{"memberId": "u01", "date": "2025-01-14T09:00:00+09:00"},
			},
			"perMember": map[string]any{"u02": float64(3)},
		},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.WeekID != "2025-W03" || res.TotalMembers != 2 || res.CheckedIn != 2 {
		t.Errorf("unexpected header %+v", res)
	}
	if len(res.List) != 2 {
		t.Fatalf("expected active members only, got %+v", res.List)
	}
	kim, other := res.List[0], res.List[1]
	if kim.Count != 2 || kim.LastCheckedAt == nil || *kim.LastCheckedAt != "2025-01-14" {
		t.Errorf("unexpected row for u01 %+v", kim)
	}
	if other.Name != "u02" || other.Count != 3 || other.LastCheckedAt != nil || len(other.Dates) != 0 {
		t.Errorf("unexpected row for u02 %+v", other)
	}
}

// TestQueryGetCurrentAttendance_NoDocument verifies bounds fall back to the computed week.
func TestQueryGetCurrentAttendance_NoDocument(t *testing.T) {
	res, err := QueryGetCurrentAttendance(context.Background(), boardDeps(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Start != "2025-01-13" || res.End != "2025-01-19" || res.Finalized {
		t.Errorf("unexpected header %+v", res)
	}
	if res.CheckedIn != 0 {
		t.Errorf("expected nobody checked in, got %d", res.CheckedIn)
	}
	for _, row := range res.List {
		if row.Count != 0 || row.Dates == nil {
			t.Errorf("expected zero row with empty dates, got %+v", row)
		}
	}
}

// TestQueryGetCurrentAttendance_RosterFailure verifies storage faults are internal.
func TestQueryGetCurrentAttendance_RosterFailure(t *testing.T) {
	deps := boardDeps(nil)
	deps.Roster = &mockRoster{err: errStoreDown}
	if _, err := QueryGetCurrentAttendance(context.Background(), deps); err == nil {
		t.Fatal("expected error")
	}
}
