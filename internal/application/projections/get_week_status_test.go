package projections

import (
	"context"
	"testing"
	"time"

	"fineclub/internal/domain/week"
)

// TestQueryGetWeekStatus_CountsDistinctDays verifies same-day visits count once.
func TestQueryGetWeekStatus_CountsDistinctDays(t *testing.T) {
	reader := &mockWeekReader{weeks: map[string]week.Week{
		"2025-W03": {WeekID: "2025-W03", Checkins: []week.CheckIn{
			{MemberID: "u01", Date: "2025-01-13T01:00:00+09:00"},
			{MemberID: "u01", Date: "2025-01-13T20:00:00+09:00"},
			{MemberID: "u02", Date: "2025-01-13T09:00:00+09:00"},
		}},
	}}

	res, err := QueryGetWeekStatus(context.Background(), GetWeekStatusDeps{
		WeekStore: reader, Location: kst, Now: func() time.Time { return sundayUTC },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.WeekID != "2025-W03" || res.Start != "2025-01-13" || res.End != "2025-01-19" {
		t.Errorf("unexpected week %+v", res)
	}
	if res.Today != "2025-01-13" {
		t.Errorf("expected today in club timezone, got %s", res.Today)
	}
	if res.PerMember["u01"] != 1 || res.PerMember["u02"] != 1 {
		t.Errorf("unexpected perMember %v", res.PerMember)
	}
}

// TestQueryGetWeekStatus_MissingWeek verifies an absent document reads as an empty open week.
func TestQueryGetWeekStatus_MissingWeek(t *testing.T) {
	res, err := QueryGetWeekStatus(context.Background(), GetWeekStatusDeps{
		WeekStore: &mockWeekReader{}, Location: kst, Now: func() time.Time { return sundayUTC },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Finalized || res.PerMember == nil || len(res.PerMember) != 0 {
		t.Errorf("expected empty open week, got %+v", res)
	}
}
