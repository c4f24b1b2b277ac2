package projections

import (
	"context"
	"time"

	"fineclub/internal/application/apperr"
	"fineclub/internal/domain/attendance"
	"fineclub/internal/domain/week"
)

// GetCurrentAttendanceResult is the live attendance board.
type GetCurrentAttendanceResult struct {
	WeekID       string                        `json:"weekId"`
	Start        string                        `json:"start"`
	End          string                        `json:"end"`
	Finalized    bool                          `json:"finalized"`
	TotalMembers int                           `json:"totalMembers"`
	CheckedIn    int                           `json:"checkedIn"`
	List         []attendance.MemberAttendance `json:"list"`
}

// GetCurrentAttendanceDeps holds dependencies for GetCurrentAttendance.
type GetCurrentAttendanceDeps struct {
	Roster    RosterReader
	WeekStore WeekReader
	Location  *time.Location
	Now       func() time.Time
}

// QueryGetCurrentAttendance reconciles the current week document, whatever its
// shape, into one row per active member.
// PRE: none
// POST: Every active member has a row; unreadable week data yields zero counts
func QueryGetCurrentAttendance(ctx context.Context, deps GetCurrentAttendanceDeps) (GetCurrentAttendanceResult, error) {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now()
	if deps.Now != nil {
		now = deps.Now()
	}
	b := week.Current(now, loc)

	roster, err := deps.Roster.Load(ctx)
	if err != nil {
		return GetCurrentAttendanceResult{}, apperr.Internal("load roster", err)
	}
	rec, _, err := deps.WeekStore.GetRecord(ctx, b.ID)
	if err != nil {
		return GetCurrentAttendanceResult{}, apperr.Internal("load week", err)
	}

	active := roster.Active()
	list := attendance.Normalize(rec, active)
	return GetCurrentAttendanceResult{
		WeekID:       b.ID,
		Start:        stringOr(rec["start"], b.Start),
		End:          stringOr(rec["end"], b.End),
		Finalized:    rec["finalized"] == true,
		TotalMembers: len(active),
		CheckedIn:    attendance.CheckedIn(list),
		List:         list,
	}, nil
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}
