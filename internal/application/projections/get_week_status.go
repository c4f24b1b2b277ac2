package projections

import (
	"context"
	"time"

	"fineclub/internal/application/apperr"
	"fineclub/internal/domain/week"
)

// GetWeekStatusResult is the current week's per-member distinct day counts.
type GetWeekStatusResult struct {
	WeekID    string         `json:"weekId"`
	Start     string         `json:"start"`
	End       string         `json:"end"`
	Finalized bool           `json:"finalized"`
	Today     string         `json:"today"`
	PerMember map[string]int `json:"perMember"`
}

// GetWeekStatusDeps holds dependencies for GetWeekStatus.
type GetWeekStatusDeps struct {
	WeekStore WeekReader
	Location  *time.Location
	Now       func() time.Time
}

// QueryGetWeekStatus reports the current week without creating it.
// PRE: none
// POST: A missing week reads as open with no visits
func QueryGetWeekStatus(ctx context.Context, deps GetWeekStatusDeps) (GetWeekStatusResult, error) {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now()
	if deps.Now != nil {
		now = deps.Now()
	}
	now = now.In(loc)
	b := week.Current(now, loc)

	w, found, err := deps.WeekStore.Get(ctx, b.ID)
	if err != nil {
		return GetWeekStatusResult{}, apperr.Internal("load week", err)
	}
	if !found {
		w = week.New(b)
	}

	return GetWeekStatusResult{
		WeekID:    b.ID,
		Start:     b.Start,
		End:       b.End,
		Finalized: w.Finalized,
		Today:     now.Format(week.DateLayout),
		PerMember: w.DistinctDays(),
	}, nil
}
