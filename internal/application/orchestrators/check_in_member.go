package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fineclub/internal/application/apperr"
	"fineclub/internal/domain/member"
	"fineclub/internal/domain/week"

	"connectrpc.com/connect"
)

// CheckInMemberInput carries input for the check-in orchestrator.
type CheckInMemberInput struct {
	MemberID string
}

// CheckInMemberResult reports the recorded visit.
type CheckInMemberResult struct {
	WeekID string
	Date   string // RFC3339 in the club timezone
}

// CheckInMemberDeps holds dependencies for CheckInMember.
type CheckInMemberDeps struct {
	Roster    RosterReader
	WeekStore WeekStore
	Location  *time.Location
	Now       func() time.Time
	Lock      sync.Locker     // shared with every other mutating orchestrator
	Metrics   CheckInRecorder // optional: nil skips counting
}

// ExecuteCheckInMember records a visit for an active member in the current week.
// PRE: MemberID identifies an active roster member
// POST: The current week gains one check-in dated now, and is created if it did not exist
// INVARIANT: At most one check-in per member per calendar day; finalized weeks are never modified
func ExecuteCheckInMember(ctx context.Context, input CheckInMemberInput, deps CheckInMemberDeps) (CheckInMemberResult, error) {
	memberID := strings.TrimSpace(input.MemberID)
	if memberID == "" {
		return CheckInMemberResult{}, apperr.Wrap(connect.CodeInvalidArgument, week.ErrMemberRequired)
	}

	roster, err := deps.Roster.Load(ctx)
	if err != nil {
		return CheckInMemberResult{}, apperr.Internal("load roster", err)
	}
	if _, err := roster.FindActive(memberID); err != nil {
		return CheckInMemberResult{}, apperr.Wrap(connect.CodeNotFound, member.ErrNotFound)
	}

	loc := zone(deps.Location)
	now := clock(deps.Now).In(loc)
	bounds := week.Current(now, loc)

	release := acquire(deps.Lock)
	defer release()

	w, _, err := loadOrNewWeek(ctx, deps.WeekStore, bounds)
	if err != nil {
		return CheckInMemberResult{}, apperr.Internal("load week", err)
	}

	c, err := w.AddCheckIn(memberID, now)
	switch {
	case errors.Is(err, week.ErrFinalized):
		return CheckInMemberResult{}, apperr.Wrap(connect.CodeFailedPrecondition, err)
	case errors.Is(err, week.ErrDuplicateDay):
		return CheckInMemberResult{}, apperr.Wrap(connect.CodeAlreadyExists, err)
	case err != nil:
		return CheckInMemberResult{}, apperr.Wrap(connect.CodeInvalidArgument, err)
	}

	if err := deps.WeekStore.Save(ctx, w); err != nil {
		return CheckInMemberResult{}, apperr.Internal("save week", err)
	}

	if deps.Metrics != nil {
		deps.Metrics.CheckedIn()
	}
	slog.Info("checkin_event", "event", "member_checked_in", "member_id", memberID, "week_id", bounds.ID, "date", c.Date)

	return CheckInMemberResult{WeekID: bounds.ID, Date: c.Date}, nil
}
