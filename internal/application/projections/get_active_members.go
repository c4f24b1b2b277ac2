package projections

import (
	"context"

	"fineclub/internal/application/apperr"
	"fineclub/internal/domain/member"
)

// GetActiveMembersDeps holds dependencies for GetActiveMembers.
type GetActiveMembersDeps struct {
	Roster RosterReader
}

// QueryGetActiveMembers lists active members in roster order.
// POST: Never nil
func QueryGetActiveMembers(ctx context.Context, deps GetActiveMembersDeps) ([]member.Member, error) {
	roster, err := deps.Roster.Load(ctx)
	if err != nil {
		return nil, apperr.Internal("load roster", err)
	}
	return roster.Active(), nil
}
