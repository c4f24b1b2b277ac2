package projections

import (
	"context"
	"testing"

	"fineclub/internal/domain/member"
)

// TestQueryGetActiveMembers_FiltersInactive verifies inactive members are hidden.
func TestQueryGetActiveMembers_FiltersInactive(t *testing.T) {
	got, err := QueryGetActiveMembers(context.Background(), GetActiveMembersDeps{Roster: &mockRoster{roster: member.Roster{Members: []member.Member{
		{ID: "u01", Active: true},
		{ID: "u02", Active: false},
		{ID: "u03", Active: true},
	}}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "u01" || got[1].ID != "u03" {
		t.Errorf("unexpected members %+v", got)
	}
}
