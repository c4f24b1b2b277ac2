package projections

import (
	"context"

	"fineclub/internal/domain/attendance"
	"fineclub/internal/domain/ledger"
	"fineclub/internal/domain/member"
	"fineclub/internal/domain/week"
)

// RosterReader loads the member roster.
type RosterReader interface {
	Load(ctx context.Context) (member.Roster, error)
}

// WeekReader reads stored weeks, typed or as raw records.
type WeekReader interface {
	Get(ctx context.Context, weekID string) (week.Week, bool, error)
	GetRecord(ctx context.Context, weekID string) (attendance.Record, bool, error)
}

// LedgerReader loads the ledger.
type LedgerReader interface {
	Load(ctx context.Context) (ledger.Ledger, error)
}
