package projections

import (
	"context"
	"strings"

	"fineclub/internal/application/apperr"
	"fineclub/internal/domain/ledger"

	"connectrpc.com/connect"
)

// GetLedgerQuery carries the ledger filters and view mode.
type GetLedgerQuery struct {
	WeekID     string
	MemberID   string
	Summary    string // "", "member" or "week"
	UnpaidOnly bool
}

// GetLedgerResult holds exactly one of the three views, selected by Summary.
type GetLedgerResult struct {
	Summary string
	Entries []ledger.Row
	Members []ledger.MemberSummary
	Weeks   []ledger.WeekSummary
}

// GetLedgerDeps holds dependencies for GetLedger.
type GetLedgerDeps struct {
	LedgerStore LedgerReader
}

// QueryGetLedger returns filtered ledger rows, raw or summarized.
// PRE: Summary is empty, "member" or "week"
// POST: Totals are recomputed from payments; the stored ledger is never modified
func QueryGetLedger(ctx context.Context, query GetLedgerQuery, deps GetLedgerDeps) (GetLedgerResult, error) {
	mode := strings.TrimSpace(query.Summary)
	switch mode {
	case ledger.SummaryNone, ledger.SummaryMember, ledger.SummaryWeek:
	default:
		return GetLedgerResult{}, apperr.Wrap(connect.CodeInvalidArgument, ledger.ErrInvalidSummary)
	}

	l, err := deps.LedgerStore.Load(ctx)
	if err != nil {
		return GetLedgerResult{}, apperr.Internal("load ledger", err)
	}
	rows := l.Rows(ledger.Filter{
		WeekID:     strings.TrimSpace(query.WeekID),
		MemberID:   strings.TrimSpace(query.MemberID),
		UnpaidOnly: query.UnpaidOnly,
	})

	result := GetLedgerResult{Summary: mode}
	switch mode {
	case ledger.SummaryMember:
		result.Members = ledger.SummarizeByMember(rows)
	case ledger.SummaryWeek:
		result.Weeks = ledger.SummarizeByWeek(rows)
	default:
		result.Entries = rows
	}
	return result, nil
}
