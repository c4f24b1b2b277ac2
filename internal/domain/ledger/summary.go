package ledger

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// Summary modes
const (
	SummaryNone   = ""
	SummaryMember = "member"
	SummaryWeek   = "week"
)

// ErrInvalidSummary is returned for an unknown summary mode.
var ErrInvalidSummary = errors.New(`invalid summary (use "member" or "week")`)

// Filter selects ledger rows. Empty fields match everything.
type Filter struct {
	WeekID     string
	MemberID   string
	UnpaidOnly bool
}

// Row is an entry together with its freshly computed totals.
type Row struct {
	Entry
	Totals
}

// Rows computes totals for every entry, applies the filter and sorts
// newest week first, then by member id.
// INVARIANT: The ledger is not mutated
func (l *Ledger) Rows(f Filter) []Row {
	rows := make([]Row, 0, len(l.Entries))
	for _, e := range l.Entries {
		if f.WeekID != "" && e.WeekID != f.WeekID {
			continue
		}
		if f.MemberID != "" && e.MemberID != f.MemberID {
			continue
		}
		totals := e.Totals()
		if f.UnpaidOnly && !totals.Outstanding.IsPositive() {
			continue
		}
		rows = append(rows, Row{Entry: e, Totals: totals})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].WeekID != rows[j].WeekID {
			return rows[i].WeekID > rows[j].WeekID
		}
		return rows[i].MemberID < rows[j].MemberID
	})
	return rows
}

// MemberSummary aggregates all fines of one member.
type MemberSummary struct {
	MemberID     string          `json:"memberId"`
	TotalDeficit int             `json:"totalDeficit"`
	TotalFine    decimal.Decimal `json:"totalFine"`
	TotalPaid    decimal.Decimal `json:"totalPaid"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	FullyPaid    bool            `json:"fullyPaid"`
	Weeks        []string        `json:"weeks"`
}

// SummarizeByMember groups rows per member, sorted by member id.
func SummarizeByMember(rows []Row) []MemberSummary {
	byMember := make(map[string]*MemberSummary)
	weeks := make(map[string]map[string]struct{})
	for _, r := range rows {
		s, ok := byMember[r.MemberID]
		if !ok {
			s = &MemberSummary{MemberID: r.MemberID}
			byMember[r.MemberID] = s
			weeks[r.MemberID] = make(map[string]struct{})
		}
		s.TotalDeficit += r.Deficit
		s.TotalFine = s.TotalFine.Add(r.Fine)
		s.TotalPaid = s.TotalPaid.Add(r.TotalPaid)
		s.Outstanding = s.Outstanding.Add(r.Outstanding)
		weeks[r.MemberID][r.WeekID] = struct{}{}
	}

	out := make([]MemberSummary, 0, len(byMember))
	for id, s := range byMember {
		s.FullyPaid = s.Outstanding.IsZero()
		s.Weeks = make([]string, 0, len(weeks[id]))
		for w := range weeks[id] {
			s.Weeks = append(s.Weeks, w)
		}
		sort.Strings(s.Weeks)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out
}

// WeekSummary aggregates all fines of one week.
type WeekSummary struct {
	WeekID         string          `json:"weekId"`
	TotalDeficit   int             `json:"totalDeficit"`
	TotalFine      decimal.Decimal `json:"totalFine"`
	TotalPaid      decimal.Decimal `json:"totalPaid"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	MembersCount   int             `json:"membersCount"`
	FullyPaidCount int             `json:"fullyPaidCount"`
}

// SummarizeByWeek groups rows per week, newest week first.
func SummarizeByWeek(rows []Row) []WeekSummary {
	byWeek := make(map[string]*WeekSummary)
	members := make(map[string]map[string]struct{})
	for _, r := range rows {
		s, ok := byWeek[r.WeekID]
		if !ok {
			s = &WeekSummary{WeekID: r.WeekID}
			byWeek[r.WeekID] = s
			members[r.WeekID] = make(map[string]struct{})
		}
		s.TotalDeficit += r.Deficit
		s.TotalFine = s.TotalFine.Add(r.Fine)
		s.TotalPaid = s.TotalPaid.Add(r.TotalPaid)
		s.Outstanding = s.Outstanding.Add(r.Outstanding)
		members[r.WeekID][r.MemberID] = struct{}{}
		if r.FullyPaid {
			s.FullyPaidCount++
		}
	}

	out := make([]WeekSummary, 0, len(byWeek))
	for id, s := range byWeek {
		s.MembersCount = len(members[id])
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekID > out[j].WeekID })
	return out
}
