package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	emailAdapter "fineclub/internal/adapters/email"
	"fineclub/internal/domain/ledger"
	"fineclub/internal/domain/member"
)

type failingSender struct{}

// Send always fails.
// PRE: none
// POST: Returns an error
func (failingSender) Send(context.Context, emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	return emailAdapter.SendResult{}, errors.New("provider down")
}

// SendBatch always fails.
// PRE: none
// POST: Returns an error and no results
func (failingSender) SendBatch(context.Context, []emailAdapter.SendRequest) ([]emailAdapter.SendResult, error) {
	return nil, errors.New("provider down")
}

// TestExecuteNotifyFines_RendersNotice verifies the HTML body carries the deficit and fine.
func TestExecuteNotifyFines_RendersNotice(t *testing.T) {
	e, _ := ledger.NewEntry("2025-W02", "u01", 1, time.Now())
	sender := emailAdapter.NewNoopSender()

	res, err := ExecuteNotifyFines(context.Background(), NotifyFinesInput{Entries: []ledger.Entry{e}}, NotifyFinesDeps{
		Roster: rosterOf(member.Member{ID: "u01", Name: "Kim", Active: true, Email: "kim@example.com"}),
		Sender: sender,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 1 || res.Skipped != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	html := sender.Sent()[0].HTML
	for _, want := range []string{"Hi Kim", "<strong>2025-W02</strong>", "visited 1 of the required 4 days", "Missing days: 3", "<strong>30000</strong>"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in body %q", want, html)
		}
	}
	if sender.Sent()[0].Subject != "Attendance fine for 2025-W02" {
		t.Errorf("unexpected subject %q", sender.Sent()[0].Subject)
	}
}

// TestExecuteNotifyFines_SkipsWithoutEmail verifies members without an address are counted as skipped.
func TestExecuteNotifyFines_SkipsWithoutEmail(t *testing.T) {
	e1, _ := ledger.NewEntry("2025-W02", "u01", 0, time.Now())
	e2, _ := ledger.NewEntry("2025-W02", "ghost", 0, time.Now())
	sender := emailAdapter.NewNoopSender()

	res, err := ExecuteNotifyFines(context.Background(), NotifyFinesInput{Entries: []ledger.Entry{e1, e2}}, NotifyFinesDeps{
		Roster: rosterOf(member.Member{ID: "u01", Active: true}),
		Sender: sender,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 0 || res.Skipped != 2 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(sender.Sent()) != 0 {
		t.Error("expected nothing sent")
	}
}

// TestExecuteFinalizeWeek_NoticeFailureIsBestEffort verifies a provider outage does not fail finalization.
func TestExecuteFinalizeWeek_NoticeFailureIsBestEffort(t *testing.T) {
	weeks := newMockWeekStore()
	led := &mockLedgerStore{}
	m := member.Member{ID: "u01", Active: true, Email: "kim@example.com"}
	deps := finalizeDeps(weeks, led, m)
	deps.NotifyDeps = &NotifyFinesDeps{Roster: rosterOf(m), Sender: failingSender{}}

	res, err := ExecuteFinalizeWeek(context.Background(), FinalizeWeekInput{}, deps)
	if err != nil {
		t.Fatalf("expected finalize to succeed, got %v", err)
	}
	if len(res.Created) != 1 || !weeks.weeks["2025-W02"].Finalized {
		t.Errorf("expected finalized week with one fine, got %+v", res)
	}
}
