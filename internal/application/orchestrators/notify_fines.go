package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	emailAdapter "fineclub/internal/adapters/email"
	"fineclub/internal/domain/ledger"
	"fineclub/internal/domain/member"
	"fineclub/internal/domain/outbox"

	"github.com/google/uuid"
)

// NotifyFinesInput carries the fines to announce.
type NotifyFinesInput struct {
	Entries []ledger.Entry
}

// NotifyFinesResult counts notices sent, queued for retry, and members skipped for lack of an email.
type NotifyFinesResult struct {
	Sent    int
	Queued  int
	Skipped int
}

// NotifyFinesDeps holds dependencies for NotifyFines.
type NotifyFinesDeps struct {
	Roster     RosterReader
	Sender     emailAdapter.Sender
	ClubName   string       // used in the subject line
	Outbox     NoticeOutbox // optional: nil drops notices that fail to send
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteNotifyFines emails each fined member a notice of their deficit and fine.
// PRE: Entries were just created by finalization
// POST: One email per entry whose member has an email address
func ExecuteNotifyFines(ctx context.Context, input NotifyFinesInput, deps NotifyFinesDeps) (NotifyFinesResult, error) {
	if len(input.Entries) == 0 || deps.Sender == nil {
		return NotifyFinesResult{}, nil
	}

	roster, err := deps.Roster.Load(ctx)
	if err != nil {
		return NotifyFinesResult{}, fmt.Errorf("load roster: %w", err)
	}
	byID := make(map[string]member.Member, len(roster.Members))
	for _, m := range roster.Members {
		byID[m.ID] = m
	}

	var result NotifyFinesResult
	reqs := make([]emailAdapter.SendRequest, 0, len(input.Entries))
	for _, e := range input.Entries {
		m, ok := byID[e.MemberID]
		if !ok || m.Email == "" {
			result.Skipped++
			continue
		}
		html, err := emailAdapter.RenderMarkdown(fineNoticeMarkdown(m, e))
		if err != nil {
			return result, fmt.Errorf("render notice for %s: %w", e.MemberID, err)
		}
		reqs = append(reqs, emailAdapter.SendRequest{
			To:      []string{m.Email},
			Subject: fineNoticeSubject(deps.ClubName, e.WeekID),
			HTML:    html,
		})
	}
	if len(reqs) == 0 {
		return result, nil
	}

	sent, err := deps.Sender.SendBatch(ctx, reqs)
	result.Sent = len(sent)
	if err != nil {
		if deps.Outbox == nil {
			return result, fmt.Errorf("send fine notices: %w", err)
		}
		unsent := reqs[min(len(sent), len(reqs)):]
		if qErr := queueNotices(ctx, deps, unsent); qErr != nil {
			return result, fmt.Errorf("send fine notices: %w (queue: %v)", err, qErr)
		}
		result.Queued = len(unsent)
		slog.Warn("notice_event", "event", "fine_notices_queued", "sent", result.Sent, "queued", result.Queued, "error", err)
		return result, nil
	}
	slog.Info("notice_event", "event", "fine_notices_sent", "sent", result.Sent, "skipped", result.Skipped)
	return result, nil
}

// queueNotices stores unsent requests as one outbox entry.
func queueNotices(ctx context.Context, deps NotifyFinesDeps, reqs []emailAdapter.SendRequest) error {
	payload, err := json.Marshal(reqs)
	if err != nil {
		return err
	}
	newID := deps.GenerateID
	if newID == nil {
		newID = uuid.NewString
	}
	e, err := outbox.New(newID(), outbox.KindFineNotice, string(payload), clock(deps.Now))
	if err != nil {
		return err
	}
	return deps.Outbox.Enqueue(ctx, e)
}

func fineNoticeSubject(club, weekID string) string {
	if club == "" {
		return "Attendance fine for " + weekID
	}
	return fmt.Sprintf("[%s] Attendance fine for %s", club, weekID)
}

func fineNoticeMarkdown(m member.Member, e ledger.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", m.DisplayName())
	fmt.Fprintf(&b, "Week **%s** has been closed. You visited %d of the required %d days.\n\n",
		e.WeekID, ledger.RequiredVisits-e.Deficit, ledger.RequiredVisits)
	fmt.Fprintf(&b, "- Missing days: %d\n", e.Deficit)
	fmt.Fprintf(&b, "- Fine: **%s**\n\n", e.Fine.String())
	b.WriteString("Please settle with an admin by cash or transfer.\n")
	return b.String()
}
