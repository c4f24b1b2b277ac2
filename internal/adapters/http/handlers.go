package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"fineclub/internal/application/apperr"
	"fineclub/internal/application/orchestrators"
	"fineclub/internal/application/projections"
	"fineclub/internal/domain/ledger"

	"connectrpc.com/connect"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err)
	}
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// writeError maps a classified application error to a status and JSON body.
func writeError(w http.ResponseWriter, err error) {
	if apperr.Code(err) == connect.CodeInternal || apperr.Code(err) == connect.CodeUnknown {
		internalError(w, err)
		return
	}
	writeJSON(w, apperr.HTTPStatus(err), errorBody(apperr.Message(err)))
}

// decodeJSON decodes the request body into v. An empty body decodes as an
// empty object. With strict set, fields v does not declare are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Invalid("invalid JSON body")
	}
	return nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

// handleWeek handles GET /api/week.
// POST: Returns per-member distinct visit days for the current week
func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	res, err := projections.QueryGetWeekStatus(r.Context(), projections.GetWeekStatusDeps{
		WeekStore: s.stores.Weeks,
		Location:  s.opts.Location,
		Now:       s.opts.Now,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleMembers handles GET /api/members.
func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	members, err := projections.QueryGetActiveMembers(r.Context(), projections.GetActiveMembersDeps{Roster: s.stores.Roster})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

type checkInRequest struct {
	MemberID string `json:"memberId"`
}

// handleCheckIn handles POST /api/checkin.
// PRE: body is {"memberId": "..."}; other fields are ignored
// POST: 200 {ok, weekId, date}; 400 missing id or finalized week; 404 unknown member; 409 same day
func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	res, err := orchestrators.ExecuteCheckInMember(r.Context(), orchestrators.CheckInMemberInput{MemberID: req.MemberID}, orchestrators.CheckInMemberDeps{
		Roster:    s.stores.Roster,
		WeekStore: s.stores.Weeks,
		Location:  s.opts.Location,
		Now:       s.opts.Now,
		Lock:      s.opts.Lock,
		Metrics:   s.checkInMetrics(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "weekId": res.WeekID, "date": res.Date})
}

// handleFinalize handles POST /api/finalize[?weekId=YYYY-Www]. Admin only.
// POST: 200 with message "week finalized" or "already finalized"
func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	res, err := orchestrators.ExecuteFinalizeWeek(r.Context(), orchestrators.FinalizeWeekInput{
		WeekID: r.URL.Query().Get("weekId"),
	}, s.FinalizeDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	msg := "week finalized"
	if res.AlreadyFinalized {
		msg = "already finalized"
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": msg, "weekId": res.WeekID})
}

// handleRollover handles POST /api/rollover. Admin only.
func (s *Server) handleRollover(w http.ResponseWriter, r *http.Request) {
	res, err := orchestrators.ExecuteEnsureWeek(r.Context(), s.EnsureWeekDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "created": res.Created, "weekId": res.WeekID})
}

// handleLedger handles GET /api/ledger?weekId&memberId&summary&unpaidOnly.
// POST: {entries} for raw mode, {summary, rows} otherwise; 400 for unknown summary
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := projections.QueryGetLedger(r.Context(), projections.GetLedgerQuery{
		WeekID:     q.Get("weekId"),
		MemberID:   q.Get("memberId"),
		Summary:    q.Get("summary"),
		UnpaidOnly: q.Get("unpaidOnly") == "true",
	}, projections.GetLedgerDeps{LedgerStore: s.stores.Ledger})
	if err != nil {
		writeError(w, err)
		return
	}

	switch res.Summary {
	case ledger.SummaryMember:
		writeJSON(w, http.StatusOK, map[string]any{"summary": res.Summary, "rows": res.Members})
	case ledger.SummaryWeek:
		writeJSON(w, http.StatusOK, map[string]any{"summary": res.Summary, "rows": res.Weeks})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"entries": res.Entries})
	}
}

type payRequest struct {
	WeekID     string          `json:"weekId"`
	MemberID   string          `json:"memberId"`
	PaidAmount json.RawMessage `json:"paidAmount"`
	Method     string          `json:"method"`
	Note       string          `json:"note"`
}

// amountText accepts a JSON number or a numeric string.
func amountText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// handlePay handles POST /api/ledger/pay. Admin only.
// PRE: body is {weekId, memberId, paidAmount, method, note?}
// POST: 200 with recomputed totals; 400 validation; 404 unknown entry
func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, err)
		return
	}

	res, err := orchestrators.ExecuteRecordPayment(r.Context(), orchestrators.RecordPaymentInput{
		WeekID:     req.WeekID,
		MemberID:   req.MemberID,
		PaidAmount: amountText(req.PaidAmount),
		Method:     req.Method,
		Note:       req.Note,
	}, orchestrators.RecordPaymentDeps{
		LedgerStore: s.stores.Ledger,
		Now:         s.opts.Now,
		Lock:        s.opts.Lock,
		Metrics:     s.paymentMetrics(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"weekId":       res.WeekID,
		"memberId":     res.MemberID,
		"fine":         res.Fine,
		"addedPayment": res.Payment,
		"totalPaid":    res.TotalPaid,
		"outstanding":  res.Outstanding,
		"fullyPaid":    res.FullyPaid,
	})
}

// handleCurrentAttendance handles GET /api/attendance/current.
// POST: Reconciled attendance for every active member; never cached
func (s *Server) handleCurrentAttendance(w http.ResponseWriter, r *http.Request) {
	res, err := projections.QueryGetCurrentAttendance(r.Context(), projections.GetCurrentAttendanceDeps{
		Roster:    s.stores.Roster,
		WeekStore: s.stores.Weeks,
		Location:  s.opts.Location,
		Now:       s.opts.Now,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, res)
}

// FinalizeDeps builds the finalize dependencies shared by the HTTP handler and the scheduler.
func (s *Server) FinalizeDeps() orchestrators.FinalizeWeekDeps {
	deps := orchestrators.FinalizeWeekDeps{
		Roster:      s.stores.Roster,
		WeekStore:   s.stores.Weeks,
		LedgerStore: s.stores.Ledger,
		Location:    s.opts.Location,
		Now:         s.opts.Now,
		Lock:        s.opts.Lock,
	}
	if s.opts.Collector != nil {
		deps.Metrics = s.opts.Collector
	}
	if s.opts.EmailSender != nil {
		deps.NotifyDeps = &orchestrators.NotifyFinesDeps{
			Roster:   s.stores.Roster,
			Sender:   s.opts.EmailSender,
			ClubName: s.opts.ClubName,
			Now:      s.opts.Now,
		}
		if s.stores.Outbox != nil {
			deps.NotifyDeps.Outbox = s.stores.Outbox
		}
	}
	return deps
}

// RetryNoticesDeps builds the notice retry dependencies for the scheduler.
// ok is false when there is no outbox or no sender to retry with.
func (s *Server) RetryNoticesDeps() (deps orchestrators.RetryNoticesDeps, ok bool) {
	if s.stores.Outbox == nil || s.opts.EmailSender == nil {
		return orchestrators.RetryNoticesDeps{}, false
	}
	return orchestrators.RetryNoticesDeps{
		Outbox: s.stores.Outbox,
		Sender: s.opts.EmailSender,
		Now:    s.opts.Now,
	}, true
}

// EnsureWeekDeps builds the rollover dependencies shared by the HTTP handler and the scheduler.
func (s *Server) EnsureWeekDeps() orchestrators.EnsureWeekDeps {
	return orchestrators.EnsureWeekDeps{
		WeekStore: s.stores.Weeks,
		Backups:   s.stores.Ledger,
		Location:  s.opts.Location,
		Now:       s.opts.Now,
		Lock:      s.opts.Lock,
	}
}

// A nil *metrics.Collector must not leak into an interface as a non-nil value.
func (s *Server) checkInMetrics() orchestrators.CheckInRecorder {
	if s.opts.Collector == nil {
		return nil
	}
	return s.opts.Collector
}

func (s *Server) paymentMetrics() orchestrators.PaymentRecorder {
	if s.opts.Collector == nil {
		return nil
	}
	return s.opts.Collector
}
