package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

// TestCollector_Record verifies timing entries reach the histograms.
func TestCollector_Record(t *testing.T) {
	c := NewCollector()
	c.Record(Entry{Kind: KindRequest, Method: "GET", Path: "/api/week", StatusCode: 200, DurationMs: 12, Timestamp: time.Now()})
	c.Record(Entry{Kind: KindQuery, Path: "document.Get", DurationMs: 0.4, Timestamp: time.Now()})

	if c.TotalRecorded() != 2 {
		t.Errorf("TotalRecorded = %d, want 2", c.TotalRecorded())
	}
	if n := testutil.CollectAndCount(c.requests); n != 1 {
		t.Errorf("request series = %d, want 1", n)
	}
	if n := testutil.CollectAndCount(c.queries); n != 1 {
		t.Errorf("query series = %d, want 1", n)
	}
}

// TestCollector_BusinessCounters verifies finalize and payment counters.
func TestCollector_BusinessCounters(t *testing.T) {
	c := NewCollector()
	c.CheckedIn()
	c.CheckedIn()
	c.WeekFinalized(false, 3, decimal.NewFromInt(60000))
	c.WeekFinalized(true, 0, decimal.Zero)
	c.PaymentRecorded(decimal.NewFromInt(5000))

	if got := testutil.ToFloat64(c.checkIns); got != 2 {
		t.Errorf("checkins = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.finesIssued); got != 3 {
		t.Errorf("fines issued = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.fineAmount); got != 60000 {
		t.Errorf("fine amount = %v, want 60000", got)
	}
	if got := testutil.ToFloat64(c.finalizations.WithLabelValues("already_finalized")); got != 1 {
		t.Errorf("already finalized = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.paymentAmount); got != 5000 {
		t.Errorf("payment amount = %v, want 5000", got)
	}
}

// TestCollector_Handler verifies the exposition endpoint.
func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.CheckedIn()

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "fineclub_checkins_total 1") {
		t.Errorf("exposition missing checkins counter:\n%s", body)
	}
}
