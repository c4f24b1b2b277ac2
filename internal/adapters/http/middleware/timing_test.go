package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fineclub/internal/adapters/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func timedRouter(collector *metrics.Collector, h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(Timing(collector))
	r.Get("/api/ledger", h)
	r.Post("/api/checkin", h)
	return r
}

// TestTimingMiddleware_EmitsEntry verifies that a request entry is recorded.
func TestTimingMiddleware_EmitsEntry(t *testing.T) {
	collector := metrics.NewCollector()
	handler := timedRouter(collector, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/ledger", nil))

	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
}

// TestTimingMiddleware_CapturesStatusCode verifies the status code is captured.
func TestTimingMiddleware_CapturesStatusCode(t *testing.T) {
	collector := metrics.NewCollector()
	handler := timedRouter(collector, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/api/checkin", nil))

	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rr.Code)
	}
	if n := testutil.CollectAndCount(collector.Registry(), "fineclub_http_request_duration_seconds"); n != 1 {
		t.Errorf("series = %d, want 1", n)
	}
}

// TestTimingMiddleware_UnmatchedRoute verifies unknown paths share one label.
func TestTimingMiddleware_UnmatchedRoute(t *testing.T) {
	collector := metrics.NewCollector()
	handler := timedRouter(collector, func(w http.ResponseWriter, r *http.Request) {})

	for _, p := range []string{"/nope", "/nope/2", "/other"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", p, nil))
	}
	if n := testutil.CollectAndCount(collector.Registry(), "fineclub_http_request_duration_seconds"); n != 1 {
		t.Errorf("series = %d, want 1 for all unmatched paths", n)
	}
	if collector.TotalRecorded() != 3 {
		t.Errorf("TotalRecorded = %d, want 3", collector.TotalRecorded())
	}
}

// TestTimingMiddleware_NilCollector verifies middleware works without a collector.
func TestTimingMiddleware_NilCollector(t *testing.T) {
	handler := timedRouter(nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/ledger", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// --- Resilience: Handler Panic ---

// TestTimingMiddleware_HandlerPanic verifies that a panicking handler does not
// prevent the deferred timing logic from running and does not corrupt the pool.
func TestTimingMiddleware_HandlerPanic(t *testing.T) {
	collector := metrics.NewCollector()
	handler := Timing(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate, got nil")
		}
		if collector.TotalRecorded() != 1 {
			t.Errorf("TotalRecorded = %d, want 1 (defer must run even on panic)", collector.TotalRecorded())
		}
	}()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/panic", nil))
}

// TestTimingMiddleware_DefaultStatusWhenNotSet verifies status defaults to 200
// when the handler writes a body without calling WriteHeader explicitly.
func TestTimingMiddleware_DefaultStatusWhenNotSet(t *testing.T) {
	collector := metrics.NewCollector()
	handler := timedRouter(collector, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello")) // implicit 200
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/ledger", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// TestTimingMiddleware_PoolReuse verifies pooled writers do not leak status between requests.
func TestTimingMiddleware_PoolReuse(t *testing.T) {
	collector := metrics.NewCollector()
	code := http.StatusInternalServerError
	handler := timedRouter(collector, func(w http.ResponseWriter, r *http.Request) {
		if code != 0 {
			w.WriteHeader(code)
		}
	})

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/ledger", nil))
	code = 0
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/ledger", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rr.Code)
		}
	}
	if n := testutil.CollectAndCount(collector.Registry(), "fineclub_http_request_duration_seconds"); n != 2 {
		t.Errorf("series = %d, want 2 (one 5xx, one 2xx)", n)
	}
}
