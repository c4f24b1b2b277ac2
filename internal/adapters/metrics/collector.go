package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "fineclub"

// EntryKind distinguishes request vs query entries.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
)

// Entry is a single timing observation.
type Entry struct {
	Kind       EntryKind
	Path       string // route pattern or "store.Method"
	Method     string // HTTP method (empty for queries)
	StatusCode int    // HTTP status (0 for queries)
	DurationMs float64
	Timestamp  time.Time
}

// Collector owns a private Prometheus registry with request, query and
// business counters.
type Collector struct {
	registry *prometheus.Registry

	requests *prometheus.HistogramVec
	queries  *prometheus.HistogramVec

	checkIns      prometheus.Counter
	finalizations *prometheus.CounterVec
	finesIssued   prometheus.Counter
	fineAmount    prometheus.Counter
	payments      prometheus.Counter
	paymentAmount prometheus.Counter

	count int64 // total timing entries ever recorded
}

// NewCollector builds and registers every metric.
// PRE: none
// POST: Returns a collector whose Handler exposes all metrics
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		queries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_query_duration_seconds",
			Help:      "Storage operation latency.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, 1},
		}, []string{"op"}),
		checkIns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkins_total",
			Help:      "Accepted check-ins.",
		}),
		finalizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "week_finalizations_total",
			Help:      "Finalize calls by outcome.",
		}, []string{"outcome"}),
		finesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fines_issued_total",
			Help:      "Ledger entries created at finalization.",
		}),
		fineAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fine_amount_total",
			Help:      "Sum of fines issued.",
		}),
		payments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payments recorded.",
		}),
		paymentAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_amount_total",
			Help:      "Sum of payments recorded.",
		}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requests, c.queries,
		c.checkIns, c.finalizations, c.finesIssued, c.fineAmount,
		c.payments, c.paymentAmount,
	)
	return c
}

// Record observes a timing entry.
// PRE: e is a valid Entry
// POST: Histogram updated; TotalRecorded incremented
func (c *Collector) Record(e Entry) {
	seconds := e.DurationMs / 1000
	switch e.Kind {
	case KindRequest:
		c.requests.WithLabelValues(e.Method, e.Path, statusLabel(e.StatusCode)).Observe(seconds)
	case KindQuery:
		c.queries.WithLabelValues(e.Path).Observe(seconds)
	}
	atomic.AddInt64(&c.count, 1)
}

// TotalRecorded returns the total number of timing entries ever recorded.
// PRE: none
// POST: returns count >= 0
func (c *Collector) TotalRecorded() int64 {
	return atomic.LoadInt64(&c.count)
}

// CheckedIn counts one accepted check-in.
func (c *Collector) CheckedIn() {
	c.checkIns.Inc()
}

// WeekFinalized counts a finalize call and the fines it created.
func (c *Collector) WeekFinalized(alreadyFinalized bool, entries int, total decimal.Decimal) {
	if alreadyFinalized {
		c.finalizations.WithLabelValues("already_finalized").Inc()
		return
	}
	c.finalizations.WithLabelValues("finalized").Inc()
	c.finesIssued.Add(float64(entries))
	c.fineAmount.Add(total.InexactFloat64())
}

// PaymentRecorded counts one payment.
func (c *Collector) PaymentRecorded(amount decimal.Decimal) {
	c.payments.Inc()
	c.paymentAmount.Add(amount.InexactFloat64())
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
