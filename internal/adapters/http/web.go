package web

import (
	"net/http"
	"sync"
	"time"

	emailAdapter "fineclub/internal/adapters/email"
	"fineclub/internal/adapters/http/middleware"
	"fineclub/internal/adapters/metrics"
	ledgerStore "fineclub/internal/adapters/storage/ledger"
	outboxStore "fineclub/internal/adapters/storage/outbox"
	weekStore "fineclub/internal/adapters/storage/week"
	"fineclub/internal/application/orchestrators"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Stores holds all storage dependencies.
type Stores struct {
	Roster orchestrators.RosterReader // usually a member.CachedRoster
	Weeks  weekStore.Store
	Ledger ledgerStore.Store
	Outbox outboxStore.Store // optional: nil drops notices that fail to send
}

// Options configures the HTTP surface.
type Options struct {
	AdminSecret        middleware.AdminSecret
	Location           *time.Location
	CSRFKey            []byte // 32 bytes
	SecureCookies      bool
	TrustedOrigins     []string
	RateLimitPerSecond int
	Collector          *metrics.Collector  // optional: nil disables /metrics and timing metrics
	Lock               sync.Locker         // shared with the scheduler
	EmailSender        emailAdapter.Sender // optional: nil disables fine notices
	ClubName           string
	Now                func() time.Time // optional: defaults to time.Now
}

// Server owns the router and everything its handlers need.
type Server struct {
	stores  Stores
	opts    Options
	limiter *middleware.RateLimiter
	handler http.Handler
}

// NewServer wires routes and middleware.
// PRE: stores are non-nil; opts.CSRFKey is 32 bytes
// POST: Handler is ready to serve; Close releases background resources
func NewServer(stores Stores, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Lock == nil {
		opts.Lock = &sync.Mutex{}
	}
	if opts.RateLimitPerSecond <= 0 {
		opts.RateLimitPerSecond = 10
	}

	s := &Server{
		stores:  stores,
		opts:    opts,
		limiter: middleware.NewRateLimiter(opts.RateLimitPerSecond, time.Second),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close stops the rate limiter's cleanup goroutine.
func (s *Server) Close() {
	s.limiter.Close()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Timing(s.opts.Collector))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RateLimit(s.limiter))
	r.Use(middleware.CSRF(s.opts.CSRFKey, s.opts.SecureCookies, s.opts.TrustedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
	})

	r.Get("/healthz", handleHealth)
	if s.opts.Collector != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Collector.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/week", s.handleWeek)
		r.Get("/members", s.handleMembers)
		r.Post("/checkin", s.handleCheckIn)
		r.Get("/ledger", s.handleLedger)
		r.Get("/attendance/current", s.handleCurrentAttendance)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(s.opts.AdminSecret))
			r.Post("/finalize", s.handleFinalize)
			r.Post("/ledger/pay", s.handlePay)
			r.Post("/rollover", s.handleRollover)
		})
	})
	return r
}
