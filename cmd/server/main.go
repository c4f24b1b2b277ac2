package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	emailAdapter "fineclub/internal/adapters/email"
	web "fineclub/internal/adapters/http"
	"fineclub/internal/adapters/http/middleware"
	"fineclub/internal/adapters/metrics"
	"fineclub/internal/adapters/scheduler"
	"fineclub/internal/adapters/storage"
	"fineclub/internal/adapters/storage/document"
	ledgerStore "fineclub/internal/adapters/storage/ledger"
	memberStore "fineclub/internal/adapters/storage/member"
	outboxStore "fineclub/internal/adapters/storage/outbox"
	weekStore "fineclub/internal/adapters/storage/week"
	"fineclub/internal/application/orchestrators"
	"fineclub/internal/config"
	"fineclub/internal/domain/member"
	"fineclub/pkg/logging"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	collector := metrics.NewCollector()

	docs, err := document.Open(ctx, cfg.Store, collector)
	if err != nil {
		return err
	}
	defer docs.Close()

	stores := web.Stores{
		Roster: member.NewCachedRoster(memberStore.NewDocumentStore(docs), cfg.MemberCacheTTL),
		Weeks:  weekStore.NewDocumentStore(docs),
		Ledger: ledgerStore.NewDocumentStore(docs),
		Outbox: outboxStore.NewDocumentStore(docs),
	}

	var sender emailAdapter.Sender
	if cfg.ResendAPIKey != "" {
		sender = emailAdapter.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom, cfg.EmailReplyTo)
		slog.Info("email_sender", "provider", "resend")
	} else {
		sender = emailAdapter.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email_sender", "provider", "noop", "hint", "RESEND_API_KEY is not set, fine notices are disabled")
		} else {
			slog.Info("email_sender", "provider", "noop")
		}
	}

	admin := middleware.NewAdminSecret(cfg.AdminToken, cfg.AdminTokenBcrypt)
	if !admin.Configured() {
		slog.Warn("admin_token_missing", "hint", "admin endpoints will reject every request")
	}

	// One lock serializes HTTP writes and scheduled jobs.
	lock := &sync.Mutex{}
	server := web.NewServer(stores, web.Options{
		AdminSecret:        admin,
		Location:           cfg.Location,
		CSRFKey:            cfg.CSRFKey,
		SecureCookies:      cfg.SecureCookies,
		TrustedOrigins:     cfg.TrustedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		Collector:          collector,
		Lock:               lock,
		EmailSender:        sender,
		ClubName:           cfg.ClubName,
	})
	defer server.Close()

	if cfg.AutoTasks {
		deps := scheduler.Deps{
			Finalize:   server.FinalizeDeps,
			EnsureWeek: server.EnsureWeekDeps,
		}
		if _, ok := server.RetryNoticesDeps(); ok {
			deps.RetryNotices = func() orchestrators.RetryNoticesDeps {
				d, _ := server.RetryNoticesDeps()
				return d
			}
		}
		sched, err := scheduler.New(cfg.Location, deps)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			sched.Stop(stopCtx)
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting",
			"version", version,
			"addr", cfg.Addr,
			"env", cfg.Env,
			"store", cfg.Store.Driver,
			"timezone", cfg.Location.String(),
			"schema", storage.LatestSchemaVersion(),
			"auto_tasks", cfg.AutoTasks,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
