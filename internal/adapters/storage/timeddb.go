package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"fineclub/internal/adapters/metrics"
)

// DefaultSlowQuery is the threshold above which a statement is logged as slow.
const DefaultSlowQuery = 50 * time.Millisecond

// SQLDB is what the SQL document store needs from a connection. Queries are
// written with '?' placeholders; implementations bind them for their dialect.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TimedDB binds placeholders for one dialect and times every statement,
// logging slow ones and feeding the query histogram.
type TimedDB struct {
	db        *sql.DB
	dialect   Dialect
	collector *metrics.Collector // optional: nil skips metrics
	slow      time.Duration
}

var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps db for the given dialect.
// PRE: db is open and speaks dialect
// POST: slow <= 0 selects DefaultSlowQuery
func NewTimedDB(db *sql.DB, dialect Dialect, collector *metrics.Collector, slow time.Duration) *TimedDB {
	if slow <= 0 {
		slow = DefaultSlowQuery
	}
	return &TimedDB{db: db, dialect: dialect, collector: collector, slow: slow}
}

// ExecContext runs a statement that returns no rows.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	defer t.observe(query, time.Now())
	return t.db.ExecContext(ctx, t.dialect.Rebind(query), args...)
}

// QueryContext runs a statement that returns rows.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	defer t.observe(query, time.Now())
	return t.db.QueryContext(ctx, t.dialect.Rebind(query), args...)
}

// QueryRowContext runs a statement expected to return at most one row.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	defer t.observe(query, time.Now())
	return t.db.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *TimedDB) observe(query string, start time.Time) {
	elapsed := time.Since(start)
	op := "sql." + statementVerb(query)
	if elapsed >= t.slow {
		slog.Warn("slow_query", "op", op, "dialect", string(t.dialect), "duration", elapsed)
	} else {
		slog.Debug("query", "op", op, "duration", elapsed)
	}
	if t.collector != nil {
		t.collector.Record(metrics.Entry{
			Kind:       metrics.KindQuery,
			Path:       op,
			DurationMs: float64(elapsed.Microseconds()) / 1000,
			Timestamp:  start,
		})
	}
}

// statementVerb returns the lowercased leading keyword of a query, which keeps
// the metric label set small.
func statementVerb(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
