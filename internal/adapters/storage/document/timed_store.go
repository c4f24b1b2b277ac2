package document

import (
	"context"
	"time"

	"fineclub/internal/adapters/metrics"
)

// TimedStore records the latency of every document operation.
type TimedStore struct {
	next      Store
	collector *metrics.Collector
}

// NewTimedStore wraps next. A nil collector returns next unchanged.
func NewTimedStore(next Store, collector *metrics.Collector) Store {
	if collector == nil {
		return next
	}
	return &TimedStore{next: next, collector: collector}
}

func (s *TimedStore) observe(op string, start time.Time) {
	s.collector.Record(metrics.Entry{
		Kind:       metrics.KindQuery,
		Path:       op,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Timestamp:  start,
	})
}

// Get delegates and records timing.
func (s *TimedStore) Get(ctx context.Context, key string) ([]byte, error) {
	defer s.observe("document.Get", time.Now())
	return s.next.Get(ctx, key)
}

// Put delegates and records timing.
func (s *TimedStore) Put(ctx context.Context, key string, body []byte) error {
	defer s.observe("document.Put", time.Now())
	return s.next.Put(ctx, key, body)
}

// Close closes the wrapped store.
func (s *TimedStore) Close() error {
	return s.next.Close()
}
