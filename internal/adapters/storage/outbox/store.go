package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"fineclub/internal/adapters/storage/document"
	domain "fineclub/internal/domain/outbox"
)

// Key is the document key of the outbox.
const Key = "outbox"

// Store defines the interface for outbox entry persistence.
type Store interface {
	// Enqueue adds a new entry.
	// PRE: e passes Validate
	// POST: Entry is persisted
	Enqueue(ctx context.Context, e domain.Entry) error

	// ListPending returns retryable entries, oldest first.
	// PRE: limit > 0
	// POST: Returns up to limit entries ordered by created_at
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)

	// ListFailed returns entries that have permanently failed.
	ListFailed(ctx context.Context) ([]domain.Entry, error)

	// Save updates an entry by id. Done entries are removed.
	// PRE: entity has been validated
	// POST: Entry replaced, or dropped when done
	Save(ctx context.Context, e domain.Entry) error
}

type queue struct {
	Entries []domain.Entry `json:"entries"`
}

// DocumentStore keeps the whole outbox in one document.
type DocumentStore struct {
	docs document.Store
	mu   sync.Mutex
}

// NewDocumentStore creates an outbox store.
func NewDocumentStore(docs document.Store) *DocumentStore {
	return &DocumentStore{docs: docs}
}

func (s *DocumentStore) load(ctx context.Context) (queue, error) {
	body, err := s.docs.Get(ctx, Key)
	if errors.Is(err, document.ErrNotFound) {
		return queue{}, nil
	}
	if err != nil {
		return queue{}, err
	}
	var q queue
	if err := json.Unmarshal(body, &q); err != nil {
		return queue{}, fmt.Errorf("decode outbox: %w", err)
	}
	return q, nil
}

func (s *DocumentStore) save(ctx context.Context, q queue) error {
	if q.Entries == nil {
		q.Entries = []domain.Entry{}
	}
	body, err := document.Marshal(q)
	if err != nil {
		return err
	}
	return s.docs.Put(ctx, Key, body)
}

// Enqueue implements Store.
func (s *DocumentStore) Enqueue(ctx context.Context, e domain.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.load(ctx)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(q.Entries, func(x domain.Entry) bool { return x.ID == e.ID }) {
		return fmt.Errorf("outbox entry %s already exists", e.ID)
	}
	q.Entries = append(q.Entries, e)
	return s.save(ctx, q)
}

// ListPending implements Store.
func (s *DocumentStore) ListPending(ctx context.Context, limit int) ([]domain.Entry, error) {
	s.mu.Lock()
	q, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Entry, 0, len(q.Entries))
	for _, e := range q.Entries {
		if e.CanRetry() {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Entry) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListFailed implements Store.
func (s *DocumentStore) ListFailed(ctx context.Context) ([]domain.Entry, error) {
	s.mu.Lock()
	q, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := []domain.Entry{}
	for _, e := range q.Entries {
		if e.Status == domain.StatusFailed {
			out = append(out, e)
		}
	}
	return out, nil
}

// Save implements Store.
func (s *DocumentStore) Save(ctx context.Context, e domain.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(q.Entries, func(x domain.Entry) bool { return x.ID == e.ID })
	if i < 0 {
		return fmt.Errorf("outbox entry %s: %w", e.ID, document.ErrNotFound)
	}
	if e.Status == domain.StatusDone {
		q.Entries = slices.Delete(q.Entries, i, i+1)
	} else {
		q.Entries[i] = e
	}
	return s.save(ctx, q)
}
