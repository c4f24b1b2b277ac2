package week

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fineclub/internal/adapters/storage/document"
	"fineclub/internal/domain/attendance"
	domain "fineclub/internal/domain/week"
)

// Key returns the document key of a week.
func Key(weekID string) string {
	return "attendance-" + weekID
}

// Store persists weekly attendance documents.
type Store interface {
	Get(ctx context.Context, weekID string) (domain.Week, bool, error)
	GetRecord(ctx context.Context, weekID string) (attendance.Record, bool, error)
	Save(ctx context.Context, w domain.Week) error
}

// DocumentStore implements Store on a document.Store.
type DocumentStore struct {
	docs document.Store
}

// NewDocumentStore creates a week store.
func NewDocumentStore(docs document.Store) *DocumentStore {
	return &DocumentStore{docs: docs}
}

// Get reads a week.
// PRE: weekID is a valid week id
// POST: found is false (and err nil) when no document exists
func (s *DocumentStore) Get(ctx context.Context, weekID string) (domain.Week, bool, error) {
	body, err := s.docs.Get(ctx, Key(weekID))
	if errors.Is(err, document.ErrNotFound) {
		return domain.Week{}, false, nil
	}
	if err != nil {
		return domain.Week{}, false, err
	}
	var w domain.Week
	if err := json.Unmarshal(body, &w); err != nil {
		return domain.Week{}, false, fmt.Errorf("decode week %s: %w", weekID, err)
	}
	if w.Checkins == nil {
		w.Checkins = []domain.CheckIn{}
	}
	return w, true, nil
}

// GetRecord reads a week as an untyped record for tolerant parsing.
// PRE: weekID is a valid week id
// POST: Undecodable documents yield an empty record, never an error
func (s *DocumentStore) GetRecord(ctx context.Context, weekID string) (attendance.Record, bool, error) {
	body, err := s.docs.Get(ctx, Key(weekID))
	if errors.Is(err, document.ErrNotFound) {
		return attendance.Record{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rec attendance.Record
	if err := json.Unmarshal(body, &rec); err != nil || rec == nil {
		return attendance.Record{}, true, nil
	}
	return rec, true, nil
}

// Save writes a week, keeping any fields of the stored document that the
// Week type does not model.
// PRE: w passes Validate
// POST: Known fields replaced, unknown fields preserved
func (s *DocumentStore) Save(ctx context.Context, w domain.Week) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if w.Checkins == nil {
		w.Checkins = []domain.CheckIn{}
	}

	merged := make(map[string]json.RawMessage)
	body, err := s.docs.Get(ctx, Key(w.WeekID))
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(body, &merged); jsonErr != nil {
			merged = make(map[string]json.RawMessage)
		}
	case !errors.Is(err, document.ErrNotFound):
		return err
	}

	known, err := json.Marshal(w)
	if err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return err
	}
	for k, v := range fields {
		merged[k] = v
	}

	out, err := document.Marshal(merged)
	if err != nil {
		return err
	}
	return s.docs.Put(ctx, Key(w.WeekID), out)
}
