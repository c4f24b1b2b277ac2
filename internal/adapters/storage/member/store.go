package member

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fineclub/internal/adapters/storage/document"
	domain "fineclub/internal/domain/member"
)

// Key is the document key of the roster.
const Key = "members"

// Store persists the member roster.
type Store interface {
	Load(ctx context.Context) (domain.Roster, error)
	Save(ctx context.Context, roster domain.Roster) error
}

// DocumentStore implements Store on a document.Store.
type DocumentStore struct {
	docs document.Store
}

// NewDocumentStore creates a roster store.
func NewDocumentStore(docs document.Store) *DocumentStore {
	return &DocumentStore{docs: docs}
}

// Load reads the roster.
// PRE: none
// POST: A missing document yields an empty roster, not an error
func (s *DocumentStore) Load(ctx context.Context) (domain.Roster, error) {
	body, err := s.docs.Get(ctx, Key)
	if errors.Is(err, document.ErrNotFound) {
		return domain.Roster{Members: []domain.Member{}}, nil
	}
	if err != nil {
		return domain.Roster{}, err
	}
	var roster domain.Roster
	if err := json.Unmarshal(body, &roster); err != nil {
		return domain.Roster{}, fmt.Errorf("decode roster: %w", err)
	}
	if roster.Members == nil {
		roster.Members = []domain.Member{}
	}
	return roster, nil
}

// Save writes the roster.
// PRE: every member passes Validate
// POST: Roster document replaced
func (s *DocumentStore) Save(ctx context.Context, roster domain.Roster) error {
	for i := range roster.Members {
		if err := roster.Members[i].Validate(); err != nil {
			return err
		}
	}
	body, err := document.Marshal(roster)
	if err != nil {
		return err
	}
	return s.docs.Put(ctx, Key, body)
}
