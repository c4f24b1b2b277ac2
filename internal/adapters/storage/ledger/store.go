package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fineclub/internal/adapters/storage/document"
	domain "fineclub/internal/domain/ledger"
)

// Key is the document key of the ledger.
const Key = "ledger"

// BackupPrefix is where ledger snapshots are written.
const BackupPrefix = "backups/"

// Store persists the ledger.
type Store interface {
	Load(ctx context.Context) (domain.Ledger, error)
	Save(ctx context.Context, l domain.Ledger) error
	Backup(ctx context.Context, at time.Time) (string, bool, error)
}

// DocumentStore implements Store on a document.Store.
type DocumentStore struct {
	docs document.Store
}

// NewDocumentStore creates a ledger store.
func NewDocumentStore(docs document.Store) *DocumentStore {
	return &DocumentStore{docs: docs}
}

// Load reads the ledger.
// PRE: none
// POST: A missing document yields an empty ledger
func (s *DocumentStore) Load(ctx context.Context) (domain.Ledger, error) {
	body, err := s.docs.Get(ctx, Key)
	if errors.Is(err, document.ErrNotFound) {
		return domain.Ledger{Entries: []domain.Entry{}}, nil
	}
	if err != nil {
		return domain.Ledger{}, err
	}
	var l domain.Ledger
	if err := json.Unmarshal(body, &l); err != nil {
		return domain.Ledger{}, fmt.Errorf("decode ledger: %w", err)
	}
	if l.Entries == nil {
		l.Entries = []domain.Entry{}
	}
	return l, nil
}

// Save writes the ledger.
// POST: Ledger document replaced
func (s *DocumentStore) Save(ctx context.Context, l domain.Ledger) error {
	if l.Entries == nil {
		l.Entries = []domain.Entry{}
	}
	body, err := document.Marshal(l)
	if err != nil {
		return err
	}
	return s.docs.Put(ctx, Key, body)
}

// Backup copies the current ledger document to backups/<timestamp>-ledger.
// PRE: none
// POST: ok is false when there is no ledger to back up
func (s *DocumentStore) Backup(ctx context.Context, at time.Time) (string, bool, error) {
	body, err := s.docs.Get(ctx, Key)
	if errors.Is(err, document.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	key := BackupKey(at)
	if err := s.docs.Put(ctx, key, body); err != nil {
		return "", false, err
	}
	return key, true, nil
}

// BackupKey names a snapshot taken at the given instant.
func BackupKey(at time.Time) string {
	ts := at.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return BackupPrefix + ts + "-" + Key
}
