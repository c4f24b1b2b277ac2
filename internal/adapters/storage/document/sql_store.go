package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fineclub/internal/adapters/storage"
)

// SQLStore keeps documents in the document table (SQLite or Postgres).
type SQLStore struct {
	db     storage.SQLDB
	closer func() error
}

// NewSQLStore creates a SQLStore over a migrated database.
// PRE: storage.MigrateDB has run against db
// POST: Returns a ready-to-use store; closer may be nil
func NewSQLStore(db storage.SQLDB, closer func() error) *SQLStore {
	return &SQLStore{db: db, closer: closer}
}

// Get retrieves a document body by key.
// PRE: key is valid
// POST: Returns ErrNotFound if no row exists
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM document WHERE key = ?", key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", key, err)
	}
	return []byte(body), nil
}

// Put inserts or replaces a document.
// PRE: key is valid
// POST: Row for key holds body
func (s *SQLStore) Put(ctx context.Context, key string, body []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	query := `INSERT INTO document (key, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, key, string(body), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("put document %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection when the store owns it.
func (s *SQLStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
