// Package sqlite provides a SQLite implementation of storage.Store,
// grounded on the teacher's internal/storage/sqlite.Store — same
// sql.Open("sqlite", dsn) + migrate-on-open shape, narrowed to the two
// tables this core needs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/jwulff/photoframe-server/internal/storage"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

// NewMemoryStore creates an in-memory SQLite store, useful for tests and
// for a frame with no persisted state configured.
func NewMemoryStore() (*Store, error) {
	return newStore(":memory:")
}

// NewFileStore creates a file-based SQLite store at path.
func NewFileStore(path string) (*Store, error) {
	return newStore(path)
}

func newStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetBlacklist(ctx context.Context, sourceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id FROM blacklist WHERE source_id = ?
	`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) AddToBlacklist(ctx context.Context, sourceID, assetID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO blacklist (source_id, asset_id) VALUES (?, ?)
	`, sourceID, assetID)
	return err
}

func (s *Store) GetCursor(ctx context.Context, frameID, sourceID string) (int, error) {
	var cursor int
	err := s.db.QueryRowContext(ctx, `
		SELECT cursor FROM sequential_cursor WHERE frame_id = ? AND source_id = ?
	`, frameID, sourceID).Scan(&cursor)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cursor, nil
}

func (s *Store) SetCursor(ctx context.Context, frameID, sourceID string, cursor int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sequential_cursor (frame_id, source_id, cursor, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(frame_id, source_id) DO UPDATE SET cursor = excluded.cursor, updated_at = excluded.updated_at
	`, frameID, sourceID, cursor)
	return err
}

var _ storage.Store = (*Store)(nil)
