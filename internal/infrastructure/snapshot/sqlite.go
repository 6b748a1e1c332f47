package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pricelens/backend/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS digest_snapshots (
	date_key   TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// SQLiteStore persists digests in a local SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the schema
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save upserts the digest for a date key
func (s *SQLiteStore) Save(ctx context.Context, dateKey string, digest *domain.Digest) error {
	payload, err := json.Marshal(digest)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO digest_snapshots (date_key, payload, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (date_key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at
	`, dateKey, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", dateKey, err)
	}
	return nil
}

// Load retrieves the digest stored under a date key
func (s *SQLiteStore) Load(ctx context.Context, dateKey string) (*domain.Digest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM digest_snapshots WHERE date_key = ?`, dateKey)
	return scanDigest(row)
}

// LoadLatest retrieves the digest with the greatest date key
func (s *SQLiteStore) LoadLatest(ctx context.Context) (*domain.Digest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM digest_snapshots ORDER BY date_key DESC LIMIT 1`)
	return scanDigest(row)
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanDigest(row *sql.Row) (*domain.Digest, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}
	return decodeDigest([]byte(payload))
}
