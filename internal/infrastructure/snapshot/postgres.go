package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricelens/backend/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS digest_snapshots (
	date_key   TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore persists digests as JSONB rows
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to url, checks the connection and ensures the schema
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 5
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Save upserts the digest for a date key
func (s *PostgresStore) Save(ctx context.Context, dateKey string, digest *domain.Digest) error {
	payload, err := json.Marshal(digest)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO digest_snapshots (date_key, payload, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (date_key) DO UPDATE SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at
	`, dateKey, payload)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", dateKey, err)
	}
	return nil
}

// Load retrieves the digest stored under a date key
func (s *PostgresStore) Load(ctx context.Context, dateKey string) (*domain.Digest, error) {
	row := s.pool.QueryRow(ctx, `SELECT payload FROM digest_snapshots WHERE date_key = $1`, dateKey)
	return scanJSONB(row)
}

// LoadLatest retrieves the digest with the greatest date key
func (s *PostgresStore) LoadLatest(ctx context.Context) (*domain.Digest, error) {
	row := s.pool.QueryRow(ctx, `SELECT payload FROM digest_snapshots ORDER BY date_key DESC LIMIT 1`)
	return scanJSONB(row)
}

// Close releases the pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func scanJSONB(row pgx.Row) (*domain.Digest, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}
	return decodeDigest(payload)
}
