package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"blur-chat/internal/models"
)

// PostgresStore keeps the snapshot as a JSONB document row, one row per
// named snapshot. The database is used as a document store only; the core
// never sees its schema.
type PostgresStore struct {
	db   *sqlx.DB
	name string
}

// NewPostgresStore connects, ensures the snapshots table exists and returns
// a store bound to the given snapshot name.
func NewPostgresStore(dsn, name string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
        name TEXT PRIMARY KEY,
        data JSONB NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Println("database migrations applied")

	return &PostgresStore{db: db, name: name}, nil
}

// Load fetches the snapshot document. No row yields an empty snapshot.
func (s *PostgresStore) Load(ctx context.Context) (models.Snapshot, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, `SELECT data FROM snapshots WHERE name=$1`, s.name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, nil
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Save upserts the snapshot document.
func (s *PostgresStore) Save(ctx context.Context, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO snapshots (name, data, updated_at) VALUES ($1, $2, NOW())
        ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`, s.name, data)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
