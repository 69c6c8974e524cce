package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS content_snapshots (
	ref         TEXT PRIMARY KEY,
	payload     BLOB NOT NULL,
	snapshot_id TEXT NOT NULL,
	etag        TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	extra       TEXT
)`

// SQLiteStore keeps snapshots in a SQLite table. Saves run in a transaction
// so the ETag check and the upsert are atomic.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteStore opens dsn with the sqlite3 driver and prepares the schema.
func OpenSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("state: open sqlite %q: %w", dsn, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	store, err := NewSQLiteStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an open database and prepares the schema.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("state: sqlite db is required")
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("state: prepare sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, ref Ref) ([]byte, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT payload, snapshot_id, etag, updated_at, extra FROM content_snapshots WHERE ref = ?`, key)

	var (
		payload   []byte
		meta      Meta
		updatedAt string
		extra     sql.NullString
	)
	err = row.Scan(&payload, &meta.SnapshotID, &meta.ETag, &updatedAt, &extra)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Meta{}, false, nil
	}
	if err != nil {
		return nil, Meta{}, false, fmt.Errorf("state: load %s: %w", key, err)
	}
	if meta.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, Meta{}, false, fmt.Errorf("state: load %s: updated_at: %w", key, err)
	}
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &meta.Extra); err != nil {
			return nil, Meta{}, false, fmt.Errorf("state: load %s: extra: %w", key, err)
		}
	}
	return payload, meta, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, ref Ref, snapshot []byte, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Meta{}, fmt.Errorf("state: begin save %s: %w", key, err)
	}
	defer tx.Rollback()

	var stored string
	err = tx.QueryRowContext(ctx, `SELECT etag FROM content_snapshots WHERE ref = ?`, key).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Meta{}, fmt.Errorf("state: save %s: %w", key, err)
	default:
		if err := checkETag(meta.ETag, stored); err != nil {
			return Meta{}, err
		}
	}

	saved := nextMeta(meta, s.now())
	var extra sql.NullString
	if saved.Extra != nil {
		raw, err := json.Marshal(saved.Extra)
		if err != nil {
			return Meta{}, fmt.Errorf("state: save %s: extra: %w", key, err)
		}
		extra = sql.NullString{String: string(raw), Valid: true}
	}
	if snapshot == nil {
		snapshot = []byte{}
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO content_snapshots (ref, payload, snapshot_id, etag, updated_at, extra)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(ref) DO UPDATE SET
	payload = excluded.payload,
	snapshot_id = excluded.snapshot_id,
	etag = excluded.etag,
	updated_at = excluded.updated_at,
	extra = excluded.extra`,
		key, snapshot, saved.SnapshotID, saved.ETag, saved.UpdatedAt.Format(time.RFC3339Nano), extra)
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return Meta{}, fmt.Errorf("state: commit save %s: %w", key, err)
	}
	return cloneMeta(saved), nil
}

func (s *SQLiteStore) Delete(ctx context.Context, ref Ref) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM content_snapshots WHERE ref = ?`, key); err != nil {
		return fmt.Errorf("state: delete %s: %w", key, err)
	}
	return nil
}
