package handoff

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/docuflow/internal/common"
)

const handoffDDL = `
CREATE TABLE IF NOT EXISTS handoff (
	doc_id    TEXT PRIMARY KEY,
	payload   BLOB NOT NULL,
	stored_at TEXT NOT NULL
);`

// SQLiteStore is a file-backed Store that survives process restarts, for the
// case where the producing and consuming runs are separate invocations.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (and creates if needed) the handoff database at path.
// Blobs older than ttl are treated as absent; ttl <= 0 disables expiry.
func OpenSQLite(path string, ttl time.Duration, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open handoff db: %w", err)
	}
	if _, err := db.Exec(handoffDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init handoff db: %w", err)
	}
	return &SQLiteStore{db: db, ttl: ttl, logger: logger}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, b Blob) error {
	if b.StoredAt.IsZero() {
		b.StoredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode handoff blob: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO handoff (doc_id, payload, stored_at) VALUES (?, ?, ?)
		 ON CONFLICT(doc_id) DO UPDATE SET payload = excluded.payload, stored_at = excluded.stored_at`,
		key, payload, b.StoredAt.Format(time.RFC3339Nano))
	if err != nil {
		s.logger.Error("handoff.put_failed", "doc_id", key, "error", err)
		return common.WrapError(err, "put handoff blob")
	}
	return nil
}

func (s *SQLiteStore) Take(ctx context.Context, key string) (*Blob, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM handoff WHERE doc_id = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "read handoff blob")
	}

	var b Blob
	if err := json.Unmarshal(payload, &b); err != nil {
		// A blob we cannot decode is cleared so it does not wedge the key.
		_ = s.Delete(ctx, key)
		return nil, fmt.Errorf("decode handoff blob: %w", err)
	}

	if err := s.Delete(ctx, key); err != nil {
		return nil, err
	}

	if s.ttl > 0 && time.Since(b.StoredAt) > s.ttl {
		s.logger.Warn("handoff.expired", "doc_id", key, "stored_at", b.StoredAt)
		return nil, common.ErrNotFound
	}
	return &b, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM handoff WHERE doc_id = ?`, key); err != nil {
		return common.WrapError(err, "delete handoff blob")
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
