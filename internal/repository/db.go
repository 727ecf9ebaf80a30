package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

const ddl = `
CREATE TABLE IF NOT EXISTS extraction_jobs (
	id             UUID PRIMARY KEY,
	document_id    TEXT NOT NULL,
	org_name       TEXT NOT NULL,
	folder_name    TEXT,
	template_name  TEXT,
	remote_job_id  TEXT,
	status         TEXT NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at    TIMESTAMPTZ,
	error_message  TEXT,
	field_count    INTEGER,
	extracted_json JSONB,
	token_usage    JSONB
);
CREATE INDEX IF NOT EXISTS extraction_jobs_document_idx ON extraction_jobs (document_id);

CREATE TABLE IF NOT EXISTS templates (
	name          TEXT PRIMARY KEY,
	document_type TEXT,
	folder_name   TEXT,
	field_count   INTEGER NOT NULL DEFAULT 0,
	refreshed_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Open creates a pgx pool and ensures the local tables exist.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "dsn", cfg.DSN)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "docuflow"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	if _, err := pool.Exec(ctx, ddl); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		pool.Close()
		return nil, err
	}

	logger.Info("successfully connected to database")
	return pool, nil
}
