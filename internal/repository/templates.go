package repository

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/docuflow/internal/entity"
)

// TemplateRepository mirrors the remote template catalog into local
// persistence, so the catalog survives service outages for read-only views.
type TemplateRepository interface {
	ReplaceAll(ctx context.Context, templates []entity.TemplateInfo) error
	ListByFolder(ctx context.Context, folderName string) ([]entity.TemplateInfo, error)
}

type templateRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewTemplateRepository(pool *pgxpool.Pool, log *slog.Logger) TemplateRepository {
	if log == nil {
		log = slog.Default()
	}
	return &templateRepo{pool: pool, log: log}
}

func (r *templateRepo) ReplaceAll(ctx context.Context, templates []entity.TemplateInfo) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM templates`); err != nil {
		r.log.Error("template cache clear failed", "err", err)
		return err
	}
	for _, t := range templates {
		if _, err := tx.Exec(ctx,
			`INSERT INTO templates (name, document_type, folder_name, field_count, refreshed_at)
			 VALUES ($1, $2, $3, $4, now())`,
			t.Name, t.DocumentType, t.FolderName, t.FieldCount); err != nil {
			r.log.Error("template cache insert failed", "name", t.Name, "err", err)
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.log.Info("template cache refreshed", "count", len(templates))
	return nil
}

func (r *templateRepo) ListByFolder(ctx context.Context, folderName string) ([]entity.TemplateInfo, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name, document_type, folder_name, field_count FROM templates WHERE folder_name = $1 ORDER BY name`,
		folderName)
	if err != nil {
		r.log.Error("template cache list failed", "folder", folderName, "err", err)
		return nil, err
	}
	defer rows.Close()

	var out []entity.TemplateInfo
	for rows.Next() {
		var t entity.TemplateInfo
		if err := rows.Scan(&t.Name, &t.DocumentType, &t.FolderName, &t.FieldCount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
