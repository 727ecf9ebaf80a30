package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/docuflow/constants"
	"github.com/joseph-ayodele/docuflow/internal/entity"
)

// ExtractionJobRepository records the lifecycle of local extraction jobs.
type ExtractionJobRepository interface {
	Start(ctx context.Context, documentID, orgName, folderName string, templateName *string) (string, error)
	FinishSuccess(ctx context.Context, jobID, remoteJobID string, extracted json.RawMessage, fieldCount int, tokenUsage json.RawMessage) error
	FinishFailure(ctx context.Context, jobID, message string) error
	ListByDocument(ctx context.Context, documentID string) ([]*entity.ExtractionJob, error)
}

type extractionJobRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewExtractionJobRepository(pool *pgxpool.Pool, log *slog.Logger) ExtractionJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractionJobRepo{pool: pool, log: log}
}

func (r *extractionJobRepo) Start(ctx context.Context, documentID, orgName, folderName string, templateName *string) (string, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO extraction_jobs (id, document_id, org_name, folder_name, template_name, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())`,
		id, documentID, orgName, folderName, templateName, string(constants.JobStatusRunning))
	if err != nil {
		r.log.Error("extraction_job start failed", "document_id", documentID, "err", err)
		return "", err
	}
	r.log.Info("extraction_job started", "job_id", id, "document_id", documentID)
	return id.String(), nil
}

func (r *extractionJobRepo) FinishSuccess(ctx context.Context, jobID, remoteJobID string, extracted json.RawMessage, fieldCount int, tokenUsage json.RawMessage) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE extraction_jobs
		 SET status = $2, remote_job_id = $3, extracted_json = $4, field_count = $5, token_usage = $6, finished_at = now()
		 WHERE id = $1`,
		jobID, string(constants.JobStatusOK), remoteJobID, extracted, fieldCount, tokenUsage)
	if err != nil {
		r.log.Error("extraction_job finish(OK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extraction_job finished (OK)", "job_id", jobID, "remote_job_id", remoteJobID, "field_count", fieldCount)
	return nil
}

func (r *extractionJobRepo) FinishFailure(ctx context.Context, jobID, message string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE extraction_jobs
		 SET status = $2, error_message = $3, finished_at = now()
		 WHERE id = $1`,
		jobID, string(constants.JobStatusFailed), message)
	if err != nil {
		r.log.Error("extraction_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extraction_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func (r *extractionJobRepo) ListByDocument(ctx context.Context, documentID string) ([]*entity.ExtractionJob, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, document_id, org_name, folder_name, template_name, remote_job_id,
		        status, started_at, finished_at, error_message, field_count, extracted_json, token_usage
		 FROM extraction_jobs WHERE document_id = $1 ORDER BY started_at DESC`,
		documentID)
	if err != nil {
		r.log.Error("extraction_job list failed", "document_id", documentID, "err", err)
		return nil, err
	}
	defer rows.Close()

	var out []*entity.ExtractionJob
	for rows.Next() {
		var (
			j          entity.ExtractionJob
			folder     *string
			status     string
			finishedAt *time.Time
		)
		if err := rows.Scan(&j.ID, &j.DocumentID, &j.OrgName, &folder, &j.TemplateName, &j.RemoteJobID,
			&status, &j.StartedAt, &finishedAt, &j.ErrorMessage, &j.FieldCount, &j.ExtractedJSON, &j.TokenUsage); err != nil {
			return nil, err
		}
		if folder != nil {
			j.FolderName = *folder
		}
		j.Status = constants.JobStatus(status)
		j.FinishedAt = finishedAt
		out = append(out, &j)
	}
	return out, rows.Err()
}
