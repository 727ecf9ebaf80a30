package workflow

import (
	"context"
	"encoding/json"

	"github.com/joseph-ayodele/docuflow/internal/entity"
	"github.com/joseph-ayodele/docuflow/internal/extraction"
)

// Local job recording is best-effort: a failure to write history never fails
// the extraction itself.

func (c *Controller) recordStart(ctx context.Context, doc *entity.Document, org entity.OrgContext, folder string, templateName *string) string {
	if c.recorder == nil {
		return ""
	}
	jobID, err := c.recorder.Start(ctx, doc.ID, org.OrgName, folder, templateName)
	if err != nil {
		c.logger.Warn("workflow.job_record.start_failed", "document_id", doc.ID, "error", err)
		return ""
	}
	return jobID
}

func (c *Controller) recordSuccess(ctx context.Context, jobID string, resp *extraction.ExtractResponse) {
	if c.recorder == nil || jobID == "" {
		return
	}
	extractedJSON, _ := json.Marshal(resp.ExtractedData)
	var usage json.RawMessage
	if resp.TokenUsage != nil {
		usage, _ = json.Marshal(resp.TokenUsage)
	}
	if err := c.recorder.FinishSuccess(ctx, jobID, resp.ExtractionJobID, extractedJSON, resp.FieldCount, usage); err != nil {
		c.logger.Warn("workflow.job_record.finish_failed", "job_id", jobID, "error", err)
	}
}

func (c *Controller) recordFailure(ctx context.Context, jobID string, cause error) {
	if c.recorder == nil || jobID == "" {
		return
	}
	if err := c.recorder.FinishFailure(ctx, jobID, cause.Error()); err != nil {
		c.logger.Warn("workflow.job_record.finish_failed", "job_id", jobID, "error", err)
	}
}
