package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docuflow/constants"
)

// TokenUsage is diagnostic cost accounting reported by the extraction
// service. Never used for control flow.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ExtractedData is the result of one extraction run: a free-form record
// keyed by field name plus the server-issued job id required to save or
// export it.
type ExtractedData struct {
	Fields     map[string]any `json:"fields"`
	FieldCount int            `json:"field_count"`
	JobID      string         `json:"extraction_job_id"`
	TokenUsage *TokenUsage    `json:"token_usage,omitempty"`
}

// ExtractionJob represents a locally recorded extraction job for data
// transfer between layers.
type ExtractionJob struct {
	ID            uuid.UUID           `json:"id"`
	DocumentID    string              `json:"document_id"`
	OrgName       string              `json:"org_name"`
	FolderName    string              `json:"folder_name,omitempty"`
	TemplateName  *string             `json:"template_name,omitempty"`
	RemoteJobID   *string             `json:"remote_job_id,omitempty"`
	Status        constants.JobStatus `json:"status"`
	StartedAt     time.Time           `json:"started_at"`
	FinishedAt    *time.Time          `json:"finished_at,omitempty"`
	ErrorMessage  *string             `json:"error_message,omitempty"`
	FieldCount    *int                `json:"field_count,omitempty"`
	ExtractedJSON json.RawMessage     `json:"extracted_json,omitempty"`
	TokenUsage    json.RawMessage     `json:"token_usage,omitempty"`
}
