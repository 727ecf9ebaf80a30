package extraction

import (
	"context"

	"github.com/joseph-ayodele/docuflow/internal/entity"
)

// AnalyzeRequest asks the remote service to discover candidate fields in a
// parsed document. SessionID is empty on the first call; the service issues
// one and every later call for the same document instance carries it back.
type AnalyzeRequest struct {
	DocumentName     string `json:"document_name"`
	OrgName          string `json:"org_name"`
	FolderName       string `json:"folder_name"`
	DocumentTypeHint string `json:"document_type_hint,omitempty"`
	SessionID        string `json:"session_id,omitempty"`
}

type AnalyzeResponse struct {
	Success        bool                     `json:"success"`
	Fields         []entity.DiscoveredField `json:"fields"`
	LineItemFields []entity.DiscoveredField `json:"line_item_fields"`
	DocumentType   string                   `json:"document_type"`
	HasLineItems   bool                     `json:"has_line_items"`
	SessionID      string                   `json:"session_id"`
	Error          string                   `json:"error,omitempty"`
}

type GenerateSchemaRequest struct {
	TemplateName string                  `json:"template_name"`
	DocumentType string                  `json:"document_type"`
	Fields       []entity.FieldSelection `json:"fields"`
	SaveTemplate bool                    `json:"save_template"`
	SessionID    string                  `json:"session_id,omitempty"`
}

type GenerateSchemaResponse struct {
	Success bool          `json:"success"`
	Schema  entity.Schema `json:"schema,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type GetTemplateRequest struct {
	TemplateName string `json:"template_name"`
	FolderName   string `json:"folder_name,omitempty"`
}

type GetTemplateResponse struct {
	Success bool          `json:"success"`
	Schema  entity.Schema `json:"schema,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type ListTemplatesResponse struct {
	Success   bool                  `json:"success"`
	Templates []entity.TemplateInfo `json:"templates"`
	Error     string                `json:"error,omitempty"`
}

type ExtractRequest struct {
	DocumentName string        `json:"document_name"`
	OrgName      string        `json:"org_name"`
	FolderName   string        `json:"folder_name"`
	TemplateName string        `json:"template_name,omitempty"`
	Schema       entity.Schema `json:"schema,omitempty"`
	SessionID    string        `json:"session_id,omitempty"`
}

type ExtractResponse struct {
	Success         bool               `json:"success"`
	ExtractedData   map[string]any     `json:"extracted_data"`
	FieldCount      int                `json:"extracted_field_count"`
	ExtractionJobID string             `json:"extraction_job_id"`
	TokenUsage      *entity.TokenUsage `json:"token_usage,omitempty"`
	Error           string             `json:"error,omitempty"`
}

type SaveRequest struct {
	JobID        string         `json:"job_id"`
	DocumentID   string         `json:"document_id"`
	Data         map[string]any `json:"data"`
	TemplateName string         `json:"template_name,omitempty"`
}

type SaveResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Service is the remote extraction-service contract the workflow depends on.
// The field-discovery, schema-generation and data-extraction logic live
// behind it; this module only consumes the request/response shapes.
type Service interface {
	AnalyzeFields(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error)
	GenerateSchema(ctx context.Context, req GenerateSchemaRequest) (*GenerateSchemaResponse, error)
	GetTemplate(ctx context.Context, req GetTemplateRequest) (*GetTemplateResponse, error)
	ListTemplates(ctx context.Context) (*ListTemplatesResponse, error)
	ExtractData(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)
	SaveExtractedData(ctx context.Context, req SaveRequest) (*SaveResponse, error)
	ExportToExcel(ctx context.Context, jobID string) ([]byte, error)
}

// FolderResolver resolves the folder a document lives in. Implemented by the
// document-service collaborator; the workflow falls back to "default" when
// resolution fails.
type FolderResolver interface {
	FolderName(ctx context.Context, doc *entity.Document) (string, error)
}
