package entity

import (
	"time"
)

// Document represents a stored document for data transfer between layers.
// Parsing and storage of the original belong to the ingestion collaborator;
// this is the view the extraction workflow operates on.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	FolderName  string    `json:"folder_name,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	SourcePath  string    `json:"source_path,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at,omitempty"`
}

// ParseOutput is the parsed-text result the ingestion collaborator produced
// for a document before the extraction workflow begins.
type ParseOutput struct {
	Text     string        `json:"text"`
	Pages    int           `json:"pages,omitempty"`
	Method   string        `json:"method,omitempty"` // "pdf-text" | "pdf-ocr" | "image-ocr"
	Duration time.Duration `json:"duration,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

// OrgContext is the opaque organization/user identity threaded through every
// remote call. Authentication itself happens elsewhere.
type OrgContext struct {
	OrgName string `json:"org_name"`
	UserID  string `json:"user_id,omitempty"`
}
