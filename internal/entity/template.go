package entity

import (
	"encoding/json"
)

// TemplateInfo is a saved extraction template. Name is unique per
// organization; FolderName is the folder association used for filtering.
type TemplateInfo struct {
	Name         string `json:"name"`
	DocumentType string `json:"document_type,omitempty"`
	FolderName   string `json:"folder_name,omitempty"`
	FieldCount   int    `json:"field_count"`
}

// TemplateField is a preview row parsed out of a hydrated template's schema.
// Derived, never mutated directly.
type TemplateField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Schema is the structured field-definition tree the extraction step
// consumes. Opaque to the workflow; produced by schema generation or by
// loading a template. Exactly one schema is active per workflow instance.
type Schema = json.RawMessage
