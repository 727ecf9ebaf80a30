package entity

import (
	"github.com/joseph-ayodele/docuflow/constants"
)

// DiscoveredField is one candidate field proposed by the analysis step.
// Immutable once produced; re-analysis replaces the whole list.
type DiscoveredField struct {
	FieldName   string             `json:"field_name"`
	DisplayName string             `json:"display_name"`
	DataType    constants.DataType `json:"data_type"`
	Location    string             `json:"location,omitempty"`
	Required    bool               `json:"required"`
}

// FieldSelection is a user-confirmed subset of a DiscoveredField.
// At most one selection exists per FieldName.
type FieldSelection struct {
	FieldName   string             `json:"field_name"`
	DisplayName string             `json:"display_name"`
	DataType    constants.DataType `json:"data_type"`
	Location    string             `json:"location,omitempty"`
	Required    bool               `json:"required"`
}

// SelectionFromField derives a selection from a discovered field.
func SelectionFromField(f DiscoveredField) FieldSelection {
	return FieldSelection{
		FieldName:   f.FieldName,
		DisplayName: f.DisplayName,
		DataType:    f.DataType,
		Location:    f.Location,
		Required:    f.Required,
	}
}
