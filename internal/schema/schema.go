// Package schema builds and checks extraction schemas. The remote service is
// the source of truth for the schema consumed by extraction; this package
// mirrors its shape closely enough to validate inputs and derive previews.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/docuflow/constants"
	"github.com/joseph-ayodele/docuflow/internal/entity"
)

// Build produces a JSON-Schema (draft 2020-12 subset) for the given field
// selections. Used as a local stand-in when the remote schema-generation
// operation is unavailable, and in tests.
func Build(selections []entity.FieldSelection, documentType string) (entity.Schema, error) {
	if len(selections) == 0 {
		return nil, fmt.Errorf("no selections")
	}

	props := map[string]any{}
	var required []string
	for _, s := range selections {
		props[s.FieldName] = typeProp(s.DataType, s.DisplayName)
		if s.Required {
			required = append(required, s.FieldName)
		}
	}

	m := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
	if documentType != "" {
		m["description"] = documentType
	}
	if len(required) > 0 {
		m["required"] = required
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return b, nil
}

func typeProp(dt constants.DataType, title string) map[string]any {
	p := map[string]any{}
	if title != "" {
		p["title"] = title
	}
	switch dt {
	case constants.TypeNumber:
		p["type"] = "number"
	case constants.TypeBoolean:
		p["type"] = "boolean"
	case constants.TypeDate:
		p["type"] = "string"
		p["pattern"] = `^\d{4}-\d{2}-\d{2}$`
	case constants.TypeCurrency:
		p["type"] = "string"
		p["pattern"] = `^-?\d+(\.\d{1,2})?$`
	case constants.TypeList:
		p["type"] = "array"
		p["items"] = map[string]any{"type": "string"}
	default:
		p["type"] = "string"
	}
	return p
}

// Validate checks an extracted payload against the active schema. A nil or
// empty schema validates nothing and passes.
func Validate(s entity.Schema, data []byte) error {
	if len(s) == 0 {
		return nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(s)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// IsWellFormed reports whether a hydrated schema at least compiles. Used as a
// consistency guard before a template is accepted.
func IsWellFormed(s entity.Schema) bool {
	if len(s) == 0 {
		return false
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(s)); err != nil {
		return false
	}
	_, err := compiler.Compile("schema.json")
	return err == nil
}
