package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/joseph-ayodele/docuflow/internal/entity"
)

// PreviewFields flattens a hydrated template schema into rows suitable for a
// human preview. Nested object properties are flattened with a dotted name;
// arrays report the element type.
func PreviewFields(s entity.Schema) ([]entity.TemplateField, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("empty schema")
	}

	var root struct {
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	if err := json.Unmarshal(s, &root); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if len(root.Properties) == 0 {
		return nil, fmt.Errorf("schema has no properties")
	}

	requiredSet := map[string]bool{}
	for _, r := range root.Required {
		requiredSet[r] = true
	}

	var out []entity.TemplateField
	for name, raw := range root.Properties {
		fields, err := flatten(name, raw, requiredSet[name])
		if err != nil {
			return nil, err
		}
		out = append(out, fields...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func flatten(name string, raw json.RawMessage, required bool) ([]entity.TemplateField, error) {
	var prop struct {
		Type        string                     `json:"type"`
		Title       string                     `json:"title"`
		Description string                     `json:"description"`
		Properties  map[string]json.RawMessage `json:"properties"`
		Required    []string                   `json:"required"`
		Items       *struct {
			Type string `json:"type"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &prop); err != nil {
		return nil, fmt.Errorf("parse property %q: %w", name, err)
	}

	desc := prop.Description
	if desc == "" {
		desc = prop.Title
	}

	// Nested objects flatten into dotted child rows.
	if prop.Type == "object" && len(prop.Properties) > 0 {
		requiredSet := map[string]bool{}
		for _, r := range prop.Required {
			requiredSet[r] = true
		}
		var out []entity.TemplateField
		for child, childRaw := range prop.Properties {
			fields, err := flatten(name+"."+child, childRaw, requiredSet[child])
			if err != nil {
				return nil, err
			}
			out = append(out, fields...)
		}
		return out, nil
	}

	typ := prop.Type
	if typ == "array" && prop.Items != nil && prop.Items.Type != "" {
		typ = "array of " + prop.Items.Type
	}
	if typ == "" {
		typ = "string"
	}

	return []entity.TemplateField{{
		Name:        name,
		Type:        typ,
		Required:    required,
		Description: desc,
	}}, nil
}
