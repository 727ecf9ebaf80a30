// Package fields holds the user's working set of field selections. Manual
// selection and template selection are mutually exclusive: mutating one side
// clears the other.
package fields

import (
	"sync"

	"github.com/joseph-ayodele/docuflow/internal/entity"
)

// Manager is the in-memory set of user-chosen fields, keyed by field name.
type Manager struct {
	mu         sync.Mutex
	selections []entity.FieldSelection
	template   *entity.TemplateInfo
}

func NewManager() *Manager {
	return &Manager{}
}

// Toggle removes the selection matching f's field name if present, otherwise
// appends a selection derived from f. Either way the active template is
// cleared.
func (m *Manager) Toggle(f entity.DiscoveredField) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.template = nil

	for i, s := range m.selections {
		if s.FieldName == f.FieldName {
			m.selections = append(m.selections[:i], m.selections[i+1:]...)
			return
		}
	}
	m.selections = append(m.selections, entity.SelectionFromField(f))
}

// SelectAll replaces the selection set with one entry per field across both
// lists. The source lists are disjoint by name, so no dedup is needed.
func (m *Manager) SelectAll(discovered, lineItems []entity.DiscoveredField) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.template = nil

	out := make([]entity.FieldSelection, 0, len(discovered)+len(lineItems))
	for _, f := range discovered {
		out = append(out, entity.SelectionFromField(f))
	}
	for _, f := range lineItems {
		out = append(out, entity.SelectionFromField(f))
	}
	m.selections = out
}

// Clear empties the selection set and clears the active template.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selections = nil
	m.template = nil
}

// SetTemplate makes t the active template and empties the selection set.
func (m *Manager) SetTemplate(t *entity.TemplateInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selections = nil
	m.template = t
}

// Template returns the active template, or nil.
func (m *Manager) Template() *entity.TemplateInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.template
}

// Selections returns a copy of the current selection set.
func (m *Manager) Selections() []entity.FieldSelection {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.FieldSelection, len(m.selections))
	copy(out, m.selections)
	return out
}

// IsSelected reports whether a selection exists for fieldName.
func (m *Manager) IsSelected(fieldName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.selections {
		if s.FieldName == fieldName {
			return true
		}
	}
	return false
}

// Count returns the number of current selections.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.selections)
}
