package workflow

import (
	"github.com/joseph-ayodele/docuflow/constants"
	"github.com/joseph-ayodele/docuflow/internal/common"
	"github.com/joseph-ayodele/docuflow/internal/entity"
	"github.com/joseph-ayodele/docuflow/internal/fields"
)

// NextStep advances one position. A no-op on the terminal actions step.
func (c *Controller) NextStep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := constants.StepIndex(c.step)
	if next := constants.StepAt(i + 1); next != c.step {
		c.step = next
	}
}

// PreviousStep moves one position back. A no-op on the first step.
func (c *Controller) PreviousStep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := constants.StepIndex(c.step)
	if prev := constants.StepAt(i - 1); prev != c.step {
		c.step = prev
	}
}

// GoToStep jumps to an arbitrary step and clears any current error.
func (c *Controller) GoToStep(s constants.Step) error {
	if !constants.IsValidStep(s) {
		return common.PreconditionErrorf("unknown step %q", s)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = s
	c.errMsg = ""
	return nil
}

// Step returns the current workflow step.
func (c *Controller) Step() constants.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Error returns the current user-facing error message, if any.
func (c *Controller) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Document returns the active document, or nil.
func (c *Controller) Document() *entity.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// SessionID returns the continuity token issued by the first successful
// analysis, or "" before one exists.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// DiscoveredFields returns the candidate fields from the last analysis.
func (c *Controller) DiscoveredFields() []entity.DiscoveredField {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]entity.DiscoveredField, len(c.discovered))
	copy(out, c.discovered)
	return out
}

// LineItemFields returns the repeating/table fields from the last analysis.
func (c *Controller) LineItemFields() []entity.DiscoveredField {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]entity.DiscoveredField, len(c.lineItems))
	copy(out, c.lineItems)
	return out
}

// DocumentType returns the detected document type, or "".
func (c *Controller) DocumentType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.docType
}

// HasLineItems reports whether analysis found repeating fields.
func (c *Controller) HasLineItems() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasItems
}

// Selection exposes the field-selection manager for this instance.
func (c *Controller) Selection() *fields.Manager {
	return c.selection
}

// Schema returns the active extraction schema, or nil.
func (c *Controller) Schema() entity.Schema {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeSchema
}

// Extracted returns the current extraction result, or nil.
func (c *Controller) Extracted() *entity.ExtractedData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extracted
}

// TemplateName returns the template name the instance would report on save:
// the accepted template's, or the one recorded by schema generation.
func (c *Controller) TemplateName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.templateNameLocked()
}
