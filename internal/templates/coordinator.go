package templates

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docuflow/internal/common"
	"github.com/joseph-ayodele/docuflow/internal/entity"
	"github.com/joseph-ayodele/docuflow/internal/extraction"
	"github.com/joseph-ayodele/docuflow/internal/schema"
)

// DecisionKind says how the user chose to proceed out of template selection.
type DecisionKind int

const (
	DecisionUseTemplate DecisionKind = iota + 1
	DecisionFreshAnalysis
)

// Decision is the one-shot outcome of a selection session. Consumed exactly
// once via TakeDecision.
type Decision struct {
	Kind     DecisionKind
	Template *entity.TemplateInfo
	Schema   entity.Schema
}

// Coordinator runs one template-selection session at a time: open, hydrate a
// chosen template, then end with a single proceed decision.
type Coordinator struct {
	catalog *Catalog
	svc     extraction.Service
	logger  *slog.Logger

	mu         sync.Mutex
	open       bool
	doc        *entity.Document
	folderName string
	parsedText string
	selected   *entity.TemplateInfo
	schema     entity.Schema
	preview    []entity.TemplateField
	loading    bool
	seq        uint64
	errMsg     string
	decision   *Decision
}

func NewCoordinator(catalog *Catalog, svc extraction.Service, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{catalog: catalog, svc: svc, logger: logger}
}

// OpenSelection resets local state, stores the document context, and opens
// the session.
func (c *Coordinator) OpenSelection(doc *entity.Document, folderName, parsedText string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	c.doc = doc
	c.folderName = folderName
	c.parsedText = parsedText
	c.selected = nil
	c.schema = nil
	c.preview = nil
	c.loading = false
	c.errMsg = ""
	c.decision = nil
	c.seq++
}

// Candidates lists the templates visible for the session's folder.
func (c *Coordinator) Candidates(ctx context.Context) ([]entity.TemplateInfo, error) {
	c.mu.Lock()
	folder := c.folderName
	open := c.open
	c.mu.Unlock()
	if !open {
		return nil, common.PreconditionError("selection is not open")
	}
	return c.catalog.ForFolder(ctx, folder)
}

// SelectTemplate hydrates tpl's full schema. A nil tpl clears the current
// hydration. Selecting again while a hydration is still in flight wins: the
// earlier response is dropped by the sequence guard.
func (c *Coordinator) SelectTemplate(ctx context.Context, tpl *entity.TemplateInfo) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return common.PreconditionError("selection is not open")
	}
	if tpl == nil {
		c.selected = nil
		c.schema = nil
		c.preview = nil
		c.loading = false
		c.errMsg = ""
		c.seq++
		c.mu.Unlock()
		return nil
	}

	c.seq++
	seq := c.seq
	c.selected = tpl
	c.schema = nil
	c.preview = nil
	c.loading = true
	c.errMsg = ""
	folder := c.folderName
	c.mu.Unlock()

	start := time.Now()
	resp, err := c.svc.GetTemplate(ctx, extraction.GetTemplateRequest{
		TemplateName: tpl.Name,
		FolderName:   folder,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		// A later selection (or a reset) superseded this hydration.
		c.logger.Info("templates.hydrate.stale_response_dropped", "template", tpl.Name)
		return nil
	}
	c.loading = false

	if err != nil {
		c.errMsg = "failed to load template: " + err.Error()
		c.schema = nil
		c.preview = nil
		c.logger.Error("templates.hydrate.failed", "template", tpl.Name, "error", err)
		return err
	}

	preview, perr := schema.PreviewFields(resp.Schema)
	if perr != nil {
		// No partial state: a schema we cannot even preview must not be
		// carried forward to extraction.
		c.errMsg = "template schema is malformed: " + perr.Error()
		c.schema = nil
		c.preview = nil
		c.logger.Error("templates.hydrate.malformed_schema", "template", tpl.Name, "error", perr)
		return perr
	}

	c.schema = resp.Schema
	c.preview = preview
	c.logger.Info("templates.hydrate.ok",
		"template", tpl.Name,
		"fields", len(preview),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// ProceedWithTemplate ends the session with the hydrated template. Guarded:
// both a selected template and a loaded schema are required.
func (c *Coordinator) ProceedWithTemplate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return common.PreconditionError("selection is not open")
	}
	if c.selected == nil {
		c.errMsg = "select a template first"
		return common.PreconditionError("no template selected")
	}
	if len(c.schema) == 0 {
		c.errMsg = "template schema is not loaded"
		return common.PreconditionError("template schema not loaded")
	}

	c.decision = &Decision{Kind: DecisionUseTemplate, Template: c.selected, Schema: c.schema}
	c.closeLocked()
	return nil
}

// ProceedWithAnalyze ends the session asking for fresh analysis. Always
// allowed while open.
func (c *Coordinator) ProceedWithAnalyze() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return common.PreconditionError("selection is not open")
	}
	c.decision = &Decision{Kind: DecisionFreshAnalysis}
	c.closeLocked()
	return nil
}

// TakeDecision returns the pending decision and clears it. The second take
// after a proceed returns false: decisions are consumed exactly once.
func (c *Coordinator) TakeDecision() (Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.decision == nil {
		return Decision{}, false
	}
	d := *c.decision
	c.decision = nil
	return d, true
}

// ResetDecision discards a pending decision without acting on it.
func (c *Coordinator) ResetDecision() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decision = nil
}

func (c *Coordinator) closeLocked() {
	c.open = false
	c.loading = false
	c.seq++
}

// IsOpen reports whether a selection session is active.
func (c *Coordinator) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// SelectedTemplate returns the currently selected template, or nil.
func (c *Coordinator) SelectedTemplate() *entity.TemplateInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// PreviewFields returns the derived preview of the hydrated schema.
func (c *Coordinator) PreviewFields() []entity.TemplateField {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]entity.TemplateField, len(c.preview))
	copy(out, c.preview)
	return out
}

// IsLoading reports whether a template hydration is in flight.
func (c *Coordinator) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// SchemaReady reports whether a hydrated schema is loaded.
func (c *Coordinator) SchemaReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.schema) > 0
}

// Error returns the current user-facing error message, if any.
func (c *Coordinator) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}
