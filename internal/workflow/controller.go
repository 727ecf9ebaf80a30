// Package workflow drives one document field-extraction instance through its
// steps: analyze, select, extract, actions. Exactly one
// {document, session, schema, extracted data} tuple is live at a time;
// starting a new extraction fully resets it.
package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docuflow/constants"
	"github.com/joseph-ayodele/docuflow/internal/common"
	"github.com/joseph-ayodele/docuflow/internal/entity"
	"github.com/joseph-ayodele/docuflow/internal/extraction"
	"github.com/joseph-ayodele/docuflow/internal/fields"
	"github.com/joseph-ayodele/docuflow/internal/schema"
)

// Operation names used for the in-flight latch and log events.
const (
	opAnalyze  = "analyze"
	opGenerate = "generate_schema"
	opExtract  = "extract"
	opSave     = "save"
	opExport   = "export"
)

const fallbackFolder = "default"

// JobRecorder records extraction jobs in local persistence. Optional; a nil
// recorder disables local job history.
type JobRecorder interface {
	Start(ctx context.Context, documentID, orgName, folderName string, templateName *string) (string, error)
	FinishSuccess(ctx context.Context, jobID, remoteJobID string, extracted json.RawMessage, fieldCount int, tokenUsage json.RawMessage) error
	FinishFailure(ctx context.Context, jobID, message string) error
}

// ExportSink receives the binary export payload. The controller only triggers
// the save; where the bytes land is the caller's concern.
type ExportSink func(filename string, payload []byte) error

// ExportBuilder builds a workbook locally from the data already in hand, for
// when the remote export payload is unavailable. Optional; nil disables the
// fallback.
type ExportBuilder interface {
	BuildXLSX(doc *entity.Document, data *entity.ExtractedData) ([]byte, error)
}

// Controller is the extraction workflow state machine.
type Controller struct {
	svc      extraction.Service
	folders  extraction.FolderResolver
	recorder JobRecorder
	sink     ExportSink
	builder  ExportBuilder
	logger   *slog.Logger

	mu     sync.Mutex
	gen    uint64
	busyOp string

	step       constants.Step
	doc        *entity.Document
	org        entity.OrgContext
	parse      *entity.ParseOutput
	sessionID  string
	discovered []entity.DiscoveredField
	lineItems  []entity.DiscoveredField
	docType    string
	hasItems   bool

	selection     *fields.Manager
	activeSchema  entity.Schema
	savedTemplate *entity.TemplateInfo
	extracted     *entity.ExtractedData
	errMsg        string
}

// NewController wires the workflow to its collaborators. folders, recorder,
// sink and builder may be nil; the folder fallback, job history, export
// saving and local export degrade accordingly.
func NewController(svc extraction.Service, folders extraction.FolderResolver, recorder JobRecorder, sink ExportSink, builder ExportBuilder, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		svc:       svc,
		folders:   folders,
		recorder:  recorder,
		sink:      sink,
		builder:   builder,
		logger:    logger,
		step:      constants.StepAnalyze,
		selection: fields.NewManager(),
	}
}

// StartExtraction binds a new document to the workflow. All prior working
// state is reset first, whatever step the previous instance was on; any
// still-outstanding remote responses are discarded when they land.
func (c *Controller) StartExtraction(doc *entity.Document, org entity.OrgContext, parse *entity.ParseOutput) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.doc = doc
	c.org = org
	c.parse = parse
	c.logger.Info("workflow.start", "document", docName(doc), "org", org.OrgName)
}

// AnalyzeFields calls the remote field-discovery operation and advances to
// the select step. This is the only operation that may mint a session id;
// once present the id is reused for the rest of the instance's life.
func (c *Controller) AnalyzeFields(ctx context.Context) error {
	c.mu.Lock()
	if c.busyOp != "" {
		c.mu.Unlock()
		return common.ErrBusy
	}
	if c.doc == nil {
		c.errMsg = "no active document"
		c.mu.Unlock()
		return common.PreconditionError("no active document")
	}
	if c.org.OrgName == "" {
		c.errMsg = "missing organization context"
		c.mu.Unlock()
		return common.PreconditionError("missing organization context")
	}
	c.busyOp = opAnalyze
	gen := c.gen
	doc := c.doc
	org := c.org
	hint := c.docType
	session := c.sessionID
	c.mu.Unlock()

	folder := c.resolveFolder(ctx, doc)
	start := time.Now()
	resp, err := c.svc.AnalyzeFields(ctx, extraction.AnalyzeRequest{
		DocumentName:     doc.Name,
		OrgName:          org.OrgName,
		FolderName:       folder,
		DocumentTypeHint: hint,
		SessionID:        session,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.release(opAnalyze)
	if gen != c.gen {
		c.logger.Info("workflow.analyze.stale_response_dropped", "document", docName(doc))
		return nil
	}
	if err != nil {
		c.errMsg = "field analysis failed: " + err.Error()
		c.logger.Error("workflow.analyze.failed", "document", docName(doc), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return err
	}

	c.discovered = canonicalizeFields(resp.Fields)
	c.lineItems = canonicalizeFields(resp.LineItemFields)
	c.docType = resp.DocumentType
	c.hasItems = resp.HasLineItems
	if resp.SessionID != "" {
		c.sessionID = resp.SessionID
	}
	c.errMsg = ""
	c.step = constants.StepSelect
	c.logger.Info("workflow.analyze.ok",
		"document", docName(doc),
		"fields", len(resp.Fields),
		"line_item_fields", len(resp.LineItemFields),
		"document_type", resp.DocumentType,
		"session_id", c.sessionID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// GenerateSchema compiles the current selections into an extraction schema
// via the remote service and advances to the extract step. With saveTemplate
// set, a lightweight TemplateInfo is recorded so later save/export steps know
// the template name.
func (c *Controller) GenerateSchema(ctx context.Context, templateName string, saveTemplate bool) error {
	c.mu.Lock()
	if c.busyOp != "" {
		c.mu.Unlock()
		return common.ErrBusy
	}
	selections := c.selection.Selections()
	if len(selections) == 0 {
		c.errMsg = "select at least one field"
		c.mu.Unlock()
		return common.PreconditionError("no fields selected")
	}
	if c.docType == "" {
		c.errMsg = "document type is not known yet"
		c.mu.Unlock()
		return common.PreconditionError("document type not detected")
	}
	c.busyOp = opGenerate
	gen := c.gen
	docType := c.docType
	session := c.sessionID
	folder := c.folderOf()
	c.mu.Unlock()

	start := time.Now()
	var compiled entity.Schema
	resp, err := c.svc.GenerateSchema(ctx, extraction.GenerateSchemaRequest{
		TemplateName: templateName,
		DocumentType: docType,
		Fields:       selections,
		SaveTemplate: saveTemplate,
		SessionID:    session,
	})
	if err == nil {
		compiled = resp.Schema
	} else {
		// The selections fully determine the schema, so a remote outage is
		// survivable; the template cannot be saved remotely though.
		c.logger.Warn("workflow.generate.remote_failed_building_locally", "template", templateName, "error", err)
		compiled, err = schema.Build(selections, docType)
		if err == nil {
			saveTemplate = false
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.release(opGenerate)
	if gen != c.gen {
		c.logger.Info("workflow.generate.stale_response_dropped", "template", templateName)
		return nil
	}
	if err != nil {
		c.errMsg = "schema generation failed: " + err.Error()
		c.logger.Error("workflow.generate.failed", "template", templateName, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return err
	}

	c.activeSchema = compiled
	if saveTemplate {
		c.savedTemplate = &entity.TemplateInfo{
			Name:         templateName,
			DocumentType: docType,
			FolderName:   folder,
			FieldCount:   len(selections),
		}
	}
	c.errMsg = ""
	c.step = constants.StepExtract
	c.logger.Info("workflow.generate.ok",
		"template", templateName,
		"save_template", saveTemplate,
		"fields", len(selections),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// AcceptTemplate installs a hydrated template's schema as the active schema
// and jumps straight to the extract step, skipping discovery and selection.
func (c *Controller) AcceptTemplate(tpl *entity.TemplateInfo, s entity.Schema) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return common.PreconditionError("no active document")
	}
	if tpl == nil || len(s) == 0 {
		return common.PreconditionError("template and schema are required")
	}
	if !schema.IsWellFormed(s) {
		return common.PreconditionError("template schema is malformed")
	}
	c.selection.SetTemplate(tpl)
	c.activeSchema = s
	c.errMsg = ""
	c.step = constants.StepExtract
	c.logger.Info("workflow.template_accepted", "template", tpl.Name, "document", docName(c.doc))
	return nil
}

// ExtractData executes extraction against the active document using the
// active schema or template and advances to the actions step. A failed
// re-extraction clears any earlier result: stale data must never look fresh.
func (c *Controller) ExtractData(ctx context.Context) error {
	c.mu.Lock()
	if c.busyOp != "" {
		c.mu.Unlock()
		return common.ErrBusy
	}
	if c.doc == nil {
		c.errMsg = "no active document"
		c.mu.Unlock()
		return common.PreconditionError("no active document")
	}
	tpl := c.selection.Template()
	if tpl == nil {
		tpl = c.savedTemplate
	}
	if len(c.activeSchema) == 0 && tpl == nil {
		c.errMsg = "nothing to extract with: pick fields or a template first"
		c.mu.Unlock()
		return common.PreconditionError("neither a schema nor a template is active")
	}
	c.busyOp = opExtract
	gen := c.gen
	doc := c.doc
	org := c.org
	activeSchema := c.activeSchema
	session := c.sessionID
	c.mu.Unlock()

	folder := c.resolveFolder(ctx, doc)
	templateName := ""
	var templateNamePtr *string
	if tpl != nil {
		templateName = tpl.Name
		templateNamePtr = &templateName
	}

	localJob := c.recordStart(ctx, doc, org, folder, templateNamePtr)

	start := time.Now()
	resp, err := c.svc.ExtractData(ctx, extraction.ExtractRequest{
		DocumentName: doc.Name,
		OrgName:      org.OrgName,
		FolderName:   folder,
		TemplateName: templateName,
		Schema:       activeSchema,
		SessionID:    session,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.release(opExtract)
	if gen != c.gen {
		c.logger.Info("workflow.extract.stale_response_dropped", "document", docName(doc))
		return nil
	}
	if err != nil {
		c.errMsg = "extraction failed: " + err.Error()
		// A previously successful result is dropped rather than retained:
		// save/export must never act on data the user believes was just
		// re-extracted.
		c.extracted = nil
		c.recordFailure(ctx, localJob, err)
		c.logger.Error("workflow.extract.failed", "document", docName(doc), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return err
	}

	c.extracted = &entity.ExtractedData{
		Fields:     resp.ExtractedData,
		FieldCount: resp.FieldCount,
		JobID:      resp.ExtractionJobID,
		TokenUsage: resp.TokenUsage,
	}
	c.errMsg = ""
	c.step = constants.StepActions
	c.recordSuccess(ctx, localJob, resp)
	c.validateAgainstSchema(activeSchema, resp.ExtractedData)
	c.logger.Info("workflow.extract.ok",
		"document", docName(doc),
		"job_id", resp.ExtractionJobID,
		"field_count", resp.FieldCount,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// SaveExtractedData persists the current result through the remote service.
// Fire-and-report; the workflow step does not change.
func (c *Controller) SaveExtractedData(ctx context.Context) error {
	c.mu.Lock()
	if c.busyOp != "" {
		c.mu.Unlock()
		return common.ErrBusy
	}
	if c.doc == nil {
		c.errMsg = "no active document"
		c.mu.Unlock()
		return common.PreconditionError("no active document")
	}
	if c.extracted == nil || c.extracted.JobID == "" {
		c.errMsg = "nothing to save yet"
		c.mu.Unlock()
		return common.PreconditionError("no extraction result to save")
	}
	c.busyOp = opSave
	gen := c.gen
	req := extraction.SaveRequest{
		JobID:        c.extracted.JobID,
		DocumentID:   c.doc.ID,
		Data:         c.extracted.Fields,
		TemplateName: c.templateNameLocked(),
	}
	c.mu.Unlock()

	_, err := c.svc.SaveExtractedData(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.release(opSave)
	if gen != c.gen {
		return nil
	}
	if err != nil {
		c.errMsg = "save failed: " + err.Error()
		c.logger.Error("workflow.save.failed", "job_id", req.JobID, "error", err)
		return err
	}
	c.errMsg = ""
	c.logger.Info("workflow.save.ok", "job_id", req.JobID, "document_id", req.DocumentID)
	return nil
}

// ExportToExcel fetches the binary export payload for the current job and
// hands it to the export sink. The service generates the workbook; the
// controller only triggers the save.
func (c *Controller) ExportToExcel(ctx context.Context) error {
	c.mu.Lock()
	if c.busyOp != "" {
		c.mu.Unlock()
		return common.ErrBusy
	}
	if c.extracted == nil || c.extracted.JobID == "" {
		c.errMsg = "nothing to export yet"
		c.mu.Unlock()
		return common.PreconditionError("no extraction job to export")
	}
	c.busyOp = opExport
	gen := c.gen
	jobID := c.extracted.JobID
	doc := c.doc
	extracted := c.extracted
	filename := exportFilename(c.doc)
	c.mu.Unlock()

	payload, err := c.svc.ExportToExcel(ctx, jobID)
	if err != nil && c.builder != nil {
		// The data is already in hand; a remote outage should not block the
		// export itself.
		c.logger.Warn("workflow.export.remote_failed_building_locally", "job_id", jobID, "error", err)
		payload, err = c.builder.BuildXLSX(doc, extracted)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.release(opExport)
	if gen != c.gen {
		return nil
	}
	if err != nil {
		c.errMsg = "export failed: " + err.Error()
		c.logger.Error("workflow.export.failed", "job_id", jobID, "error", err)
		return err
	}
	if c.sink != nil {
		if err := c.sink(filename, payload); err != nil {
			c.errMsg = "export save failed: " + err.Error()
			c.logger.Error("workflow.export.save_failed", "filename", filename, "error", err)
			return err
		}
	}
	c.errMsg = ""
	c.logger.Info("workflow.export.ok", "job_id", jobID, "filename", filename, "bytes", len(payload))
	return nil
}

// Close ends the workflow instance and resets all working state. With
// retainDocument set, the document reference survives for a caller that
// needs to reopen a related workflow immediately afterwards.
func (c *Controller) Close(retainDocument bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc := c.doc
	org := c.org
	c.resetLocked()
	if retainDocument {
		c.doc = doc
		c.org = org
	}
	c.logger.Info("workflow.closed", "retain_document", retainDocument)
}

func (c *Controller) resetLocked() {
	c.gen++
	c.busyOp = ""
	c.step = constants.StepAnalyze
	c.doc = nil
	c.org = entity.OrgContext{}
	c.parse = nil
	c.sessionID = ""
	c.discovered = nil
	c.lineItems = nil
	c.docType = ""
	c.hasItems = false
	c.selection.Clear()
	c.activeSchema = nil
	c.savedTemplate = nil
	c.extracted = nil
	c.errMsg = ""
}

func (c *Controller) release(op string) {
	if c.busyOp == op {
		c.busyOp = ""
	}
}

func (c *Controller) resolveFolder(ctx context.Context, doc *entity.Document) string {
	if doc.FolderName != "" {
		return doc.FolderName
	}
	if c.folders != nil {
		if name, err := c.folders.FolderName(ctx, doc); err == nil && name != "" {
			return name
		}
	}
	return fallbackFolder
}

func (c *Controller) folderOf() string {
	if c.doc != nil && c.doc.FolderName != "" {
		return c.doc.FolderName
	}
	return fallbackFolder
}

func (c *Controller) templateNameLocked() string {
	if t := c.selection.Template(); t != nil {
		return t.Name
	}
	if c.savedTemplate != nil {
		return c.savedTemplate.Name
	}
	return ""
}

// validateAgainstSchema cross-checks the extracted payload against the
// schema that drove the run. Mismatches are diagnostic only: the remote
// service owns the result.
func (c *Controller) validateAgainstSchema(s entity.Schema, data map[string]any) {
	if len(s) == 0 || data == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := schema.Validate(s, raw); err != nil {
		c.logger.Warn("workflow.extract.schema_mismatch", "error", err)
	}
}

// canonicalizeFields maps the service's free-form type labels onto the known
// data types, so downstream schema building sees a closed set.
func canonicalizeFields(in []entity.DiscoveredField) []entity.DiscoveredField {
	if len(in) == 0 {
		return in
	}
	out := make([]entity.DiscoveredField, len(in))
	copy(out, in)
	for i := range out {
		if dt, ok := constants.CanonicalizeType(string(out[i].DataType)); ok {
			out[i].DataType = dt
		}
	}
	return out
}

func docName(doc *entity.Document) string {
	if doc == nil {
		return ""
	}
	return doc.Name
}

func exportFilename(doc *entity.Document) string {
	name := "extraction"
	if doc != nil && doc.Name != "" {
		name = doc.Name
	}
	return name + "-extract.xlsx"
}
