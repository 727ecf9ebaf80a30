// Package orchestrator binds a document handoff to a workflow instance and
// routes the user through template selection or straight into analysis.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/docuflow/constants"
	"github.com/joseph-ayodele/docuflow/internal/common"
	"github.com/joseph-ayodele/docuflow/internal/entity"
	"github.com/joseph-ayodele/docuflow/internal/handoff"
	"github.com/joseph-ayodele/docuflow/internal/templates"
	"github.com/joseph-ayodele/docuflow/internal/workflow"
)

// ErrUnsavedWork is reported when navigation away would discard an
// in-progress workflow. Callers confirm with the user and retry with force.
var ErrUnsavedWork = errors.New("workflow in progress; navigating away discards it")

// State is where the page currently is.
type State int

const (
	StateIdle State = iota
	StateSelectingTemplate
	StateWorkflow
)

// Orchestrator drives one workflow page at a time.
type Orchestrator struct {
	handoff handoff.Store
	catalog *templates.Catalog
	coord   *templates.Coordinator
	ctrl    *workflow.Controller
	logger  *slog.Logger

	mu    sync.Mutex
	state State
	docID string
	org   entity.OrgContext
	blob  *handoff.Blob
}

func New(store handoff.Store, catalog *templates.Catalog, coord *templates.Coordinator, ctrl *workflow.Controller, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		handoff: store,
		catalog: catalog,
		coord:   coord,
		ctrl:    ctrl,
		logger:  logger,
	}
}

// Open consumes the handoff blob for docID and decides the entry path: the
// template coordinator when the folder has saved templates, otherwise the
// workflow directly on its analyze step.
func (o *Orchestrator) Open(ctx context.Context, docID string, org entity.OrgContext) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return common.PreconditionError("a workflow page is already open")
	}
	o.mu.Unlock()

	blob, err := o.handoff.Take(ctx, docID)
	if err != nil {
		o.logger.Error("orchestrator.handoff_missing", "document_id", docID, "error", err)
		return common.WrapError(err, "no handoff context for document")
	}

	candidates, err := o.catalog.ForFolder(ctx, blob.FolderName)
	if err != nil {
		// Catalog unavailability must not block extraction itself.
		o.logger.Warn("orchestrator.catalog_unavailable", "folder", blob.FolderName, "error", err)
		candidates = nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.docID = docID
	o.org = org
	o.blob = blob

	if len(candidates) > 0 {
		o.coord.OpenSelection(&blob.Document, blob.FolderName, blob.Parse.Text)
		o.state = StateSelectingTemplate
		o.logger.Info("orchestrator.open.template_selection",
			"document_id", docID, "folder", blob.FolderName, "candidates", len(candidates))
		return nil
	}

	o.ctrl.StartExtraction(&blob.Document, org, &blob.Parse)
	o.state = StateWorkflow
	o.logger.Info("orchestrator.open.direct_analyze", "document_id", docID, "folder", blob.FolderName)
	return nil
}

// ResolveDecision consumes the coordinator's one-shot decision and moves the
// page into the workflow. No-op when no decision is pending.
func (o *Orchestrator) ResolveDecision(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateSelectingTemplate {
		o.mu.Unlock()
		return common.PreconditionError("not selecting a template")
	}
	blob := o.blob
	org := o.org
	o.mu.Unlock()

	d, ok := o.coord.TakeDecision()
	if !ok {
		return nil
	}

	o.ctrl.StartExtraction(&blob.Document, org, &blob.Parse)

	switch d.Kind {
	case templates.DecisionUseTemplate:
		if err := o.ctrl.AcceptTemplate(d.Template, d.Schema); err != nil {
			return err
		}
		o.logger.Info("orchestrator.decision.template", "template", d.Template.Name)
	case templates.DecisionFreshAnalysis:
		o.logger.Info("orchestrator.decision.fresh_analysis", "document_id", blob.Document.ID)
	default:
		return common.PreconditionErrorf("unknown decision kind %d", d.Kind)
	}

	o.mu.Lock()
	o.state = StateWorkflow
	o.mu.Unlock()
	return nil
}

// NavigateAway leaves the page. Mid-workflow (any step except actions) it
// refuses without force so the caller can warn about discarding work; with
// force, or past the terminal step, it resets everything and clears the
// handoff context.
func (o *Orchestrator) NavigateAway(ctx context.Context, force bool) error {
	o.mu.Lock()
	state := o.state
	docID := o.docID
	o.mu.Unlock()

	if state == StateIdle {
		return nil
	}
	if state == StateWorkflow && o.ctrl.Step() != constants.StepActions && !force {
		return ErrUnsavedWork
	}

	if state == StateSelectingTemplate {
		o.coord.ResetDecision()
	}
	o.ctrl.Close(false)
	if err := o.handoff.Delete(ctx, docID); err != nil {
		o.logger.Warn("orchestrator.handoff_clear_failed", "document_id", docID, "error", err)
	}

	o.mu.Lock()
	o.state = StateIdle
	o.docID = ""
	o.org = entity.OrgContext{}
	o.blob = nil
	o.mu.Unlock()

	o.logger.Info("orchestrator.closed", "document_id", docID, "forced", force)
	return nil
}

// State returns the page's current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Controller exposes the workflow controller for the active page.
func (o *Orchestrator) Controller() *workflow.Controller { return o.ctrl }

// Coordinator exposes the template coordinator for the active page.
func (o *Orchestrator) Coordinator() *templates.Coordinator { return o.coord }
