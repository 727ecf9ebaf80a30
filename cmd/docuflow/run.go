package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docuflow/internal/common"
	"github.com/joseph-ayodele/docuflow/internal/entity"
	"github.com/joseph-ayodele/docuflow/internal/ingest"
	"github.com/joseph-ayodele/docuflow/internal/orchestrator"
)

// newRunCmd drives one full extraction: produce the handoff, open the page,
// resolve template selection, then analyze/select/extract/save/export.
func newRunCmd(ctx context.Context) *cobra.Command {
	var (
		templateName string
		saveTemplate bool
		useTemplate  string
		save         bool
		exportXLSX   bool
	)

	cmd := &cobra.Command{
		Use:   "run <document-path>",
		Short: "Run the extraction workflow for one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := common.WithRequestID(ctx, uuid.NewString())
			ctx = common.WithOrgName(ctx, a.cfg.Org.Name)

			producer := ingest.NewProducer(a.handoff, a.logger)
			docID, err := producer.Produce(ctx, args[0])
			if err != nil {
				return err
			}

			org := entity.OrgContext{OrgName: a.cfg.Org.Name}
			if err := a.orch.Open(ctx, docID, org); err != nil {
				return err
			}

			if a.orch.State() == orchestrator.StateSelectingTemplate {
				if err := resolveTemplateSelection(ctx, a, useTemplate); err != nil {
					return err
				}
			}

			ctrl := a.orch.Controller()
			if len(ctrl.Schema()) == 0 {
				// Fresh-analysis path: discover, select everything, compile.
				if err := ctrl.AnalyzeFields(ctx); err != nil {
					return err
				}
				ctrl.Selection().SelectAll(ctrl.DiscoveredFields(), ctrl.LineItemFields())
				name := templateName
				if name == "" {
					name = ctrl.DocumentType() + "-fields"
				}
				if err := ctrl.GenerateSchema(ctx, name, saveTemplate); err != nil {
					return err
				}
				if saveTemplate {
					// The remote catalog just grew; drop the cached listing.
					a.catalog.Invalidate()
				}
			}

			if err := ctrl.ExtractData(ctx); err != nil {
				return err
			}

			result := ctrl.Extracted()
			out, _ := json.MarshalIndent(result.Fields, "", "  ")
			fmt.Fprintln(os.Stdout, string(out))

			if save {
				if err := ctrl.SaveExtractedData(ctx); err != nil {
					return err
				}
			}
			if exportXLSX {
				if err := ctrl.ExportToExcel(ctx); err != nil {
					return err
				}
			}

			return a.orch.NavigateAway(ctx, true)
		},
	}

	cmd.Flags().StringVar(&templateName, "template-name", "", "name for the generated schema")
	cmd.Flags().BoolVar(&saveTemplate, "save-template", false, "save the generated schema as a reusable template")
	cmd.Flags().StringVar(&useTemplate, "use-template", "", "reuse a saved template instead of analyzing")
	cmd.Flags().BoolVar(&save, "save", false, "persist the extracted data after extraction")
	cmd.Flags().BoolVar(&exportXLSX, "export", false, "export the result to XLSX after extraction")
	return cmd
}

// resolveTemplateSelection acts for the user in the coordinator: pick the
// named template when asked for, otherwise fall through to fresh analysis.
func resolveTemplateSelection(ctx context.Context, a *app, useTemplate string) error {
	coord := a.orch.Coordinator()

	if useTemplate == "" {
		if err := coord.ProceedWithAnalyze(); err != nil {
			return err
		}
		return a.orch.ResolveDecision(ctx)
	}

	candidates, err := coord.Candidates(ctx)
	if err != nil {
		return err
	}
	var picked *entity.TemplateInfo
	for i := range candidates {
		if candidates[i].Name == useTemplate {
			picked = &candidates[i]
			break
		}
	}
	if picked == nil {
		return errors.New("template not found for this folder: " + useTemplate)
	}
	if err := coord.SelectTemplate(ctx, picked); err != nil {
		return err
	}
	if err := coord.ProceedWithTemplate(); err != nil {
		return err
	}
	return a.orch.ResolveDecision(ctx)
}
