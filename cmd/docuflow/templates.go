package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTemplatesCmd(ctx context.Context) *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List saved extraction templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.catalog.Templates(ctx)
			if err != nil {
				return err
			}
			if folder != "" {
				list, err = a.catalog.ForFolder(ctx, folder)
				if err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tFOLDER\tFIELDS")
			for _, t := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t.Name, t.DocumentType, t.FolderName, t.FieldCount)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "only templates associated with this folder")
	return cmd
}

func newExportCmd(ctx context.Context) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <job-id>",
		Short: "Download the XLSX export for an extraction job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			payload, err := a.svc.ExportToExcel(ctx, args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = args[0] + ".xlsx"
			}
			if err := os.WriteFile(out, payload, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "wrote %s (%d bytes)\n", out, len(payload))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output path (default <job-id>.xlsx)")
	return cmd
}
