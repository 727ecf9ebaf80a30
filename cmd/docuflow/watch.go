package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docuflow/internal/ingest"
)

// newWatchCmd watches the configured inbox roots and produces a handoff blob
// for every discovered document. Another invocation (or the same process via
// `run`) consumes them.
func newWatchCmd(ctx context.Context) *cobra.Command {
	var roots []string
	var initialScan bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch inbox directories and stage documents for extraction",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if len(roots) == 0 {
				roots = a.cfg.Ingest.Roots
			}
			if len(roots) == 0 {
				return errors.New("no ingest roots configured (INGEST_ROOTS or --root)")
			}

			paths, errCh, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       roots,
				InitialScan: initialScan,
				Debounce:    a.cfg.Ingest.Debounce,
			}, a.logger)
			if err != nil {
				return err
			}

			producer := ingest.NewProducer(a.handoff, a.logger)
			ids := producer.Run(ctx, paths)

			for {
				select {
				case <-ctx.Done():
					return nil
				case werr, ok := <-errCh:
					if ok && werr != nil {
						a.logger.Error("watch.error", "error", werr)
					}
				case id, ok := <-ids:
					if !ok {
						return nil
					}
					fmt.Fprintf(os.Stdout, "staged %s\n", id)
				}
			}
		},
	}

	cmd.Flags().StringSliceVar(&roots, "root", nil, "directory to watch (repeatable)")
	cmd.Flags().BoolVar(&initialScan, "initial-scan", true, "stage documents already present at startup")
	return cmd
}
