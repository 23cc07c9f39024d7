package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-riskgraph/pkg/maintenance"
)

func newOnceCmd(g *globalFlags) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single maintenance cycle and print its report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := cmd.Context()
			provider, err := g.snapshotProvider(ctx)
			if err != nil {
				return err
			}
			store, closeStore, err := g.labelStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			report, err := maintenance.RunMaintenanceCycle(ctx, provider, cfg, store, maintenance.WithLogger(logger))
			if report == nil {
				return err
			}
			if werr := writeReport(cmd.OutOrStdout(), reportPath, report); werr != nil {
				return werr
			}
			if err != nil {
				return cycleError{status: report.Status}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Write the cycle report to this file instead of stdout")
	return cmd
}

func writeReport(stdout io.Writer, path string, v any) error {
	out := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating report %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
