package main

import (
	"bytes"
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"symfeat/pipeline"
)

func newCheckCmd(a *app) *cobra.Command {
	var concat bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load every task, intersect them and print their shape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			batch, err := a.loadBatch(cmd.Context(), concat)
			if err != nil {
				return err
			}
			return pipeline.Report(cmd.OutOrStdout(), batch)
		},
	}
	cmd.Flags().BoolVar(&concat, "concat", false, "also build the concatenated feature sets")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload a dataset's tasks whenever an extractor writes its CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := a.catalog()
			if err != nil {
				return err
			}
			var names []string
			for _, d := range catalog.Datasets() {
				names = append(names, d.Name)
			}
			loader := pipeline.NewLoader(a.cfg.Workers, false, a.logger)

			reload := func(ctx context.Context, name string) error {
				d, err := catalog.Dataset(name)
				if err != nil {
					return err
				}
				batch, err := loader.Load(ctx, catalog.DatasetTasks(d))
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := pipeline.Report(&buf, batch); err != nil {
					return err
				}
				a.logger.Info("dataset reloaded\n"+buf.String(), zap.String("dataset", name))
				return nil
			}

			w := pipeline.NewWatcher(a.cfg.Output, names, debounce, reload, a.logger)
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "quiet period before a dataset is reloaded")
	return cmd
}
