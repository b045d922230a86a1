package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"symfeat/extract"
	"symfeat/preprocess"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		extension string
		trials    int
	)
	cmd := &cobra.Command{
		Use:   "extract <featureset>",
		Short: "Run one feature extractor over every dataset and benchmark it",
		Long: `Run the extractor of a feature set (jsymbolic, musif, music21, musif-harm)
over every dataset under the datasets root, several times, logging RAM, CPU and
wall time per trial and the files each dataset lost.

Example:
  symfeat extract musif --extension .xml --trials 3`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{extract.JSymbolic, extract.Musif, extract.Music21, extract.MusifHarm},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("extension") {
				cfg.Extraction.Extension = extension
			}
			if cmd.Flags().Changed("trials") {
				cfg.Extraction.Trials = trials
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			datasets, err := extract.Datasets(cfg.DatasetsRoot)
			if err != nil {
				return fmt.Errorf("list datasets: %w", err)
			}
			runner, err := extract.NewRunner(cfg, datasets, nil, a.logger)
			if err != nil {
				return err
			}
			report, err := runner.Trials(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.logger.Info("extraction finished",
				zap.String("run", report.RunID),
				zap.Int("trials", len(report.Trials)),
				zap.Int("files", report.Total))
			a.ended(cmd.Context())
			return nil
		},
	}
	cmd.Flags().StringVar(&extension, "extension", ".mid", "score extension to extract from")
	cmd.Flags().IntVar(&trials, "trials", 2, "number of timed trials")
	return cmd
}

func newFixFilenamesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fix-filenames",
		Short: "Replace ',' ';' and spaces in score paths with '_'",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			roots, err := extract.Datasets(a.cfg.DatasetsRoot)
			if err != nil {
				return fmt.Errorf("list datasets: %w", err)
			}
			renames, err := preprocess.FixInvalidFilenames(roots, a.logger)
			if err != nil {
				return err
			}
			a.logger.Info("file names fixed", zap.Int("renamed", len(renames)))
			return nil
		},
	}
}

func newConvertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "convert",
		Short: "Render every score without a MIDI sibling to MIDI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			roots, err := extract.Datasets(a.cfg.DatasetsRoot)
			if err != nil {
				return fmt.Errorf("list datasets: %w", err)
			}
			conv := &preprocess.Converter{
				MscoreExe: a.cfg.Tools.MscoreExe,
				Hum2Mid:   a.cfg.Tools.Hum2Mid,
				Timeout:   a.cfg.Tools.ConversionTimeout,
				Logger:    a.logger,
			}
			sum, err := conv.ConvertToMIDI(cmd.Context(), roots)
			if err != nil {
				return err
			}
			a.logger.Info("conversion finished",
				zap.Int("converted", sum.Converted),
				zap.Int("existing", sum.Existing),
				zap.Int("timed_out", sum.TimedOut),
				zap.Int("failed", sum.Failed),
				zap.Int("invalid", sum.Invalid))
			a.ended(cmd.Context())
			return nil
		},
	}
}
