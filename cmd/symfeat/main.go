// Command symfeat extracts symbolic-music features from the datasets, checks
// that the feature sets agree on the same files and measures how well they
// classify each corpus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"symfeat/config"
	"symfeat/data"
	"symfeat/db"
	"symfeat/logging"
	"symfeat/notify"
	"symfeat/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	stop()
	if err != nil {
		if a.logger != nil {
			a.logger.Error("command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

// app is the state shared by the subcommands, built once per invocation.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	notifier logging.Notifier
	closeLog func() error
}

func newRootCmd(a *app) *cobra.Command {
	var (
		configPath string
		verbose    bool
	)
	root := &cobra.Command{
		Use:   "symfeat",
		Short: "Symbolic-music feature extraction and comparison harness",
		Long: `symfeat runs the feature extractors over the score datasets, loads their
CSV output as classification tasks, keeps only the files every feature set
could process and compares the feature sets with a classifier search.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, configPath, verbose)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newExtractCmd(a),
		newFixFilenamesCmd(a),
		newConvertCmd(a),
		newCheckCmd(a),
		newClassifyCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, configPath string, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	telegram, err := notify.LoadTelegram(cfg.Telegram)
	if err != nil {
		return fmt.Errorf("load telegram credentials: %w", err)
	}
	if telegram != nil {
		a.notifier = telegram
	}

	logger, closeLog, err := logging.New(cfg.Log, verbose, cmd.OutOrStdout(), a.notifier)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger, a.closeLog = logger, closeLog
	a.logger.Debug("configuration loaded", zap.String("path", configPath))
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// ended tells the notifier that a long command finished.
func (a *app) ended(ctx context.Context) {
	a.logger.Info("Ended!")
	if a.notifier == nil {
		return
	}
	if err := a.notifier.Notify(ctx, "Ended!"); err != nil {
		a.logger.Warn("notification failed", zap.Error(err))
	}
}

func (a *app) catalog() (*data.Catalog, error) {
	reader, err := data.NewReader(a.cfg.CacheSize, a.logger)
	if err != nil {
		return nil, err
	}
	return data.NewCatalog(a.cfg, db.NewGenreStore(a.cfg.EWLDDatabase), reader, a.logger)
}

// loadBatch loads every task of the catalog.
func (a *app) loadBatch(ctx context.Context, concat bool) (*pipeline.Batch, error) {
	catalog, err := a.catalog()
	if err != nil {
		return nil, err
	}
	return pipeline.NewLoader(a.cfg.Workers, concat, a.logger).Load(ctx, catalog.Tasks())
}
