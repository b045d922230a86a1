package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"symfeat/config"
	"symfeat/data"
	"symfeat/db"
	"symfeat/ml"
)

const (
	runsDatabase   = "runs.db"
	modelSuffix    = ".tree.json"
	resampleStep   = time.Minute
	debugBudget    = 30 * time.Second
	debugMaxDepth  = 2
	timestampField = time.RFC3339Nano
)

func newClassifyCmd(a *app) *cobra.Command {
	var debug, concat bool
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Search a classifier for every task and save its performance over time",
		Long: `Load every task, then for each one run a time-bounded decision tree search
with stratified cross-validation and a dummy baseline. Each task's performance
over time is written to <results>/<task>.csv and its best tree next to it.
The curves of the tasks sharing a dataset and an extension are resampled every
minute into <results>/<group>.csv.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Classify
			if debug {
				cfg.Budget, cfg.MaxDepth = debugBudget, debugMaxDepth
			}
			ctx := cmd.Context()

			batch, err := a.loadBatch(ctx, concat)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Results, 0o755); err != nil {
				return err
			}
			store, err := db.OpenRunStore(filepath.Join(cfg.Results, runsDatabase))
			if err != nil {
				return err
			}
			defer store.Close()

			c := &classifier{cfg: cfg, runID: uuid.NewString(), store: store, logger: a.logger}
			results, err := c.all(ctx, batch.Loadables())
			if err != nil {
				return err
			}
			if err := writeCurves(cfg.Results, ml.Aggregate(results)); err != nil {
				return err
			}
			a.ended(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "short search budget and shallow trees")
	cmd.Flags().BoolVar(&concat, "concat", false, "also classify the concatenated feature sets")
	return cmd
}

type classifier struct {
	cfg    config.ClassifyConfig
	runID  string
	store  *db.RunStore
	logger *zap.Logger
}

// all classifies every task. A failing task is logged and skipped; only a
// cancelled context stops the loop.
func (c *classifier) all(ctx context.Context, tasks []data.Loadable) ([]ml.TaskPerformance, error) {
	var results []ml.TaskPerformance
	for _, task := range tasks {
		perf, err := c.task(ctx, task)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			c.logger.Error("classification failed", zap.String("task", task.Name()), zap.Error(err))
			continue
		}
		results = append(results, perf)
	}
	return results, nil
}

func (c *classifier) task(ctx context.Context, task data.Loadable) (ml.TaskPerformance, error) {
	logger := c.logger.With(zap.String("task", task.Name()))
	logger.Info("starting classifier search")
	group := task.Dataset().FriendlyName + "-" + task.Extension()

	enc := &ml.LabelEncoder{}
	labels := enc.FitTransform(task.Labels())
	folds, err := ml.StratifiedKFold{Splits: c.cfg.Splits, Seed: c.cfg.Seed}.Split(labels)
	if err != nil {
		return ml.TaskPerformance{}, err
	}

	start := time.Now()
	search := &ml.Search{Budget: c.cfg.Budget, MaxDepth: c.cfg.MaxDepth, Logger: logger}
	res, err := search.Run(ctx, task.Features().Rows, labels, folds)
	if err != nil {
		return ml.TaskPerformance{}, err
	}
	dummy, err := ml.DummyTrials(ctx, labels, folds, c.cfg.DummyTrials, c.cfg.Seed)
	if err != nil {
		return ml.TaskPerformance{}, err
	}
	elapsed := time.Since(start)
	logger.Info("balanced accuracy",
		zap.Float64("best", res.BestScore),
		zap.Int("depth", res.BestDepth),
		zap.Float64("dummy", dummy),
		zap.Duration("elapsed", elapsed))

	if err := writePerformance(filepath.Join(c.cfg.Results, task.Name()+".csv"), res.Performance); err != nil {
		return ml.TaskPerformance{}, err
	}
	if err := res.Model.Save(filepath.Join(c.cfg.Results, task.Name()+modelSuffix)); err != nil {
		return ml.TaskPerformance{}, fmt.Errorf("save model: %w", err)
	}
	err = c.store.Save(ctx, db.Run{
		RunID:      c.runID,
		Task:       task.Name(),
		Group:      group,
		Rows:       len(labels),
		Columns:    len(task.Features().Columns),
		BestScore:  res.BestScore,
		DummyScore: dummy,
		Elapsed:    elapsed,
		FinishedAt: time.Now(),
	})
	if err != nil {
		return ml.TaskPerformance{}, fmt.Errorf("save run: %w", err)
	}
	return ml.TaskPerformance{Task: task.Name(), Group: group, Performance: res.Performance}, nil
}

func writePerformance(path string, perf []ml.Performance) error {
	records := [][]string{{"Timestamp", "Score"}}
	for _, p := range perf {
		records = append(records, []string{
			p.Timestamp.Format(timestampField),
			strconv.FormatFloat(p.Score, 'g', -1, 64),
		})
	}
	return writeCSV(path, records)
}

// writeCurves writes one CSV per group with every curve resampled on a
// common one-minute grid.
func writeCurves(dir string, groups map[string][]ml.Curve) error {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		records := [][]string{{"task", "offset_seconds", "score"}}
		for _, curve := range groups[key] {
			for _, p := range curve.Resample(resampleStep) {
				records = append(records, []string{
					curve.Task,
					strconv.FormatFloat(p.Offset.Seconds(), 'f', -1, 64),
					strconv.FormatFloat(p.Score, 'g', -1, 64),
				})
			}
		}
		if err := writeCSV(filepath.Join(dir, key+".csv"), records); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	if err := w.WriteAll(records); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
