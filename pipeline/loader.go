// Package pipeline loads a roster of tasks as one batch: concurrent loading,
// the intersection pass and the construction of concatenated tasks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"symfeat/data"
)

// Batch is the outcome of one Load call. Tasks only holds tasks that loaded;
// Skipped names those whose CSV was missing.
type Batch struct {
	Tasks   []*data.Task
	Concats []*data.ConcatTask
	Skipped []string
	Stats   Stats
}

// Stats counts tasks and rows. RowsBefore and RowsAfter are keyed by task
// name and record the row count before and after the intersection pass.
type Stats struct {
	Total      int            `json:"total"`
	Loaded     int            `json:"loaded"`
	Skipped    int            `json:"skipped"`
	RowsBefore map[string]int `json:"rows_before"`
	RowsAfter  map[string]int `json:"rows_after"`
}

// Loadables returns the plain tasks followed by the concatenated ones.
func (b *Batch) Loadables() []data.Loadable {
	out := make([]data.Loadable, 0, len(b.Tasks)+len(b.Concats))
	for _, t := range b.Tasks {
		out = append(out, t)
	}
	for _, c := range b.Concats {
		out = append(out, c)
	}
	return out
}

type Loader struct {
	workers int
	concat  bool
	logger  *zap.Logger
}

func NewLoader(workers int, concat bool, logger *zap.Logger) *Loader {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{workers: workers, concat: concat, logger: logger}
}

// Load loads every task with at most workers in flight. A task whose file is
// missing is logged and skipped; any other failure aborts the batch. The
// loaded tasks are then intersected and, when enabled, concatenated per
// dataset and extension.
func (l *Loader) Load(ctx context.Context, tasks []*data.Task) (*Batch, error) {
	batch := &Batch{Stats: Stats{
		Total:      len(tasks),
		RowsBefore: make(map[string]int),
		RowsAfter:  make(map[string]int),
	}}

	var mu sync.Mutex
	loaded := make([]bool, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			err := task.Load(gctx)
			switch {
			case errors.Is(err, data.ErrNotFound):
				l.logger.Warn("skipping task", zap.String("task", task.Name()), zap.Error(err))
				mu.Lock()
				batch.Skipped = append(batch.Skipped, task.Name())
				mu.Unlock()
				return nil
			case err != nil:
				return err
			}
			mu.Lock()
			loaded[i] = true
			batch.Stats.RowsBefore[task.Name()] = task.Len()
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, task := range tasks {
		if loaded[i] {
			batch.Tasks = append(batch.Tasks, task)
		}
	}
	data.Intersect(batch.Tasks)
	for _, task := range batch.Tasks {
		batch.Stats.RowsAfter[task.Name()] = task.Len()
	}
	batch.Stats.Loaded = len(batch.Tasks)
	batch.Stats.Skipped = len(batch.Skipped)

	if l.concat {
		concats, err := buildConcats(ctx, batch.Tasks)
		if err != nil {
			return nil, err
		}
		batch.Concats = concats
	}

	l.logger.Info("batch loaded",
		zap.Int("total", batch.Stats.Total),
		zap.Int("loaded", batch.Stats.Loaded),
		zap.Int("skipped", batch.Stats.Skipped),
		zap.Int("concat", len(batch.Concats)))
	return batch, nil
}

// buildConcats joins every group of at least two tasks sharing a dataset and
// an extension. Groups keep the order in which their first task appears.
func buildConcats(ctx context.Context, tasks []*data.Task) ([]*data.ConcatTask, error) {
	var keys []string
	groups := make(map[string][]*data.Task)
	for _, t := range tasks {
		key := t.Dataset().Name + "|" + t.Extension()
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], t)
	}

	var concats []*data.ConcatTask
	for _, key := range keys {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		c, err := data.NewConcatTask(members...)
		if err != nil {
			return nil, err
		}
		if err := c.Load(ctx); err != nil {
			return nil, fmt.Errorf("build %s: %w", c.Name(), err)
		}
		concats = append(concats, c)
	}
	return concats, nil
}
