package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadFunc is called with the dataset whose feature CSVs changed.
type ReloadFunc func(ctx context.Context, dataset string) error

// Watcher reloads a dataset when feature extraction writes into its output
// directory. Bursts of events on the same dataset are merged: the reload
// runs once the directory has been quiet for the debounce window.
type Watcher struct {
	output   string
	datasets []string
	debounce time.Duration
	reload   ReloadFunc
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

func NewWatcher(output string, datasets []string, debounce time.Duration, reload ReloadFunc, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		output:   output,
		datasets: datasets,
		debounce: debounce,
		reload:   reload,
		logger:   logger,
		pending:  make(map[string]time.Time),
	}
}

// Run watches until ctx is done. Output directories are created if missing.
// A failed reload is logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	for _, d := range w.datasets {
		dir := filepath.Join(w.output, d)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := fw.Add(dir); err != nil {
			return err
		}
		w.logger.Debug("watching", zap.String("dir", dir))
	}

	tick := w.debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".csv") {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	dataset := filepath.Base(filepath.Dir(event.Name))
	w.mu.Lock()
	w.pending[dataset] = time.Now()
	w.mu.Unlock()
}

// flush reloads every dataset whose last event is older than the debounce
// window.
func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()
	var ready []string
	w.mu.Lock()
	for dataset, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, dataset)
			delete(w.pending, dataset)
		}
	}
	w.mu.Unlock()

	for _, dataset := range ready {
		w.logger.Info("features changed, reloading", zap.String("dataset", dataset))
		if err := w.reload(ctx, dataset); err != nil {
			w.logger.Error("reload failed", zap.String("dataset", dataset), zap.Error(err))
		}
	}
}
