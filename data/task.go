package data

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// State tracks a task through loading and the intersection pass.
type State int

const (
	Unloaded State = iota
	Loaded
	Intersected
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	case Intersected:
		return "intersected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Loadable is what the classifier search consumes: a plain Task or a
// ConcatTask.
type Loadable interface {
	Name() string
	Dataset() *Dataset
	Extension() string
	Load(ctx context.Context) error
	Features() *FeatureTable
	Labels() []string
	Filenames() []string
}

// Options are shared by every task built from the same configuration.
type Options struct {
	Output string
	PCA    bool
	Reader *Reader
	Logger *zap.Logger
}

// Task binds a dataset, a feature set and a file extension. Building a task
// does no I/O; Load reads and cleans the CSV once.
type Task struct {
	dataset    *Dataset
	featureSet *FeatureSet
	extension  string
	opts       Options

	mu        sync.Mutex
	state     State
	encoding  string
	features  *FeatureTable
	labels    []string
	filenames []string
}

func NewTask(dataset *Dataset, featureSet *FeatureSet, extension string, opts Options) (*Task, error) {
	if !dataset.Supports(extension) {
		return nil, fmt.Errorf("dataset %s does not support %s", dataset.Name, extension)
	}
	if !featureSet.Accepts(extension) {
		return nil, fmt.Errorf("feature set %s does not accept %s", featureSet.Name, extension)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Task{dataset: dataset, featureSet: featureSet, extension: extension, opts: opts}, nil
}

func (t *Task) Name() string {
	return t.dataset.Name + "-" + t.featureSet.Name + "-" + strings.TrimPrefix(t.extension, ".")
}

func (t *Task) Dataset() *Dataset { return t.dataset }
func (t *Task) FeatureSet() *FeatureSet { return t.featureSet }
func (t *Task) Extension() string { return t.extension }
func (t *Task) State() State { return t.state }
func (t *Task) Encoding() string { return t.encoding }
func (t *Task) Features() *FeatureTable { return t.features }
func (t *Task) Labels() []string { return t.labels }
func (t *Task) Filenames() []string { return t.filenames }
func (t *Task) Loaded() bool { return t.state != Unloaded }
func (t *Task) Len() int { return len(t.labels) }

// Path is <output>/<dataset>/<feature set>-<extension>.csv.
func (t *Task) Path() string {
	name := t.featureSet.Name + "-" + strings.TrimPrefix(t.extension, ".") + ".csv"
	return filepath.Join(t.opts.Output, t.dataset.Name, name)
}

// Load reads the CSV, labels and filters its rows and keeps the numeric
// feature columns. Calling Load on a loaded task does nothing. A missing file
// returns ErrNotFound and leaves the task unloaded.
func (t *Task) Load(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Unloaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	reader := t.opts.Reader
	if reader == nil {
		var err error
		if reader, err = NewReader(1, t.opts.Logger); err != nil {
			return err
		}
	}
	frame, encoding, err := reader.Read(t.Path())
	if err != nil {
		return fmt.Errorf("task %s: %w", t.Name(), err)
	}

	frame, labels, filenames, err := t.dataset.Parse(ctx, frame, t.featureSet.FilenameColumn, t.featureSet.Label())
	if err != nil {
		return fmt.Errorf("task %s: %w", t.Name(), err)
	}
	frame, err = t.featureSet.Parse(frame)
	if err != nil {
		return fmt.Errorf("task %s: %w", t.Name(), err)
	}

	features := numericTable(frame)
	features, labels, filenames = t.dropDuplicates(features, labels, filenames)

	if features.Len() != len(labels) || len(labels) != len(filenames) {
		return fmt.Errorf("task %s: %d rows, %d labels, %d filenames: %w",
			t.Name(), features.Len(), len(labels), len(filenames), ErrDataIntegrity)
	}

	if t.opts.PCA {
		features, err = projectPCA(features, PCAComponents)
		if err != nil {
			return fmt.Errorf("task %s: %w", t.Name(), err)
		}
	}

	t.features, t.labels, t.filenames = features, labels, filenames
	t.encoding = encoding
	t.state = Loaded
	t.opts.Logger.Debug("task loaded",
		zap.String("task", t.Name()),
		zap.Int("rows", features.Len()),
		zap.Int("columns", len(features.Columns)),
		zap.String("encoding", encoding))
	return nil
}

// dropDuplicates keeps the first row of every filename.
func (t *Task) dropDuplicates(features *FeatureTable, labels, filenames []string) (*FeatureTable, []string, []string) {
	seen := make(map[string]struct{}, len(filenames))
	mask := make([]bool, len(filenames))
	dups := 0
	for i, name := range filenames {
		if _, ok := seen[name]; ok {
			dups++
			continue
		}
		seen[name] = struct{}{}
		mask[i] = true
	}
	if dups == 0 {
		return features, labels, filenames
	}
	t.opts.Logger.Warn("duplicate filenames dropped", zap.String("task", t.Name()), zap.Int("rows", dups))
	return features.filter(mask), filterStrings(labels, mask), filterStrings(filenames, mask)
}

// keep restricts the loaded rows to mask.
func (t *Task) keep(mask []bool) {
	t.features = t.features.filter(mask)
	t.labels = filterStrings(t.labels, mask)
	t.filenames = filterStrings(t.filenames, mask)
}

func (t *Task) siblingOf(other *Task) bool {
	return t != other && t.dataset.Name == other.dataset.Name && t.extension == other.extension
}
