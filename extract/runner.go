package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"symfeat/bench"
	"symfeat/config"
	"symfeat/data"
)

// TrialStats summarises one extraction trial over every dataset. Times are
// in seconds, memory in MB.
type TrialStats struct {
	MaxRAM  float64
	AvgRAM  float64
	CPU     float64
	AvgCPU  float64
	Wall    float64
	AvgWall float64
}

func (s TrialStats) values() []float64 {
	return []float64{s.MaxRAM, s.AvgRAM, s.CPU, s.AvgCPU, s.Wall, s.AvgWall}
}

func statsFrom(v []float64) TrialStats {
	return TrialStats{MaxRAM: v[0], AvgRAM: v[1], CPU: v[2], AvgCPU: v[3], Wall: v[4], AvgWall: v[5]}
}

// DatasetErrors compares the scores found in a dataset with the rows the
// extractor produced for it.
type DatasetErrors struct {
	Scores int
	Errors int
	Ratio  float64
	CPU    float64
	Wall   float64
}

type Report struct {
	RunID      string
	FeatureSet string
	Extension  string
	Scores     map[string]int
	Total      int
	Trials     []TrialStats
	Mean       TrialStats
	Std        TrialStats
	// Errors of the last trial, keyed by dataset directory.
	Errors map[string]DatasetErrors
}

// RunFunc runs one extractor command.
type RunFunc func(ctx context.Context, argv []string, stdout, stderr *os.File) (bench.Result, error)

type Runner struct {
	cfg      config.Config
	datasets []string
	reader   *data.Reader
	logger   *zap.Logger
	run      RunFunc
}

func NewRunner(cfg config.Config, datasets []string, reader *data.Reader, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reader == nil {
		var err error
		if reader, err = data.NewReader(cfg.CacheSize, logger); err != nil {
			return nil, err
		}
	}
	r := &Runner{cfg: cfg, datasets: datasets, reader: reader, logger: logger}
	r.run = func(ctx context.Context, argv []string, stdout, stderr *os.File) (bench.Result, error) {
		return bench.Run(ctx, argv, stdout, stderr, bench.Options{
			PollInterval: cfg.Extraction.PollInterval,
			Logger:       logger,
		})
	}
	return r, nil
}

// Trials runs the extractor of featureSet cfg.Extraction.Trials times over
// every dataset and logs per-trial figures, then their mean and standard
// deviation.
func (r *Runner) Trials(ctx context.Context, featureSet string) (*Report, error) {
	ext := r.cfg.Extraction.Extension
	report := &Report{
		RunID:      uuid.NewString(),
		FeatureSet: featureSet,
		Extension:  ext,
		Scores:     make(map[string]int),
	}
	for _, d := range r.datasets {
		n, err := CountScores(d, ext)
		if err != nil {
			return nil, fmt.Errorf("count scores in %s: %w", d, err)
		}
		report.Scores[d] = n
		report.Total += n
	}
	if report.Total == 0 {
		return nil, fmt.Errorf("no %s scores in %d datasets", ext, len(r.datasets))
	}
	logger := r.logger.With(zap.String("run", report.RunID), zap.String("feature_set", featureSet))

	for i := 0; i < r.cfg.Extraction.Trials; i++ {
		logger.Info("trial", zap.Int("number", i+1))
		stats, errs, err := r.trial(ctx, logger, featureSet, report)
		if err != nil {
			return nil, err
		}
		report.Trials = append(report.Trials, stats)
		report.Errors = errs
		logStats(logger, "trial stats", report.Total, stats)
	}

	for dataset, e := range report.Errors {
		logger.Info("errors and time per dataset",
			zap.String("dataset", dataset),
			zap.Int("n_errors", e.Errors),
			zap.Float64("ratio_errors", e.Ratio),
			zap.Float64("cpu_time", e.CPU),
			zap.Float64("clock_time", e.Wall))
	}

	columns := make([][]float64, 6)
	for _, t := range report.Trials {
		for j, v := range t.values() {
			columns[j] = append(columns[j], v)
		}
	}
	mean, std := make([]float64, 6), make([]float64, 6)
	for j, col := range columns {
		mean[j] = stat.Mean(col, nil)
		if len(col) > 1 {
			std[j] = stat.StdDev(col, nil)
		}
	}
	report.Mean, report.Std = statsFrom(mean), statsFrom(std)
	logStats(logger, "averages", report.Total, report.Mean)
	logStats(logger, "std (1 ddof)", report.Total, report.Std)
	return report, nil
}

func (r *Runner) trial(ctx context.Context, logger *zap.Logger, featureSet string, report *Report) (TrialStats, map[string]DatasetErrors, error) {
	var ram []float64
	var cpu, wall float64
	errs := make(map[string]DatasetErrors)

	if err := os.MkdirAll(r.cfg.Output, 0o755); err != nil {
		return TrialStats{}, nil, err
	}
	stdout, err := os.Create(filepath.Join(r.cfg.Output, featureSet+"_output.txt"))
	if err != nil {
		return TrialStats{}, nil, err
	}
	defer stdout.Close()
	stderr, err := os.Create(filepath.Join(r.cfg.Output, featureSet+"_errs.txt"))
	if err != nil {
		return TrialStats{}, nil, err
	}
	defer stderr.Close()

	for _, dataset := range r.datasets {
		n := report.Scores[dataset]
		if n == 0 {
			continue
		}
		if featureSet == MusifHarm {
			if _, err := os.Stat(filepath.Join(dataset, "musescore")); err != nil {
				logger.Debug("no musescore files, skipping", zap.String("dataset", dataset))
				continue
			}
		}
		if err := os.MkdirAll(filepath.Join(r.cfg.Output, filepath.Base(dataset)), 0o755); err != nil {
			return TrialStats{}, nil, err
		}
		argv, err := Command(r.cfg.Tools, featureSet, dataset, r.cfg.Output, report.Extension)
		if err != nil {
			return TrialStats{}, nil, err
		}

		logger.Info("extracting", zap.String("dataset", dataset), zap.String("extension", report.Extension))
		res, err := r.run(ctx, argv, stdout, stderr)
		if err != nil {
			return TrialStats{}, nil, fmt.Errorf("%s on %s: %w", featureSet, dataset, err)
		}
		ram = append(ram, res.RAM...)
		cpu += res.CPU.Seconds()
		wall += res.Wall.Seconds()

		rows, err := r.producedRows(OutputBase(r.cfg.Output, dataset, featureSet, report.Extension) + ".csv")
		if err != nil {
			return TrialStats{}, nil, err
		}
		failed := n - rows
		errs[dataset] = DatasetErrors{
			Scores: n,
			Errors: failed,
			Ratio:  float64(failed) / float64(n),
			CPU:    res.CPU.Seconds(),
			Wall:   res.Wall.Seconds(),
		}
	}

	stats := TrialStats{
		CPU:     cpu,
		AvgCPU:  cpu / float64(report.Total),
		Wall:    wall,
		AvgWall: wall / float64(report.Total),
	}
	if len(ram) > 0 {
		stats.AvgRAM = stat.Mean(ram, nil)
		for _, v := range ram {
			stats.MaxRAM = max(stats.MaxRAM, v)
		}
	}
	return stats, errs, nil
}

// producedRows counts the rows the extractor wrote. A missing CSV means every
// file failed.
func (r *Runner) producedRows(path string) (int, error) {
	frame, encoding, err := r.reader.Read(path)
	if errors.Is(err, data.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	r.logger.Debug("read extractor output", zap.String("path", path), zap.String("encoding", encoding))
	return frame.Len(), nil
}

func logStats(logger *zap.Logger, msg string, files int, s TrialStats) {
	logger.Info(msg,
		zap.Int("processed_files", files),
		zap.Float64("max_ram_mb", s.MaxRAM),
		zap.Float64("avg_ram_mb", s.AvgRAM),
		zap.Duration("cpu_time", seconds(s.CPU)),
		zap.Duration("cpu_avg_time", seconds(s.AvgCPU)),
		zap.Duration("real_time", seconds(s.Wall)),
		zap.Duration("real_avg_time", seconds(s.AvgWall)))
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
