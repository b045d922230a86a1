package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symfeat/bench"
	"symfeat/config"
)

func touch(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}
}

func TestCommand(t *testing.T) {
	tools := config.Default().Tools
	abs, err := filepath.Abs("datasets/didone")
	require.NoError(t, err)

	tests := []struct {
		featureSet string
		want       []string
	}{
		{JSymbolic, []string{"java", "-Xmx25g", "-jar", tools.JSymbolicJar, "-csv", abs,
			"features/didone/jsymbolic-mid", "features/didone/jsymbolic_def"}},
		{Musif, []string{"python", "-m", "musif", "-e", ".mid", "-s", "datasets/didone", "-o", "features/didone/musif-mid"}},
		{Music21, []string{"python", "-m", tools.Music21Module, "datasets/didone", ".mid", "features/didone/music21-mid"}},
		{MusifHarm, []string{"python", "-m", "musif", "-e", ".mid", "-s", "datasets/didone",
			"--harm", "datasets/didone/musescore", "-o", "features/didone/musif-harm-mid"}},
	}
	for _, tt := range tests {
		t.Run(tt.featureSet, func(t *testing.T) {
			got, err := Command(tools, tt.featureSet, "datasets/didone", "features", ".mid")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = Command(tools, "nope", "datasets/didone", "features", ".mid")
	assert.Error(t, err)
}

func TestCountScores(t *testing.T) {
	dir := t.TempDir()
	touch(t,
		filepath.Join(dir, "a", "1.xml"),
		filepath.Join(dir, "a", "2.mxl"),
		filepath.Join(dir, "b", "c", "3.musicxml"),
		filepath.Join(dir, "b", "4.mid"),
		filepath.Join(dir, "b", "5.krn"),
	)

	n, err := CountScores(dir, ".xml")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = CountScores(dir, ".mid")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = CountScores(filepath.Join(dir, "missing"), ".mid")
	assert.Error(t, err)
}

func TestRunnerTrials(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "features")
	quartets := filepath.Join(root, "quartets")
	didone := filepath.Join(root, "didone")
	empty := filepath.Join(root, "empty")
	touch(t,
		filepath.Join(quartets, "haydn", "1.mid"),
		filepath.Join(quartets, "haydn", "2.mid"),
		filepath.Join(quartets, "mozart", "3.mid"),
		filepath.Join(quartets, "mozart", "4.mid"),
		filepath.Join(didone, "a.mid"),
		filepath.Join(didone, "b.mid"),
		filepath.Join(empty, "readme.txt"),
	)
	datasets, err := Datasets(root)
	require.NoError(t, err)
	require.Len(t, datasets, 3)

	cfg := config.Default()
	cfg.Output = out
	cfg.Extraction.Trials = 3

	runner, err := NewRunner(cfg, datasets, nil, nil)
	require.NoError(t, err)

	var calls []string
	trial := 0
	runner.run = func(_ context.Context, argv []string, _, _ *os.File) (bench.Result, error) {
		base := argv[len(argv)-1]
		calls = append(calls, filepath.Base(filepath.Dir(base)))
		// quartets loses one file; didone loses none
		rows := "FileName\nx.mid\nx.mid\nx.mid\n"
		if strings.Contains(base, "didone") {
			rows = "FileName\na.mid\nb.mid\n"
			trial++
		}
		require.NoError(t, os.WriteFile(base+".csv", []byte(rows), 0o644))
		return bench.Result{
			RAM:  []float64{100, float64(100 * trial)},
			CPU:  time.Duration(trial) * time.Second,
			Wall: 2 * time.Second,
		}, nil
	}

	report, err := runner.Trials(context.Background(), Musif)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, []string{"didone", "quartets", "didone", "quartets", "didone", "quartets"}, calls)
	require.Len(t, report.Trials, 3)
	assert.Equal(t, DatasetErrors{Scores: 4, Errors: 1, Ratio: 0.25, CPU: 3, Wall: 2}, report.Errors[quartets])
	assert.Equal(t, DatasetErrors{Scores: 2, Errors: 0, Ratio: 0, CPU: 3, Wall: 2}, report.Errors[didone])
	assert.NotContains(t, report.Errors, empty)

	// trial k costs 2k seconds of CPU in total
	assert.InDelta(t, 4, report.Mean.CPU, 1e-9)
	assert.InDelta(t, 2, report.Std.CPU, 1e-9)
	assert.InDelta(t, 4, report.Mean.Wall, 1e-9)
	assert.InDelta(t, 0, report.Std.Wall, 1e-9)
	assert.InDelta(t, 300, report.Trials[2].MaxRAM, 1e-9)

	assert.FileExists(t, filepath.Join(out, "musif_output.txt"))
}

func TestRunnerSkipsHarmonicWithoutMuseScore(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "didone", "a.xml"), filepath.Join(root, "EWLD", "b.xml"),
		filepath.Join(root, "EWLD", "musescore", "b.mscx"))

	cfg := config.Default()
	cfg.Output = filepath.Join(t.TempDir(), "features")
	cfg.Extraction.Trials = 1
	cfg.Extraction.Extension = ".xml"

	runner, err := NewRunner(cfg, []string{filepath.Join(root, "didone"), filepath.Join(root, "EWLD")}, nil, nil)
	require.NoError(t, err)
	var ran []string
	runner.run = func(_ context.Context, argv []string, _, _ *os.File) (bench.Result, error) {
		ran = append(ran, argv[len(argv)-1])
		return bench.Result{Wall: time.Second}, nil
	}

	report, err := runner.Trials(context.Background(), MusifHarm)
	require.NoError(t, err)
	require.Len(t, ran, 1)
	assert.Contains(t, ran[0], "EWLD")
	// no CSV written: every score counts as an error
	assert.Equal(t, 1, report.Errors[filepath.Join(root, "EWLD")].Errors)
}

func TestRunnerNoScores(t *testing.T) {
	cfg := config.Default()
	runner, err := NewRunner(cfg, []string{t.TempDir()}, nil, nil)
	require.NoError(t, err)
	_, err = runner.Trials(context.Background(), Musif)
	assert.Error(t, err)
}
