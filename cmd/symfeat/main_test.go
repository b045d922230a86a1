package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symfeat/db"
	"symfeat/ml"
)

type env struct {
	dir     string
	config  string
	results string
}

// newEnv lays out a quartets corpus with musif and music21 output. Haydn and
// Mozart differ on feature "a" only.
func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{dir: dir, config: filepath.Join(dir, "config.yaml"), results: filepath.Join(dir, "results")}

	var musif, music21 [][]string
	for i := 0; i < 8; i++ {
		composer, a := "haydn", "0"
		if i%2 == 1 {
			composer, a = "mozart", "1"
		}
		file := fmt.Sprintf("%s/datasets/quartets/%s/%d.mid", dir, composer, i)
		musif = append(musif, []string{file, a, fmt.Sprint(i)})
		music21 = append(music21, []string{file, a})
	}
	writeRecords(t, filepath.Join(dir, "features", "quartets", "musif-mid.csv"), []string{"FileName", "a", "b"}, musif)
	writeRecords(t, filepath.Join(dir, "features", "quartets", "music21-mid.csv"), []string{"FileName_0", "a"}, music21)

	cfg := fmt.Sprintf(`datasets_root: %[1]s/datasets
output: %[1]s/features
ewld_db: %[1]s/missing.db
telegram: %[1]s/telegram.json
workers: 2
classify:
  splits: 2
  automl_time: 1m
  max_depth: 3
  dummy_trials: 5
  results: %[2]s
log:
  dir: %[1]s
`, dir, e.results)
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0o644))
	return e
}

func writeRecords(t *testing.T, path string, header []string, rows [][]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	t.Cleanup(a.close)
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "check", "--concat")
	require.NoError(t, err)

	assert.Contains(t, out, "Quartets-.mid")
	assert.Contains(t, out, "quartets-musif-mid")
	assert.Contains(t, out, "quartets-music21-mid")
	assert.Contains(t, out, "quartets-music21+musif-mid")
	assert.Contains(t, out, "didone-musif-mid")
}

func TestClassifyCommand(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "classify", "--debug")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(e.results, "quartets-musif-mid.csv"))
	assert.FileExists(t, filepath.Join(e.results, "quartets-music21-mid.csv"))
	assert.FileExists(t, filepath.Join(e.results, "Quartets-.mid.csv"))

	model, err := ml.LoadModel("decision_tree", filepath.Join(e.results, "quartets-musif-mid"+modelSuffix))
	require.NoError(t, err)
	pred, err := ml.PredictAll(model, [][]float64{{0, 5}, {1, 2}})
	require.NoError(t, err)
	assert.NotEqual(t, pred[0], pred[1])

	store, err := db.OpenRunStore(filepath.Join(e.results, runsDatabase))
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.Equal(t, "Quartets-.mid", r.Group)
		assert.Equal(t, 8, r.Rows)
		assert.InDelta(t, 1.0, r.BestScore, 1e-9)
	}
}

func TestExtractRejectsUnknownFeatureSet(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(e.dir, "datasets", "quartets", "haydn"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, "datasets", "quartets", "haydn", "0.mid"), nil, 0o644))

	_, err := e.run(t, "extract", "nope")
	assert.ErrorContains(t, err, "unknown feature set")
}
