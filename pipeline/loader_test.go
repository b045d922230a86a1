package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"symfeat/data"
)

func writeCSV(t *testing.T, path string, header []string, rows [][]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

type fixture struct {
	out     string
	dataset *data.Dataset
	sets    map[string]*data.FeatureSet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		out:     t.TempDir(),
		dataset: data.NewDataset("corpus", "", data.NewRegexLabels(`corpus/([^/]+)/`), []string{".mid", ".xml"}),
		sets:    make(map[string]*data.FeatureSet),
	}
	for _, name := range []string{"musif", "music21", "jsymbolic"} {
		fs, err := data.NewFeatureSet(name, "FileName", nil, []string{".mid", ".xml"})
		require.NoError(t, err)
		f.sets[name] = fs
	}
	return f
}

func (f *fixture) write(t *testing.T, name, ext string, files ...string) {
	t.Helper()
	rows := make([][]string, len(files))
	for i, file := range files {
		rows[i] = []string{file, "1", "2"}
	}
	writeCSV(t, filepath.Join(f.out, "corpus", name+"-"+ext+".csv"), []string{"FileName", "a", "b"}, rows)
}

func (f *fixture) task(t *testing.T, name, ext string) *data.Task {
	t.Helper()
	task, err := data.NewTask(f.dataset, f.sets[name], ext, data.Options{Output: f.out})
	require.NoError(t, err)
	return task
}

func TestLoaderSkipsMissingAndIntersects(t *testing.T) {
	f := newFixture(t)
	f.write(t, "musif", "mid", "corpus/a/1.mid", "corpus/a/2.mid", "corpus/b/3.mid")
	f.write(t, "music21", "mid", "corpus/a/1.mid", "corpus/b/3.mid")

	tasks := []*data.Task{
		f.task(t, "musif", ".mid"),
		f.task(t, "music21", ".mid"),
		f.task(t, "jsymbolic", ".mid"),
	}

	core, logs := observer.New(zap.WarnLevel)
	batch, err := NewLoader(2, false, zap.New(core)).Load(context.Background(), tasks)
	require.NoError(t, err)

	assert.Equal(t, []*data.Task{tasks[0], tasks[1]}, batch.Tasks)
	assert.Equal(t, []string{"corpus-jsymbolic-mid"}, batch.Skipped)
	assert.Equal(t, Stats{
		Total:      3,
		Loaded:     2,
		Skipped:    1,
		RowsBefore: map[string]int{"corpus-musif-mid": 3, "corpus-music21-mid": 2},
		RowsAfter:  map[string]int{"corpus-musif-mid": 2, "corpus-music21-mid": 2},
	}, batch.Stats)
	assert.Empty(t, batch.Concats)
	assert.Equal(t, 1, logs.FilterMessage("skipping task").Len())

	for _, task := range batch.Tasks {
		assert.Equal(t, data.Intersected, task.State())
	}
}

func TestLoaderBuildsConcats(t *testing.T) {
	f := newFixture(t)
	f.write(t, "musif", "mid", "corpus/a/1.mid", "corpus/b/2.mid")
	f.write(t, "music21", "mid", "corpus/b/2.mid", "corpus/a/1.mid")
	f.write(t, "musif", "xml", "corpus/a/1.xml")

	tasks := []*data.Task{
		f.task(t, "musif", ".mid"),
		f.task(t, "music21", ".mid"),
		f.task(t, "musif", ".xml"),
	}
	batch, err := NewLoader(4, true, nil).Load(context.Background(), tasks)
	require.NoError(t, err)

	require.Len(t, batch.Concats, 1)
	c := batch.Concats[0]
	assert.Equal(t, "corpus-musif+music21-mid", c.Name())
	assert.Equal(t, []string{"musif.a", "musif.b", "music21.a", "music21.b"}, c.Features().Columns)
	assert.Len(t, batch.Loadables(), 4)
}

func TestLoaderAbortsOnIntegrityError(t *testing.T) {
	f := newFixture(t)
	f.write(t, "musif", "mid", "corpus/a/1.mid", "unlabeled.mid")
	f.write(t, "music21", "mid", "corpus/a/1.mid")

	_, err := NewLoader(1, false, nil).Load(context.Background(), []*data.Task{
		f.task(t, "musif", ".mid"),
		f.task(t, "music21", ".mid"),
	})
	assert.ErrorIs(t, err, data.ErrDataIntegrity)
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	f.write(t, "musif", "mid", "corpus/a/1.mid", "corpus/b/2.mid", "corpus/b/3.mid")
	f.write(t, "music21", "mid", "corpus/a/1.mid", "corpus/b/2.mid")

	batch, err := NewLoader(2, true, nil).Load(context.Background(), []*data.Task{
		f.task(t, "musif", ".mid"),
		f.task(t, "music21", ".mid"),
		f.task(t, "jsymbolic", ".mid"),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Report(&buf, batch))
	out := buf.String()
	assert.Contains(t, out, "corpus-.mid")
	assert.Contains(t, out, "corpus-musif-mid")
	assert.Contains(t, out, "corpus-musif+music21-mid")
	assert.Contains(t, out, "skipped (1):")
	assert.Contains(t, out, "corpus-jsymbolic-mid")
}
