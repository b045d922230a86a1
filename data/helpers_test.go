package data

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, path string, header []string, rows [][]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	w := csv.NewWriter(file)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
}

type staticGenres []Genre

func (s staticGenres) Genres(context.Context) ([]Genre, error) {
	return s, nil
}

// composerDataset labels rows by the directory under "corpus/".
func composerDataset(root string) *Dataset {
	return NewDataset("corpus", root, NewRegexLabels(`corpus/([^/]+)/`), []string{".mid", ".xml"})
}

func mustFeatureSet(t *testing.T, name, filename string, illegal []string) *FeatureSet {
	t.Helper()
	fs, err := NewFeatureSet(name, filename, illegal, []string{".mid", ".xml"})
	require.NoError(t, err)
	return fs
}

func mustTask(t *testing.T, d *Dataset, fs *FeatureSet, ext string, opts Options) *Task {
	t.Helper()
	task, err := NewTask(d, fs, ext, opts)
	require.NoError(t, err)
	return task
}
