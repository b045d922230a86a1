package data

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetParseLegalFilename(t *testing.T) {
	d := NewDataset("a", "", NewRegexLabels(`^(\w+)/`), []string{".mid"}).
		WithLegalFilename(`.*/[A-Z]+\w*.mid`)

	frame := NewFrame([]string{"FileName", "f1"}, [][]string{
		{"a/Foo.mid", "1"},
		{"a/bar.mid", "2"},
	})
	features, labels, filenames, err := d.Parse(context.Background(), frame, "FileName", "FileName")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/Foo.mid"}, filenames)
	assert.Equal(t, []string{"a"}, labels)
	assert.Equal(t, []string{"f1"}, features.Columns)
	assert.Equal(t, [][]string{{"1"}}, features.Rows)
}

func TestDatasetParseLegalFilenameIsAnchored(t *testing.T) {
	d := NewDataset("a", "", NewRegexLabels(`^(\w+)/`), []string{".mid"}).
		WithLegalFilename(`a/.*\.mid`)

	frame := NewFrame([]string{"FileName"}, [][]string{
		{"a/x.mid"},
		{"a/x.mid.bak"},
		{"b/a/x.mid"},
	})
	_, _, filenames, err := d.Parse(context.Background(), frame, "FileName", "FileName")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/x.mid"}, filenames)
}

func TestDatasetParseMinClassCount(t *testing.T) {
	var rows [][]string
	counts := map[string]int{"bach": 5, "chopin": 3, "liszt": 2, "ravel": 1}
	for composer, n := range counts {
		for i := 0; i < n; i++ {
			rows = append(rows, []string{fmt.Sprintf("corpus/%s/%d.mid", composer, i)})
		}
	}
	frame := NewFrame([]string{"FileName"}, rows)

	for _, min := range []int{0, 1, 2, 3, 5} {
		t.Run(fmt.Sprintf("min=%d", min), func(t *testing.T) {
			d := composerDataset("").WithMinClassCount(min)
			features, labels, filenames, err := d.Parse(context.Background(), frame, "FileName", "FileName")
			require.NoError(t, err)

			assert.LessOrEqual(t, len(labels), frame.Len())
			assert.Len(t, filenames, len(labels))
			assert.Equal(t, features.Len(), len(labels))

			got := make(map[string]int)
			for _, l := range labels {
				got[l]++
			}
			for label, n := range got {
				assert.Greater(t, n, min, "label %s kept with %d rows", label, n)
			}
			for label, n := range counts {
				if n > min {
					assert.Equal(t, n, got[label])
				}
			}
		})
	}
}

func TestDatasetParseStripsRoot(t *testing.T) {
	root := filepath.Join("datasets", "corpus")
	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	d := composerDataset(root)
	frame := NewFrame([]string{"FileName"}, [][]string{
		{"datasets/corpus/bach/a.mid"},
		{filepath.ToSlash(abs) + "/bach/b.mid"},
		{"other/corpus/bach/c.mid"},
	})
	_, labels, filenames, err := d.Parse(context.Background(), frame, "FileName", "FileName")
	require.NoError(t, err)
	assert.Equal(t, []string{"bach", "bach", "bach"}, labels)
	assert.Equal(t, []string{"bach/a.mid", "bach/b.mid", "other/corpus/bach/c.mid"}, filenames)
}

func TestDatasetParseUnlabeledRowAborts(t *testing.T) {
	d := composerDataset("")
	frame := NewFrame([]string{"FileName"}, [][]string{
		{"corpus/bach/a.mid"},
		{"misplaced.mid"},
	})
	_, _, _, err := d.Parse(context.Background(), frame, "FileName", "FileName")
	assert.ErrorIs(t, err, ErrDataIntegrity)
}

func TestDatasetDefaults(t *testing.T) {
	d := composerDataset("")
	assert.Equal(t, "corpus", d.FriendlyName)
	assert.Nil(t, d.LegalFilename)
	assert.Nil(t, d.MinClassCount)
	assert.True(t, d.Supports(".xml"))
	assert.False(t, d.Supports(".krn"))
}
