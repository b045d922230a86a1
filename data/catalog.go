package data

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"symfeat/config"
)

// Dataset names as they appear under the datasets root and the output dir.
const (
	ASAP     = "asap-dataset"
	Didone   = "didone"
	EWLD     = "EWLD"
	Josquin  = "mass-duos-corpus-josquin-larue"
	Quartets = "quartets"
)

// Vocabularies of the musif-harm output: musif's own modules and the
// harmonic features computed from MuseScore annotations.
var (
	musifNativePrefixes = []string{
		"Score", "Part", "Sound", "Family", "Key", "Tempo", "Time", "Density", "Texture",
		"Melody", "Interval", "Ambitus", "Lyrics", "Dynamic", "Rhythm", "Scale", "Note",
	}
	musifHarmonicPrefixes = []string{
		"Harmonic", "Chord", "Numeral", "Degree", "Additions", "Modulation",
	}
)

// Catalog holds the datasets and feature sets known to the harness and
// builds the task roster from them.
type Catalog struct {
	datasets    []*Dataset
	featureSets []*FeatureSet
	opts        Options
}

func NewCatalog(cfg config.Config, genres GenreSource, reader *Reader, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	root := func(name string) string { return filepath.Join(cfg.DatasetsRoot, name) }

	datasets := []*Dataset{
		NewDataset(ASAP, root(ASAP), NewRegexLabels(`asap-dataset/([^/]+)/`), []string{".mid", ".xml"}).
			WithFriendlyName("ASAP").
			WithLegalFilename(`.*(xml_score\.musicxml|midi_score\.mid)`).
			WithMinClassCount(cfg.MinClassCount),
		NewDataset(Didone, root(Didone), DidoneLabels{}, []string{".mid", ".xml"}).
			WithFriendlyName("Didone"),
		NewDataset(EWLD, root(EWLD), NewGenreLabels(genres, root(EWLD)), []string{".mid", ".xml"}).
			WithMinClassCount(cfg.MinClassCount),
		NewDataset(Josquin, root(Josquin), NewRegexLabels(`/(Jos|Rue)[^/]*$`), []string{".mid", ".xml"}).
			WithFriendlyName("Josquin-LaRue"),
		NewDataset(Quartets, root(Quartets), NewRegexLabels(`quartets/([^/]+)/`), []string{".mid", ".krn"}).
			WithFriendlyName("Quartets"),
	}

	specs := []struct {
		name, filename string
		illegal, exts  []string
	}{
		{"music21", "FileName_0", nil, []string{".mid", ".xml", ".krn"}},
		{"musif", "FileName", []string{"Id", "WindowId"}, []string{".mid", ".xml"}},
		{"jsymbolic", "Unnamed: 0", nil, []string{".mid"}},
		{"musif-harm", "FileName", []string{"Id", "WindowId"}, []string{".xml"}},
	}
	featureSets := make([]*FeatureSet, 0, len(specs))
	for _, s := range specs {
		fs, err := NewFeatureSet(s.name, s.filename, s.illegal, s.exts)
		if err != nil {
			return nil, err
		}
		featureSets = append(featureSets, fs)
	}
	featureSets[3].Filter = &VocabularyFilter{
		Mode:     cfg.FilterMode,
		Native:   musifNativePrefixes,
		External: musifHarmonicPrefixes,
	}

	return &Catalog{
		datasets:    datasets,
		featureSets: featureSets,
		opts: Options{
			Output: cfg.Output,
			PCA:    cfg.PCA,
			Reader: reader,
			Logger: logger,
		},
	}, nil
}

func (c *Catalog) Datasets() []*Dataset { return c.datasets }
func (c *Catalog) FeatureSets() []*FeatureSet { return c.featureSets }

func (c *Catalog) Dataset(name string) (*Dataset, error) {
	for _, d := range c.datasets {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("unknown dataset %q", name)
}

func (c *Catalog) FeatureSet(name string) (*FeatureSet, error) {
	for _, fs := range c.featureSets {
		if fs.Name == name {
			return fs, nil
		}
	}
	return nil, fmt.Errorf("unknown feature set %q", name)
}

// Tasks returns a fresh, unloaded task for every dataset, extension and
// feature set accepting that extension.
func (c *Catalog) Tasks() []*Task {
	var tasks []*Task
	for _, d := range c.datasets {
		tasks = append(tasks, c.DatasetTasks(d)...)
	}
	return tasks
}

func (c *Catalog) DatasetTasks(d *Dataset) []*Task {
	var tasks []*Task
	for _, ext := range d.Extensions {
		for _, fs := range c.featureSets {
			if !fs.Accepts(ext) {
				continue
			}
			t, err := NewTask(d, fs, ext, c.opts)
			if err != nil {
				continue
			}
			tasks = append(tasks, t)
		}
	}
	return tasks
}
