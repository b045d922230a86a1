// Package extract runs the external feature extractors over the datasets and
// measures their cost.
package extract

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"symfeat/config"
)

// Feature set names understood by Command.
const (
	JSymbolic = "jsymbolic"
	Musif     = "musif"
	Music21   = "music21"
	MusifHarm = "musif-harm"
)

var musicXMLExtensions = []string{".xml", ".musicxml", ".mxl"}

// OutputBase is the CSV path without extension. The tools append ".csv".
func OutputBase(output, dataset, featureSet, ext string) string {
	return filepath.Join(output, filepath.Base(dataset), featureSet+"-"+strings.TrimPrefix(ext, "."))
}

// Command returns the argv extracting featureSet from the scores under
// dataset into the dataset's output directory.
func Command(tools config.ToolsConfig, featureSet, dataset, output, ext string) ([]string, error) {
	dir := filepath.Join(output, filepath.Base(dataset))
	base := OutputBase(output, dataset, featureSet, ext)

	switch featureSet {
	case JSymbolic:
		abs, err := filepath.Abs(dataset)
		if err != nil {
			return nil, err
		}
		return []string{
			tools.Java, "-Xmx25g", "-jar", tools.JSymbolicJar,
			"-csv", abs, base, filepath.Join(dir, "jsymbolic_def"),
		}, nil
	case Musif:
		return []string{tools.Python, "-m", "musif", "-e", ext, "-s", dataset, "-o", base}, nil
	case Music21:
		return []string{tools.Python, "-m", tools.Music21Module, dataset, ext, base}, nil
	case MusifHarm:
		return []string{
			tools.Python, "-m", "musif", "-e", ext, "-s", dataset,
			"--harm", filepath.Join(dataset, "musescore"), "-o", base,
		}, nil
	default:
		return nil, fmt.Errorf("unknown feature set %q", featureSet)
	}
}

// CountScores counts the files with extension ext under dir, recursively.
// The MusicXML extensions are counted together.
func CountScores(dir, ext string) (int, error) {
	exts := []string{ext}
	if slices.Contains(musicXMLExtensions, ext) {
		exts = musicXMLExtensions
	}
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && slices.Contains(exts, filepath.Ext(path)) {
			n++
		}
		return nil
	})
	return n, err
}

// Datasets lists the dataset directories under root.
func Datasets(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs, nil
}
