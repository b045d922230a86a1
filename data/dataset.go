package data

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
)

// Dataset describes one corpus: where it lives, how rows are labelled and
// which rows are kept.
type Dataset struct {
	Name         string
	FriendlyName string
	Root         string
	Labels       LabelExtractor
	Extensions   []string

	// LegalFilename must match the whole label-column value; nil keeps every row.
	LegalFilename *regexp.Regexp

	// MinClassCount, when set, drops every class with that many rows or fewer.
	MinClassCount *int

	roots rootStripper
}

func NewDataset(name, root string, labels LabelExtractor, extensions []string) *Dataset {
	return &Dataset{
		Name:         name,
		FriendlyName: name,
		Root:         root,
		Labels:       labels,
		Extensions:   extensions,
		roots:        newRootStripper(root),
	}
}

// WithLegalFilename sets the full-match filter on the label column.
func (d *Dataset) WithLegalFilename(pattern string) *Dataset {
	d.LegalFilename = regexp.MustCompile(`^(?:` + pattern + `)$`)
	return d
}

func (d *Dataset) WithMinClassCount(n int) *Dataset {
	d.MinClassCount = &n
	return d
}

func (d *Dataset) WithFriendlyName(name string) *Dataset {
	d.FriendlyName = name
	return d
}

func (d *Dataset) Supports(extension string) bool {
	return slices.Contains(d.Extensions, extension)
}

// Parse labels the frame and filters its rows. It returns the frame without
// the label column, the labels and the filenames relative to the dataset root,
// all aligned row by row.
func (d *Dataset) Parse(ctx context.Context, f *Frame, filenameColumn, labelColumn string) (*Frame, []string, []string, error) {
	f, labels, err := d.Labels.Extract(ctx, f, labelColumn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("dataset %s: %w", d.Name, err)
	}
	if len(labels) != f.Len() {
		return nil, nil, nil, fmt.Errorf("dataset %s: %d labels for %d rows: %w", d.Name, len(labels), f.Len(), ErrDataIntegrity)
	}

	if d.LegalFilename != nil {
		values, err := f.Column(labelColumn)
		if err != nil {
			return nil, nil, nil, err
		}
		mask := make([]bool, len(values))
		for i, v := range values {
			mask[i] = d.LegalFilename.MatchString(v)
		}
		f, labels = f.Filter(mask), filterStrings(labels, mask)
	}

	if d.MinClassCount != nil {
		counts := make(map[string]int)
		for _, label := range labels {
			counts[label]++
		}
		mask := make([]bool, len(labels))
		for i, label := range labels {
			mask[i] = counts[label] > *d.MinClassCount
		}
		f, labels = f.Filter(mask), filterStrings(labels, mask)
	}

	filenames, err := f.Column(filenameColumn)
	if err != nil {
		return nil, nil, nil, err
	}
	f, err = f.Drop(labelColumn)
	if err != nil {
		return nil, nil, nil, err
	}
	for i, name := range filenames {
		filenames[i] = d.roots.strip(name)
	}
	return f, labels, filenames, nil
}

func filterStrings(values []string, mask []bool) []string {
	out := make([]string, 0, len(values))
	for i, keep := range mask {
		if keep {
			out = append(out, values[i])
		}
	}
	return out
}

// rootStripper removes a dataset root from the start of a path. Both the
// configured root and its absolute form are tried: some tools write absolute
// paths.
type rootStripper struct {
	patterns []*regexp.Regexp
}

func newRootStripper(root string) rootStripper {
	if root == "" {
		return rootStripper{}
	}
	var roots []string
	if abs, err := filepath.Abs(root); err == nil {
		roots = append(roots, filepath.ToSlash(abs))
	}
	roots = append(roots, filepath.ToSlash(filepath.Clean(root)))

	patterns := make([]*regexp.Regexp, 0, len(roots))
	for _, r := range roots {
		patterns = append(patterns, regexp.MustCompile(`^`+regexp.QuoteMeta(r)+`/?`))
	}
	return rootStripper{patterns: patterns}
}

func (s rootStripper) strip(path string) string {
	for _, p := range s.patterns {
		if loc := p.FindStringIndex(path); loc != nil {
			return path[loc[1]:]
		}
	}
	return path
}
