package data

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"symfeat/config"
)

// FeatureSet describes the CSV written by one feature-extraction tool.
type FeatureSet struct {
	Name           string
	FilenameColumn string
	LabelColumn    string
	IllegalColumns []string
	Extensions     []string
	Filter         *VocabularyFilter
}

// VocabularyFilter removes feature columns belonging to one of two disjoint
// prefix vocabularies.
type VocabularyFilter struct {
	Mode     string
	Native   []string
	External []string
}

func NewFeatureSet(name, filenameColumn string, illegal, extensions []string) (*FeatureSet, error) {
	if name == "" {
		return nil, errors.New("feature set name is required")
	}
	if len(extensions) == 0 {
		return nil, fmt.Errorf("feature set %s: at least one extension is required", name)
	}
	return &FeatureSet{
		Name:           name,
		FilenameColumn: filenameColumn,
		LabelColumn:    filenameColumn,
		IllegalColumns: illegal,
		Extensions:     extensions,
	}, nil
}

// Label returns the column labels are derived from.
func (fs *FeatureSet) Label() string {
	if fs.LabelColumn == "" {
		return fs.FilenameColumn
	}
	return fs.LabelColumn
}

func (fs *FeatureSet) Accepts(extension string) bool {
	return slices.Contains(fs.Extensions, extension)
}

// Parse drops the tool's bookkeeping columns, then applies the vocabulary
// filter. Dropping a column the tool did not emit is an error.
func (fs *FeatureSet) Parse(f *Frame) (*Frame, error) {
	if len(fs.IllegalColumns) > 0 {
		var err error
		f, err = f.Drop(fs.IllegalColumns...)
		if err != nil {
			return nil, fmt.Errorf("feature set %s: %w", fs.Name, err)
		}
	}
	if fs.Filter == nil {
		return f, nil
	}
	return fs.Filter.Apply(f)
}

func (v *VocabularyFilter) Apply(f *Frame) (*Frame, error) {
	var drop []string
	switch v.Mode {
	case "", config.FilterBoth:
		return f, nil
	case config.FilterNativeOnly:
		drop = v.External
	case config.FilterExternalOnly:
		drop = v.Native
	default:
		return nil, fmt.Errorf("unknown filter mode %q", v.Mode)
	}
	return f.DropFunc(func(column string) bool {
		return hasAnyPrefix(column, drop)
	}), nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
