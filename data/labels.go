package data

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// LabelExtractor derives one label per row from the label column. It may drop
// rows; the returned labels are aligned with the returned frame.
type LabelExtractor interface {
	Extract(ctx context.Context, f *Frame, column string) (*Frame, []string, error)
}

// RegexLabels uses the first capture group of Pattern as the label. A value
// that does not match is a data-integrity failure.
type RegexLabels struct {
	Pattern *regexp.Regexp
}

func NewRegexLabels(pattern string) RegexLabels {
	return RegexLabels{Pattern: regexp.MustCompile(pattern)}
}

func (r RegexLabels) Extract(_ context.Context, f *Frame, column string) (*Frame, []string, error) {
	values, err := f.Column(column)
	if err != nil {
		return nil, nil, err
	}
	labels := make([]string, len(values))
	for i, v := range values {
		m := r.Pattern.FindStringSubmatch(v)
		if len(m) < 2 {
			return nil, nil, fmt.Errorf("no label in %q (pattern %s): %w", v, r.Pattern, ErrDataIntegrity)
		}
		labels[i] = m[1]
	}
	return f, labels, nil
}

const (
	didoneMissing = "nd"
	didonePattern = `-1(\d\d)\d[^/]*$`
)

// DidoneLabels buckets arias by the decade digits of the year in the file
// name. Unknown years become "nd"; the misprinted decade "97" is "79".
type DidoneLabels struct{}

var didoneRe = regexp.MustCompile(didonePattern)

func (DidoneLabels) Extract(_ context.Context, f *Frame, column string) (*Frame, []string, error) {
	values, err := f.Column(column)
	if err != nil {
		return nil, nil, err
	}
	labels := make([]string, len(values))
	for i, v := range values {
		m := didoneRe.FindStringSubmatch(v)
		switch {
		case len(m) < 2:
			labels[i] = didoneMissing
		case m[1] == "97":
			labels[i] = "79"
		default:
			labels[i] = m[1]
		}
	}
	return f, labels, nil
}

// Genre is the dominant genre of one work in the EWLD database.
type Genre struct {
	WorkID      int64
	Path        string
	Genre       string
	Occurrences int
}

// GenreSource returns one Genre per work, ordered by work id.
type GenreSource interface {
	Genres(ctx context.Context) ([]Genre, error)
}

// GenreLabels joins feature rows with the genre table on the normalized
// path. Rows without a genre are dropped.
type GenreLabels struct {
	Source GenreSource
	roots  rootStripper
}

func NewGenreLabels(source GenreSource, datasetRoot string) GenreLabels {
	return GenreLabels{Source: source, roots: newRootStripper(datasetRoot)}
}

func (g GenreLabels) Extract(ctx context.Context, f *Frame, column string) (*Frame, []string, error) {
	if g.Source == nil {
		return nil, nil, fmt.Errorf("no genre source configured: %w", ErrNotFound)
	}
	values, err := f.Column(column)
	if err != nil {
		return nil, nil, err
	}
	genres, err := g.Source.Genres(ctx)
	if err != nil {
		return nil, nil, err
	}

	byPath := make(map[string]string, len(genres))
	for _, genre := range genres {
		key := g.normalize(genre.Path)
		if _, dup := byPath[key]; dup {
			continue
		}
		byPath[key] = genre.Genre
	}

	mask := make([]bool, len(values))
	labels := make([]string, 0, len(values))
	for i, v := range values {
		genre, ok := byPath[g.normalize(v)]
		if !ok {
			continue
		}
		mask[i] = true
		labels = append(labels, genre)
	}
	return f.Filter(mask), labels, nil
}

var unsafeFilenameChars = strings.NewReplacer(",", "_", ";", "_", " ", "_")

// normalize maps a path from either side of the join to the same key: root
// prefix removed, 4-character extension removed, separators replaced.
func (g GenreLabels) normalize(path string) string {
	path = g.roots.strip(path)
	if n := len(path); n >= 4 && path[n-4] == '.' {
		path = path[:n-4]
	}
	return unsafeFilenameChars.Replace(path)
}
