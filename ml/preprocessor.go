package ml

import (
	"errors"
	"fmt"
	"math"
)

// Imputer replaces missing cells (NaN) with the mean of their column in the
// rows it was fitted on. A column with no value at all is imputed with 0.
type Imputer struct {
	means []float64
}

func (p *Imputer) Fit(features [][]float64) error {
	if len(features) == 0 {
		return errors.New("features is empty")
	}
	width := len(features[0])
	sums := make([]float64, width)
	counts := make([]int, width)
	for _, row := range features {
		if len(row) != width {
			return fmt.Errorf("row has %d columns, want %d", len(row), width)
		}
		for j, v := range row {
			if !math.IsNaN(v) {
				sums[j] += v
				counts[j]++
			}
		}
	}
	p.means = make([]float64, width)
	for j := range sums {
		if counts[j] > 0 {
			p.means[j] = sums[j] / float64(counts[j])
		}
	}
	return nil
}

// Transform returns a copy of features without missing cells.
func (p *Imputer) Transform(features [][]float64) ([][]float64, error) {
	if p.means == nil {
		return nil, errors.New("imputer not fitted")
	}
	out := make([][]float64, len(features))
	for i, row := range features {
		if len(row) != len(p.means) {
			return nil, fmt.Errorf("row has %d columns, want %d", len(row), len(p.means))
		}
		clean := make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				v = p.means[j]
			}
			clean[j] = v
		}
		out[i] = clean
	}
	return out, nil
}

func (p *Imputer) Means() []float64 {
	return append([]float64(nil), p.means...)
}
