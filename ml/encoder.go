package ml

import (
	"fmt"
	"sort"
)

// LabelEncoder maps string labels to 0..n-1 in sorted order.
type LabelEncoder struct {
	Classes []string
	index   map[string]int
}

func (e *LabelEncoder) Fit(labels []string) {
	index := make(map[string]int)
	for _, l := range labels {
		index[l] = 0
	}
	e.Classes = make([]string, 0, len(index))
	for l := range index {
		e.Classes = append(e.Classes, l)
	}
	sort.Strings(e.Classes)
	for i, l := range e.Classes {
		index[l] = i
	}
	e.index = index
}

func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		code, ok := e.index[l]
		if !ok {
			return nil, fmt.Errorf("unknown label %q", l)
		}
		out[i] = code
	}
	return out, nil
}

func (e *LabelEncoder) FitTransform(labels []string) []int {
	e.Fit(labels)
	out, _ := e.Transform(labels)
	return out
}

func (e *LabelEncoder) Inverse(codes []int) ([]string, error) {
	out := make([]string, len(codes))
	for i, c := range codes {
		if c < 0 || c >= len(e.Classes) {
			return nil, fmt.Errorf("unknown class code %d", c)
		}
		out[i] = e.Classes[c]
	}
	return out, nil
}
