package ml

import (
	"fmt"
	"math/rand"
	"sort"
)

// Fold is one train/test partition of row indexes.
type Fold struct {
	Train []int
	Test  []int
}

// StratifiedKFold spreads the rows of every class over Splits folds so each
// fold keeps the class proportions of the whole set. Rows are shuffled with
// Seed first; the same seed gives the same folds.
type StratifiedKFold struct {
	Splits int
	Seed   int64
}

func (k StratifiedKFold) Split(labels []int) ([]Fold, error) {
	if k.Splits < 2 {
		return nil, fmt.Errorf("need at least 2 splits, got %d", k.Splits)
	}
	if len(labels) < k.Splits {
		return nil, fmt.Errorf("cannot split %d rows in %d folds", len(labels), k.Splits)
	}

	byClass := make(map[int][]int)
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(k.Seed))
	assign := make([]int, len(labels))
	next := 0
	for _, c := range classes {
		rows := byClass[c]
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		for _, r := range rows {
			assign[r] = next % k.Splits
			next++
		}
	}

	folds := make([]Fold, k.Splits)
	for r, f := range assign {
		for i := range folds {
			if i == f {
				folds[i].Test = append(folds[i].Test, r)
			} else {
				folds[i].Train = append(folds[i].Train, r)
			}
		}
	}
	return folds, nil
}

func subset[T any](values []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
