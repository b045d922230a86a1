package ml

import (
	"context"
	"errors"
	"math/rand"
	"sort"
)

// DummyClassifier ignores the features and draws each prediction from the
// class distribution of the training labels.
type DummyClassifier struct {
	rng     *rand.Rand
	classes []int
	cum     []float64
}

func NewDummyClassifier(seed int64) *DummyClassifier {
	return &DummyClassifier{rng: rand.New(rand.NewSource(seed))}
}

func (d *DummyClassifier) Fit(_ [][]float64, labels []int) error {
	if len(labels) == 0 {
		return errors.New("labels empty")
	}
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	d.classes = d.classes[:0]
	for c := range counts {
		d.classes = append(d.classes, c)
	}
	sort.Ints(d.classes)
	d.cum = make([]float64, len(d.classes))
	acc := 0.0
	for i, c := range d.classes {
		acc += float64(counts[c]) / float64(len(labels))
		d.cum[i] = acc
	}
	return nil
}

func (d *DummyClassifier) Predict(_ []float64) (int, float64, error) {
	if len(d.classes) == 0 {
		return 0, 0, errors.New("model not trained")
	}
	u := d.rng.Float64()
	i := sort.SearchFloat64s(d.cum, u)
	if i >= len(d.classes) {
		i = len(d.classes) - 1
	}
	p := d.cum[i]
	if i > 0 {
		p -= d.cum[i-1]
	}
	return d.classes[i], p, nil
}

// DummyTrials returns the balanced accuracy of the dummy baseline over folds,
// averaged on trials independent draws.
func DummyTrials(ctx context.Context, labels []int, folds []Fold, trials int, seed int64) (float64, error) {
	if trials <= 0 {
		return 0, errors.New("trials must be positive")
	}
	if len(folds) == 0 {
		return 0, errors.New("no folds")
	}
	dummy := NewDummyClassifier(seed)
	var total float64
	for t := 0; t < trials; t++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		var trial float64
		for _, fold := range folds {
			if err := dummy.Fit(nil, subset(labels, fold.Train)); err != nil {
				return 0, err
			}
			pred := make([]int, len(fold.Test))
			for i := range pred {
				pred[i], _, _ = dummy.Predict(nil)
			}
			score, err := BalancedAccuracy(subset(labels, fold.Test), pred)
			if err != nil {
				return 0, err
			}
			trial += score
		}
		total += trial / float64(len(folds))
	}
	return total / float64(trials), nil
}
