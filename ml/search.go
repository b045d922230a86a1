package ml

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Performance is the best cross-validated score known at Timestamp.
type Performance struct {
	Timestamp time.Time
	Score     float64
}

// Result of a search. Performance only grows: a point is recorded each time
// the best score improves.
type Result struct {
	BestScore   float64
	BestDepth   int
	Model       *DecisionTree
	Performance []Performance
	Evaluated   int
}

// Search tunes a decision tree by cross-validation within a time budget.
// Depths 1..MaxDepth are tried in order, stopping early when the budget is
// spent or the context is cancelled.
type Search struct {
	Budget   time.Duration
	MaxDepth int
	Logger   *zap.Logger

	now func() time.Time
}

func (s *Search) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Run evaluates the search over folds. features may contain NaN cells; they
// are imputed with the training-fold column means.
func (s *Search) Run(ctx context.Context, features [][]float64, labels []int, folds []Fold) (*Result, error) {
	if len(features) != len(labels) {
		return nil, fmt.Errorf("%d feature rows for %d labels", len(features), len(labels))
	}
	if len(features) <= len(folds) {
		return nil, fmt.Errorf("not enough data: %d rows for %d folds", len(features), len(folds))
	}
	if len(folds) == 0 {
		return nil, errors.New("no folds")
	}
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxDepth := s.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}

	prepared, err := prepareFolds(features, labels, folds)
	if err != nil {
		return nil, err
	}

	start := s.clock()
	result := &Result{BestScore: -1}
	for depth := 1; depth <= maxDepth; depth++ {
		if err := ctx.Err(); err != nil {
			break
		}
		if s.Budget > 0 && s.clock().Sub(start) >= s.Budget {
			logger.Debug("search budget spent", zap.Int("depth", depth))
			break
		}

		score, err := crossValidate(prepared, depth)
		if err != nil {
			return nil, err
		}
		result.Evaluated++
		if score > result.BestScore {
			result.BestScore, result.BestDepth = score, depth
			result.Performance = append(result.Performance, Performance{Timestamp: s.clock(), Score: score})
			logger.Debug("search improved", zap.Int("depth", depth), zap.Float64("balanced_accuracy", score))
		}
	}
	if result.Evaluated == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("search budget too small to evaluate any model")
	}

	imp := &Imputer{}
	if err := imp.Fit(features); err != nil {
		return nil, err
	}
	clean, err := imp.Transform(features)
	if err != nil {
		return nil, err
	}
	result.Model = NewDecisionTree(result.BestDepth)
	if err := result.Model.Fit(clean, labels); err != nil {
		return nil, err
	}
	return result, nil
}

type preparedFold struct {
	trainX [][]float64
	trainY []int
	testX  [][]float64
	testY  []int
}

func prepareFolds(features [][]float64, labels []int, folds []Fold) ([]preparedFold, error) {
	out := make([]preparedFold, len(folds))
	for i, fold := range folds {
		imp := &Imputer{}
		trainX := subset(features, fold.Train)
		if err := imp.Fit(trainX); err != nil {
			return nil, fmt.Errorf("fold %d: %w", i, err)
		}
		var err error
		if out[i].trainX, err = imp.Transform(trainX); err != nil {
			return nil, err
		}
		if out[i].testX, err = imp.Transform(subset(features, fold.Test)); err != nil {
			return nil, err
		}
		out[i].trainY = subset(labels, fold.Train)
		out[i].testY = subset(labels, fold.Test)
	}
	return out, nil
}

// crossValidate returns the mean balanced accuracy of a tree of depth over
// the folds.
func crossValidate(folds []preparedFold, depth int) (float64, error) {
	var total float64
	for _, f := range folds {
		tree := NewDecisionTree(depth)
		if err := tree.Fit(f.trainX, f.trainY); err != nil {
			return 0, err
		}
		pred, err := PredictAll(tree, f.testX)
		if err != nil {
			return 0, err
		}
		score, err := BalancedAccuracy(f.testY, pred)
		if err != nil {
			return 0, err
		}
		total += score
	}
	return total / float64(len(folds)), nil
}
