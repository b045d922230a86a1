package ml

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
)

// DecisionTree is a CART classifier using Gini impurity. Nodes are stored in
// pre-order: a node's left subtree starts right after it.
type DecisionTree struct {
	MaxDepth int
	// MinLeaf is the smallest number of rows allowed in a leaf.
	MinLeaf int

	nodes []TreeNode
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	Purity     float64 `json:"purity"`
	IsLeaf     bool    `json:"is_leaf"`
}

func NewDecisionTree(maxDepth int) *DecisionTree {
	return &DecisionTree{MaxDepth: maxDepth, MinLeaf: 1}
}

func (dt *DecisionTree) Fit(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	maxDepth := dt.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}
	minLeaf := dt.MinLeaf
	if minLeaf <= 0 {
		minLeaf = 1
	}

	rows := make([]int, len(labels))
	for i := range rows {
		rows[i] = i
	}
	b := treeBuilder{features: features, labels: labels, maxDepth: maxDepth, minLeaf: minLeaf}
	dt.nodes = b.build(rows, 0)
	return nil
}

// Predict returns the class of the leaf reached by features and the share of
// training rows of that class in the leaf.
func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	if len(dt.nodes) == 0 {
		return 0, 0, errors.New("model not trained")
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, node.Purity, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return 0, 0, errors.New("invalid tree state")
		}
	}
}

// Depth is the number of splits on the longest root-to-leaf path.
func (dt *DecisionTree) Depth() int {
	var depth func(idx int) int
	depth = func(idx int) int {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return 0
		}
		return 1 + max(depth(node.LeftChild), depth(node.RightChild))
	}
	if len(dt.nodes) == 0 {
		return 0
	}
	return depth(0)
}

func (dt *DecisionTree) Save(path string) error {
	if len(dt.nodes) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(dt.nodes)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var nodes []TreeNode
	if err := json.Unmarshal(payload, &nodes); err != nil {
		return err
	}
	dt.nodes = nodes
	return nil
}

type treeBuilder struct {
	features [][]float64
	labels   []int
	maxDepth int
	minLeaf  int
}

func (b *treeBuilder) build(rows []int, depth int) []TreeNode {
	label, purity := b.majority(rows)
	leaf := []TreeNode{{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: label,
		Purity:     purity,
		IsLeaf:     true,
	}}
	if depth >= b.maxDepth || purity == 1 || len(rows) < 2*b.minLeaf {
		return leaf
	}

	feature, threshold, ok := b.bestSplit(rows)
	if !ok {
		return leaf
	}
	var left, right []int
	for _, r := range rows {
		if b.features[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	leftNodes := b.build(left, depth+1)
	rightNodes := b.build(right, depth+1)

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, TreeNode{
		FeatureIdx: feature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		ClassLabel: label,
		Purity:     purity,
	})
	nodes = append(nodes, shift(leftNodes, 1)...)
	nodes = append(nodes, shift(rightNodes, 1+len(leftNodes))...)
	return nodes
}

// shift moves child pointers of a subtree placed at offset.
func shift(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if !nodes[i].IsLeaf {
			nodes[i].LeftChild += offset
			nodes[i].RightChild += offset
		}
	}
	return nodes
}

// majority returns the most frequent label of rows (the smallest one on
// ties) and its share.
func (b *treeBuilder) majority(rows []int) (int, float64) {
	counts := make(map[int]int)
	for _, r := range rows {
		counts[b.labels[r]]++
	}
	best, bestCount := 0, -1
	for label, count := range counts {
		if count > bestCount || (count == bestCount && label < best) {
			best, bestCount = label, count
		}
	}
	return best, float64(bestCount) / float64(len(rows))
}

// bestSplit scans every feature for the threshold with the lowest weighted
// Gini impurity. Thresholds are midpoints between consecutive distinct values.
func (b *treeBuilder) bestSplit(rows []int) (int, float64, bool) {
	n := len(rows)
	total := make(map[int]int)
	for _, r := range rows {
		total[b.labels[r]]++
	}

	bestFeature, bestThreshold := -1, 0.0
	bestImpurity := gini(total, n)
	order := make([]int, n)
	for f := range b.features[rows[0]] {
		copy(order, rows)
		sort.Slice(order, func(i, j int) bool {
			return b.features[order[i]][f] < b.features[order[j]][f]
		})

		left := make(map[int]int, len(total))
		right := make(map[int]int, len(total))
		for k, v := range total {
			right[k] = v
		}
		for i := 0; i < n-1; i++ {
			label := b.labels[order[i]]
			left[label]++
			right[label]--

			current, next := b.features[order[i]][f], b.features[order[i+1]][f]
			if current == next || i+1 < b.minLeaf || n-i-1 < b.minLeaf {
				continue
			}
			nl, nr := i+1, n-i-1
			impurity := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / float64(n)
			if impurity < bestImpurity-1e-12 {
				bestFeature, bestImpurity = f, impurity
				bestThreshold = current + (next-current)/2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func gini(counts map[int]int, n int) float64 {
	if n == 0 {
		return 0
	}
	impurity := 1.0
	for _, count := range counts {
		p := float64(count) / float64(n)
		impurity -= p * p
	}
	return impurity
}
