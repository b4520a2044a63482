package ml

import (
	"errors"
	"fmt"
	"slices"
)

// DecisionTree is a CART classifier split on Gini impurity. Nodes are stored
// flat; children are referenced by index.
type DecisionTree struct {
	// MaxDepth limits tree depth; zero grows until leaves are pure.
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int

	nodes       []TreeNode
	nFeatures   int
	nClasses    int
	importances []float64
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	Counts     []int   `json:"counts"`
	Samples    int     `json:"samples"`
	Impurity   float64 `json:"impurity"`
	IsLeaf     bool    `json:"is_leaf"`
}

func NewDecisionTree(maxDepth int) *DecisionTree {
	return &DecisionTree{MaxDepth: maxDepth, MinSamplesSplit: 2, MinSamplesLeaf: 1}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	width := len(features[0])
	if width == 0 {
		return errors.New("feature vectors are empty")
	}
	classes := 0
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(row), width)
		}
		if labels[i] < 0 {
			return fmt.Errorf("row %d has negative label %d", i, labels[i])
		}
		if labels[i]+1 > classes {
			classes = labels[i] + 1
		}
	}

	dt.nodes = nil
	dt.nFeatures = width
	dt.nClasses = classes
	dt.importances = make([]float64, width)

	idx := make([]int, len(features))
	for i := range idx {
		idx[i] = i
	}
	dt.grow(features, labels, idx, 0)
	return nil
}

func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return 0, 0, err
	}
	return leaf.ClassLabel, float64(leaf.Counts[leaf.ClassLabel]) / float64(leaf.Samples), nil
}

// PredictProba returns the class distribution of the leaf features fall in.
func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	proba := make([]float64, len(leaf.Counts))
	for i, count := range leaf.Counts {
		proba[i] = float64(count) / float64(leaf.Samples)
	}
	return proba, nil
}

func (dt *DecisionTree) leaf(features []float64) (*TreeNode, error) {
	if len(dt.nodes) == 0 {
		return nil, ErrNotTrained
	}
	if len(features) != dt.nFeatures {
		return nil, fmt.Errorf("expected %d features, got %d", dt.nFeatures, len(features))
	}
	idx := 0
	for {
		node := &dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
}

// Depth is the longest root-to-leaf edge count.
func (dt *DecisionTree) Depth() int {
	if len(dt.nodes) == 0 {
		return 0
	}
	return dt.depthOf(0)
}

func (dt *DecisionTree) depthOf(idx int) int {
	node := dt.nodes[idx]
	if node.IsLeaf {
		return 0
	}
	return 1 + max(dt.depthOf(node.LeftChild), dt.depthOf(node.RightChild))
}

func (dt *DecisionTree) LeafCount() int {
	leaves := 0
	for _, node := range dt.nodes {
		if node.IsLeaf {
			leaves++
		}
	}
	return leaves
}

// FeatureImportances returns the normalized total Gini decrease per feature.
func (dt *DecisionTree) FeatureImportances() []float64 {
	out := make([]float64, len(dt.importances))
	total := 0.0
	for _, v := range dt.importances {
		total += v
	}
	if total == 0 {
		return out
	}
	for i, v := range dt.importances {
		out[i] = v / total
	}
	return out
}

func (dt *DecisionTree) Nodes() []TreeNode {
	return slices.Clone(dt.nodes)
}

func (dt *DecisionTree) minSamplesSplit() int {
	if dt.MinSamplesSplit < 2 {
		return 2
	}
	return dt.MinSamplesSplit
}

func (dt *DecisionTree) minSamplesLeaf() int {
	if dt.MinSamplesLeaf < 1 {
		return 1
	}
	return dt.MinSamplesLeaf
}

func (dt *DecisionTree) grow(features [][]float64, labels []int, idx []int, depth int) int {
	counts := classCounts(labels, idx, dt.nClasses)
	impurity := gini(counts, len(idx))
	pos := len(dt.nodes)
	dt.nodes = append(dt.nodes, TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: majorityLabel(counts),
		Counts:     counts,
		Samples:    len(idx),
		Impurity:   impurity,
		IsLeaf:     true,
	})

	if impurity == 0 || len(idx) < dt.minSamplesSplit() || len(idx) < 2*dt.minSamplesLeaf() {
		return pos
	}
	if dt.MaxDepth > 0 && depth >= dt.MaxDepth {
		return pos
	}

	best, ok := dt.findBestSplit(features, labels, idx)
	if !ok {
		return pos
	}

	left, right := splitIndices(features, idx, best.feature, best.threshold)
	n := float64(len(idx))
	dt.importances[best.feature] += n*impurity - float64(len(left))*best.leftImpurity - float64(len(right))*best.rightImpurity

	leftPos := dt.grow(features, labels, left, depth+1)
	rightPos := dt.grow(features, labels, right, depth+1)

	node := &dt.nodes[pos]
	node.FeatureIdx = best.feature
	node.Threshold = best.threshold
	node.LeftChild = leftPos
	node.RightChild = rightPos
	node.IsLeaf = false
	return pos
}

type split struct {
	feature       int
	threshold     float64
	impurity      float64
	leftImpurity  float64
	rightImpurity float64
}

// findBestSplit scans every feature and every midpoint between consecutive
// distinct values. Ties keep the earliest feature and lowest threshold.
func (dt *DecisionTree) findBestSplit(features [][]float64, labels []int, idx []int) (split, bool) {
	n := len(idx)
	minLeaf := dt.minSamplesLeaf()
	best := split{feature: -1}
	found := false

	sorted := make([]int, n)
	leftCounts := make([]int, dt.nClasses)
	total := classCounts(labels, idx, dt.nClasses)
	rightCounts := make([]int, dt.nClasses)

	for featureIdx := 0; featureIdx < dt.nFeatures; featureIdx++ {
		copy(sorted, idx)
		slices.SortStableFunc(sorted, func(a, b int) int {
			va, vb := features[a][featureIdx], features[b][featureIdx]
			switch {
			case va < vb:
				return -1
			case va > vb:
				return 1
			}
			return 0
		})

		clear(leftCounts)
		copy(rightCounts, total)
		for k := 1; k < n; k++ {
			moved := labels[sorted[k-1]]
			leftCounts[moved]++
			rightCounts[moved]--

			lo := features[sorted[k-1]][featureIdx]
			hi := features[sorted[k]][featureIdx]
			if lo >= hi || k < minLeaf || n-k < minLeaf {
				continue
			}

			leftImp := gini(leftCounts, k)
			rightImp := gini(rightCounts, n-k)
			weighted := (float64(k)*leftImp + float64(n-k)*rightImp) / float64(n)
			if found && weighted >= best.impurity-1e-12 {
				continue
			}

			threshold := lo + (hi-lo)/2
			if threshold >= hi {
				threshold = lo
			}
			best = split{
				feature:       featureIdx,
				threshold:     threshold,
				impurity:      weighted,
				leftImpurity:  leftImp,
				rightImpurity: rightImp,
			}
			found = true
		}
	}
	return best, found
}

func splitIndices(features [][]float64, idx []int, featureIdx int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if features[i][featureIdx] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func classCounts(labels []int, idx []int, nClasses int) []int {
	counts := make([]int, nClasses)
	for _, i := range idx {
		counts[labels[i]]++
	}
	return counts
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(total)
		impurity -= prob * prob
	}
	return impurity
}

// majorityLabel picks the most frequent class; ties go to the lowest code.
func majorityLabel(counts []int) int {
	best := 0
	for label, count := range counts {
		if count > counts[best] {
			best = label
		}
	}
	return best
}
