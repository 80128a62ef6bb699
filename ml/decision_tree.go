package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const defaultMaxDepth = 6

// DecisionTree is a CART classifier stored as a flat node slice. It is
// read-only after Train or Load.
type DecisionTree struct {
	maxDepth       int
	minSamplesLeaf int
	featureCount   int
	nodes          []TreeNode
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	Confidence float64 `json:"confidence"`
	IsLeaf     bool    `json:"is_leaf"`
}

type treeArtifact struct {
	ModelType      string     `json:"model_type"`
	MaxDepth       int        `json:"max_depth"`
	MinSamplesLeaf int        `json:"min_samples_leaf"`
	FeatureCount   int        `json:"feature_count"`
	Nodes          []TreeNode `json:"nodes"`
}

func NewDecisionTree(maxDepth int) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	return &DecisionTree{maxDepth: maxDepth, minSamplesLeaf: 5}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	width := len(features[0])
	for i, f := range features {
		if len(f) != width {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(f), width)
		}
	}
	if dt.maxDepth <= 0 {
		dt.maxDepth = defaultMaxDepth
	}
	if dt.minSamplesLeaf <= 0 {
		dt.minSamplesLeaf = 1
	}

	dt.featureCount = width
	dt.nodes = dt.buildNode(features, labels, 0)
	return nil
}

func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	if len(dt.nodes) == 0 {
		return 0, 0, errors.New("model not trained")
	}
	if dt.featureCount > 0 && len(features) != dt.featureCount {
		return 0, 0, fmt.Errorf("expected %d features, got %d", dt.featureCount, len(features))
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, node.Confidence, nil
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

// Width is the feature count the tree was trained on.
func (dt *DecisionTree) Width() int {
	return dt.featureCount
}

func (dt *DecisionTree) Depth() int {
	if len(dt.nodes) == 0 {
		return 0
	}
	return dt.depthAt(0)
}

func (dt *DecisionTree) depthAt(idx int) int {
	node := dt.nodes[idx]
	if node.IsLeaf {
		return 0
	}
	left, right := dt.depthAt(node.LeftChild), dt.depthAt(node.RightChild)
	if left > right {
		return left + 1
	}
	return right + 1
}

func (dt *DecisionTree) Save(path string) error {
	if len(dt.nodes) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(treeArtifact{
		ModelType:      ModelTypeDecisionTree,
		MaxDepth:       dt.maxDepth,
		MinSamplesLeaf: dt.minSamplesLeaf,
		FeatureCount:   dt.featureCount,
		Nodes:          dt.nodes,
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact treeArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return err
	}
	if artifact.ModelType != "" && artifact.ModelType != ModelTypeDecisionTree {
		return fmt.Errorf("artifact is a %s, not a %s", artifact.ModelType, ModelTypeDecisionTree)
	}
	if len(artifact.Nodes) == 0 {
		return errors.New("model has no nodes")
	}
	for i, node := range artifact.Nodes {
		if node.IsLeaf {
			continue
		}
		if node.LeftChild <= i || node.LeftChild >= len(artifact.Nodes) ||
			node.RightChild <= i || node.RightChild >= len(artifact.Nodes) {
			return fmt.Errorf("node %d has invalid children", i)
		}
	}
	dt.maxDepth = artifact.MaxDepth
	dt.minSamplesLeaf = artifact.MinSamplesLeaf
	dt.featureCount = artifact.FeatureCount
	dt.nodes = artifact.Nodes
	return nil
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []int, depth int) []TreeNode {
	label, confidence := majorityLabel(labels)
	leaf := []TreeNode{{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: label,
		Confidence: confidence,
		IsLeaf:     true,
	}}
	if depth >= dt.maxDepth || isPure(labels) || len(labels) < 2*dt.minSamplesLeaf {
		return leaf
	}

	bestFeature, threshold, ok := findBestSplit(features, labels, dt.minSamplesLeaf)
	if !ok {
		return leaf
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return leaf
	}

	leftNodes := dt.buildNode(leftFeatures, leftLabels, depth+1)
	rightNodes := dt.buildNode(rightFeatures, rightLabels, depth+1)

	root := TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		ClassLabel: label,
		Confidence: confidence,
	}

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, offsetChildren(leftNodes, 1)...)
	nodes = append(nodes, offsetChildren(rightNodes, 1+len(leftNodes))...)
	return nodes
}

// offsetChildren rebases child indexes of a subtree placed at offset.
func offsetChildren(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if nodes[i].IsLeaf {
			continue
		}
		nodes[i].LeftChild += offset
		nodes[i].RightChild += offset
	}
	return nodes
}

type labeledValue struct {
	value float64
	label int
}

// findBestSplit sweeps each feature in sorted order and picks the midpoint
// threshold with the lowest weighted Gini impurity.
func findBestSplit(features [][]float64, labels []int, minLeaf int) (int, float64, bool) {
	featureCount := len(features[0])
	total := countLabels(labels)
	n := len(labels)

	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := giniCounts(total, n)

	pairs := make([]labeledValue, n)
	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		for i := range features {
			pairs[i] = labeledValue{value: features[i][featureIdx], label: labels[i]}
		}
		sort.Slice(pairs, func(a, b int) bool { return pairs[a].value < pairs[b].value })

		left := make(map[int]int, len(total))
		right := make(map[int]int, len(total))
		for k, v := range total {
			right[k] = v
		}
		for i := 0; i < n-1; i++ {
			left[pairs[i].label]++
			right[pairs[i].label]--
			if pairs[i].value == pairs[i+1].value {
				continue
			}
			nLeft, nRight := i+1, n-i-1
			if nLeft < minLeaf || nRight < minLeaf {
				continue
			}
			impurity := (float64(nLeft)*giniCounts(left, nLeft) + float64(nRight)*giniCounts(right, nRight)) / float64(n)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = featureIdx
				bestThreshold = (pairs[i].value + pairs[i+1].value) / 2
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func splitData(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	leftFeatures := make([][]float64, 0)
	leftLabels := make([]int, 0)
	rightFeatures := make([][]float64, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func countLabels(labels []int) map[int]int {
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	return counts
}

func giniCounts(counts map[int]int, n int) float64 {
	if n == 0 {
		return 0
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(n)
		impurity -= prob * prob
	}
	return impurity
}

// majorityLabel returns the most frequent label (lowest label on ties) and its share.
func majorityLabel(labels []int) (int, float64) {
	if len(labels) == 0 {
		return 0, 0
	}
	counts := countLabels(labels)
	bestLabel, bestCount := 0, -1
	for label, count := range counts {
		if count > bestCount || (count == bestCount && label < bestLabel) {
			bestLabel, bestCount = label, count
		}
	}
	return bestLabel, float64(bestCount) / float64(len(labels))
}

func isPure(labels []int) bool {
	if len(labels) == 0 {
		return true
	}
	first := labels[0]
	for _, label := range labels[1:] {
		if label != first {
			return false
		}
	}
	return true
}
