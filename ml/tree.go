package ml

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"os"
)

// DecisionTree is a binary classification tree stored as a flat node
// slice. Leaves keep the positive-class fraction of their training
// samples, which is what Classify reports as the churn probability.
type DecisionTree struct {
	nodes []TreeNode
}

type TreeNode struct {
	FeatureIdx  int     `json:"feature_idx"`
	Threshold   float64 `json:"threshold"`
	LeftChild   int     `json:"left_child"`
	RightChild  int     `json:"right_child"`
	ClassLabel  int     `json:"class_label"`
	PosFraction float64 `json:"pos_fraction"`
	IsLeaf      bool    `json:"is_leaf"`
}

func (dt *DecisionTree) Train(features [][]float64, labels []int, maxDepth int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if maxDepth <= 0 {
		maxDepth = 5
	}

	dt.nodes = dt.buildNode(features, labels, 0, maxDepth)
	return nil
}

// Classify walks the tree and returns the leaf's label and churn
// probability.
func (dt *DecisionTree) Classify(features []float64) (Prediction, error) {
	if len(dt.nodes) == 0 {
		return Prediction{}, errors.New("model not trained")
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return Prediction{
				Churn:       node.ClassLabel == 1,
				Probability: node.PosFraction,
			}, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return Prediction{}, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return Prediction{}, errors.New("invalid tree state")
		}
	}
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
	if len(nodes) == 0 {
		return errors.New("model artifact is empty")
	}
	dt.nodes = nodes
	return nil
}

func leaf(labels []int) []TreeNode {
	return []TreeNode{{
		FeatureIdx:  -1,
		LeftChild:   -1,
		RightChild:  -1,
		ClassLabel:  majorityLabel(labels),
		PosFraction: positiveFraction(labels),
		IsLeaf:      true,
	}}
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []int, depth, maxDepth int) []TreeNode {
	if depth >= maxDepth || isPure(labels) {
		return leaf(labels)
	}

	bestFeature, threshold, ok := findBestSplit(features, labels)
	if !ok {
		return leaf(labels)
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return leaf(labels)
	}

	leftNodes := dt.buildNode(leftFeatures, leftLabels, depth+1, maxDepth)
	rightNodes := dt.buildNode(rightFeatures, rightLabels, depth+1, maxDepth)

	root := TreeNode{
		FeatureIdx:  bestFeature,
		Threshold:   threshold,
		LeftChild:   1,
		RightChild:  1 + len(leftNodes),
		ClassLabel:  majorityLabel(labels),
		PosFraction: positiveFraction(labels),
	}

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, leftNodes...)
	nodes = append(nodes, rightNodes...)
	return nodes
}

// Forest is a bagged ensemble of decision trees. The reported
// probability is the mean of the member trees' leaf fractions.
type Forest struct {
	trees []DecisionTree
}

func (f *Forest) Train(features [][]float64, labels []int, maxDepth int) error {
	return f.TrainN(features, labels, maxDepth, 25, 1)
}

// TrainN fits numTrees trees on bootstrap samples drawn with the given
// seed, so training is reproducible.
func (f *Forest) TrainN(features [][]float64, labels []int, maxDepth, numTrees int, seed int64) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if numTrees <= 0 {
		numTrees = 25
	}

	rng := rand.New(rand.NewSource(seed))
	f.trees = make([]DecisionTree, numTrees)
	n := len(features)
	for t := 0; t < numTrees; t++ {
		sampleFeatures := make([][]float64, n)
		sampleLabels := make([]int, n)
		for i := 0; i < n; i++ {
			j := rng.Intn(n)
			sampleFeatures[i] = features[j]
			sampleLabels[i] = labels[j]
		}
		if err := f.trees[t].Train(sampleFeatures, sampleLabels, maxDepth); err != nil {
			return err
		}
	}
	return nil
}

func (f *Forest) Classify(features []float64) (Prediction, error) {
	if len(f.trees) == 0 {
		return Prediction{}, errors.New("model not trained")
	}
	sum := 0.0
	for i := range f.trees {
		pred, err := f.trees[i].Classify(features)
		if err != nil {
			return Prediction{}, err
		}
		sum += pred.Probability
	}
	prob := sum / float64(len(f.trees))
	return Prediction{Churn: prob >= 0.5, Probability: prob}, nil
}

func (f *Forest) Save(path string) error {
	if len(f.trees) == 0 {
		return errors.New("model not trained")
	}
	all := make([][]TreeNode, len(f.trees))
	for i := range f.trees {
		all[i] = f.trees[i].nodes
	}
	payload, err := json.Marshal(all)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (f *Forest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var all [][]TreeNode
	if err := json.Unmarshal(payload, &all); err != nil {
		return err
	}
	if len(all) == 0 {
		return errors.New("model artifact is empty")
	}
	f.trees = make([]DecisionTree, len(all))
	for i, nodes := range all {
		if len(nodes) == 0 {
			return errors.New("model artifact contains an empty tree")
		}
		f.trees[i] = DecisionTree{nodes: nodes}
	}
	return nil
}

func findBestSplit(features [][]float64, labels []int) (int, float64, bool) {
	featureCount := len(features[0])
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		threshold := median(values)
		leftLabels, rightLabels := splitLabels(features, labels, featureIdx, threshold)
		if len(leftLabels) == 0 || len(rightLabels) == 0 {
			continue
		}
		impurity := weightedGini(leftLabels, rightLabels)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
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

func splitLabels(features [][]float64, labels []int, featureIdx int, threshold float64) ([]int, []int) {
	leftLabels := make([]int, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftLabels, rightLabels
}

func weightedGini(leftLabels, rightLabels []int) float64 {
	leftWeight := float64(len(leftLabels))
	rightWeight := float64(len(rightLabels))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(leftLabels) + (rightWeight/total)*gini(rightLabels)
}

func gini(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(len(labels))
		impurity -= prob * prob
	}
	return impurity
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sortFloats(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func sortFloats(values []float64) {
	for i := 1; i < len(values); i++ {
		j := i
		for j > 0 && values[j-1] > values[j] {
			values[j-1], values[j] = values[j], values[j-1]
			j--
		}
	}
}

func majorityLabel(labels []int) int {
	counts := make(map[int]int)
	bestLabel := 0
	bestCount := -1
	for _, label := range labels {
		counts[label]++
		if counts[label] > bestCount {
			bestCount = counts[label]
			bestLabel = label
		}
	}
	return bestLabel
}

func positiveFraction(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	positive := 0
	for _, label := range labels {
		if label == 1 {
			positive++
		}
	}
	return float64(positive) / float64(len(labels))
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
