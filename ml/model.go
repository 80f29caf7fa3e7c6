package ml

// Prediction is the classifier output for a single feature vector.
type Prediction struct {
	Churn       bool    `json:"churn"`
	Probability float64 `json:"probability"`
}

// Classifier is the narrow port the core depends on. The underlying
// artifact format (single tree, bagged forest) is swappable behind it.
type Classifier interface {
	Classify(features []float64) (Prediction, error)
}

// Trainable is implemented by models that can be fit offline.
type Trainable interface {
	Train(features [][]float64, labels []int, maxDepth int) error
	Save(path string) error
}
