package ml

import (
	"fmt"
)

// LoadModel deserializes a classifier artifact. Both artifact kinds are
// JSON node dumps; the caller picks the kind via config.
func LoadModel(modelType, path string) (Classifier, error) {
	switch modelType {
	case "decision_tree":
		model := &DecisionTree{}
		if err := model.Load(path); err != nil {
			return nil, fmt.Errorf("load decision tree %s: %w", path, err)
		}
		return model, nil
	case "forest", "":
		model := &Forest{}
		if err := model.Load(path); err != nil {
			return nil, fmt.Errorf("load forest %s: %w", path, err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}
