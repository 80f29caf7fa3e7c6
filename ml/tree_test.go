package ml

import (
	"path/filepath"
	"testing"
)

func trainingData() ([][]float64, []int) {
	features := [][]float64{
		{1, 10}, {2, 12}, {1.5, 11}, {2.5, 13},
		{8, 90}, {9, 95}, {8.5, 92}, {9.5, 99},
	}
	labels := []int{0, 0, 0, 0, 1, 1, 1, 1}
	return features, labels
}

func TestDecisionTreeTrainAndClassify(t *testing.T) {
	features, labels := trainingData()
	tree := &DecisionTree{}
	if err := tree.Train(features, labels, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pred, err := tree.Classify([]float64{9, 95})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pred.Churn {
		t.Fatalf("expected positive class, got %+v", pred)
	}
	if pred.Probability < 0.5 {
		t.Fatalf("expected probability >= 0.5 at a positive leaf, got %v", pred.Probability)
	}

	pred, err = tree.Classify([]float64{1, 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.Churn {
		t.Fatalf("expected negative class, got %+v", pred)
	}
}

func TestDecisionTreeSaveLoadRoundTrip(t *testing.T) {
	features, labels := trainingData()
	tree := &DecisionTree{}
	if err := tree.Train(features, labels, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := tree.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := &DecisionTree{}
	if err := loaded.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	want, err := tree.Classify([]float64{8, 92})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := loaded.Classify([]float64{8, 92})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want != got {
		t.Fatalf("round trip changed prediction: %+v vs %+v", want, got)
	}
}

func TestForestClassify(t *testing.T) {
	features, labels := trainingData()
	forest := &Forest{}
	if err := forest.TrainN(features, labels, 3, 10, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pred, err := forest.Classify([]float64{9, 95})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pred.Churn {
		t.Fatalf("expected positive class, got %+v", pred)
	}
	if pred.Probability < 0 || pred.Probability > 1 {
		t.Fatalf("probability out of range: %v", pred.Probability)
	}
}

func TestClassifyBeforeTrainFails(t *testing.T) {
	tree := &DecisionTree{}
	if _, err := tree.Classify([]float64{1}); err == nil {
		t.Fatal("expected error for untrained tree")
	}
	forest := &Forest{}
	if _, err := forest.Classify([]float64{1}); err == nil {
		t.Fatal("expected error for untrained forest")
	}
}
