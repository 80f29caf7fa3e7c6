// Offline training CLI: fits the churn classifier and its encoder
// table from a labelled CSV export and writes both artifacts. The
// service itself never trains; it only loads what this tool produces.
package main

import (
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"churnsight/ml"
)

var categoricalColumns = []string{
	"gender",
	"Partner",
	"Dependents",
	"PhoneService",
	"MultipleLines",
	"InternetService",
	"OnlineSecurity",
	"OnlineBackup",
	"DeviceProtection",
	"TechSupport",
	"StreamingTV",
	"StreamingMovies",
	"Contract",
	"PaperlessBilling",
	"PaymentMethod",
}

func main() {
	input := flag.String("input", "training_data.csv", "labelled CSV with the 19 feature columns plus Churn")
	modelOut := flag.String("model", "artifacts/churn_model.json", "model artifact output path")
	encodersOut := flag.String("encoders", "artifacts/encoders.json", "encoder artifact output path")
	modelType := flag.String("type", "forest", "decision_tree or forest")
	maxDepth := flag.Int("depth", 6, "max tree depth")
	numTrees := flag.Int("trees", 25, "forest size")
	seed := flag.Int64("seed", 1, "bootstrap sampling seed")
	flag.Parse()

	file, err := os.Open(*input)
	if err != nil {
		log.Fatalf("open training data: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		log.Fatalf("read training data: %v", err)
	}
	if len(records) < 2 {
		log.Fatalf("training data needs a header and at least one row")
	}

	header := records[0]
	columns := make(map[string]int, len(header))
	for i, col := range header {
		columns[strings.TrimSpace(col)] = i
	}
	for _, required := range append(append([]string{}, ml.FeatureNames()...), "Churn") {
		if _, ok := columns[required]; !ok {
			log.Fatalf("training data is missing column %q", required)
		}
	}

	encoders := fitEncoders(records[1:], columns)
	features, labels, skipped := buildTrainingSet(records[1:], columns, encoders)
	log.Printf("training on %d rows (%d skipped)", len(features), skipped)

	var model interface {
		ml.Classifier
		Save(string) error
	}
	switch *modelType {
	case "decision_tree":
		tree := &ml.DecisionTree{}
		if err := tree.Train(features, labels, *maxDepth); err != nil {
			log.Fatalf("train: %v", err)
		}
		model = tree
	case "forest":
		forest := &ml.Forest{}
		if err := forest.TrainN(features, labels, *maxDepth, *numTrees, *seed); err != nil {
			log.Fatalf("train: %v", err)
		}
		model = forest
	default:
		log.Fatalf("unsupported model type %q", *modelType)
	}

	accuracy := evaluate(model, features, labels)
	log.Printf("training accuracy: %.3f", accuracy)

	if err := ensureDir(*modelOut); err != nil {
		log.Fatalf("prepare output dir: %v", err)
	}
	if err := ensureDir(*encodersOut); err != nil {
		log.Fatalf("prepare output dir: %v", err)
	}
	if err := model.Save(*modelOut); err != nil {
		log.Fatalf("save model: %v", err)
	}
	if err := ml.SaveEncoders(*encodersOut, encoders); err != nil {
		log.Fatalf("save encoders: %v", err)
	}
	log.Printf("wrote %s and %s", *modelOut, *encodersOut)
}

// fitEncoders assigns codes per categorical column in sorted category
// order, matching how the label encoders the service expects were fit.
func fitEncoders(rows [][]string, columns map[string]int) map[string]map[string]int {
	encoders := make(map[string]map[string]int, len(categoricalColumns))
	for _, column := range categoricalColumns {
		idx := columns[column]
		seen := make(map[string]struct{})
		for _, row := range rows {
			if idx < len(row) {
				value := strings.TrimSpace(row[idx])
				if value != "" {
					seen[value] = struct{}{}
				}
			}
		}
		values := make([]string, 0, len(seen))
		for value := range seen {
			values = append(values, value)
		}
		sort.Strings(values)

		codes := make(map[string]int, len(values))
		for code, value := range values {
			codes[value] = code
		}
		encoders[column] = codes
	}
	return encoders
}

func buildTrainingSet(rows [][]string, columns map[string]int, encoders map[string]map[string]int) ([][]float64, []int, int) {
	table := ml.NewEncoderTable(encoders)
	names := ml.FeatureNames()
	numeric := map[string]bool{"tenure": true, "MonthlyCharges": true, "TotalCharges": true, "SeniorCitizen": true}

	features := make([][]float64, 0, len(rows))
	labels := make([]int, 0, len(rows))
	skipped := 0

rowLoop:
	for _, row := range rows {
		vector := make([]float64, 0, len(names))
		for _, name := range names {
			idx := columns[name]
			if idx >= len(row) {
				skipped++
				continue rowLoop
			}
			value := strings.TrimSpace(row[idx])
			if numeric[name] {
				parsed, err := strconv.ParseFloat(value, 64)
				if err != nil {
					// blank TotalCharges rows exist in real exports
					skipped++
					continue rowLoop
				}
				vector = append(vector, parsed)
			} else {
				vector = append(vector, float64(table.Encode(name, value)))
			}
		}

		label := 0
		if strings.EqualFold(strings.TrimSpace(row[columns["Churn"]]), "Yes") {
			label = 1
		}
		features = append(features, vector)
		labels = append(labels, label)
	}
	return features, labels, skipped
}

func evaluate(model ml.Classifier, features [][]float64, labels []int) float64 {
	if len(features) == 0 {
		return 0
	}
	correct := 0
	for i, vector := range features {
		pred, err := model.Classify(vector)
		if err != nil {
			continue
		}
		if pred.Churn == (labels[i] == 1) {
			correct++
		}
	}
	return float64(correct) / float64(len(features))
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
