package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"churnpredict/pipeline"
)

// TrainingConfig drives a full fit of transformer and classifier.
type TrainingConfig struct {
	ModelType            string
	MaxTreeDepth         int
	TestRatio            float64
	Seed                 int64
	CreditScoreThreshold float64
}

type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Samples   int     `json:"samples"`
	// Errors counts rows the classifier failed on; they are excluded from the ratios.
	Errors int `json:"errors"`
}

type TrainingResult struct {
	Transformer *ColumnTransformer
	Model       MLModel
	Metrics     Metrics
	TrainSize   int
	TestSize    int
}

func labelsOf(rows []pipeline.TrainingRow) []int {
	labels := make([]int, len(rows))
	for i, row := range rows {
		labels[i] = row.Exited
	}
	return labels
}

func recordsOf(rows []pipeline.TrainingRow) []pipeline.CustomerRecord {
	records := make([]pipeline.CustomerRecord, len(rows))
	for i, row := range rows {
		records[i] = row.Record
	}
	return records
}

// BuildTrainingSet transforms labelled rows with an already fit transformer.
func BuildTrainingSet(t *ColumnTransformer, rows []pipeline.TrainingRow) ([][]float64, []int, error) {
	if len(rows) == 0 {
		return nil, nil, errors.New("no training rows")
	}
	prepared := make([]pipeline.FeatureRecord, len(rows))
	for i, row := range rows {
		prepared[i] = t.Prepare(row.Record)
	}
	vectors, err := t.TransformBatch(prepared)
	if err != nil {
		return nil, nil, err
	}
	return vectors, labelsOf(rows), nil
}

// Train splits rows, fits the transformer on the training split only, trains
// the classifier and evaluates it on the held-out split.
func Train(rows []pipeline.TrainingRow, cfg TrainingConfig) (*TrainingResult, error) {
	if len(rows) < 2 {
		return nil, errors.New("need at least two training rows")
	}
	trainRows, testRows := SplitRows(rows, cfg.TestRatio, cfg.Seed)

	transformer, err := FitTransformer(recordsOf(trainRows), FitOptions{CreditScoreThreshold: cfg.CreditScoreThreshold})
	if err != nil {
		return nil, fmt.Errorf("fit transformer: %w", err)
	}
	trainX, trainY, err := BuildTrainingSet(transformer, trainRows)
	if err != nil {
		return nil, fmt.Errorf("transform training split: %w", err)
	}

	model, err := NewModel(cfg.ModelType, cfg.MaxTreeDepth)
	if err != nil {
		return nil, err
	}
	if err := model.Train(trainX, trainY); err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}

	result := &TrainingResult{
		Transformer: transformer,
		Model:       model,
		TrainSize:   len(trainRows),
		TestSize:    len(testRows),
	}
	if len(testRows) > 0 {
		testX, testY, err := BuildTrainingSet(transformer, testRows)
		if err != nil {
			return nil, fmt.Errorf("transform test split: %w", err)
		}
		result.Metrics = Evaluate(model, testX, testY)
	}
	return result, nil
}

// SplitRows shuffles with seed and holds out testRatio of the rows.
func SplitRows(rows []pipeline.TrainingRow, testRatio float64, seed int64) (train, test []pipeline.TrainingRow) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(rows))

	split := int(math.Round(float64(len(rows)) * (1 - testRatio)))
	if split < 1 {
		split = 1
	}
	for i, idx := range indices {
		if i < split {
			train = append(train, rows[idx])
		} else {
			test = append(test, rows[idx])
		}
	}
	return train, test
}

// Evaluate scores a classifier with label 1 (churn) as the positive class.
func Evaluate(model Classifier, testX [][]float64, testY []int) Metrics {
	m := Metrics{Samples: len(testX)}
	if len(testX) == 0 {
		return m
	}

	var correct, truePositive, predictedPositive, actualPositive int
	for i, feature := range testX {
		label, _, err := model.Predict(feature)
		if err != nil {
			m.Errors++
			continue
		}
		if label == testY[i] {
			correct++
		}
		if label == 1 {
			predictedPositive++
		}
		if testY[i] == 1 {
			actualPositive++
			if label == 1 {
				truePositive++
			}
		}
	}

	scored := len(testX) - m.Errors
	if scored == 0 {
		return m
	}
	m.Accuracy = float64(correct) / float64(scored)
	if predictedPositive > 0 {
		m.Precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		m.Recall = float64(truePositive) / float64(actualPositive)
	}
	return m
}
