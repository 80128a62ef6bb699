package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"churnpredict/pipeline"
)

const transformerVersion = 1

// FitOptions controls how the transformer is fit.
type FitOptions struct {
	// CreditScoreThreshold pins the CreditScoreCategory cut-off. Zero means use
	// the batch mean of CreditScore.
	CreditScoreThreshold float64
}

// ColumnTransformer is the fitted preprocessing state shared by training and
// inference. It is immutable once fit or loaded.
type ColumnTransformer struct {
	threshold float64
	scalers   []StandardScaler
	encoders  []OrdinalEncoder
}

type transformerArtifact struct {
	Version              int              `json:"version"`
	Columns              []string         `json:"columns"`
	CreditScoreThreshold float64          `json:"credit_score_threshold"`
	Scalers              []StandardScaler `json:"scalers"`
	Encoders             []OrdinalEncoder `json:"encoders"`
}

func FitTransformer(records []pipeline.CustomerRecord, opts FitOptions) (*ColumnTransformer, error) {
	if len(records) == 0 {
		return nil, errors.New("cannot fit transformer on an empty batch")
	}
	if opts.CreditScoreThreshold < 0 || math.IsNaN(opts.CreditScoreThreshold) || math.IsInf(opts.CreditScoreThreshold, 0) {
		return nil, fmt.Errorf("invalid credit score threshold %v", opts.CreditScoreThreshold)
	}

	threshold := opts.CreditScoreThreshold
	if threshold == 0 {
		for _, r := range records {
			threshold += float64(r.CreditScore)
		}
		threshold /= float64(len(records))
	}

	prepared := make([]pipeline.FeatureRecord, len(records))
	for i, r := range records {
		prepared[i] = pipeline.Prepare(r, threshold)
	}

	t := &ColumnTransformer{threshold: threshold}
	for j, column := range scaledColumns {
		values := make([]float64, len(prepared))
		for i, r := range prepared {
			values[i] = scaledValues(r)[j]
		}
		scaler, err := FitScaler(column, values)
		if err != nil {
			return nil, err
		}
		t.scalers = append(t.scalers, scaler)
	}
	for j, column := range encodedColumns {
		values := make([]string, len(prepared))
		for i, r := range prepared {
			values[i] = encodedValues(r)[j]
		}
		encoder, err := FitEncoder(column, values)
		if err != nil {
			return nil, err
		}
		t.encoders = append(t.encoders, encoder)
	}
	return t, nil
}

// Threshold is the CreditScoreCategory cut-off recorded at fit time.
func (t *ColumnTransformer) Threshold() float64 {
	return t.threshold
}

func (t *ColumnTransformer) Scalers() []StandardScaler {
	return append([]StandardScaler(nil), t.scalers...)
}

func (t *ColumnTransformer) Encoders() []OrdinalEncoder {
	out := make([]OrdinalEncoder, len(t.encoders))
	for i, e := range t.encoders {
		enc, _ := NewOrdinalEncoder(e.Column, e.Categories)
		out[i] = enc
	}
	return out
}

// Prepare derives the feature record using the fitted threshold.
func (t *ColumnTransformer) Prepare(r pipeline.CustomerRecord) pipeline.FeatureRecord {
	return pipeline.Prepare(r, t.threshold)
}

func (t *ColumnTransformer) Transform(r pipeline.FeatureRecord) ([]float64, error) {
	vector := make([]float64, 0, FeatureWidth)
	for i, v := range scaledValues(r) {
		scaled, err := t.scalers[i].Transform(v)
		if err != nil {
			return nil, err
		}
		vector = append(vector, scaled)
	}
	for i, v := range encodedValues(r) {
		code, err := t.encoders[i].Transform(v)
		if err != nil {
			return nil, err
		}
		vector = append(vector, code)
	}
	vector = append(vector, passthroughValues(r)...)
	return vector, nil
}

// TransformRecord prepares and transforms a validated customer record.
func (t *ColumnTransformer) TransformRecord(r pipeline.CustomerRecord) ([]float64, error) {
	return t.Transform(t.Prepare(r))
}

func (t *ColumnTransformer) TransformBatch(records []pipeline.FeatureRecord) ([][]float64, error) {
	vectors := make([][]float64, len(records))
	for i, r := range records {
		vector, err := t.Transform(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		vectors[i] = vector
	}
	return vectors, nil
}

func (t *ColumnTransformer) Save(path string) error {
	payload, err := json.MarshalIndent(transformerArtifact{
		Version:              transformerVersion,
		Columns:              FeatureNames(),
		CreditScoreThreshold: t.threshold,
		Scalers:              t.scalers,
		Encoders:             t.encoders,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func LoadTransformer(path string) (*ColumnTransformer, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: "transformer", Path: path, Err: err}
	}
	t, err := decodeTransformer(payload)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: "transformer", Path: path, Err: err}
	}
	return t, nil
}

func decodeTransformer(payload []byte) (*ColumnTransformer, error) {
	var artifact transformerArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, err
	}
	if artifact.Version != transformerVersion {
		return nil, fmt.Errorf("unsupported transformer version %d", artifact.Version)
	}
	if !equalStrings(artifact.Columns, FeatureNames()) {
		return nil, fmt.Errorf("column layout %v does not match %v", artifact.Columns, FeatureNames())
	}
	if artifact.CreditScoreThreshold <= 0 || math.IsInf(artifact.CreditScoreThreshold, 0) || math.IsNaN(artifact.CreditScoreThreshold) {
		return nil, fmt.Errorf("invalid credit score threshold %v", artifact.CreditScoreThreshold)
	}
	if len(artifact.Scalers) != len(scaledColumns) {
		return nil, fmt.Errorf("expected %d scalers, got %d", len(scaledColumns), len(artifact.Scalers))
	}
	if len(artifact.Encoders) != len(encodedColumns) {
		return nil, fmt.Errorf("expected %d encoders, got %d", len(encodedColumns), len(artifact.Encoders))
	}

	t := &ColumnTransformer{threshold: artifact.CreditScoreThreshold}
	for i, s := range artifact.Scalers {
		if s.Column != scaledColumns[i] {
			return nil, fmt.Errorf("scaler %d is for %s, expected %s", i, s.Column, scaledColumns[i])
		}
		if err := s.validate(); err != nil {
			return nil, err
		}
		t.scalers = append(t.scalers, s)
	}
	for i, e := range artifact.Encoders {
		if e.Column != encodedColumns[i] {
			return nil, fmt.Errorf("encoder %d is for %s, expected %s", i, e.Column, encodedColumns[i])
		}
		enc, err := NewOrdinalEncoder(e.Column, e.Categories)
		if err != nil {
			return nil, err
		}
		t.encoders = append(t.encoders, enc)
	}
	return t, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
