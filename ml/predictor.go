package ml

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"churnpredict/pipeline"
)

// Label is the churn verdict.
type Label int

const (
	Stay  Label = 0
	Leave Label = 1
)

func (l Label) String() string {
	if l == Leave {
		return "Leave"
	}
	return "Stay"
}

// Verdict is the user-facing sentence for a label.
func (l Label) Verdict() string {
	if l == Leave {
		return "Prediction: The customer is likely to Leave."
	}
	return "Prediction: The customer is likely to STAY."
}

func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func ToLabel(class int) (Label, error) {
	switch class {
	case 0:
		return Stay, nil
	case 1:
		return Leave, nil
	}
	return Stay, fmt.Errorf("%w: %d", ErrInvalidLabel, class)
}

type Prediction struct {
	Label      Label                   `json:"label"`
	Verdict    string                  `json:"verdict"`
	Confidence float64                 `json:"confidence"`
	Record     pipeline.CustomerRecord `json:"record"`
	Features   []float64               `json:"features"`
	Cached     bool                    `json:"cached"`
}

// Observer receives prediction outcomes, e.g. for metrics.
type Observer interface {
	ObservePrediction(label Label, elapsed time.Duration)
	ObserveError(kind string)
}

type Option func(*Predictor)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Predictor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithValidator(v *pipeline.Validator) Option {
	return func(p *Predictor) {
		if v != nil {
			p.validator = v
		}
	}
}

func WithObserver(o Observer) Option {
	return func(p *Predictor) {
		p.observer = o
	}
}

// WithCache keeps the last size predictions keyed by validated record.
func WithCache(size int) Option {
	return func(p *Predictor) {
		p.cacheSize = size
	}
}

// Predictor runs validation, transformation and classification. All of its
// state is fixed at construction so it is safe for concurrent use.
type Predictor struct {
	validator   *pipeline.Validator
	transformer *ColumnTransformer
	model       Classifier
	logger      *zap.Logger
	observer    Observer
	cacheSize   int
	cache       *lru.Cache[pipeline.CustomerRecord, Prediction]
}

func NewPredictor(transformer *ColumnTransformer, model Classifier, opts ...Option) (*Predictor, error) {
	if transformer == nil {
		return nil, errors.New("transformer is required")
	}
	if model == nil {
		return nil, errors.New("classifier is required")
	}
	p := &Predictor{
		validator:   pipeline.NewValidator(),
		transformer: transformer,
		model:       model,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cacheSize > 0 {
		cache, err := lru.New[pipeline.CustomerRecord, Prediction](p.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

func (p *Predictor) Transformer() *ColumnTransformer {
	return p.transformer
}

func (p *Predictor) Predict(ctx context.Context, raw pipeline.RawCustomer) (Prediction, error) {
	start := time.Now()
	pred, err := p.predict(ctx, raw)
	if err != nil {
		kind := ErrorKind(err)
		p.logger.Warn("prediction failed", zap.String("kind", kind), zap.Error(err))
		if p.observer != nil {
			p.observer.ObserveError(kind)
		}
		return Prediction{}, err
	}
	p.logger.Debug("prediction",
		zap.Stringer("label", pred.Label),
		zap.Float64("confidence", pred.Confidence),
		zap.Bool("cached", pred.Cached),
	)
	if p.observer != nil {
		p.observer.ObservePrediction(pred.Label, time.Since(start))
	}
	return pred, nil
}

func (p *Predictor) predict(ctx context.Context, raw pipeline.RawCustomer) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	rec, err := p.validator.Validate(raw)
	if err != nil {
		return Prediction{}, err
	}
	if p.cache != nil {
		if cached, ok := p.cache.Get(rec); ok {
			cached.Features = append([]float64(nil), cached.Features...)
			cached.Cached = true
			return cached, nil
		}
	}

	vector, err := p.transformer.TransformRecord(rec)
	if err != nil {
		return Prediction{}, err
	}
	class, confidence, err := p.model.Predict(vector)
	if err != nil {
		return Prediction{}, &ClassifierError{Err: err}
	}
	label, err := ToLabel(class)
	if err != nil {
		return Prediction{}, err
	}

	pred := Prediction{
		Label:      label,
		Verdict:    label.Verdict(),
		Confidence: confidence,
		Record:     rec,
		Features:   vector,
	}
	if p.cache != nil {
		stored := pred
		stored.Features = append([]float64(nil), vector...)
		p.cache.Add(rec, stored)
	}
	return pred, nil
}

// ErrorKind classifies a prediction error for logs and metrics.
func ErrorKind(err error) string {
	var (
		verr    *pipeline.ValidationError
		unknown *UnknownCategoryError
		degen   *DegenerateColumnError
		cerr    *ClassifierError
		lerr    *ArtifactLoadError
	)
	switch {
	case errors.As(err, &verr):
		return "validation"
	case errors.As(err, &unknown):
		return "unknown_category"
	case errors.As(err, &degen):
		return "degenerate_column"
	case errors.Is(err, ErrInvalidLabel):
		return "invalid_label"
	case errors.As(err, &cerr):
		return "classifier"
	case errors.As(err, &lerr):
		return "artifact_load"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "internal"
}

// DescribeError renders an error as the message shown to the caller.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	return "Error: " + err.Error()
}
