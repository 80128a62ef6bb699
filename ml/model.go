package ml

// Classifier consumes a FeatureVector and returns a label with its confidence.
type Classifier interface {
	Predict(features []float64) (int, float64, error)
}

type MLModel interface {
	Classifier
	Train(features [][]float64, labels []int) error
	Save(path string) error
	Load(path string) error
}

// widthReporter is implemented by models that know their expected input width.
type widthReporter interface {
	Width() int
}
