package ml

import (
	"fmt"
)

const ModelTypeDecisionTree = "decision_tree"

func NewModel(modelType string, maxDepth int) (MLModel, error) {
	switch modelType {
	case ModelTypeDecisionTree, "":
		return NewDecisionTree(maxDepth), nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}

func LoadModel(modelType, path string) (MLModel, error) {
	model, err := NewModel(modelType, 0)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: "model", Path: path, Err: err}
	}
	if err := model.Load(path); err != nil {
		return nil, &ArtifactLoadError{Artifact: "model", Path: path, Err: err}
	}
	if w, ok := model.(widthReporter); ok && w.Width() != 0 && w.Width() != FeatureWidth {
		return nil, &ArtifactLoadError{
			Artifact: "model",
			Path:     path,
			Err:      fmt.Errorf("model expects %d features, pipeline produces %d", w.Width(), FeatureWidth),
		}
	}
	return model, nil
}
