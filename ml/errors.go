package ml

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidLabel is returned when the classifier produces something other than 0 or 1.
var ErrInvalidLabel = errors.New("classifier returned an invalid label")

// DegenerateColumnError reports a scaler column whose fitted standard deviation is zero.
type DegenerateColumnError struct {
	Column string
}

func (e *DegenerateColumnError) Error() string {
	return fmt.Sprintf("column %s has zero variance and cannot be standardized", e.Column)
}

// UnknownCategoryError reports a categorical value that was not seen at fit time.
type UnknownCategoryError struct {
	Column string
	Value  string
	Known  []string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q for column %s (known: %s)", e.Value, e.Column, strings.Join(e.Known, ", "))
}

// ArtifactLoadError wraps a failure to read or accept a persisted transformer or model.
type ArtifactLoadError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("load %s artifact %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error {
	return e.Err
}

// ClassifierError wraps an error returned by the classifier itself.
type ClassifierError struct {
	Err error
}

func (e *ClassifierError) Error() string {
	return "classifier: " + e.Err.Error()
}

func (e *ClassifierError) Unwrap() error {
	return e.Err
}
