package ml

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler holds the population mean and standard deviation of one column.
type StandardScaler struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

func FitScaler(column string, values []float64) (StandardScaler, error) {
	if len(values) == 0 {
		return StandardScaler{}, errors.New("cannot fit scaler on empty column " + column)
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	return StandardScaler{Column: column, Mean: mean, Std: std}, nil
}

func (s StandardScaler) Transform(value float64) (float64, error) {
	if s.Std == 0 {
		return 0, &DegenerateColumnError{Column: s.Column}
	}
	return (value - s.Mean) / s.Std, nil
}

func (s StandardScaler) validate() error {
	if math.IsNaN(s.Mean) || math.IsInf(s.Mean, 0) || math.IsNaN(s.Std) || math.IsInf(s.Std, 0) {
		return errors.New("scaler " + s.Column + " has non-finite statistics")
	}
	if s.Std < 0 {
		return errors.New("scaler " + s.Column + " has negative std")
	}
	return nil
}

// OrdinalEncoder maps categories to their index in a lexically sorted list.
type OrdinalEncoder struct {
	Column     string   `json:"column"`
	Categories []string `json:"categories"`

	codes map[string]int
}

func FitEncoder(column string, values []string) (OrdinalEncoder, error) {
	if len(values) == 0 {
		return OrdinalEncoder{}, errors.New("cannot fit encoder on empty column " + column)
	}
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		categories = append(categories, v)
	}
	sort.Strings(categories)
	return NewOrdinalEncoder(column, categories)
}

// NewOrdinalEncoder builds an encoder from an already sorted category list.
func NewOrdinalEncoder(column string, categories []string) (OrdinalEncoder, error) {
	if len(categories) == 0 {
		return OrdinalEncoder{}, errors.New("encoder " + column + " has no categories")
	}
	if !sort.StringsAreSorted(categories) {
		return OrdinalEncoder{}, errors.New("encoder " + column + " categories are not sorted")
	}
	codes := make(map[string]int, len(categories))
	for i, c := range categories {
		if _, dup := codes[c]; dup {
			return OrdinalEncoder{}, errors.New("encoder " + column + " has duplicate category " + c)
		}
		codes[c] = i
	}
	return OrdinalEncoder{
		Column:     column,
		Categories: append([]string(nil), categories...),
		codes:      codes,
	}, nil
}

func (e OrdinalEncoder) Transform(value string) (float64, error) {
	code, ok := e.codes[value]
	if !ok {
		return 0, &UnknownCategoryError{
			Column: e.Column,
			Value:  value,
			Known:  append([]string(nil), e.Categories...),
		}
	}
	return float64(code), nil
}

// Codes returns a copy of the category to code map.
func (e OrdinalEncoder) Codes() map[string]int {
	out := make(map[string]int, len(e.codes))
	for k, v := range e.codes {
		out[k] = v
	}
	return out
}
