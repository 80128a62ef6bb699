package ml

import "churnpredict/pipeline"

// Column names in FeatureVector order. Scaled columns come first, then encoded
// columns, then the pass-through flags.
const (
	ColCreditScore         = "CreditScore"
	ColAge                 = "Age"
	ColTenure              = "Tenure"
	ColBalance             = "Balance"
	ColEstimatedSalary     = "EstimatedSalary"
	ColGeography           = "Geography"
	ColGender              = "Gender"
	ColCreditScoreCategory = "CreditScoreCategory"
	ColHasZeroBalance      = "hasZeroBalance"
	ColHasCrCard           = "HasCrCard"
	ColIsActiveMember      = "IsActiveMember"
)

var (
	scaledColumns      = []string{ColCreditScore, ColAge, ColTenure, ColBalance, ColEstimatedSalary}
	encodedColumns     = []string{ColGeography, ColGender, ColCreditScoreCategory, ColHasZeroBalance}
	passthroughColumns = []string{ColHasCrCard, ColIsActiveMember}
)

// FeatureWidth is the length of every feature vector.
const FeatureWidth = 11

func FeatureNames() []string {
	names := make([]string, 0, FeatureWidth)
	names = append(names, scaledColumns...)
	names = append(names, encodedColumns...)
	names = append(names, passthroughColumns...)
	return names
}

func scaledValues(r pipeline.FeatureRecord) []float64 {
	return []float64{r.CreditScore, r.Age, r.Tenure, r.Balance, r.EstimatedSalary}
}

func encodedValues(r pipeline.FeatureRecord) []string {
	return []string{r.Geography, r.Gender, r.CreditScoreCategory, r.HasZeroBalance}
}

func passthroughValues(r pipeline.FeatureRecord) []float64 {
	return []float64{float64(r.HasCrCard), float64(r.IsActiveMember)}
}
