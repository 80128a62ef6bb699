package pipeline

// DeriveCreditScoreCategory 信用分不低于阈值为 Above Average
func DeriveCreditScoreCategory(score, threshold float64) string {
	if score >= threshold {
		return AboveAverage
	}
	return BelowAverage
}

// DeriveZeroBalance 余额为零返回 Yes
func DeriveZeroBalance(balance float64) string {
	if balance == 0 {
		return Yes
	}
	return No
}

// Prepare 将校验后的记录展开为特征记录, threshold 来自已拟合的转换器
func Prepare(r CustomerRecord, threshold float64) FeatureRecord {
	return FeatureRecord{
		CreditScore:         float64(r.CreditScore),
		Geography:           string(r.Geography),
		Gender:              string(r.Gender),
		Age:                 float64(r.Age),
		Tenure:              float64(r.Tenure),
		Balance:             r.Balance,
		NumOfProducts:       float64(r.NumOfProducts),
		HasCrCard:           boolInt(r.HasCrCard),
		IsActiveMember:      boolInt(r.IsActiveMember),
		EstimatedSalary:     r.EstimatedSalary,
		CreditScoreCategory: DeriveCreditScoreCategory(float64(r.CreditScore), threshold),
		HasZeroBalance:      DeriveZeroBalance(r.Balance),
	}
}
