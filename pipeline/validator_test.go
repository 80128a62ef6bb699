package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRaw() RawCustomer {
	return RawCustomer{
		CreditScore:     Num(600),
		Geography:       "France",
		Gender:          "Male",
		Age:             Num(35),
		Tenure:          Num(5),
		Balance:         Num(0),
		NumOfProducts:   Num(2),
		HasCrCard:       "Yes",
		IsActiveMember:  "Yes",
		EstimatedSalary: Num(50000),
	}
}

func TestValidateValidRecord(t *testing.T) {
	rec, err := NewValidator().Validate(validRaw())
	require.NoError(t, err)

	assert.Equal(t, CustomerRecord{
		CreditScore:     600,
		Geography:       France,
		Gender:          Male,
		Age:             35,
		Tenure:          5,
		Balance:         0,
		NumOfProducts:   2,
		HasCrCard:       true,
		IsActiveMember:  true,
		EstimatedSalary: 50000,
	}, rec)
}

func TestValidateRejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *RawCustomer)
		field  string
	}{
		{"zero credit score", func(r *RawCustomer) { r.CreditScore = Num(0) }, FieldCreditScore},
		{"fractional credit score", func(r *RawCustomer) { r.CreditScore = Num(600.5) }, FieldCreditScore},
		{"missing credit score", func(r *RawCustomer) { r.CreditScore = nil }, FieldCreditScore},
		{"unknown geography", func(r *RawCustomer) { r.Geography = "Italy" }, FieldGeography},
		{"lowercase geography", func(r *RawCustomer) { r.Geography = "france" }, FieldGeography},
		{"unknown gender", func(r *RawCustomer) { r.Gender = "Other" }, FieldGender},
		{"overflowing credit score", func(r *RawCustomer) { r.CreditScore = Num(1e20) }, FieldCreditScore},
		{"zero age", func(r *RawCustomer) { r.Age = Num(0) }, FieldAge},
		{"overflowing age", func(r *RawCustomer) { r.Age = Num(1e19) }, FieldAge},
		{"overflowing tenure", func(r *RawCustomer) { r.Tenure = Num(MaxInteger + 1) }, FieldTenure},
		{"overflowing products", func(r *RawCustomer) { r.NumOfProducts = Num(1e20) }, FieldNumOfProducts},
		{"negative tenure", func(r *RawCustomer) { r.Tenure = Num(-1) }, FieldTenure},
		{"negative balance", func(r *RawCustomer) { r.Balance = Num(-0.01) }, FieldBalance},
		{"zero products", func(r *RawCustomer) { r.NumOfProducts = Num(0) }, FieldNumOfProducts},
		{"bad credit card flag", func(r *RawCustomer) { r.HasCrCard = "1" }, FieldHasCrCard},
		{"missing active flag", func(r *RawCustomer) { r.IsActiveMember = "" }, FieldIsActiveMember},
		{"zero salary", func(r *RawCustomer) { r.EstimatedSalary = Num(0) }, FieldEstimatedSalary},
	}

	validator := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(&raw)

			_, err := validator.Validate(raw)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.True(t, verr.Has(tt.field), "expected %s in %v", tt.field, verr)
			assert.Len(t, verr.Fields, 1)
		})
	}
}

func TestValidateIntegerCeiling(t *testing.T) {
	raw := validRaw()
	raw.CreditScore = Num(MaxInteger)

	rec, err := NewValidator().Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, MaxInteger, rec.CreditScore)

	raw.CreditScore = Num(1e20)
	raw.Age = Num(1e19)
	_, err = NewValidator().Validate(raw)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(FieldCreditScore))
	assert.True(t, verr.Has(FieldAge))
	assert.Contains(t, err.Error(), "must be at most 2147483647")
}

func TestValidateCreditScoreZeroMentionsField(t *testing.T) {
	raw := validRaw()
	raw.CreditScore = Num(0)

	_, err := NewValidator().Validate(raw)
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "creditscore")
}

func TestValidateCollectsAllFields(t *testing.T) {
	raw := validRaw()
	raw.CreditScore = Num(-5)
	raw.Gender = ""
	raw.EstimatedSalary = nil

	_, err := NewValidator().Validate(raw)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
	assert.True(t, verr.Has(FieldCreditScore))
	assert.True(t, verr.Has(FieldGender))
	assert.True(t, verr.Has(FieldEstimatedSalary))
}

func TestValidateTrimsAndNormalizesStrings(t *testing.T) {
	raw := validRaw()
	raw.Geography = "  Germany "
	raw.HasCrCard = "No\t"

	rec, err := NewValidator().Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, Germany, rec.Geography)
	assert.False(t, rec.HasCrCard)
}

func TestValidatorExtraRule(t *testing.T) {
	maxAge := NewNumberRule("age_cap", func(r *RawCustomer) *float64 {
		if r.Age == nil {
			return nil
		}
		v := 120 - *r.Age
		return &v
	}, 0, true, true)

	validator := NewValidator(maxAge)
	assert.Contains(t, validator.Rules(), "age_cap_range")

	raw := validRaw()
	raw.Age = Num(130)
	_, err := validator.Validate(raw)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("age_cap"))
}

func TestRecordRawRoundTrip(t *testing.T) {
	validator := NewValidator()
	rec, err := validator.Validate(validRaw())
	require.NoError(t, err)

	again, err := validator.Validate(rec.Raw())
	require.NoError(t, err)
	assert.Equal(t, rec, again)
}
