package pipeline

import (
	"net/url"
	"strconv"
	"strings"
)

var numericFields = []string{
	FieldCreditScore,
	FieldAge,
	FieldTenure,
	FieldBalance,
	FieldNumOfProducts,
	FieldEstimatedSalary,
}

// ParseForm 从表单值构造原始输入. 存在无法解析的数值时返回 ValidationError,
// 其中同时包含其余字段按默认规则校验的结果
func ParseForm(values url.Values) (RawCustomer, error) {
	raw := RawCustomer{
		Geography:      values.Get(FieldGeography),
		Gender:         values.Get(FieldGender),
		HasCrCard:      values.Get(FieldHasCrCard),
		IsActiveMember: values.Get(FieldIsActiveMember),
	}

	verr := &ValidationError{}
	for _, field := range numericFields {
		text := strings.TrimSpace(values.Get(field))
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			verr.add(field, "must be a number, got "+strconv.Quote(text))
			continue
		}
		*raw.numberField(field) = &v
	}
	if len(verr.Fields) > 0 {
		normalized := normalize(raw)
		NewValidator().check(&normalized, verr)
		return raw, verr
	}
	return raw, nil
}

func (r *RawCustomer) numberField(field string) **float64 {
	switch field {
	case FieldCreditScore:
		return &r.CreditScore
	case FieldAge:
		return &r.Age
	case FieldTenure:
		return &r.Tenure
	case FieldBalance:
		return &r.Balance
	case FieldNumOfProducts:
		return &r.NumOfProducts
	case FieldEstimatedSalary:
		return &r.EstimatedSalary
	}
	panic("pipeline: unknown numeric field " + field)
}
