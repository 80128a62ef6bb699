package pipeline

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Validator 按规则校验原始输入, 构造后只读
type Validator struct {
	rules []ValidationRule
}

// NewValidator 创建带默认规则的校验器, extra 追加在默认规则之后
func NewValidator(extra ...ValidationRule) *Validator {
	rules := DefaultRules()
	rules = append(rules, extra...)
	return &Validator{rules: rules}
}

// Rules 返回规则名列表
func (v *Validator) Rules() []string {
	names := make([]string, len(v.rules))
	for i, rule := range v.rules {
		names[i] = rule.Name()
	}
	return names
}

// Validate 校验输入, 所有失败字段汇总到 ValidationError
func (v *Validator) Validate(raw RawCustomer) (CustomerRecord, error) {
	normalized := normalize(raw)

	verr := &ValidationError{}
	v.check(&normalized, verr)
	if len(verr.Fields) > 0 {
		return CustomerRecord{}, verr
	}

	return CustomerRecord{
		CreditScore:     int(*normalized.CreditScore),
		Geography:       Geography(normalized.Geography),
		Gender:          Gender(normalized.Gender),
		Age:             int(*normalized.Age),
		Tenure:          int(*normalized.Tenure),
		Balance:         *normalized.Balance,
		NumOfProducts:   int(*normalized.NumOfProducts),
		HasCrCard:       normalized.HasCrCard == Yes,
		IsActiveMember:  normalized.IsActiveMember == Yes,
		EstimatedSalary: *normalized.EstimatedSalary,
	}, nil
}

// check 将失败字段追加到 verr, 已在 verr 中的字段跳过
func (v *Validator) check(raw *RawCustomer, verr *ValidationError) {
	for _, rule := range v.rules {
		if verr.Has(rule.Field()) {
			continue
		}
		if err := rule.Check(raw); err != nil {
			verr.add(rule.Field(), err.Error())
		}
	}
}

func normalize(raw RawCustomer) RawCustomer {
	raw.Geography = normalizeString(raw.Geography)
	raw.Gender = normalizeString(raw.Gender)
	raw.HasCrCard = normalizeString(raw.HasCrCard)
	raw.IsActiveMember = normalizeString(raw.IsActiveMember)
	return raw
}

func normalizeString(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
