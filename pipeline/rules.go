package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ValidationRule 字段校验规则
type ValidationRule interface {
	Name() string
	Field() string
	Check(raw *RawCustomer) error
}

// ============ 数值规则 ============

// MaxInteger 整数字段允许的最大值, 保证转换为 int 不溢出
const MaxInteger = math.MaxInt32

// NumberRule 数值范围校验, Integer 为 true 时要求不超过 MaxInteger 的整数
type NumberRule struct {
	field     string
	get       func(*RawCustomer) *float64
	Min       float64
	Inclusive bool
	Integer   bool
}

func NewNumberRule(field string, get func(*RawCustomer) *float64, min float64, inclusive, integer bool) *NumberRule {
	return &NumberRule{field: field, get: get, Min: min, Inclusive: inclusive, Integer: integer}
}

func (r *NumberRule) Name() string {
	return r.field + "_range"
}

func (r *NumberRule) Field() string {
	return r.field
}

func (r *NumberRule) Check(raw *RawCustomer) error {
	v := r.get(raw)
	if v == nil {
		return errors.New("is required")
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return errors.New("must be a finite number")
	}
	if r.Integer && *v != math.Trunc(*v) {
		return errors.New("must be an integer")
	}
	if r.Integer && *v > MaxInteger {
		return fmt.Errorf("must be at most %d", MaxInteger)
	}
	if r.Inclusive {
		if *v < r.Min {
			return fmt.Errorf("must be greater than or equal to %g", r.Min)
		}
	} else if *v <= r.Min {
		return fmt.Errorf("must be greater than %g", r.Min)
	}
	return nil
}

// ============ 枚举规则 ============

// EnumRule 取值必须在允许列表内
type EnumRule struct {
	field   string
	get     func(*RawCustomer) string
	Allowed []string
}

func NewEnumRule(field string, get func(*RawCustomer) string, allowed ...string) *EnumRule {
	return &EnumRule{field: field, get: get, Allowed: allowed}
}

func (r *EnumRule) Name() string {
	return r.field + "_enum"
}

func (r *EnumRule) Field() string {
	return r.field
}

func (r *EnumRule) Check(raw *RawCustomer) error {
	v := r.get(raw)
	if v == "" {
		return errors.New("is required")
	}
	for _, allowed := range r.Allowed {
		if v == allowed {
			return nil
		}
	}
	return fmt.Errorf("must be one of %s, got %q", strings.Join(r.Allowed, "|"), v)
}

// DefaultRules 十个输入字段的默认规则
func DefaultRules() []ValidationRule {
	return []ValidationRule{
		NewNumberRule(FieldCreditScore, func(r *RawCustomer) *float64 { return r.CreditScore }, 0, false, true),
		NewEnumRule(FieldGeography, func(r *RawCustomer) string { return r.Geography }, string(France), string(Spain), string(Germany)),
		NewEnumRule(FieldGender, func(r *RawCustomer) string { return r.Gender }, string(Male), string(Female)),
		NewNumberRule(FieldAge, func(r *RawCustomer) *float64 { return r.Age }, 0, false, true),
		NewNumberRule(FieldTenure, func(r *RawCustomer) *float64 { return r.Tenure }, 0, true, true),
		NewNumberRule(FieldBalance, func(r *RawCustomer) *float64 { return r.Balance }, 0, true, false),
		NewNumberRule(FieldNumOfProducts, func(r *RawCustomer) *float64 { return r.NumOfProducts }, 0, false, true),
		NewEnumRule(FieldHasCrCard, func(r *RawCustomer) string { return r.HasCrCard }, Yes, No),
		NewEnumRule(FieldIsActiveMember, func(r *RawCustomer) string { return r.IsActiveMember }, Yes, No),
		NewNumberRule(FieldEstimatedSalary, func(r *RawCustomer) *float64 { return r.EstimatedSalary }, 0, false, false),
	}
}
