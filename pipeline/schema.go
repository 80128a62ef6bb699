// Package pipeline 提供客户输入的校验与派生字段
package pipeline

// Geography 客户所在地区
type Geography string

const (
	France  Geography = "France"
	Spain   Geography = "Spain"
	Germany Geography = "Germany"
)

// Gender 客户性别
type Gender string

const (
	Male   Gender = "Male"
	Female Gender = "Female"
)

const (
	Yes = "Yes"
	No  = "No"

	AboveAverage = "Above Average"
	BelowAverage = "Below Average"
)

// DefaultCreditScoreThreshold 原始推理端使用的信用分阈值
const DefaultCreditScoreThreshold = 650.5288

// 字段名, 同时用于 JSON、表单和错误信息
const (
	FieldCreditScore     = "creditscore"
	FieldGeography       = "geography"
	FieldGender          = "gender"
	FieldAge             = "age"
	FieldTenure          = "tenure"
	FieldBalance         = "balance"
	FieldNumOfProducts   = "numofproducts"
	FieldHasCrCard       = "hascrcard"
	FieldIsActiveMember  = "isactivemember"
	FieldEstimatedSalary = "estimatedsalary"
)

// RawCustomer 未经校验的原始输入, 数值字段为 nil 表示缺失
type RawCustomer struct {
	CreditScore     *float64 `json:"creditscore"`
	Geography       string   `json:"geography"`
	Gender          string   `json:"gender"`
	Age             *float64 `json:"age"`
	Tenure          *float64 `json:"tenure"`
	Balance         *float64 `json:"balance"`
	NumOfProducts   *float64 `json:"numofproducts"`
	HasCrCard       string   `json:"hascrcard"`
	IsActiveMember  string   `json:"isactivemember"`
	EstimatedSalary *float64 `json:"estimatedsalary"`
}

// CustomerRecord 校验通过的客户记录
type CustomerRecord struct {
	CreditScore     int       `json:"credit_score"`
	Geography       Geography `json:"geography"`
	Gender          Gender    `json:"gender"`
	Age             int       `json:"age"`
	Tenure          int       `json:"tenure"`
	Balance         float64   `json:"balance"`
	NumOfProducts   int       `json:"num_of_products"`
	HasCrCard       bool      `json:"has_cr_card"`
	IsActiveMember  bool      `json:"is_active_member"`
	EstimatedSalary float64   `json:"estimated_salary"`
}

// FeatureRecord 特征管道需要的扁平记录
type FeatureRecord struct {
	CreditScore         float64
	Geography           string
	Gender              string
	Age                 float64
	Tenure              float64
	Balance             float64
	NumOfProducts       float64
	HasCrCard           int
	IsActiveMember      int
	EstimatedSalary     float64
	CreditScoreCategory string
	HasZeroBalance      string
}

// TrainingRow 带标签的训练样本
type TrainingRow struct {
	Record CustomerRecord
	Exited int
}

// Num 返回数值指针, 便于构造 RawCustomer
func Num(v float64) *float64 {
	return &v
}

// Raw 将记录还原为原始输入
func (r CustomerRecord) Raw() RawCustomer {
	return RawCustomer{
		CreditScore:     Num(float64(r.CreditScore)),
		Geography:       string(r.Geography),
		Gender:          string(r.Gender),
		Age:             Num(float64(r.Age)),
		Tenure:          Num(float64(r.Tenure)),
		Balance:         Num(r.Balance),
		NumOfProducts:   Num(float64(r.NumOfProducts)),
		HasCrCard:       yesNo(r.HasCrCard),
		IsActiveMember:  yesNo(r.IsActiveMember),
		EstimatedSalary: Num(r.EstimatedSalary),
	}
}

func yesNo(v bool) string {
	if v {
		return Yes
	}
	return No
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
