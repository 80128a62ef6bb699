package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// 训练数据 CSV 列名, RowNumber/CustomerId/Surname 等其余列被忽略
var trainingColumns = []string{
	"CreditScore", "Geography", "Gender", "Age", "Tenure", "Balance",
	"NumOfProducts", "HasCrCard", "IsActiveMember", "EstimatedSalary", "Exited",
}

// ReadTrainingCSV 读取训练样本, 每行都经过 validator 校验
func ReadTrainingCSV(r io.Reader, validator *Validator) ([]TrainingRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("training csv is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range trainingColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("training csv missing column %q", name)
		}
	}

	rows := make([]TrainingRow, 0)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row, err := parseTrainingRow(record, index, validator)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, errors.New("training csv has no rows")
	}
	return rows, nil
}

func parseTrainingRow(record []string, index map[string]int, validator *Validator) (TrainingRow, error) {
	get := func(name string) string {
		return strings.TrimSpace(record[index[name]])
	}

	values := make(map[string]string, len(trainingColumns))
	for _, name := range trainingColumns {
		if index[name] >= len(record) {
			return TrainingRow{}, fmt.Errorf("missing value for %s", name)
		}
		values[name] = get(name)
	}

	raw := RawCustomer{
		Geography:      values["Geography"],
		Gender:         values["Gender"],
		HasCrCard:      flagToYesNo(values["HasCrCard"]),
		IsActiveMember: flagToYesNo(values["IsActiveMember"]),
	}
	numbers := map[string]string{
		FieldCreditScore:     values["CreditScore"],
		FieldAge:             values["Age"],
		FieldTenure:          values["Tenure"],
		FieldBalance:         values["Balance"],
		FieldNumOfProducts:   values["NumOfProducts"],
		FieldEstimatedSalary: values["EstimatedSalary"],
	}
	for field, text := range numbers {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return TrainingRow{}, fmt.Errorf("%s: invalid number %q", field, text)
		}
		*raw.numberField(field) = &v
	}

	rec, err := validator.Validate(raw)
	if err != nil {
		return TrainingRow{}, err
	}

	exited, err := strconv.Atoi(values["Exited"])
	if err != nil || (exited != 0 && exited != 1) {
		return TrainingRow{}, fmt.Errorf("Exited must be 0 or 1, got %q", values["Exited"])
	}
	return TrainingRow{Record: rec, Exited: exited}, nil
}

// flagToYesNo 把 CSV 中的 0/1 标志转为 Yes/No, 其他值原样交给校验器
func flagToYesNo(v string) string {
	switch v {
	case "1", "1.0":
		return Yes
	case "0", "0.0":
		return No
	}
	return v
}
