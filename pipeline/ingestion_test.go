package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `RowNumber,CustomerId,Surname,CreditScore,Geography,Gender,Age,Tenure,Balance,NumOfProducts,HasCrCard,IsActiveMember,EstimatedSalary,Exited
1,15634602,Hargrave,619,France,Female,42,2,0,1,1,1,101348.88,1
2,15647311,Hill,608,Spain,Female,41,1,83807.86,1,0,1,112542.58,0
3,15619304,Onio,502,France,Female,42,8,159660.8,3,1,0,113931.57,1
`

func TestReadTrainingCSV(t *testing.T) {
	rows, err := ReadTrainingCSV(strings.NewReader(sampleCSV), NewValidator())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 619, rows[0].Record.CreditScore)
	assert.True(t, rows[0].Record.HasCrCard)
	assert.Equal(t, 1, rows[0].Exited)
	assert.Equal(t, Spain, rows[1].Record.Geography)
	assert.False(t, rows[1].Record.HasCrCard)
	assert.Equal(t, 83807.86, rows[1].Record.Balance)
}

func TestReadTrainingCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "empty"},
		{"missing column", "CreditScore,Geography\n600,France\n", "missing column"},
		{"no rows", strings.SplitN(sampleCSV, "\n", 2)[0] + "\n", "no rows"},
		{
			"invalid row",
			strings.Replace(sampleCSV, "608,Spain", "608,Italy", 1),
			"line 3",
		},
		{
			"bad label",
			strings.Replace(sampleCSV, "112542.58,0", "112542.58,2", 1),
			"Exited",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTrainingCSV(strings.NewReader(tt.input), NewValidator())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
