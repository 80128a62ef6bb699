package ml

import (
	"math/rand"

	"churnpredict/pipeline"
)

func exampleRaw() pipeline.RawCustomer {
	return pipeline.RawCustomer{
		CreditScore:     pipeline.Num(600),
		Geography:       "France",
		Gender:          "Male",
		Age:             pipeline.Num(35),
		Tenure:          pipeline.Num(5),
		Balance:         pipeline.Num(0),
		NumOfProducts:   pipeline.Num(2),
		HasCrCard:       "Yes",
		IsActiveMember:  "Yes",
		EstimatedSalary: pipeline.Num(50000),
	}
}

// syntheticRows builds a reproducible batch where older, inactive German
// customers tend to leave.
func syntheticRows(n int, seed int64) []pipeline.TrainingRow {
	rnd := rand.New(rand.NewSource(seed))
	geos := []pipeline.Geography{pipeline.France, pipeline.Spain, pipeline.Germany}
	genders := []pipeline.Gender{pipeline.Male, pipeline.Female}

	rows := make([]pipeline.TrainingRow, n)
	for i := range rows {
		rec := pipeline.CustomerRecord{
			CreditScore:     400 + rnd.Intn(450),
			Geography:       geos[i%len(geos)],
			Gender:          genders[rnd.Intn(2)],
			Age:             18 + rnd.Intn(60),
			Tenure:          rnd.Intn(11),
			NumOfProducts:   1 + rnd.Intn(3),
			HasCrCard:       rnd.Intn(2) == 1,
			IsActiveMember:  rnd.Intn(2) == 1,
			EstimatedSalary: 1000 + rnd.Float64()*150000,
		}
		if i%4 != 0 {
			rec.Balance = rnd.Float64() * 200000
		}
		exited := 0
		if rec.Age > 50 && !rec.IsActiveMember {
			exited = 1
		}
		if rec.Geography == pipeline.Germany && rec.Age > 45 {
			exited = 1
		}
		rows[i] = pipeline.TrainingRow{Record: rec, Exited: exited}
	}
	return rows
}

func syntheticRecords(n int, seed int64) []pipeline.CustomerRecord {
	return recordsOf(syntheticRows(n, seed))
}

type fakeClassifier struct {
	label      int
	confidence float64
	err        error
	calls      int
	lastInput  []float64
}

func (f *fakeClassifier) Predict(features []float64) (int, float64, error) {
	f.calls++
	f.lastInput = append([]float64(nil), features...)
	return f.label, f.confidence, f.err
}
