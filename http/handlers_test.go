package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churnpredict/db"
	"churnpredict/ml"
	"churnpredict/pipeline"
)

type constClassifier struct {
	label int
}

func (c constClassifier) Predict(features []float64) (int, float64, error) {
	return c.label, 0.8, nil
}

type memoryStore struct {
	mu      sync.Mutex
	entries []db.PredictionLog
}

func (s *memoryStore) SavePrediction(ctx context.Context, entry db.PredictionLog) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]db.PredictionLog{entry}, s.entries...)
	return entry.ID, nil
}

func (s *memoryStore) RecentPredictions(ctx context.Context, limit int) ([]db.PredictionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.entries) {
		limit = len(s.entries)
	}
	return append([]db.PredictionLog(nil), s.entries[:limit]...), nil
}

func trainingRecords() []pipeline.CustomerRecord {
	return []pipeline.CustomerRecord{
		{CreditScore: 600, Geography: pipeline.France, Gender: pipeline.Male, Age: 40, Tenure: 3, Balance: 0, NumOfProducts: 2, HasCrCard: true, IsActiveMember: false, EstimatedSalary: 50000},
		{CreditScore: 720, Geography: pipeline.Spain, Gender: pipeline.Female, Age: 35, Tenure: 7, Balance: 1500.5, NumOfProducts: 1, HasCrCard: false, IsActiveMember: true, EstimatedSalary: 82000},
		{CreditScore: 580, Geography: pipeline.Germany, Gender: pipeline.Female, Age: 52, Tenure: 1, Balance: 98000, NumOfProducts: 3, HasCrCard: true, IsActiveMember: true, EstimatedSalary: 61000},
		{CreditScore: 690, Geography: pipeline.France, Gender: pipeline.Male, Age: 29, Tenure: 9, Balance: 0, NumOfProducts: 1, HasCrCard: false, IsActiveMember: false, EstimatedSalary: 120000},
	}
}

func newTestHandlers(t *testing.T, label int, store AuditStore) *http.ServeMux {
	t.Helper()
	transformer, err := ml.FitTransformer(trainingRecords(), ml.FitOptions{CreditScoreThreshold: pipeline.DefaultCreditScoreThreshold})
	require.NoError(t, err)
	predictor, err := ml.NewPredictor(transformer, constClassifier{label: label})
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewHandlers(Deps{Predictor: predictor, Store: store}).Register(mux)
	return mux
}

const validBody = `{
	"creditscore": 600, "geography": "France", "gender": "Male", "age": 40, "tenure": 3,
	"balance": 0, "numofproducts": 2, "hascrcard": "Yes", "isactivemember": "No",
	"estimatedsalary": 50000
}`

func postJSON(mux http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload), w.Body.String())
	return payload
}

func TestHealthHandler(t *testing.T) {
	mux := newTestHandlers(t, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	payload := decodeBody(t, w)
	assert.Equal(t, "ok", payload["status"])
	assert.NotContains(t, payload, "artifacts_loaded_at")
}

type reloadingService struct {
	PredictionService
	loadedAt time.Time
}

func (s reloadingService) LoadedAt() time.Time {
	return s.loadedAt
}

func TestHealthReportsArtifactLoadTime(t *testing.T) {
	loaded := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	NewHandlers(Deps{Predictor: reloadingService{loadedAt: loaded}}).Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-03-01T12:00:00Z", decodeBody(t, w)["artifacts_loaded_at"])
}

func TestHandlePredict(t *testing.T) {
	store := &memoryStore{}
	mux := newTestHandlers(t, 1, store)

	w := postJSON(mux, validBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	payload := decodeBody(t, w)
	assert.Equal(t, "Leave", payload["label"])
	assert.Equal(t, "Prediction: The customer is likely to Leave.", payload["verdict"])
	assert.Equal(t, 0.8, payload["confidence"])
	assert.NotEmpty(t, payload["id"])

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, payload["id"], entry.ID)
	require.NotNil(t, entry.Label)
	assert.Equal(t, 1, *entry.Label)
	assert.Empty(t, entry.ErrorKind)
}

func TestHandlePredictStay(t *testing.T) {
	mux := newTestHandlers(t, 0, nil)

	w := postJSON(mux, validBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Prediction: The customer is likely to STAY.", decodeBody(t, w)["verdict"])
}

func TestHandlePredictErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   int
		contains string
	}{
		{
			name:     "zero credit score",
			body:     strings.Replace(validBody, `"creditscore": 600`, `"creditscore": 0`, 1),
			status:   http.StatusUnprocessableEntity,
			contains: "creditscore",
		},
		{
			name:     "unknown geography",
			body:     strings.Replace(validBody, `"France"`, `"Italy"`, 1),
			status:   http.StatusUnprocessableEntity,
			contains: "Italy",
		},
		{
			name:     "malformed json",
			body:     `{"creditscore": `,
			status:   http.StatusBadRequest,
			contains: "invalid JSON body",
		},
		{
			name:     "unknown field",
			body:     `{"surname": "Hargrave"}`,
			status:   http.StatusBadRequest,
			contains: "surname",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestHandlers(t, 1, nil)

			w := postJSON(mux, tt.body)
			assert.Equal(t, tt.status, w.Code)
			msg, _ := decodeBody(t, w)["error"].(string)
			assert.True(t, strings.HasPrefix(msg, "Error: "), msg)
			assert.Contains(t, msg, tt.contains)
		})
	}
}

func TestHandlePredictAuditsFailures(t *testing.T) {
	store := &memoryStore{}
	mux := newTestHandlers(t, 1, store)

	w := postJSON(mux, strings.Replace(validBody, `"Male"`, `"male"`, 1))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	require.Len(t, store.entries, 1)
	assert.Equal(t, "validation", store.entries[0].ErrorKind)
	assert.Nil(t, store.entries[0].Label)
}

func TestFormPage(t *testing.T) {
	mux := newTestHandlers(t, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="creditscore"`)
	assert.Contains(t, w.Body.String(), "<option>Germany</option>")
}

func TestFormPredict(t *testing.T) {
	form := url.Values{
		"creditscore":     {"600"},
		"geography":       {"Spain"},
		"gender":          {"Female"},
		"age":             {"40"},
		"tenure":          {"3"},
		"balance":         {"0"},
		"numofproducts":   {"2"},
		"hascrcard":       {"Yes"},
		"isactivemember":  {"No"},
		"estimatedsalary": {"50000"},
	}

	t.Run("verdict", func(t *testing.T) {
		mux := newTestHandlers(t, 1, nil)
		req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Prediction: The customer is likely to Leave.")
		assert.Contains(t, w.Body.String(), "<option selected>Spain</option>")
	})

	t.Run("bad number", func(t *testing.T) {
		mux := newTestHandlers(t, 1, nil)
		bad := url.Values{}
		for k, v := range form {
			bad[k] = v
		}
		bad.Set("age", "forty")
		req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(bad.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Error: validation failed: age: must be a number")
	})
}

func TestRecentPredictions(t *testing.T) {
	store := &memoryStore{}
	mux := newTestHandlers(t, 0, store)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, postJSON(mux, validBody).Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/predictions?limit=2", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, decodeBody(t, w)["count"])

	req = httptest.NewRequest(http.MethodGet, "/api/predictions?limit=abc", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecentPredictionsWithoutStore(t *testing.T) {
	mux := newTestHandlers(t, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/predictions", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&pipeline.ValidationError{}))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&ml.UnknownCategoryError{Column: ml.ColGeography, Value: "Italy"}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(&ml.DegenerateColumnError{Column: ml.ColAge}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(ml.ErrInvalidLabel))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
}
