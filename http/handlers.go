package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"churnpredict/db"
	"churnpredict/ml"
	"churnpredict/pipeline"
)

// PredictionService 预测服务, *ml.Predictor 与 *ml.Reloader 均满足
type PredictionService interface {
	Predict(ctx context.Context, raw pipeline.RawCustomer) (ml.Prediction, error)
}

// loadTimer 可报告模型加载时间的预测服务, 如 *ml.Reloader
type loadTimer interface {
	LoadedAt() time.Time
}

// AuditStore 预测审计存储
type AuditStore interface {
	SavePrediction(ctx context.Context, entry db.PredictionLog) (string, error)
	RecentPredictions(ctx context.Context, limit int) ([]db.PredictionLog, error)
}

// Deps 处理器依赖, Store 与 Metrics 可为空
type Deps struct {
	Predictor PredictionService
	Store     AuditStore
	Metrics   http.Handler
	Logger    *zap.Logger
}

// Handlers 路由处理器集合
type Handlers struct {
	predictor PredictionService
	store     AuditStore
	metrics   http.Handler
	logger    *zap.Logger
	started   time.Time
}

// PredictResponse 预测接口响应
type PredictResponse struct {
	ID         string   `json:"id"`
	Label      ml.Label `json:"label"`
	Verdict    string   `json:"verdict"`
	Confidence float64  `json:"confidence"`
}

// NewHandlers 创建处理器
func NewHandlers(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		predictor: deps.Predictor,
		store:     deps.Store,
		metrics:   deps.Metrics,
		logger:    logger,
		started:   time.Now(),
	}
}

// Register 注册所有路由
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.HandleFunc("POST /predict", h.handleFormPredict)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/predictions", h.handleRecent)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	}
	if lt, ok := h.predictor.(loadTimer); ok {
		status["artifacts_loaded_at"] = lt.LoadedAt().UTC().Format(time.RFC3339)
	}
	respondJSON(w, http.StatusOK, status)
}

// handlePredict JSON 预测接口
func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	var raw pipeline.RawCustomer
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Error: request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
			return
		}
		respondError(w, http.StatusBadRequest, "Error: invalid JSON body: "+err.Error())
		return
	}

	id, pred, err := h.predict(r.Context(), raw)
	if err != nil {
		respondError(w, statusFor(err), ml.DescribeError(err))
		return
	}

	respondJSON(w, http.StatusOK, PredictResponse{
		ID:         id,
		Label:      pred.Label,
		Verdict:    pred.Verdict,
		Confidence: pred.Confidence,
	})
}

// handleFormPredict 表单提交, 在页面上显示结论或错误
func (h *Handlers) handleFormPredict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		renderPage(w, status, pageData{Message: "Error: " + err.Error(), Failed: true})
		return
	}
	data := pageData{Values: r.PostForm}

	raw, err := pipeline.ParseForm(r.PostForm)
	if err != nil {
		data.Message, data.Failed = ml.DescribeError(err), true
		renderPage(w, statusFor(err), data)
		return
	}

	_, pred, err := h.predict(r.Context(), raw)
	if err != nil {
		data.Message, data.Failed = ml.DescribeError(err), true
		renderPage(w, statusFor(err), data)
		return
	}
	data.Message = pred.Verdict
	renderPage(w, http.StatusOK, data)
}

func (h *Handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusOK, pageData{})
}

func (h *Handlers) handleRecent(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "Error: prediction audit is disabled")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 || l > 1000 {
			respondError(w, http.StatusBadRequest, "Error: limit must be between 1 and 1000")
			return
		}
		limit = l
	}

	entries, err := h.store.RecentPredictions(r.Context(), limit)
	if err != nil {
		h.logger.Error("load recent predictions", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error: could not load predictions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":  entries,
		"count": len(entries),
	})
}

// predict 执行预测并写入审计记录, 审计失败不影响预测结果
func (h *Handlers) predict(ctx context.Context, raw pipeline.RawCustomer) (string, ml.Prediction, error) {
	if h.predictor == nil {
		return "", ml.Prediction{}, errors.New("predictor not initialized")
	}
	id := uuid.NewString()
	pred, err := h.predictor.Predict(ctx, raw)

	if h.store != nil {
		h.audit(ctx, id, raw, pred, err)
	}
	return id, pred, err
}

func (h *Handlers) audit(ctx context.Context, id string, raw pipeline.RawCustomer, pred ml.Prediction, predErr error) {
	record, err := json.Marshal(raw)
	if err != nil {
		h.logger.Warn("encode audit record", zap.Error(err))
		return
	}
	entry := db.PredictionLog{
		ID:        id,
		RequestID: GetRequestID(ctx),
		Record:    record,
	}
	if predErr != nil {
		entry.ErrorKind = ml.ErrorKind(predErr)
		entry.Error = predErr.Error()
	} else {
		label := int(pred.Label)
		entry.Label = &label
		entry.Verdict = pred.Verdict
		entry.Confidence = pred.Confidence
		entry.Cached = pred.Cached
	}
	// 请求上下文可能已超时, 审计写入使用独立的短超时
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if _, err := h.store.SavePrediction(writeCtx, entry); err != nil {
		h.logger.Warn("save prediction audit", zap.String("id", id), zap.Error(err))
	}
}

// statusFor 将预测错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch ml.ErrorKind(err) {
	case "validation", "unknown_category":
		return http.StatusUnprocessableEntity
	case "canceled":
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
