// Package monitoring 提供预测服务的 Prometheus 指标
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"churnpredict/ml"
)

// Metrics 预测指标收集器, 实现 ml.Observer
type Metrics struct {
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	errors      *prometheus.CounterVec
	latency     prometheus.Histogram
	reloads     prometheus.Counter
}

// NewMetrics 创建并注册指标
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "churn",
			Name:      "predictions_total",
			Help:      "Successful predictions by label.",
		}, []string{"label"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "churn",
			Name:      "prediction_errors_total",
			Help:      "Failed predictions by error kind.",
		}, []string{"kind"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "churn",
			Name:      "prediction_duration_seconds",
			Help:      "Time spent validating, transforming and classifying one record.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "churn",
			Name:      "artifact_reloads_total",
			Help:      "Successful artifact loads.",
		}),
	}
	m.registry.MustRegister(
		m.predictions,
		m.errors,
		m.latency,
		m.reloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePrediction 记录成功预测
func (m *Metrics) ObservePrediction(label ml.Label, elapsed time.Duration) {
	m.predictions.WithLabelValues(label.String()).Inc()
	m.latency.Observe(elapsed.Seconds())
}

// ObserveError 记录失败预测
func (m *Metrics) ObserveError(kind string) {
	m.errors.WithLabelValues(kind).Inc()
}

// ObserveReload 记录模型加载
func (m *Metrics) ObserveReload() {
	m.reloads.Inc()
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
