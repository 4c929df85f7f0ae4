package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService 业务指标收集
type MetricsService struct {
	registry        prometheus.Registerer
	gatherer        prometheus.Gatherer
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ingestedChunks  prometheus.Counter
}

// NewMetricsService 创建指标服务，注册器由调用方提供以便测试隔离
func NewMetricsService(reg prometheus.Registerer) *MetricsService {
	factory := promauto.With(reg)

	svc := &MetricsService{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rag_requests_total",
				Help: "Total RAG pipeline requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rag_request_duration_seconds",
				Help:    "RAG pipeline request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ingestedChunks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rag_ingested_chunks_total",
				Help: "Total chunks written to the vector store",
			},
		),
	}

	if gatherer, ok := reg.(prometheus.Gatherer); ok {
		svc.gatherer = gatherer
	}
	return svc
}

// ObserveRequest 记录一次请求的结果和耗时
func (m *MetricsService) ObserveRequest(operation, status string, started time.Time) {
	m.requestsTotal.WithLabelValues(operation, status).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// AddIngestedChunks 累加写入的块数
func (m *MetricsService) AddIngestedChunks(count int) {
	if count > 0 {
		m.ingestedChunks.Add(float64(count))
	}
}

// Handler 暴露/metrics的HTTP处理器
func (m *MetricsService) Handler() http.Handler {
	if m.gatherer != nil {
		return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}
