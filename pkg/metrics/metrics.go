package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const namespace = "tinybank"

// Collector RPC 與帳戶指標
type Collector struct {
	registry    *prometheus.Registry
	rpcTotal    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	outcomes    *prometheus.CounterVec
	accounts    prometheus.GaugeFunc
}

// New 建立 Collector，accountCount 可為 nil
func New(accountCount func() int) *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: registry,
		rpcTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "requests_total",
			Help:      "Total number of gRPC requests handled.",
		}, []string{"method", "code"}),
		rpcDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "request_duration_seconds",
			Help:      "Duration of gRPC requests.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		}, []string{"method"}),
		outcomes: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by kind and error category.",
		}, []string{"operation", "category"}),
	}

	if accountCount != nil {
		c.accounts = promauto.With(registry).NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "accounts",
			Help:      "Number of accounts held by the store.",
		}, func() float64 { return float64(accountCount()) })
	}
	return c
}

// Registry 回傳 registry (測試用)
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveOperation 記錄一次帳務操作的結果分類
func (c *Collector) ObserveOperation(operation, category string) {
	c.outcomes.WithLabelValues(operation, category).Inc()
}

// UnaryServerInterceptor 記錄每個 RPC 的次數與耗時
func (c *Collector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		c.rpcDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		c.rpcTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}

// Handler /metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
