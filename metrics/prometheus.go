// Package metrics 封装基于 Prometheus 的指标注册表与模拟、优化相关的标准指标。
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 持有独立的 Prometheus 注册中心及预定义指标。
type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal     *prometheus.CounterVec   // 计算请求总量 (维度: operation, status)
	OperationDuration   *prometheus.HistogramVec // 计算耗时分布
	PathsSimulated      *prometheus.CounterVec   // 已生成的路径数 (维度: operation)
	OptimizerIterations prometheus.Histogram     // 优化器迭代次数分布
	HTTPRequestsTotal   *prometheus.CounterVec   // HTTP 请求总量 (维度: method, path, status)
	HTTPRequestDuration *prometheus.HistogramVec // HTTP 请求耗时分布
	BuildInfo           *prometheus.GaugeVec
}

// NewMetrics 初始化并返回一个新的指标采集器，自动注册 Go 运行时与进程指标。
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.OperationsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "quant_operations_total",
		Help: "Total number of pricing, risk and optimization operations",
	}, []string{"operation", "status"})

	m.OperationDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quant_operation_duration_seconds",
		Help:    "Operation latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"operation"})

	m.PathsSimulated = m.NewCounterVec(prometheus.CounterOpts{
		Name: "quant_paths_simulated_total",
		Help: "Number of simulated sample paths or terminal draws",
	}, []string{"operation"})

	m.OptimizerIterations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "quant_optimizer_iterations",
		Help:    "Iterations used by the portfolio optimizer refinement phase",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	reg.MustRegister(m.OptimizerIterations)

	m.HTTPRequestsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "http_server_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_server_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	slog.Info("unified metrics registry initialized", "service", serviceName)
	return m
}

// NewCounterVec 创建并注册一个新的计数器指标。
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGaugeVec 创建并注册一个新的仪表盘指标。
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogramVec 创建并注册一个新的直方图指标。
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// ObserveOperation 记录一次计算的结果状态与耗时，m 为 nil 时忽略。
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// AddPaths 累加生成的路径数。
func (m *Metrics) AddPaths(operation string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PathsSimulated.WithLabelValues(operation).Add(float64(n))
}

// ObserveIterations 记录优化器迭代次数。
func (m *Metrics) ObserveIterations(n int) {
	if m == nil {
		return
	}
	m.OptimizerIterations.Observe(float64(n))
}

// Registry 返回内部注册中心，供测试或自定义收集器使用。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回用于暴露指标的 HTTP 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
