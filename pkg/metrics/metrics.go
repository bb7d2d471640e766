// Package metrics 提供 Prometheus 指标集合与 HTTP 暴露端点
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数（按路径与状态码）
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 价格解析请求计数（按是否命中实验）
	AssignmentsTotal *prometheus.CounterVec
	// 轮换执行计数（按租户）
	RotationsTotal *prometheus.CounterVec
	// 轮换失败计数（按租户）
	RotationFailuresTotal *prometheus.CounterVec
	// 单次价格同步调用耗时
	PriceUpdateDuration prometheus.Histogram
	// 当前启用轮换的租户数
	RotationTenantsActive prometheus.Gauge
}

// New 创建指标实例并注册到私有 registry
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricelab",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pricelab",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
		AssignmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricelab",
			Subsystem: serviceName,
			Name:      "assignments_total",
			Help:      "Total price resolutions, labelled by whether an experiment matched",
		}, []string{"in_experiment"}),
		RotationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricelab",
			Subsystem: serviceName,
			Name:      "rotations_total",
			Help:      "Total rotation attempts per tenant",
		}, []string{"tenant"}),
		RotationFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricelab",
			Subsystem: serviceName,
			Name:      "rotation_failures_total",
			Help:      "Total failed price updates during rotation per tenant",
		}, []string{"tenant"}),
		PriceUpdateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pricelab",
			Subsystem: serviceName,
			Name:      "price_update_duration_seconds",
			Help:      "Duration of a single platform price update call",
			Buckets:   prometheus.DefBuckets,
		}),
		RotationTenantsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pricelab",
			Subsystem: serviceName,
			Name:      "rotation_tenants_active",
			Help:      "Number of tenants with rotation enabled seen on the last tick",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AssignmentsTotal,
		m.RotationsTotal,
		m.RotationFailuresTotal,
		m.PriceUpdateDuration,
		m.RotationTenantsActive,
	)

	return m
}

// Handler 返回 Prometheus 指标的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
