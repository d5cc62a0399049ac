// Package metrics 定义了服务暴露给 Prometheus 的指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal 按路由和状态码统计请求数。
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boardai",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration 统计请求耗时。流式响应的耗时包含整个流。
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "boardai",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// AnalysesTotal 统计完成的多顾问分析次数。
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boardai",
		Name:      "analyses_total",
		Help:      "Total number of advisor analyses by outcome.",
	}, []string{"outcome"})

	// ActiveStreams 是当前正在进行的分析流数量。
	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "boardai",
		Name:      "active_streams",
		Help:      "Number of advisor analyses currently streaming.",
	})

	// AdvisorErrorsTotal 统计顾问生成失败次数，kind 为 builtin 或 custom。
	AdvisorErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boardai",
		Name:      "advisor_errors_total",
		Help:      "Total number of advisor completion failures.",
	}, []string{"kind"})

	// RateLimitedTotal 统计被限流拒绝的请求数。
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "boardai",
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the per-organization rate limit.",
	})
)
