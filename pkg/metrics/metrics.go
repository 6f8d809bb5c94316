package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uvwatch_cache_lookups_total",
			Help: "Session cache lookups by outcome",
		},
		[]string{"result"},
	)

	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uvwatch_pipeline_runs_total",
			Help: "Exposure pipeline executions by fetch path",
		},
		[]string{"path"},
	)

	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uvwatch_provider_calls_total",
			Help: "Upstream provider calls by provider and status",
		},
		[]string{"provider", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uvwatch_provider_latency_seconds",
			Help:    "Upstream provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	AdviceGenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uvwatch_advice_generation_total",
			Help: "Language model advice generation attempts by status",
		},
		[]string{"status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uvwatch_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
)
