package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loadshed_upstream_requests_total",
		Help: "Total EskomSePush requests by endpoint",
	}, []string{"endpoint"})
	UpstreamFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loadshed_upstream_fail_total",
		Help: "Total failed EskomSePush requests by endpoint and kind",
	}, []string{"endpoint", "kind"})
	UpstreamDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loadshed_upstream_duration_ms",
		Help:    "EskomSePush request duration in milliseconds",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000},
	}, []string{"endpoint"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loadshed_cache_hits_total",
		Help: "Cache hits by cache name",
	}, []string{"cache"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loadshed_cache_misses_total",
		Help: "Cache misses (absent or expired) by cache name",
	}, []string{"cache"})
	DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loadshed_merchant_decisions_total",
		Help: "Merchant decisions by outcome (closed, opened, failed)",
	}, []string{"outcome"})
	PassDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "loadshed_pass_duration_ms",
		Help:    "Polling pass duration in milliseconds",
		Buckets: []float64{100, 500, 1000, 5000, 10000, 30000, 60000, 120000},
	})
)

func init() {
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamFailTotal)
	prometheus.MustRegister(UpstreamDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(DecisionsTotal)
	prometheus.MustRegister(PassDurationMs)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：守护进程可选开启运维监听（METRICS_ADDR），供 Prometheus 抓取。
func Handler() http.Handler { return promhttp.Handler() }
