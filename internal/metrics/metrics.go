package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000}

var (
	// 出站：按端点（json/batch）统计
	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipapi_upstream_requests_total",
		Help: "Total ip-api.com requests by endpoint",
	}, []string{"endpoint"})
	UpstreamSuccessTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipapi_upstream_success_total",
		Help: "Total ip-api.com requests decoded successfully",
	}, []string{"endpoint"})
	UpstreamFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipapi_upstream_fail_total",
		Help: "Total ip-api.com requests failed by reason (transport, decode)",
	}, []string{"endpoint", "reason"})
	UpstreamDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ipapi_upstream_duration_ms",
		Help:    "ip-api.com round trip duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"endpoint"})
	// 服务端返回 status=fail 的结果数（正常解码，不计入失败）
	LookupFailStatusTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipapi_lookup_fail_status_total",
		Help: "Total decoded results carrying status=fail",
	})
	// 来自 X-Rl / X-Ttl 响应头
	QuotaRemaining = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ipapi_quota_remaining",
		Help: "Requests remaining in the current ip-api.com window (X-Rl)",
	})
	QuotaResetSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ipapi_quota_reset_seconds",
		Help: "Seconds until the ip-api.com window resets (X-Ttl)",
	})

	// 代理服务入站
	ProxyRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipapi_proxy_requests_total",
		Help: "Total proxy API requests by route",
	}, []string{"route"})
	ProxyDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ipapi_proxy_duration_ms",
		Help:    "Proxy API request duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"route"})
	ProxyRateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipapi_proxy_rate_limited_total",
		Help: "Total proxy requests rejected by the token bucket",
	})
	RedisErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipapi_redis_errors_total",
		Help: "Total redis errors while recording usage",
	})
)

func init() {
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamSuccessTotal)
	prometheus.MustRegister(UpstreamFailTotal)
	prometheus.MustRegister(UpstreamDurationMs)
	prometheus.MustRegister(LookupFailStatusTotal)
	prometheus.MustRegister(QuotaRemaining)
	prometheus.MustRegister(QuotaResetSeconds)
	prometheus.MustRegister(ProxyRequestsTotal)
	prometheus.MustRegister(ProxyDurationMs)
	prometheus.MustRegister(ProxyRateLimitedTotal)
	prometheus.MustRegister(RedisErrorsTotal)
}

// Handler：Prometheus 抓取入口，由代理服务挂载到 {API_BASE}/metrics
func Handler() http.Handler { return promhttp.Handler() }
