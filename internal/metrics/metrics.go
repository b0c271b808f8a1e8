// 包 metrics 定义 Prometheus 指标：入站请求与上游调用。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 持有独立 Registry，避免测试之间的全局注册冲突。
type Metrics struct {
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	upstream *prometheus.CounterVec
	upLat    prometheus.Histogram
	followed *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rssscn",
			Name:      "http_requests_total",
			Help:      "Inbound HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rssscn",
			Name:      "http_request_duration_seconds",
			Help:      "Inbound HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rssscn",
			Name:      "community_requests_total",
			Help:      "Calls to the community search API by outcome.",
		}, []string{"outcome"}),
		upLat: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rssscn",
			Name:      "community_request_duration_seconds",
			Help:      "Community search API latency.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20},
		}),
		followed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rssscn",
			Name:      "opml_followers_total",
			Help:      "Followers processed by the OPML exporter by result.",
		}, []string{"result"}),
	}
	m.reg.MustRegister(
		m.requests, m.duration, m.upstream, m.upLat, m.followed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest 记录一次入站请求。
func (m *Metrics) ObserveRequest(route string, code int, took time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route).Observe(took.Seconds())
}

// ObserveUpstream 满足 community.Observer 签名。
func (m *Metrics) ObserveUpstream(outcome string, took time.Duration) {
	m.upstream.WithLabelValues(outcome).Inc()
	m.upLat.Observe(took.Seconds())
}

// ObserveFollower 记录 OPML 导出中单个关注者的结果（resolved|skipped）。
func (m *Metrics) ObserveFollower(result string) {
	m.followed.WithLabelValues(result).Inc()
}

// Handler 返回 /metrics 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry 暴露底层 Registry，便于额外注册或直接 Gather。
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// WriteTextfile 以 node_exporter textfile 格式写出当前指标（opml 等一次性命令使用）。
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
