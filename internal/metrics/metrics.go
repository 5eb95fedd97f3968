// Package metrics 提供代理与对象缓存的 Prometheus 观测指标。
//
// *Metrics 的所有方法均可安全地在 nil 接收者上调用；单元测试不关心指标时
// 直接传 nil 即可。每次进程启动构建独立的 prometheus.Registry，
// 诊断接口只暴露本进程注册的指标。
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics 汇总缓存命中/淘汰与代理请求结果的指标描述符。
type Metrics struct {
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheInsertions prometheus.Counter
	cacheEvictions  prometheus.Counter
	cacheRejected   prometheus.Counter
	cacheBytes      prometheus.Gauge
	cacheEntries    prometheus.Gauge
	proxyRequests   *prometheus.CounterVec
}

// New 创建 Metrics 并将所有描述符注册到 reg。
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relayhub_cache_hits_total",
			Help: "Total number of object cache lookups that returned a stored value.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relayhub_cache_misses_total",
			Help: "Total number of object cache lookups that found nothing.",
		}),
		cacheInsertions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relayhub_cache_insertions_total",
			Help: "Total number of objects inserted into the cache.",
		}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relayhub_cache_evictions_total",
			Help: "Total number of objects evicted to reclaim space.",
		}),
		cacheRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relayhub_cache_rejected_total",
			Help: "Total number of insert attempts rejected for exceeding the per-object limit.",
		}),
		cacheBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relayhub_cache_bytes",
			Help: "Current total payload bytes held by the object cache.",
		}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relayhub_cache_entries",
			Help: "Current number of objects held by the cache.",
		}),
		proxyRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relayhub_proxy_requests_total",
				Help: "Total number of proxied requests by outcome.",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(
		m.cacheHits,
		m.cacheMisses,
		m.cacheInsertions,
		m.cacheEvictions,
		m.cacheRejected,
		m.cacheBytes,
		m.cacheEntries,
		m.proxyRequests,
	)
	return m
}

// ObserveLookup 记录一次缓存查找结果。
func (m *Metrics) ObserveLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

// ObserveInsertion 记录一次成功写入。
func (m *Metrics) ObserveInsertion() {
	if m == nil {
		return
	}
	m.cacheInsertions.Inc()
}

// ObserveEviction 记录 n 个条目被淘汰。
func (m *Metrics) ObserveEviction(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cacheEvictions.Add(float64(n))
}

// ObserveRejection 记录一次超限拒绝。
func (m *Metrics) ObserveRejection() {
	if m == nil {
		return
	}
	m.cacheRejected.Inc()
}

// SetCacheUsage 更新缓存当前的字节与条目数。
func (m *Metrics) SetCacheUsage(totalBytes int64, entries int) {
	if m == nil {
		return
	}
	m.cacheBytes.Set(float64(totalBytes))
	m.cacheEntries.Set(float64(entries))
}

// ObserveProxyRequest 按结果（hit/miss/origin_error/rejected 等）累加请求数。
func (m *Metrics) ObserveProxyRequest(outcome string) {
	if m == nil {
		return
	}
	m.proxyRequests.WithLabelValues(outcome).Inc()
}
