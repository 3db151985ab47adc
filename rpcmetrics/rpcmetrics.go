// Package rpcmetrics exposes the dispatcher's request volume, cache
// hit rate, handler failures, retransmits, and drops as Prometheus
// metrics via a custom Collector, the same Describe/Collect +
// prometheus.Desc/NewConstMetric shape used throughout the retrieved
// pack's Prometheus integrations.
package rpcmetrics

import "github.com/prometheus/client_golang/prometheus"

// Source supplies the live counters a Collector reports. dispatch.Dispatcher
// implements this directly over its own atomic counters.
type Source interface {
	RequestsTotal() uint64
	CacheHitsTotal() uint64
	HandlerErrorsTotal() uint64
	RetransmitsTotal() uint64
	DropsTotal() uint64
}

// Collector adapts a Source to prometheus.Collector.
type Collector struct {
	source Source

	requestsTotal      *prometheus.Desc
	cacheHitsTotal     *prometheus.Desc
	handlerErrorsTotal *prometheus.Desc
	retransmitsTotal   *prometheus.Desc
	dropsTotal         *prometheus.Desc
}

// NewCollector builds a Collector over source. constLabels are attached
// to every metric it emits (e.g. {"mode": "at-most-once"}).
func NewCollector(source Source, constLabels prometheus.Labels) *Collector {
	return &Collector{
		source: source,
		requestsTotal: prometheus.NewDesc(
			"rfs_requests_total", "Total requests seen by the dispatcher.", nil, constLabels),
		cacheHitsTotal: prometheus.NewDesc(
			"rfs_cache_hits_total", "Total requests answered from the duplicate-suppression cache.", nil, constLabels),
		handlerErrorsTotal: prometheus.NewDesc(
			"rfs_handler_errors_total", "Total handler invocations that returned or panicked with an error.", nil, constLabels),
		retransmitsTotal: prometheus.NewDesc(
			"rfs_retransmits_total", "Total datagrams retransmitted by a transmission protocol.", nil, constLabels),
		dropsTotal: prometheus.NewDesc(
			"rfs_drops_total", "Total datagrams dropped by fault injection.", nil, constLabels),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requestsTotal
	ch <- c.cacheHitsTotal
	ch <- c.handlerErrorsTotal
	ch <- c.retransmitsTotal
	ch <- c.dropsTotal
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.requestsTotal, prometheus.CounterValue, float64(c.source.RequestsTotal()))
	ch <- prometheus.MustNewConstMetric(c.cacheHitsTotal, prometheus.CounterValue, float64(c.source.CacheHitsTotal()))
	ch <- prometheus.MustNewConstMetric(c.handlerErrorsTotal, prometheus.CounterValue, float64(c.source.HandlerErrorsTotal()))
	ch <- prometheus.MustNewConstMetric(c.retransmitsTotal, prometheus.CounterValue, float64(c.source.RetransmitsTotal()))
	ch <- prometheus.MustNewConstMetric(c.dropsTotal, prometheus.CounterValue, float64(c.source.DropsTotal()))
}

// Register registers a Collector over source with the default
// Prometheus registry.
func Register(source Source, constLabels prometheus.Labels) error {
	return prometheus.Register(NewCollector(source, constLabels))
}
