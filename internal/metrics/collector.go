// Package metrics exposes the monitor's observations as Prometheus metrics
package metrics

import (
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lagwatch"

// Collector owns a private registry with the monitor's metrics.
// All methods are no-ops on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	quorumHeight       prometheus.Gauge
	nodeHeight         prometheus.Gauge
	heightDiff         prometheus.Gauge
	alertLevel         prometheus.Gauge
	nodeReachable      prometheus.Gauge
	reachableEndpoints prometheus.Gauge
	fetchFailures      *prometheus.CounterVec
	cycles             *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	cycleDuration      prometheus.Histogram
}

// NewCollector creates and registers all metrics
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		quorumHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quorum_height",
			Help:      "Highest block height reported by the reference endpoints.",
		}),
		nodeHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "node_height",
			Help:      "Block height reported by the monitored node, NaN when the last cycle measured no gap.",
		}),
		heightDiff: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "height_diff",
			Help:      "Quorum height minus node height, NaN when the last cycle measured no gap.",
		}),
		alertLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_level",
			Help:      "Alert level of the last measured gap (0-5). Failed cycles leave it unchanged.",
		}),
		nodeReachable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "node_reachable",
			Help:      "1 if the monitored node answered in the last cycle that queried it, 0 otherwise.",
		}),
		reachableEndpoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reachable_endpoints",
			Help:      "Reference endpoints that answered in the last cycle.",
		}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_fetch_failures_total",
			Help:      "Failed status fetches per reference endpoint.",
		}, []string{"endpoint"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed check cycles by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification delivery attempts by channel and status.",
		}, []string{"channel", "status"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a check cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	c.registry.MustRegister(
		c.quorumHeight,
		c.nodeHeight,
		c.heightDiff,
		c.alertLevel,
		c.nodeReachable,
		c.reachableEndpoints,
		c.fetchFailures,
		c.cycles,
		c.notifications,
		c.cycleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// GetRegistry returns the Prometheus registry
func (c *Collector) GetRegistry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Timeout:           10 * time.Second,
	})
}

// ObserveQuorum records the reachable endpoint count and the quorum height
func (c *Collector) ObserveQuorum(reachable int, quorumHeight int64, ok bool) {
	if c == nil {
		return
	}
	c.reachableEndpoints.Set(float64(reachable))
	if ok {
		c.quorumHeight.Set(float64(quorumHeight))
	}
}

// ObserveGap records the node height, the diff and its level
func (c *Collector) ObserveGap(nodeHeight, diff int64, level int) {
	if c == nil {
		return
	}
	c.nodeReachable.Set(1)
	c.nodeHeight.Set(float64(nodeHeight))
	c.heightDiff.Set(float64(diff))
	c.alertLevel.Set(float64(level))
}

// ObserveNoGap clears the node height and diff after a cycle that could not
// measure them. nodeQueried reports whether the node was asked at all, in
// which case node_reachable drops to 0.
func (c *Collector) ObserveNoGap(nodeQueried bool) {
	if c == nil {
		return
	}
	if nodeQueried {
		c.nodeReachable.Set(0)
	}
	c.nodeHeight.Set(math.NaN())
	c.heightDiff.Set(math.NaN())
}

// ObserveFetchFailure counts a failed reference fetch
func (c *Collector) ObserveFetchFailure(endpoint string) {
	if c == nil {
		return
	}
	c.fetchFailures.WithLabelValues(endpoint).Inc()
}

// ObserveCycle counts a finished cycle
func (c *Collector) ObserveCycle(outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.cycles.WithLabelValues(outcome).Inc()
	c.cycleDuration.Observe(duration.Seconds())
}

// ObserveNotification counts a delivery attempt
func (c *Collector) ObserveNotification(channel, status string) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(channel, status).Inc()
}
