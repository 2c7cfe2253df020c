package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/corekit/internal/core"
)

// Collector exports runtime counters as Prometheus metrics. The runtime
// keeps its own atomic counters; the collector reads a stats snapshot on
// every scrape.
type Collector struct {
	rt *core.Runtime

	eventsPublished   *prometheus.Desc
	eventsDelivered   *prometheus.Desc
	handlerPanics     *prometheus.Desc
	busSubscribers    *prometheus.Desc
	stateWrites       *prometheus.Desc
	stateNotifies     *prometheus.Desc
	stateSubscribers  *prometheus.Desc
	telemetryRecorded *prometheus.Desc
	telemetryEvicted  *prometheus.Desc
	telemetryRetained *prometheus.Desc
}

// NewCollector creates a collector over rt.
func NewCollector(rt *core.Runtime) *Collector {
	return &Collector{
		rt: rt,
		eventsPublished: prometheus.NewDesc(
			"corekit_events_published_total",
			"Total number of bus publishes", nil, nil),
		eventsDelivered: prometheus.NewDesc(
			"corekit_events_delivered_total",
			"Total number of successful handler invocations", nil, nil),
		handlerPanics: prometheus.NewDesc(
			"corekit_handler_panics_total",
			"Handler and subscriber invocations that panicked", nil, nil),
		busSubscribers: prometheus.NewDesc(
			"corekit_bus_subscribers",
			"Currently registered bus handlers", nil, nil),
		stateWrites: prometheus.NewDesc(
			"corekit_state_writes_total",
			"Total number of state writes", nil, nil),
		stateNotifies: prometheus.NewDesc(
			"corekit_state_notifications_total",
			"Total number of state subscriber notifications", nil, nil),
		stateSubscribers: prometheus.NewDesc(
			"corekit_state_subscribers",
			"Currently registered state subscribers", nil, nil),
		telemetryRecorded: prometheus.NewDesc(
			"corekit_telemetry_recorded_total",
			"Total number of telemetry records", nil, nil),
		telemetryEvicted: prometheus.NewDesc(
			"corekit_telemetry_evictions_total",
			"Telemetry records evicted at capacity", nil, nil),
		telemetryRetained: prometheus.NewDesc(
			"corekit_telemetry_retained",
			"Telemetry records currently retained", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.eventsPublished
	ch <- c.eventsDelivered
	ch <- c.handlerPanics
	ch <- c.busSubscribers
	ch <- c.stateWrites
	ch <- c.stateNotifies
	ch <- c.stateSubscribers
	ch <- c.telemetryRecorded
	ch <- c.telemetryEvicted
	ch <- c.telemetryRetained
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.rt.Stats()

	ch <- prometheus.MustNewConstMetric(c.eventsPublished,
		prometheus.CounterValue, float64(stats.Bus.Published))
	ch <- prometheus.MustNewConstMetric(c.eventsDelivered,
		prometheus.CounterValue, float64(stats.Bus.Delivered))
	ch <- prometheus.MustNewConstMetric(c.handlerPanics,
		prometheus.CounterValue, float64(stats.Bus.Panics+stats.Store.Panics))
	ch <- prometheus.MustNewConstMetric(c.busSubscribers,
		prometheus.GaugeValue, float64(stats.Bus.Subscribers))
	ch <- prometheus.MustNewConstMetric(c.stateWrites,
		prometheus.CounterValue, float64(stats.Store.Writes))
	ch <- prometheus.MustNewConstMetric(c.stateNotifies,
		prometheus.CounterValue, float64(stats.Store.Notifications))
	ch <- prometheus.MustNewConstMetric(c.stateSubscribers,
		prometheus.GaugeValue, float64(stats.Store.Subscribers))
	ch <- prometheus.MustNewConstMetric(c.telemetryRecorded,
		prometheus.CounterValue, float64(stats.Telemetry.Recorded))
	ch <- prometheus.MustNewConstMetric(c.telemetryEvicted,
		prometheus.CounterValue, float64(stats.Telemetry.Evictions))
	ch <- prometheus.MustNewConstMetric(c.telemetryRetained,
		prometheus.GaugeValue, float64(stats.Telemetry.Length))
}
