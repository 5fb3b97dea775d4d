// Package metrics counts what the views and the server do, in Prometheus
// form.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mickamy/planview/internal/view"
)

const namespace = "planview"

// otherEvent labels every event name the view does not handle.
const otherEvent = "other"

var knownEvents = map[string]bool{
	view.RegionCollapseText + ":click": true,
	view.RegionCollapseBack + ":click": true,
	view.EventViewportChange:           true,
}

// Collector implements view.Observer and records request and parse
// outcomes. Every collector owns its registry so tests and servers never
// share counters.
type Collector struct {
	registry *prometheus.Registry

	relayouts     prometheus.Counter
	visualUpdates prometheus.Counter
	parseFailures *prometheus.CounterVec
	views         prometheus.Gauge
	events        *prometheus.CounterVec
	requests      *prometheus.HistogramVec
}

// New creates a collector with its own registry, including the Go runtime
// and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		relayouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayouts_total",
			Help:      "Number of tree relayouts.",
		}),
		visualUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visual_updates_total",
			Help:      "Number of single-node visual updates.",
		}),
		parseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Plans that could not be parsed, by source.",
		}, []string{"source"}),
		views: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mounted_views",
			Help:      "Number of currently mounted views.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "View events received, by name.",
		}, []string{"name"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}
	c.registry.MustRegister(
		c.relayouts,
		c.visualUpdates,
		c.parseFailures,
		c.views,
		c.events,
		c.requests,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Relayout() { c.relayouts.Inc() }

func (c *Collector) VisualUpdate(int) { c.visualUpdates.Inc() }

// ParseFailure counts a plan from source that failed to parse.
func (c *Collector) ParseFailure(source string) {
	c.parseFailures.WithLabelValues(source).Inc()
}

// SetViews records the number of mounted views.
func (c *Collector) SetViews(n int) { c.views.Set(float64(n)) }

// Event counts a received view event. Names the view does not handle are
// counted as "other".
func (c *Collector) Event(name string) {
	if !knownEvents[name] {
		name = otherEvent
	}
	c.events.WithLabelValues(name).Inc()
}

// ObserveRequest records the latency of a served request.
func (c *Collector) ObserveRequest(route string, code int, d time.Duration) {
	c.requests.WithLabelValues(route, strconv.Itoa(code)).Observe(d.Seconds())
}

// Registry exposes the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
