package metrics_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/planview/internal/metrics"
	"github.com/mickamy/planview/internal/view"
	"github.com/mickamy/planview/test"
)

func TestCollectorObservesView(t *testing.T) {
	c := metrics.New()
	root, stats := test.LoadSample(t, "hash_join.txt")

	v, err := view.NewHost(c).Mount(&view.Container{ID: "m"}, view.Config{}, root, stats)
	require.NoError(t, err)
	require.NoError(t, v.Toggle(3))

	count, err := testutil.GatherAndCount(c.Registry(), "planview_relayouts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		if len(f.GetMetric()) == 1 && f.GetMetric()[0].GetCounter() != nil {
			values[f.GetName()] = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, values["planview_relayouts_total"])
	assert.Equal(t, 1.0, values["planview_visual_updates_total"])
}

func TestCollectorCounters(t *testing.T) {
	c := metrics.New()
	c.ParseFailure("upload")
	c.ParseFailure("upload")
	c.Event("collapse-text:click")
	c.SetViews(3)
	c.ObserveRequest("/views/{id}", http.StatusOK, 5*time.Millisecond)

	count, err := testutil.GatherAndCount(c.Registry(), "planview_parse_failures_total", "planview_events_total", "planview_mounted_views", "planview_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestEventNamesAreBounded(t *testing.T) {
	c := metrics.New()
	for i := range 100 {
		c.Event(fmt.Sprintf("junk-%d", i))
	}
	c.Event(view.RegionCollapseText + ":click")
	c.Event(view.RegionCollapseBack + ":click")
	c.Event(view.EventViewportChange)

	count, err := testutil.GatherAndCount(c.Registry(), "planview_events_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `planview_events_total{name="other"} 100`)
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := metrics.New()
	c.ParseFailure("watch")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `planview_parse_failures_total{source="watch"} 1`)
}
