package server_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/planview/internal/metrics"
	"github.com/mickamy/planview/internal/parser"
	"github.com/mickamy/planview/internal/server"
	"github.com/mickamy/planview/internal/view"
	"github.com/mickamy/planview/test"
)

func newServer(t *testing.T) (*server.Server, *httptest.Server) {
	t.Helper()
	return newServerWith(t, server.Config{})
}

func newServerWith(t *testing.T, cfg server.Config) (*server.Server, *httptest.Server) {
	t.Helper()
	cfg.Logger = zerolog.New(zerolog.NewTestWriter(t))
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	srv := server.New(cfg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func copySample(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(test.SamplePath(t, rel))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), rel)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func post(t *testing.T, url, reqBody string) (*http.Response, string) {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(reqBody))
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func TestPageAndEvents(t *testing.T) {
	srv, ts := newServer(t)
	id, err := srv.LoadFile(test.SamplePath(t, "hash_join.txt"))
	require.NoError(t, err)

	res, body := get(t, ts.URL+"/views/"+id)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "<script>")
	assert.Contains(t, body, `id="plan-graph"`)

	res, body = post(t, ts.URL+"/views/"+id+"/events", `{"name": "collapse-text:click", "node_id": 3}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/svg+xml", res.Header.Get("Content-Type"))
	assert.Contains(t, body, `data-id="3" data-collapsed="true"`)
	assert.NotContains(t, body, `data-id="4"`)

	res, body = post(t, ts.URL+"/views/"+id+"/events", `{"name": "viewportchange", "action": "zoom", "zoom": 0.2}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `data-level="0"`)
}

func TestEventErrors(t *testing.T) {
	srv, ts := newServer(t)
	id, err := srv.LoadFile(test.SamplePath(t, "hash_join.txt"))
	require.NoError(t, err)

	res, _ := post(t, ts.URL+"/views/"+id+"/events", `{"name": "collapse-text:click", "node_id": 42}`)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

	res, _ = post(t, ts.URL+"/views/"+id+"/events", `{"name": `)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = post(t, ts.URL+"/views/missing/events", `{"name": "x"}`)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestUnknownEventsShareOneSeries(t *testing.T) {
	m := metrics.New()
	srv, ts := newServerWith(t, server.Config{Metrics: m})
	id, err := srv.LoadFile(test.SamplePath(t, "hash_join.txt"))
	require.NoError(t, err)

	for i := range 50 {
		res, _ := post(t, ts.URL+"/views/"+id+"/events", fmt.Sprintf(`{"name": "junk-%d"}`, i))
		require.Equal(t, http.StatusOK, res.StatusCode)
	}
	count, err := testutil.GatherAndCount(m.Registry(), "planview_events_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	res, _ := get(t, ts.URL+"/no/such/route/1")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res, _ = get(t, ts.URL+"/no/such/route/2")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	_, body := get(t, ts.URL+"/metrics")
	assert.Contains(t, body, `route="unmatched"`)
	assert.NotContains(t, body, "/no/such/route")
}

func TestUploadTooLarge(t *testing.T) {
	srv, ts := newServerWith(t, server.Config{MaxPlanBytes: 64})

	plan, err := os.ReadFile(test.SamplePath(t, "hash_join.txt"))
	require.NoError(t, err)
	require.Greater(t, len(plan), 64)

	res, body := post(t, ts.URL+"/views", string(plan))
	assert.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode)
	assert.Contains(t, body, "plan exceeds 64 bytes")
	assert.Empty(t, srv.Views())
}

func TestUpload(t *testing.T) {
	srv, ts := newServer(t)

	res, body := post(t, ts.URL+"/views", `{"Plan": `)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "couldn't parse plan")

	res, body = post(t, ts.URL+"/views", `[{"Plan": {"Node Type": "Result", "Total Cost": 0.01}}]`)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var created map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.Equal(t, []string{created["id"]}, srv.Views())

	res, body = get(t, ts.URL+"/views/"+created["id"]+"/snapshot")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var snap view.Snapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snap))
	assert.Len(t, snap.Nodes, 1)

	res, body = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `planview_parse_failures_total{source="upload"} 1`)
	assert.Contains(t, body, "planview_mounted_views 1")
}

func TestIndexAndDelete(t *testing.T) {
	srv, ts := newServer(t)

	res, _ := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	id, err := srv.LoadFile(test.SamplePath(t, "analyze.json"))
	require.NoError(t, err)

	res, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "trg_audit")

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/views/"+id, nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)
	assert.Empty(t, srv.Views())

	res, _ = get(t, ts.URL+"/views/"+id+"/svg")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestReloadKeepsCollapseState(t *testing.T) {
	srv, ts := newServer(t)
	path := copySample(t, "hash_join.txt")
	id, err := srv.LoadFile(path)
	require.NoError(t, err)

	res, _ := post(t, ts.URL+"/views/"+id+"/events", `{"name": "collapse-back:click", "node_id": 3}`)
	require.Equal(t, http.StatusOK, res.StatusCode)

	data, err := os.ReadFile(test.SamplePath(t, "analyze.json"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	require.NoError(t, srv.Reload(path))

	_, body := get(t, ts.URL+"/views/"+id+"/snapshot")
	var snap view.Snapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snap))
	require.Len(t, snap.Nodes, 8)
	assert.True(t, snap.Nodes[2].Collapsed)
	assert.Equal(t, 5, snap.Nodes[2].Hidden)

	require.NoError(t, os.WriteFile(path, []byte("not a plan"), 0o644))
	require.Error(t, srv.Reload(path))
}

func TestLoadFileErrors(t *testing.T) {
	srv, _ := newServer(t)

	_, err := srv.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Execution Time": 1}`), 0o644))
	_, err = srv.LoadFile(path)
	require.ErrorIs(t, err, parser.ErrParse)
	assert.Empty(t, srv.Views())
}
