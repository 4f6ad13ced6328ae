package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/svgsprite/internal/config"
	"github.com/conneroisu/svgsprite/internal/errors"
	"github.com/conneroisu/svgsprite/internal/icon"
	"github.com/conneroisu/svgsprite/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSprite = `<svg xmlns="http://www.w3.org/2000/svg"><symbol id="HOME"/></svg>`

type metricsStub struct{ m *pipeline.BuildMetrics }

func (s metricsStub) GetMetrics() pipeline.BuildMetrics { return s.m.GetSnapshot() }

func successResult(t *testing.T, withSprite bool, paths ...string) pipeline.BuildResult {
	t.Helper()
	records := make([]icon.Record, 0, len(paths))
	for _, p := range paths {
		records = append(records, icon.NewRecord(p, []byte(`<svg/>`)))
	}
	set, err := icon.NewSet(records)
	require.NoError(t, err)

	result := pipeline.BuildResult{Icons: set.Len(), Set: set}
	if withSprite {
		result.Artifacts = []pipeline.Artifact{{
			Name: pipeline.ArtifactSprite,
			Path: "/out/sprite.svg",
			Data: []byte(testSprite),
		}}
	}
	return result
}

func newTestServer(t *testing.T, metrics MetricsSource) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(config.ServeConfig{Host: "127.0.0.1"}, metrics, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		ts.Close()
	})
	return srv, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func dialReload(t *testing.T, srv *Server, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+ReloadPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })

	require.Eventually(t, func() bool { return srv.Hub().ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestCatalogBeforeFirstBuild(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, body := get(t, ts.URL+CatalogPath)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "waiting for the first build")
	assert.Contains(t, body, `location.host+"/ws"`)
}

func TestUpdateServesCatalogAndSprite(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.Update(successResult(t, true, "home.svg", "user/profile.svg"))

	resp, body := get(t, ts.URL+CatalogPath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, `<tr id="HOME">`)
	assert.Contains(t, body, `<tr id="USER_PROFILE">`)
	assert.Contains(t, body, `location.host+"/ws"`)

	resp, body = get(t, ts.URL+SpritePath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Equal(t, testSprite, body)
}

func TestSecurityHeaders(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.Update(successResult(t, true, "home.svg"))

	for _, path := range []string{CatalogPath, SpritePath, HealthPath} {
		resp, _ := get(t, ts.URL+path)
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"), path)
		assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"), path)
		assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "img-src 'self' data:", path)
	}
}

func TestSpriteNotFoundWithoutArtifact(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.Update(successResult(t, false, "home.svg"))

	resp, _ := get(t, ts.URL+SpritePath)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownPath(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, _ := get(t, ts.URL+"/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFailedBuildIsReportedUntilNextSuccess(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.Update(successResult(t, true, "home.svg"))

	srv.Update(pipeline.BuildResult{Error: errors.NewCollectionError("/icons", os.ErrNotExist)})

	resp, body := get(t, ts.URL+CatalogPath)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "Build failed")
	assert.Contains(t, body, "/icons")

	resp, body = get(t, ts.URL+SpritePath)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "last good sprite stays available")
	assert.Equal(t, testSprite, body)

	srv.Update(successResult(t, true, "home.svg"))
	resp, _ = get(t, ts.URL+CatalogPath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBuildStatus(t *testing.T) {
	metrics := pipeline.NewBuildMetrics()
	metrics.RecordBuild(pipeline.BuildResult{Icons: 2, Duration: 20 * time.Millisecond})
	metrics.RecordBuild(pipeline.BuildResult{Error: os.ErrNotExist, Duration: 10 * time.Millisecond})

	srv, ts := newTestServer(t, metricsStub{metrics})

	_, body := get(t, ts.URL+BuildStatusPath)
	var status BuildStatus
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, "pending", status.Status)
	assert.Equal(t, int64(2), status.TotalBuilds)
	assert.Equal(t, int64(1), status.SuccessfulBuilds)
	assert.Equal(t, int64(1), status.FailedBuilds)
	assert.Equal(t, 2, status.Icons)
	assert.InDelta(t, 50.0, status.SuccessRate, 0.001)
	assert.Equal(t, "15ms", status.AverageDuration)

	srv.Update(pipeline.BuildResult{Error: os.ErrPermission})
	_, body = get(t, ts.URL+BuildStatusPath)
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, "error", status.Status)
	assert.Equal(t, os.ErrPermission.Error(), status.LastError)

	srv.Update(successResult(t, true, "home.svg"))
	_, body = get(t, ts.URL+BuildStatusPath)
	status = BuildStatus{}
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Empty(t, status.LastError)
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, body := get(t, ts.URL+HealthPath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, `"status":"healthy"`)
}

func TestUpdateBroadcastsReload(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	conn := dialReload(t, srv, ts)

	srv.Update(successResult(t, true, "home.svg"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)
	assert.Equal(t, ReloadMessage, string(data))
}

func TestFailedUpdateAlsoBroadcastsReload(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	conn := dialReload(t, srv, ts)

	srv.Update(pipeline.BuildResult{Error: os.ErrNotExist})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReloadMessage, string(data))
}

func TestShutdownClosesReloadClients(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	conn := dialReload(t, srv, ts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.Zero(t, srv.Hub().ClientCount())

	_, _, err := conn.Read(ctx)
	assert.Error(t, err)
}

func TestServeOnFreePort(t *testing.T) {
	srv := New(config.ServeConfig{Host: "127.0.0.1", Port: 0}, nil, nil)
	addr, err := srv.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	resp, _ := get(t, "http://"+addr.String()+HealthPath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
