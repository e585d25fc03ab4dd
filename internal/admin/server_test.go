package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/health"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/proxy"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/reactor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/registry"
)

func init() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg := registry.New(proxy.NewFactory())
	t.Cleanup(func() { _ = reg.Clear(context.Background()) })

	apis := []*reactor.API{
		{
			Identifier: "products",
			Target:     "http://products:8080",
			VirtualHosts: []reactor.VirtualHost{
				{Path: "/products"},
				{Host: "api.example.com", Path: "/"},
			},
		},
		{
			Identifier: "db",
			Target:     "tcp://db:5432",
			TCPHosts:   []reactor.TCPHost{{Host: "db.example.com", ServerIDs: []string{"tls"}}},
		},
	}
	for _, api := range apis {
		require.NoError(t, reg.Create(context.Background(), api))
	}
	return reg
}

func get(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestServer_Acceptors(t *testing.T) {
	t.Parallel()

	h := NewServer("127.0.0.1:0", newTestRegistry(t)).Handler()

	var httpViews []AcceptorView
	require.Equal(t, http.StatusOK, get(t, h, "/acceptors/http", &httpViews))
	require.Len(t, httpViews, 2)
	assert.Equal(t, "api.example.com", httpViews[0].Host)
	assert.Equal(t, 1001, httpViews[0].Priority)
	assert.Equal(t, "/products/", httpViews[1].Path)
	assert.Equal(t, "products", httpViews[1].API)
	assert.Equal(t, acceptor.KindHTTP, httpViews[1].Kind)

	var tcpViews []AcceptorView
	require.Equal(t, http.StatusOK, get(t, h, "/acceptors/tcp", &tcpViews))
	require.Len(t, tcpViews, 1)
	assert.Equal(t, "db.example.com", tcpViews[0].Host)
	assert.Equal(t, []string{"tls"}, tcpViews[0].ServerIDs)
}

func TestServer_Deployments(t *testing.T) {
	t.Parallel()

	h := NewServer("127.0.0.1:0", newTestRegistry(t)).Handler()

	var views []DeploymentView
	require.Equal(t, http.StatusOK, get(t, h, "/apis", &views))
	require.Len(t, views, 2)
	assert.Equal(t, "db", views[0].ID)
	assert.Equal(t, "tcp://db:5432", views[0].Target)
	assert.Equal(t, "products", views[1].ID)
	assert.Len(t, views[1].Acceptors, 2)

	var one DeploymentView
	require.Equal(t, http.StatusOK, get(t, h, "/apis/products", &one))
	assert.Equal(t, "http://products:8080", one.Target)

	var notFound map[string]any
	require.Equal(t, http.StatusNotFound, get(t, h, "/apis/missing", &notFound))
	assert.Equal(t, "api not deployed", notFound["message"])
}

func TestServer_HealthAndReadiness(t *testing.T) {
	t.Parallel()

	checker := health.NewChecker("1.0.0")
	h := NewServer("127.0.0.1:0", newTestRegistry(t), WithChecker(checker)).Handler()

	var live health.HealthResponse
	require.Equal(t, http.StatusOK, get(t, h, "/health", &live))
	assert.Equal(t, "1.0.0", live.Version)

	var ready health.ReadinessResponse
	require.Equal(t, http.StatusOK, get(t, h, "/ready", &ready))
	assert.Equal(t, health.StatusHealthy, ready.Status)

	checker.SetDraining(true)
	require.Equal(t, http.StatusServiceUnavailable, get(t, h, "/ready", &ready))
	assert.Equal(t, health.StatusDraining, ready.Status)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics("test")
	metrics.SetDeployments(2)

	withMetrics := NewServer("127.0.0.1:0", newTestRegistry(t), WithMetrics(metrics)).Handler()
	rec := httptest.NewRecorder()
	withMetrics.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_registry_deployments 2")

	without := NewServer("127.0.0.1:0", newTestRegistry(t)).Handler()
	assert.Equal(t, http.StatusNotFound, get(t, without, "/metrics", nil))
}

func TestServer_StartStop(t *testing.T) {
	t.Parallel()

	srv := NewServer("127.0.0.1:0", newTestRegistry(t), WithLogger(observability.NopLogger()))
	require.NoError(t, srv.Stop(context.Background()))
	assert.Nil(t, srv.Addr())

	require.NoError(t, srv.Start(context.Background()))
	require.Error(t, srv.Start(context.Background()))

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + srv.Addr().String() + "/health")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop(context.Background()))
	assert.Nil(t, srv.Addr())
}
