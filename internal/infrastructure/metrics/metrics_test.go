package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCollector_ObserveCall(t *testing.T) {
	c := NewCollector("")

	c.ObserveCall("crm.deal.list", "ok", 20*time.Millisecond)
	c.ObserveCall("crm.deal.list", "ok", 30*time.Millisecond)
	c.ObserveCall("profile", "api_error", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.upstreamCallsTotal.WithLabelValues("crm.deal.list", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.upstreamCallsTotal.WithLabelValues("profile", "api_error")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.upstreamCallDuration))
}

func TestCollector_Middleware(t *testing.T) {
	c := NewCollector("test")
	r := gin.New()
	r.Use(c.Middleware())
	r.POST("/api/call", func(ctx *gin.Context) {
		ctx.Status(http.StatusBadGateway)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/call", nil))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("POST", "/api/call", "502")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("")
	c.ObserveCall("user.get", "ok", time.Millisecond)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `b24_proxy_upstream_calls_total{method="user.get",outcome="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
