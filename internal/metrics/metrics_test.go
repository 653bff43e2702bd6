package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounters(t *testing.T) {
	r := New()
	r.RecordRun("modelo", "ok")
	r.RecordRun("modelo", "ok")
	r.RecordCache("series", true)
	r.RecordCache("series", false)
	r.RecordUpstream("yahoo", errors.New("boom"))
	r.SetLastPrice("BZ=F", 81.25)

	if got := testutil.ToFloat64(r.pipelineRuns.WithLabelValues("modelo", "ok")); got != 2 {
		t.Fatalf("expected 2 runs, got %v", got)
	}
	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues("series", "miss")); got != 1 {
		t.Fatalf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(r.upstream.WithLabelValues("yahoo", "error")); got != 1 {
		t.Fatalf("expected 1 upstream error, got %v", got)
	}
	if got := testutil.ToFloat64(r.lastPrice.WithLabelValues("BZ=F")); got != 81.25 {
		t.Fatalf("expected last price 81.25, got %v", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.RecordRun("x", "ok")
	r.ObserveStep("train", time.Second)
	r.RecordCache("model", true)
	r.SetReliability("x", 90)
	if r.Registry() != nil {
		t.Fatalf("expected nil registry")
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := New()
	router := gin.New()
	router.Use(r.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", gin.WrapH(r.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := testutil.ToFloat64(r.httpRequests.WithLabelValues("/ping", "GET", "200")); got != 1 {
		t.Fatalf("expected 1 request recorded, got %v", got)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "crude_outlook_http_requests_total") {
		t.Fatalf("expected exposition to include request counter")
	}
}
