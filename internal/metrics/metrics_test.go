package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRollupCountsByResult(t *testing.T) {
	r := New()
	r.ObserveRollup("neighborhood", nil, 5*time.Millisecond)
	r.ObserveRollup("neighborhood", nil, time.Millisecond)
	r.ObserveRollup("neighborhood", errors.New("boom"), time.Millisecond)

	if got := testutil.ToFloat64(r.rollupRuns.WithLabelValues("neighborhood", "ok")); got != 2 {
		t.Fatalf("ok runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.rollupRuns.WithLabelValues("neighborhood", "error")); got != 1 {
		t.Fatalf("error runs = %v, want 1", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveRollup("campaign", nil, time.Second)
	r.ObserveRequest("GET", "/api/health", 200)
	r.ObserveCapture("")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	r := New()
	r.ObserveRequest("GET", "/api/marketing/neighborhoods", 200)
	r.ObserveCapture("NEXTDOOR")

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`eagleeye_http_requests_total{method="GET",route="/api/marketing/neighborhoods",status="200"} 1`,
		`eagleeye_lead_captures_total{source="NEXTDOOR"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
