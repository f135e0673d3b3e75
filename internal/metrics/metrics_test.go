package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	if m.registry == nil {
		t.Error("Registry is nil")
	}

	if m.SignedURLRequestsTotal == nil {
		t.Error("SignedURLRequestsTotal is nil")
	}
	if m.AgentProvisionsTotal == nil {
		t.Error("AgentProvisionsTotal is nil")
	}
	if m.ProviderRequestDuration == nil {
		t.Error("ProviderRequestDuration is nil")
	}
	if m.StoreSearchesTotal == nil {
		t.Error("StoreSearchesTotal is nil")
	}
	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
}

func TestCounters(t *testing.T) {
	m := NewMetrics()

	m.SignedURLRequestsTotal.WithLabelValues("success").Inc()
	m.SignedURLRequestsTotal.WithLabelValues("success").Inc()
	m.SignedURLRequestsTotal.WithLabelValues("error").Inc()
	m.ProcurementRequestsTotal.Inc()

	if got := testutil.ToFloat64(m.SignedURLRequestsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("success count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SignedURLRequestsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ProcurementRequestsTotal); got != 1 {
		t.Errorf("procurement count = %v, want 1", got)
	}
}

func TestObserveProvider(t *testing.T) {
	m := NewMetrics()
	m.ObserveProvider("get_signed_url", time.Now().Add(-50*time.Millisecond))

	if n := testutil.CollectAndCount(m.ProviderRequestDuration); n != 1 {
		t.Errorf("histogram series = %d, want 1", n)
	}

	// nil receiver is a no-op
	var nilMetrics *Metrics
	nilMetrics.ObserveProvider("get_signed_url", time.Now())
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.AgentProvisionsTotal.WithLabelValues("success").Inc()

	handler := m.Handler()
	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	if !strings.Contains(body, "agent_provisions_total") {
		t.Error("Response does not contain agent_provisions_total")
	}
}

func TestRegistry(t *testing.T) {
	m := NewMetrics()
	if m.Registry() == nil {
		t.Error("Registry() returned nil")
	}
}
