package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/api/query":                   "/api/query",
		"/api/checkout-session":        "/api/checkout-session",
		"/healthz":                     "/healthz",
		"/metrics":                     "/metrics",
		"/openapi.yaml":                "/openapi.yaml",
		"/":                            "/static",
		"/assets/app-1f2e3d.js":        "/static",
		"/some/deep/client/route/here": "/static",
	}
	for in, want := range tests {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMiddlewareRecordsStatusAndDomainCounters(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.RegisterPaidSessionsGauge(func() int { return 3 })

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query", nil))

	m.RecordQuery(http.StatusPaymentRequired)
	m.RecordQuery(http.StatusOK)
	m.RecordCheckoutSession(nil)
	m.RecordVerification(true, nil)
	m.RecordVerification(false, errors.New("boom"))
	m.RecordContractText(2048)
	m.RecordCompletion("gpt-4o-mini", 120, 30, 250*time.Millisecond)

	body := scrape(t, m)
	for _, want := range []string{
		`cqa_http_requests_total{method="POST",path="/api/query",service="api",status="402"} 1`,
		`cqa_query_requests_total{outcome="payment_required",service="api"} 1`,
		`cqa_query_requests_total{outcome="answered",service="api"} 1`,
		`cqa_checkout_sessions_created_total{result="ok",service="api"} 1`,
		`cqa_checkout_verifications_total{result="paid",service="api"} 1`,
		`cqa_checkout_verifications_total{result="error",service="api"} 1`,
		`cqa_llm_tokens_total{direction="in",model="gpt-4o-mini",service="api"} 120`,
		`cqa_llm_tokens_total{direction="out",model="gpt-4o-mini",service="api"} 30`,
		`cqa_checkout_paid_sessions{service="api"} 3`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q\n%s", want, body)
		}
	}
}

func scrape(t *testing.T, m *HTTPServerMetrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	raw, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(raw)
}
