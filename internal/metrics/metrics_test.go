package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMiddlewareUsesLabel(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	})

	wrapped := HTTPMiddleware(func(r *http.Request) string {
		return "/solve-pdf/:documentId?"
	})(handler)

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/solve-pdf/:documentId?", "302"))

	req := httptest.NewRequest(http.MethodGet, "/solve-pdf/42", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", rec.Code)
	}
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/solve-pdf/:documentId?", "302"))
	if after-before != 1 {
		t.Errorf("Expected counter to increase by 1, got %v", after-before)
	}
}

func TestHTTPMiddlewareDefaultLabel(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	wrapped := HTTPMiddleware(nil)(handler)
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "other", "200"))

	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/whatever", nil))

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "other", "200"))
	if after-before != 1 {
		t.Errorf("Expected unlabeled request to be counted under \"other\", got delta %v", after-before)
	}
	if testutil.ToFloat64(HTTPRequestsInFlight) != 0 {
		t.Error("in-flight gauge should return to zero")
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	GuardDecisionsTotal.WithLabelValues("redirect", "Login").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "studyhall_guard_decisions_total") {
		t.Error("metrics output should contain guard decisions counter")
	}
}
