package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/studyhall/shell/internal/api/middleware"
	"github.com/studyhall/shell/internal/navigation"
)

func withLocation(req *http.Request, path string) *http.Request {
	loc, _ := navigation.DefaultTable().Resolve(path)
	return req.WithContext(middleware.WithLocation(context.Background(), loc))
}

func TestShellHandler(t *testing.T) {
	handler := ShellHandler()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   []string
	}{
		{
			name:       "GET known route",
			method:     http.MethodGet,
			path:       "/pdf-list",
			wantStatus: http.StatusOK,
			wantBody:   []string{`data-route="PdfList"`, `data-view="PdfListView"`, "<title>PdfList"},
		},
		{
			name:       "GET route with param",
			method:     http.MethodGet,
			path:       "/solve-pdf/42",
			wantStatus: http.StatusOK,
			wantBody:   []string{`name="documentId" value="42"`},
		},
		{
			name:       "GET unknown path",
			method:     http.MethodGet,
			path:       "/nowhere",
			wantStatus: http.StatusNotFound,
			wantBody:   []string{"No page lives at <code>/nowhere</code>"},
		},
		{
			name:       "HEAD known route",
			method:     http.MethodHead,
			path:       "/login",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withLocation(httptest.NewRequest(tt.method, tt.path, nil), tt.path)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
				t.Errorf("Content-Type = %q, want text/html", ct)
			}
			if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
				t.Errorf("Cache-Control = %q, want no-store", cc)
			}
			body := rec.Body.String()
			if tt.method == http.MethodHead && body != "" {
				t.Errorf("HEAD response has a body")
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q", want)
				}
			}
		})
	}
}

func TestShellHandlerEscapesPath(t *testing.T) {
	req := withLocation(httptest.NewRequest(http.MethodGet, "/%3Cscript%3E", nil), "/<script>")
	rec := httptest.NewRecorder()

	ShellHandler().ServeHTTP(rec, req)

	if strings.Contains(rec.Body.String(), "<script>") {
		t.Fatal("path must be HTML-escaped")
	}
}

func TestStaticHandlersMethods(t *testing.T) {
	handlers := map[string]http.Handler{
		"shell":  ShellHandler(),
		"robots": RobotsTxtHandler(),
	}
	for name, handler := range handlers {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("%s %s: status = %d, want 405", name, method, rec.Code)
			}
			if allow := rec.Header().Get("Allow"); allow != "GET, HEAD" {
				t.Errorf("%s %s: Allow = %q", name, method, allow)
			}
		}
	}
}

func TestRobotsTxtHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/robots.txt", nil)
	rec := httptest.NewRecorder()

	RobotsTxtHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Disallow: /api/") {
		t.Errorf("robots.txt missing api rule: %s", rec.Body.String())
	}
}
