package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhall/shell/internal/eventbus"
	"github.com/studyhall/shell/internal/navigation"
	"github.com/studyhall/shell/internal/testauth"
)

type staticTable struct{ t *navigation.Table }

func (s staticTable) Table() *navigation.Table { return s.t }

func guarded(t *testing.T, bus *eventbus.Bus, reached *navigation.Location) http.Handler {
	t.Helper()
	guard := navigation.NewGuard(nil, navigation.WithBus(bus))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loc, ok := LocationFromContext(r.Context())
		require.True(t, ok)
		*reached = loc
		w.WriteHeader(http.StatusOK)
	})
	return NavigationGuard(guard, staticTable{navigation.DefaultTable()}, "sh_token", "test")(next)
}

func TestNavigationGuard(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		cookie       string
		wantStatus   int
		wantLocation string
		wantReached  string
		wantPurge    bool
	}{
		{name: "public", path: "/register", wantStatus: http.StatusOK, wantReached: "Register"},
		{name: "protected anonymous", path: "/announcements", wantStatus: http.StatusFound, wantLocation: "/login"},
		{name: "admin root", path: "/", cookie: testauth.AdminToken(), wantStatus: http.StatusFound, wantLocation: "/admin-panel"},
		{name: "user protected", path: "/ai-problem-generator", cookie: testauth.UserToken(), wantStatus: http.StatusOK, wantReached: "AIProblemGenerator"},
		{name: "malformed", path: "/pdf-list", cookie: "x.y", wantStatus: http.StatusFound, wantLocation: "/login", wantPurge: true},
		{name: "unknown path proceeds unmatched", path: "/nowhere", wantStatus: http.StatusOK},
		{name: "escaped percent param is guarded", path: "/solve-pdf/100%25", wantStatus: http.StatusFound, wantLocation: "/login"},
		{name: "escaped percent param reaches route", path: "/solve-pdf/100%25", cookie: testauth.UserToken(), wantStatus: http.StatusOK, wantReached: "PdfProblemSolver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reached navigation.Location
			h := guarded(t, nil, &reached)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "sh_token", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			assert.Equal(t, tt.wantReached, reached.Name)

			setCookie := rec.Header().Get("Set-Cookie")
			if tt.wantPurge {
				assert.True(t, strings.HasPrefix(setCookie, "sh_token=;"), setCookie)
				assert.Contains(t, setCookie, "Max-Age=0")
			} else {
				assert.Empty(t, setCookie)
			}
		})
	}
}

func TestNavigationGuardIgnoresOtherCookieNames(t *testing.T) {
	var reached navigation.Location
	h := guarded(t, nil, &reached)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: testauth.UserToken()})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestNavigationGuardUsesRefererAsSource(t *testing.T) {
	bus := eventbus.New(zerolog.Nop())
	var from navigation.Location
	bus.Subscribe(navigation.EventNavigationAllowed, eventbus.ListenerFunc(func(_ context.Context, _ string, args ...any) error {
		from = args[0].(navigation.NavigationEvent).From
		return nil
	}))

	var reached navigation.Location
	h := guarded(t, bus, &reached)

	req := httptest.NewRequest(http.MethodGet, "http://shell.local/register", nil)
	req.Header.Set("Referer", "http://shell.local/login")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "Login", from.Name)

	req = httptest.NewRequest(http.MethodGet, "http://shell.local/register", nil)
	req.Header.Set("Referer", "https://elsewhere.example/login")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Empty(t, from.Name, "cross-origin referers are ignored")
}

func TestCorrelationAndRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := CorrelationID(logger)(RequestLogging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, GetRequestID(r.Context()))
		LoggerFromContext(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	requestID := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, requestID)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, `"request_id":"`+requestID+`"`)
	}
	assert.Contains(t, lines[1], `"status":418`)
	assert.Contains(t, lines[1], `"path":"/login"`)
}

func TestCorrelationKeepsIncomingID(t *testing.T) {
	h := CorrelationID(zerolog.Nop())(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "upstream-7", rec.Header().Get("X-Request-ID"))
}
