package credential

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.Get(AccessTokenKey)
	assert.False(t, ok)

	store.Set(AccessTokenKey, "")
	_, ok = store.Get(AccessTokenKey)
	assert.False(t, ok, "empty value counts as absent")

	store.Set(AccessTokenKey, "a.b.c")
	value, ok := store.Get(AccessTokenKey)
	require.True(t, ok)
	assert.Equal(t, "a.b.c", value)

	store.Remove(AccessTokenKey)
	_, ok = store.Get(AccessTokenKey)
	assert.False(t, ok)

	store.Remove("never-set")
}

func TestCookieStoreGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(&http.Cookie{Name: "sh_token", Value: "a.b.c"})
	rec := httptest.NewRecorder()

	store := NewCookieStore(rec, req, map[string]string{AccessTokenKey: "sh_token"}, false)
	value, ok := store.Get(AccessTokenKey)
	require.True(t, ok)
	assert.Equal(t, "a.b.c", value)
}

func TestCookieStoreDefaultsToKeyName(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenKey, Value: "x.y.z"})

	store := NewCookieStore(httptest.NewRecorder(), req, nil, false)
	value, ok := store.Get(AccessTokenKey)
	require.True(t, ok)
	assert.Equal(t, "x.y.z", value)
}

func TestCookieStoreBlankCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenKey, Value: "   "})

	store := NewCookieStore(httptest.NewRecorder(), req, nil, false)
	_, ok := store.Get(AccessTokenKey)
	assert.False(t, ok)
}

func TestCookieStoreRemoveExpiresCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenKey, Value: "broken"})
	rec := httptest.NewRecorder()

	store := NewCookieStore(rec, req, nil, false)
	store.Remove(AccessTokenKey)

	_, ok := store.Get(AccessTokenKey)
	assert.False(t, ok, "removed value must not be visible within the request")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AccessTokenKey, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
	assert.Equal(t, "/", cookies[0].Path)
}

func TestCookieStoreRemoveSecure(t *testing.T) {
	tests := []struct {
		name   string
		secure bool
		tls    bool
		want   bool
	}{
		{name: "plain http", want: false},
		{name: "production behind proxy", secure: true, want: true},
		{name: "direct tls", tls: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			rec := httptest.NewRecorder()

			NewCookieStore(rec, req, nil, tt.secure).Remove(AccessTokenKey)

			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, tt.want, cookies[0].Secure)
		})
	}
}
