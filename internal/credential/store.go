// Package credential holds the persisted access token the navigation guard
// reads on every navigation. A Store is the server-side view of the
// browser's local key/value storage: cookie-backed for HTTP requests and
// memory-backed for the CLI and tests.
package credential

import (
	"net/http"
	"strings"
	"sync"
)

// AccessTokenKey is the storage key of the bearer token.
const AccessTokenKey = "access_token"

// Store is a synchronous key/value credential storage. Empty values are
// reported as absent.
type Store interface {
	Get(key string) (string, bool)
	Remove(key string)
}

type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok && value != ""
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// CookieStore maps storage keys onto request cookies. Keys are translated
// through names, so the access token key can live under a configured cookie
// name. Removal expires the cookie on the response and hides it from later
// reads of the same request.
type CookieStore struct {
	r       *http.Request
	w       http.ResponseWriter
	names   map[string]string
	secure  bool
	removed map[string]bool
}

// NewCookieStore wraps the request cookies. Expiring cookies carry the
// Secure attribute when secure is set or the request arrived over TLS;
// pass true in production, where TLS usually terminates at a proxy.
func NewCookieStore(w http.ResponseWriter, r *http.Request, names map[string]string, secure bool) *CookieStore {
	return &CookieStore{r: r, w: w, names: names, secure: secure, removed: make(map[string]bool)}
}

func (s *CookieStore) cookieName(key string) string {
	if name, ok := s.names[key]; ok && name != "" {
		return name
	}
	return key
}

func (s *CookieStore) Get(key string) (string, bool) {
	if s.r == nil || s.removed[key] {
		return "", false
	}
	cookie, err := s.r.Cookie(s.cookieName(key))
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", false
	}
	return cookie.Value, true
}

func (s *CookieStore) Remove(key string) {
	s.removed[key] = true
	if s.w == nil {
		return
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.cookieName(key),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.secure || (s.r != nil && s.r.TLS != nil),
		SameSite: http.SameSiteLaxMode,
	})
}
