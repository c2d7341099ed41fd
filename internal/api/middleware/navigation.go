package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/studyhall/shell/internal/api/problem"
	"github.com/studyhall/shell/internal/credential"
	"github.com/studyhall/shell/internal/navigation"
)

type locationKey struct{}

// WithLocation stores the resolved navigation target in ctx.
func WithLocation(ctx context.Context, loc navigation.Location) context.Context {
	return context.WithValue(ctx, locationKey{}, loc)
}

// LocationFromContext returns the target resolved by NavigationGuard.
func LocationFromContext(ctx context.Context) (navigation.Location, bool) {
	loc, ok := ctx.Value(locationKey{}).(navigation.Location)
	return loc, ok
}

// CookieNames maps credential storage keys to the configured cookie names.
func CookieNames(accessTokenCookie string) map[string]string {
	return map[string]string{credential.AccessTokenKey: accessTokenCookie}
}

// NavigationGuard runs the route guard before every shell page. A redirect
// decision is answered with 302 Found to the target route; a purged
// credential expires its cookie on the same response. Proceeding requests
// reach next with the resolved location in their context.
func NavigationGuard(guard *navigation.Guard, routes navigation.TableSource, cookieName string, env string) func(http.Handler) http.Handler {
	names := CookieNames(cookieName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			table := routes.Table()
			to, _ := table.Resolve(r.URL.Path)
			from := refererLocation(table, r)
			store := credential.NewCookieStore(w, r, names, env == "production")

			guard.BeforeEach(r.Context(), store, to, from, func(d navigation.Decision) {
				if d.Proceed() {
					next.ServeHTTP(w, r.WithContext(WithLocation(r.Context(), to)))
					return
				}

				target, err := table.PathFor(d.Redirect, nil)
				if err != nil {
					problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Redirect target unavailable",
						fmt.Errorf("guard redirect to %s: %w", d.Redirect, err), env)
					return
				}
				LoggerFromContext(r.Context()).Debug().
					Str("from", r.URL.Path).
					Str("to", target).
					Str("reason", d.Reason).
					Msg("navigation redirected")
				http.Redirect(w, r, target, http.StatusFound)
			})
		})
	}
}

// refererLocation resolves the same-origin Referer as the navigation source.
func refererLocation(table *navigation.Table, r *http.Request) navigation.Location {
	ref := r.Referer()
	if ref == "" {
		return navigation.Location{}
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return navigation.Location{}
	}
	loc, _ := table.Resolve(u.Path)
	return loc
}
