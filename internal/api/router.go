package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/studyhall/shell/internal/api/handlers"
	"github.com/studyhall/shell/internal/api/middleware"
	"github.com/studyhall/shell/internal/api/problem"
	"github.com/studyhall/shell/internal/config"
	"github.com/studyhall/shell/internal/eventbus"
	"github.com/studyhall/shell/internal/metrics"
	"github.com/studyhall/shell/internal/navigation"
	"github.com/studyhall/shell/web"
)

// Deps are the long-lived components the HTTP surface is built on.
type Deps struct {
	Routes    navigation.TableSource
	Guard     *navigation.Guard
	Bus       *eventbus.Bus
	Version   string
	GitCommit string
	BuildDate string
}

// Router is the root HTTP handler of the shell server.
type Router struct {
	handler http.Handler
	limiter *middleware.RateLimiter
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.handler.ServeHTTP(w, r)
}

// Close stops background work owned by the router.
func (rt *Router) Close() {
	rt.limiter.Stop()
}

func NewRouter(cfg config.Config, logger zerolog.Logger, deps Deps) *Router {
	guard := deps.Guard
	if guard == nil {
		guard = navigation.NewGuard(nil, navigation.WithBus(deps.Bus), navigation.WithLogger(logger))
	}

	health := handlers.NewHealthChecker(deps.Routes, deps.Bus, deps.Version, deps.GitCommit)
	routesHandler := handlers.NewRoutesHandler(deps.Routes)
	navHandler := handlers.NewNavigationHandler(guard, deps.Routes, cfg.Auth.CookieName, cfg.Environment)

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz(deps.Routes))
	mux.Handle("/health", health.Health())
	mux.Handle("/version", VersionHandler(NewBuildInfo(deps.Version, deps.GitCommit, deps.BuildDate)))
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/robots.txt", web.RobotsTxtHandler())

	mux.Handle("/api/v1/openapi.json", OpenAPIHandler())
	mux.Handle("/api/v1/routes", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(routesHandler.List),
	}))
	mux.Handle("/api/v1/navigate", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(navHandler.Navigate),
	}))
	mux.Handle("/api/", apiNotFound(cfg.Environment))

	shell := middleware.NavigationGuard(guard, deps.Routes, cfg.Auth.CookieName, cfg.Environment)(web.ShellHandler())
	mux.Handle("/", methodMux(map[string]http.Handler{
		http.MethodGet:  shell,
		http.MethodHead: shell,
	}))

	limiter := middleware.NewRateLimiter(cfg.RateLimit)

	var h http.Handler = mux
	h = limiter.Middleware(h)
	h = middleware.SecurityHeaders(cfg.Environment == "production")(h)
	h = metrics.HTTPMiddleware(routeLabel(deps.Routes))(h)
	h = middleware.RequestLogging(logger)(h)
	h = middleware.CorrelationID(logger)(h)
	h = middleware.Tracing(h)

	return &Router{handler: h, limiter: limiter}
}

var fixedPaths = map[string]bool{
	"/healthz":             true,
	"/readyz":              true,
	"/health":              true,
	"/version":             true,
	"/metrics":             true,
	"/robots.txt":          true,
	"/api/v1/openapi.json": true,
	"/api/v1/routes":       true,
	"/api/v1/navigate":     true,
}

// routeLabel keeps metric cardinality bounded: fixed endpoints by path,
// shell pages by route name.
func routeLabel(routes navigation.TableSource) metrics.RouteLabeler {
	return func(r *http.Request) string {
		if fixedPaths[r.URL.Path] {
			return r.URL.Path
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			return "api_unknown"
		}
		if loc, ok := routes.Table().Resolve(r.URL.Path); ok {
			return "route:" + loc.Name
		}
		return "unmatched"
	}
}

func apiNotFound(env string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, problem.TypeInternal, "Not found", nil, env,
			problem.WithDetail("no API endpoint at "+r.URL.Path))
	})
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		problem.Write(w, r, http.StatusMethodNotAllowed, problem.TypeMethodNotAllowed, "Method not allowed", nil, "",
			problem.WithDetail(r.Method+" is not supported on "+r.URL.Path))
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
