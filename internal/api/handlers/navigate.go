package handlers

import (
	"fmt"
	"net/http"

	"github.com/studyhall/shell/internal/api/middleware"
	"github.com/studyhall/shell/internal/api/problem"
	"github.com/studyhall/shell/internal/credential"
	"github.com/studyhall/shell/internal/navigation"
)

type redirectTarget struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type navigateResponse struct {
	Decision string              `json:"decision"`
	Reason   string              `json:"reason,omitempty"`
	Purged   bool                `json:"purged,omitempty"`
	Redirect *redirectTarget     `json:"redirect,omitempty"`
	Route    navigation.Location `json:"route"`
}

// NavigationHandler lets a client ask the guard about a navigation before
// performing it. The answer is exactly what the shell page would do.
type NavigationHandler struct {
	guard      *navigation.Guard
	routes     navigation.TableSource
	cookieName string
	env        string
}

func NewNavigationHandler(guard *navigation.Guard, routes navigation.TableSource, cookieName, env string) *NavigationHandler {
	return &NavigationHandler{guard: guard, routes: routes, cookieName: cookieName, env: env}
}

// Navigate handles GET /api/v1/navigate?to=<path>&from=<path>.
func (h *NavigationHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	toPath := query.Get("to")
	if toPath == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeInvalidRequest, "Invalid request", nil, h.env,
			problem.WithDetail("query parameter \"to\" is required"),
			problem.WithErrors(map[string]any{"to": "required"}),
		)
		return
	}

	table := h.routes.Table()
	to, ok := table.Resolve(toPath)
	if !ok {
		problem.Write(w, r, http.StatusNotFound, problem.TypeUnknownRoute, "Unknown route",
			fmt.Errorf("%w: %s", navigation.ErrUnknownRoute, to.Path), h.env)
		return
	}
	var from navigation.Location
	if fromPath := query.Get("from"); fromPath != "" {
		from, _ = table.Resolve(fromPath)
	}

	store := credential.NewCookieStore(w, r, middleware.CookieNames(h.cookieName), h.env == "production")
	h.guard.BeforeEach(r.Context(), store, to, from, func(d navigation.Decision) {
		resp := navigateResponse{
			Decision: "proceed",
			Reason:   d.Reason,
			Purged:   d.Purged,
			Route:    to,
		}
		if !d.Proceed() {
			path, err := table.PathFor(d.Redirect, nil)
			if err != nil {
				problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Redirect target unavailable", err, h.env)
				return
			}
			resp.Decision = "redirect"
			resp.Redirect = &redirectTarget{Name: d.Redirect, Path: path}
		}
		writeJSON(w, http.StatusOK, resp)
	})
}
