package handlers

import (
	"net/http"

	"github.com/studyhall/shell/internal/navigation"
)

type routeView struct {
	Name string          `json:"name"`
	Path string          `json:"path"`
	View string          `json:"view"`
	Meta navigation.Meta `json:"meta"`
}

type routeListResponse struct {
	Routes []routeView `json:"routes"`
	Count  int         `json:"count"`
}

// RoutesHandler exposes the route table currently in effect.
type RoutesHandler struct {
	routes navigation.TableSource
}

func NewRoutesHandler(routes navigation.TableSource) *RoutesHandler {
	return &RoutesHandler{routes: routes}
}

func (h *RoutesHandler) List(w http.ResponseWriter, r *http.Request) {
	routes := h.routes.Table().Routes()
	items := make([]routeView, 0, len(routes))
	for _, route := range routes {
		items = append(items, routeView{Name: route.Name, Path: route.Path, View: route.View, Meta: route.Meta})
	}
	writeJSON(w, http.StatusOK, routeListResponse{Routes: items, Count: len(items)})
}
