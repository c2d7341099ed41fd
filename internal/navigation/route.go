package navigation

import (
	"fmt"
	"net/url"
	"strings"
)

// Meta carries the authorization flags of a route.
type Meta struct {
	RequiresAuth  bool `yaml:"requiresAuth" json:"requiresAuth,omitempty"`
	RequiresAdmin bool `yaml:"requiresAdmin" json:"requiresAdmin,omitempty"`
	RequiresUser  bool `yaml:"requiresUser" json:"requiresUser,omitempty"`
}

// Route describes one entry of the route table. Path uses ":name" for a
// required segment parameter and a trailing ":name?" for an optional one.
// View names the lazily loaded client view; the shell never renders it.
type Route struct {
	Path string `yaml:"path" json:"path" validate:"required,startswith=/"`
	Name string `yaml:"name" json:"name" validate:"required,alphanum"`
	View string `yaml:"view" json:"view" validate:"required"`
	Meta Meta   `yaml:"meta,omitempty" json:"meta"`

	segments []segment
}

// Location is a resolved navigation target.
type Location struct {
	Path   string            `json:"path"`
	Name   string            `json:"name,omitempty"`
	View   string            `json:"view,omitempty"`
	Params map[string]string `json:"params,omitempty"`
	Meta   Meta              `json:"meta"`
}

// Matched reports whether the location was resolved against a route.
func (l Location) Matched() bool {
	return l.Name != ""
}

type segment struct {
	literal  string
	param    string
	optional bool
}

func compilePath(path string) ([]segment, error) {
	parts := splitPath(path)
	segments := make([]segment, 0, len(parts))
	for i, part := range parts {
		if !strings.HasPrefix(part, ":") {
			if part == "" {
				return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidRoute, path)
			}
			segments = append(segments, segment{literal: part})
			continue
		}

		name := strings.TrimPrefix(part, ":")
		optional := strings.HasSuffix(name, "?")
		name = strings.TrimSuffix(name, "?")
		if name == "" {
			return nil, fmt.Errorf("%w: unnamed parameter in %q", ErrInvalidRoute, path)
		}
		if optional && i != len(parts)-1 {
			return nil, fmt.Errorf("%w: optional parameter %q must be the last segment of %q", ErrInvalidRoute, name, path)
		}
		segments = append(segments, segment{param: name, optional: optional})
	}
	return segments, nil
}

// match expects already decoded segments, as found in URL.Path.
func (r Route) match(parts []string) (map[string]string, bool) {
	if len(parts) > len(r.segments) {
		return nil, false
	}

	var params map[string]string
	for i, seg := range r.segments {
		if i >= len(parts) {
			return params, seg.optional && i == len(parts)
		}
		if seg.param == "" {
			if parts[i] != seg.literal {
				return nil, false
			}
			continue
		}
		if parts[i] == "" {
			return nil, false
		}
		if params == nil {
			params = make(map[string]string)
		}
		params[seg.param] = parts[i]
	}
	return params, true
}

func (r Route) build(params map[string]string) (string, error) {
	if len(r.segments) == 0 {
		return "/", nil
	}

	var b strings.Builder
	for _, seg := range r.segments {
		value := seg.literal
		if seg.param != "" {
			value = params[seg.param]
			if value == "" {
				if seg.optional {
					break
				}
				return "", fmt.Errorf("route %s: missing parameter %q", r.Name, seg.param)
			}
			value = url.PathEscape(value)
		}
		b.WriteString("/")
		b.WriteString(value)
	}
	return b.String(), nil
}

// CleanPath drops a trailing slash so "/profile/" and "/profile" resolve
// to the same route. The root path is returned unchanged.
func CleanPath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}

func splitPath(path string) []string {
	path = CleanPath(path)
	if path == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}
