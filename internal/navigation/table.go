package navigation

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidRoute = errors.New("invalid route")
	ErrUnknownRoute = errors.New("unknown route")
)

//go:embed routes.yaml
var defaultRoutesYAML []byte

type tableFile struct {
	Routes []Route `yaml:"routes" validate:"required,min=1,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		route := sl.Current().Interface().(Route)
		if route.Meta.RequiresAdmin && route.Meta.RequiresUser {
			sl.ReportError(route.Meta.RequiresUser, "requiresUser", "RequiresUser", "excluded_with_admin", "")
		}
	}, Route{})
	return v
}

// Table is an ordered, immutable route table. Resolution picks the first
// matching route in table order.
type Table struct {
	routes []Route
	byName map[string]int
}

// NewTable validates and compiles routes.
func NewTable(routes []Route) (*Table, error) {
	if err := validate.Struct(tableFile{Routes: routes}); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoute, describeValidation(err))
	}

	t := &Table{
		routes: make([]Route, len(routes)),
		byName: make(map[string]int, len(routes)),
	}
	for i, route := range routes {
		if _, dup := t.byName[route.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate route name %q", ErrInvalidRoute, route.Name)
		}
		segments, err := compilePath(route.Path)
		if err != nil {
			return nil, err
		}
		route.segments = segments
		t.routes[i] = route
		t.byName[route.Name] = i
	}
	return t, nil
}

// LoadTable decodes a YAML route table. Unknown fields are rejected.
func LoadTable(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file tableFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty route table", ErrInvalidRoute)
		}
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidRoute, err)
	}
	return NewTable(file.Routes)
}

// LoadTableFile reads a YAML route table from disk.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open route table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}

// DefaultTable returns the built-in route table of the learning platform.
func DefaultTable() *Table {
	t, err := LoadTable(bytes.NewReader(defaultRoutesYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded route table: %v", err))
	}
	return t
}

// Routes returns a copy of the routes in table order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

func (t *Table) Len() int {
	return len(t.routes)
}

func (t *Table) Lookup(name string) (Route, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Route{}, false
	}
	return t.routes[i], true
}

// PathFor builds the concrete path of a named route. Optional parameters
// missing from params are left out.
func (t *Table) PathFor(name string, params map[string]string) (string, error) {
	route, ok := t.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRoute, name)
	}
	return route.build(params)
}

// Resolve matches path against the table. An unmatched path yields a
// location with only Path set and no authorization flags.
func (t *Table) Resolve(path string) (Location, bool) {
	clean := CleanPath(path)
	parts := splitPath(clean)
	for _, route := range t.routes {
		params, ok := route.match(parts)
		if !ok {
			continue
		}
		return Location{
			Path:   clean,
			Name:   route.Name,
			View:   route.View,
			Params: params,
			Meta:   route.Meta,
		}, true
	}
	return Location{Path: clean}, false
}

// Require checks that every named route exists.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := t.byName[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRoute, strings.Join(missing, ", "))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
