package navigation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/studyhall/shell/internal/auth"
	"github.com/studyhall/shell/internal/credential"
	"github.com/studyhall/shell/internal/eventbus"
	"github.com/studyhall/shell/internal/metrics"
)

const tracerName = "github.com/studyhall/shell/internal/navigation"

// Decision reasons.
const (
	ReasonMalformedCredential = "malformed_credential"
	ReasonAuthenticatedRoot   = "authenticated_root"
	ReasonAuthRequired        = "auth_required"
	ReasonAdminRequired       = "admin_required"
	ReasonUserOnly            = "user_only"
)

// ClaimsDecoder turns a stored credential into claims.
// auth.UnverifiedDecoder and *auth.JWTManager both satisfy it.
type ClaimsDecoder interface {
	Decode(token string) (*auth.Claims, error)
}

// Targets names the routes the guard redirects to.
type Targets struct {
	Login        string
	AdminLanding string
	UserLanding  string
}

func DefaultTargets() Targets {
	return Targets{
		Login:        "Login",
		AdminLanding: "AdminPanel",
		UserLanding:  "UserDashboard",
	}
}

func (t Targets) names() []string {
	return []string{t.Login, t.AdminLanding, t.UserLanding}
}

// Validate checks that the targets exist in table, can be reached without
// params, and that none of them would itself be redirected away for the
// role that lands on it.
func (t Targets) Validate(table *Table) error {
	if err := table.Require(t.names()...); err != nil {
		return err
	}
	for _, name := range t.names() {
		if _, err := table.PathFor(name, nil); err != nil {
			return fmt.Errorf("%w: redirect target %s: %v", ErrInvalidRoute, name, err)
		}
	}
	login, _ := table.Lookup(t.Login)
	if login.Meta.RequiresAuth || login.Meta.RequiresAdmin || login.Meta.RequiresUser {
		return fmt.Errorf("%w: login route %s must not require authorization", ErrInvalidRoute, t.Login)
	}
	if admin, _ := table.Lookup(t.AdminLanding); admin.Meta.RequiresUser {
		return fmt.Errorf("%w: admin landing %s is user-only", ErrInvalidRoute, t.AdminLanding)
	}
	if user, _ := table.Lookup(t.UserLanding); user.Meta.RequiresAdmin {
		return fmt.Errorf("%w: user landing %s is admin-only", ErrInvalidRoute, t.UserLanding)
	}
	return nil
}

// Decision is the outcome of one guard evaluation. An empty Redirect means
// the navigation proceeds as requested.
type Decision struct {
	Redirect string `json:"redirect,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Purged   bool   `json:"purged,omitempty"`
}

func (d Decision) Proceed() bool {
	return d.Redirect == ""
}

func (d Decision) String() string {
	if d.Proceed() {
		return "proceed"
	}
	return "redirect:" + d.Redirect
}

// NextFunc receives the guard decision. BeforeEach calls it exactly once.
type NextFunc func(Decision)

type Guard struct {
	decoder ClaimsDecoder
	targets Targets
	bus     *eventbus.Bus
	logger  zerolog.Logger
	tracer  trace.Tracer
}

type Option func(*Guard)

func WithTargets(targets Targets) Option {
	return func(g *Guard) { g.targets = targets }
}

func WithBus(bus *eventbus.Bus) Option {
	return func(g *Guard) { g.bus = bus }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

func NewGuard(decoder ClaimsDecoder, opts ...Option) *Guard {
	if decoder == nil {
		decoder = auth.UnverifiedDecoder{}
	}
	g := &Guard{
		decoder: decoder,
		targets: DefaultTargets(),
		logger:  zerolog.Nop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) Targets() Targets {
	return g.targets
}

// BeforeEach is the router hook: it evaluates the navigation from -> to and
// hands the decision to next.
func (g *Guard) BeforeEach(ctx context.Context, store credential.Store, to, from Location, next NextFunc) {
	next(g.evaluate(ctx, store, to, from))
}

// Evaluate decides a navigation to the given location. A stored credential
// that cannot be decoded is removed from store.
func (g *Guard) Evaluate(ctx context.Context, store credential.Store, to Location) Decision {
	return g.evaluate(ctx, store, to, Location{})
}

func (g *Guard) evaluate(ctx context.Context, store credential.Store, to, from Location) Decision {
	ctx, span := g.tracer.Start(ctx, "navigation.guard",
		trace.WithAttributes(
			attribute.String("navigation.to", to.Path),
			attribute.String("navigation.route", to.Name),
		),
	)
	defer span.End()

	decision, claims := g.decide(store, to)

	span.SetAttributes(
		attribute.String("navigation.decision", decision.String()),
		attribute.String("navigation.reason", decision.Reason),
	)
	ev := NavigationEvent{To: to, From: from, Decision: decision}
	if claims != nil {
		ev.Subject = claims.Subject
		ev.Role = claims.Role()
	}
	g.record(ctx, ev)
	return decision
}

// decide applies the guard rules in precedence order. The returned claims
// are nil for an anonymous or purged credential.
func (g *Guard) decide(store credential.Store, to Location) (Decision, *auth.Claims) {
	token, authenticated := store.Get(credential.AccessTokenKey)

	var claims *auth.Claims
	if authenticated {
		var err error
		claims, err = g.decoder.Decode(token)
		if err != nil {
			store.Remove(credential.AccessTokenKey)
			g.logger.Warn().
				Err(err).
				Str("path", to.Path).
				Msg("stored credential could not be decoded; purged")
			return Decision{Redirect: g.targets.Login, Reason: ReasonMalformedCredential, Purged: true}, nil
		}
	}
	isAdmin := claims.Role() == auth.RoleAdmin

	switch {
	case to.Path == "/" && authenticated:
		if isAdmin {
			return Decision{Redirect: g.targets.AdminLanding, Reason: ReasonAuthenticatedRoot}, claims
		}
		return Decision{Redirect: g.targets.UserLanding, Reason: ReasonAuthenticatedRoot}, claims
	case to.Meta.RequiresAuth && !authenticated:
		return Decision{Redirect: g.targets.Login, Reason: ReasonAuthRequired}, claims
	case to.Meta.RequiresAdmin && !isAdmin:
		return Decision{Redirect: g.targets.UserLanding, Reason: ReasonAdminRequired}, claims
	case to.Meta.RequiresUser && isAdmin:
		return Decision{Redirect: g.targets.AdminLanding, Reason: ReasonUserOnly}, claims
	default:
		return Decision{}, claims
	}
}

func (g *Guard) record(ctx context.Context, ev NavigationEvent) {
	d := ev.Decision
	if d.Proceed() {
		metrics.GuardDecisionsTotal.WithLabelValues("proceed", "").Inc()
	} else {
		metrics.GuardDecisionsTotal.WithLabelValues("redirect", d.Redirect).Inc()
	}
	if d.Purged {
		metrics.CredentialPurgesTotal.Inc()
	}

	g.logger.Debug().
		Str("to", ev.To.Path).
		Str("from", ev.From.Path).
		Str("route", ev.To.Name).
		Str("decision", d.String()).
		Str("reason", d.Reason).
		Msg("navigation guard")

	if g.bus == nil {
		return
	}
	if d.Purged {
		_ = g.bus.Emit(ctx, EventCredentialPurged, ev)
	}
	topic := EventNavigationAllowed
	if !d.Proceed() {
		topic = EventNavigationRedirected
	}
	_ = g.bus.Emit(ctx, topic, ev)
}
