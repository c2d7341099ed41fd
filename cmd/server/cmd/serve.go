package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/studyhall/shell/internal/api"
	"github.com/studyhall/shell/internal/audit"
	"github.com/studyhall/shell/internal/auth"
	"github.com/studyhall/shell/internal/config"
	"github.com/studyhall/shell/internal/eventbus"
	"github.com/studyhall/shell/internal/metrics"
	"github.com/studyhall/shell/internal/navigation"
	"github.com/studyhall/shell/internal/telemetry"
)

// tokenIssuer is the issuer written into tokens minted by the token command.
const tokenIssuer = "studyhall-shell"

const shutdownTimeout = 10 * time.Second

// serveOptions override config/env values.
type serveOptions struct {
	host        string
	port        int
	routesFile  string
	watchRoutes bool
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the shell HTTP server",
		Long: `Start the shell HTTP server and begin guarding navigations.

The server will:
- Load configuration from environment variables
- Load the route table (built-in, or --routes FILE) and optionally watch it
- Serve guarded shell pages, the navigation API and operational endpoints
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Serve a custom route table and reload it on change
  server serve --routes ./routes.yaml --watch-routes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	cmd.Flags().StringVar(&opts.routesFile, "routes", "", "route table YAML file (default: built-in table)")
	cmd.Flags().BoolVar(&opts.watchRoutes, "watch-routes", false, "reload the route table when the file changes")

	return cmd
}

func (o *serveOptions) apply(cfg *config.Config) error {
	if o.host != "" {
		cfg.Server.Host = o.host
	}
	if o.port != 0 {
		cfg.Server.Port = o.port
	}
	if o.routesFile != "" {
		cfg.Routes.File = o.routesFile
	}
	if o.watchRoutes {
		cfg.Routes.Watch = true
	}
	return cfg.Validate()
}

func runServer(ctx context.Context, root *rootOptions, opts *serveOptions) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := opts.apply(&cfg); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting study shell server")

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	metrics.Init(Version, GitCommit, BuildDate)

	s, err := newShellServer(cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.run(ctx, ln)
}

// shellServer wires the long-lived components of one server process.
type shellServer struct {
	cfg    config.Config
	logger zerolog.Logger
	bus    *eventbus.Bus
	routes *navigation.Reloader
	router *api.Router
	server *http.Server
}

func newShellServer(cfg config.Config, logger zerolog.Logger) (*shellServer, error) {
	bus := eventbus.New(logger)
	audit.NewLogger(logger).Attach(bus)

	targets := navigation.Targets{
		Login:        cfg.Routes.LoginRoute,
		AdminLanding: cfg.Routes.AdminLanding,
		UserLanding:  cfg.Routes.UserLanding,
	}
	routes, err := navigation.NewReloader(cfg.Routes.File, targets, bus, logger)
	if err != nil {
		return nil, fmt.Errorf("load route table: %w", err)
	}

	if !cfg.Auth.VerifySignature {
		logger.Warn().Msg("access token signatures are not verified; set AUTH_VERIFY_SIGNATURE=true in production")
	}
	guard := navigation.NewGuard(claimsDecoder(cfg.Auth),
		navigation.WithTargets(targets),
		navigation.WithBus(bus),
		navigation.WithLogger(logger),
	)

	router := api.NewRouter(cfg, logger, api.Deps{
		Routes:    routes,
		Guard:     guard,
		Bus:       bus,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	})

	return &shellServer{
		cfg:    cfg,
		logger: logger,
		bus:    bus,
		routes: routes,
		router: router,
		server: &http.Server{
			Handler:           router,
			ReadTimeout:       10 * time.Second, // Total time to read request
			WriteTimeout:      30 * time.Second, // Total time to write response
			ReadHeaderTimeout: 5 * time.Second,  // Time to read headers
			MaxHeaderBytes:    1 << 20,          // 1 MB max header size
		},
	}, nil
}

func claimsDecoder(cfg config.AuthConfig) navigation.ClaimsDecoder {
	if cfg.VerifySignature {
		return auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry, tokenIssuer)
	}
	return auth.UnverifiedDecoder{}
}

// run serves on ln until ctx is cancelled or a component fails, then shuts
// the HTTP server down gracefully.
func (s *shellServer) run(ctx context.Context, ln net.Listener) error {
	defer s.router.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if s.cfg.Routes.Watch {
		g.Go(func() error {
			return s.routes.Watch(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	s.logger.Info().Msg("server stopped")
	return nil
}
