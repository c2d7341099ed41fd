package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/studyhall/shell/internal/config"
	"github.com/studyhall/shell/internal/credential"
	"github.com/studyhall/shell/internal/navigation"
)

type routesOptions struct {
	root       *rootOptions
	routesFile string
	jsonOutput bool
}

func newRoutesCommand(root *rootOptions) *cobra.Command {
	opts := &routesOptions{root: root}

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the route table",
		Long: `Load the route table (built-in, ROUTES_FILE, or --routes FILE), validate it
against the configured login and landing routes, and print it.

Examples:
  # Show the built-in table
  server routes

  # Validate a route file and print it as JSON
  server routes --routes ./routes.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, table, err := opts.load()
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSONOutput(cmd.OutOrStdout(), table.Routes())
			}
			return printRouteTable(cmd.OutOrStdout(), table)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.routesFile, "routes", "", "route table YAML file (default: ROUTES_FILE or built-in table)")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of a table")

	cmd.AddCommand(newRoutesCheckCommand(opts))
	return cmd
}

func (o *routesOptions) load() (config.Config, *navigation.Table, error) {
	cfg, err := loadConfig(o.root)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config error: %w", err)
	}
	if o.routesFile != "" {
		cfg.Routes.File = o.routesFile
	}

	reloader, err := navigation.NewReloader(cfg.Routes.File, routeTargets(cfg), nil, zerolog.Nop())
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load route table: %w", err)
	}
	return cfg, reloader.Table(), nil
}

func routeTargets(cfg config.Config) navigation.Targets {
	return navigation.Targets{
		Login:        cfg.Routes.LoginRoute,
		AdminLanding: cfg.Routes.AdminLanding,
		UserLanding:  cfg.Routes.UserLanding,
	}
}

func printRouteTable(out io.Writer, table *navigation.Table) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPATH\tVIEW\tMETA")
	for _, route := range table.Routes() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", route.Name, route.Path, route.View, describeMeta(route.Meta))
	}
	return tw.Flush()
}

func describeMeta(meta navigation.Meta) string {
	var flags []string
	if meta.RequiresAuth {
		flags = append(flags, "auth")
	}
	if meta.RequiresAdmin {
		flags = append(flags, "admin")
	}
	if meta.RequiresUser {
		flags = append(flags, "user")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

// checkResult is the outcome of a dry-run navigation.
type checkResult struct {
	Path         string              `json:"path"`
	Route        navigation.Location `json:"route"`
	Matched      bool                `json:"matched"`
	Decision     string              `json:"decision"`
	Reason       string              `json:"reason,omitempty"`
	Purged       bool                `json:"purged"`
	RedirectName string              `json:"redirect_name,omitempty"`
	RedirectPath string              `json:"redirect_path,omitempty"`
}

func newRoutesCheckCommand(parent *routesOptions) *cobra.Command {
	var (
		path  string
		token string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Dry-run the navigation guard for a path",
		Long: `Resolve a path against the route table and run the navigation guard with an
in-memory credential store holding --token (none when omitted).

Examples:
  # Where does an anonymous visitor end up?
  server routes check --path /announcements

  # And a signed-in admin visiting a user-only page?
  server routes check --path /ai-problem-generator --token "$(server token --admin)"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, table, err := parent.load()
			if err != nil {
				return err
			}

			store := credential.NewMemoryStore()
			if token != "" {
				store.Set(credential.AccessTokenKey, token)
			}

			guard := navigation.NewGuard(claimsDecoder(cfg.Auth), navigation.WithTargets(routeTargets(cfg)))
			result, err := checkNavigation(cmd.Context(), guard, table, store, path)
			if err != nil {
				return err
			}

			if parent.jsonOutput {
				return writeJSONOutput(cmd.OutOrStdout(), result)
			}
			printCheckResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "path to navigate to (required)")
	cmd.Flags().StringVar(&token, "token", "", "access token held by the visitor")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func checkNavigation(ctx context.Context, guard *navigation.Guard, table *navigation.Table, store credential.Store, path string) (checkResult, error) {
	to, matched := table.Resolve(path)

	var decision navigation.Decision
	guard.BeforeEach(ctx, store, to, navigation.Location{}, func(d navigation.Decision) {
		decision = d
	})

	result := checkResult{
		Path:     to.Path,
		Route:    to,
		Matched:  matched,
		Decision: "proceed",
		Reason:   decision.Reason,
		Purged:   decision.Purged,
	}
	if !decision.Proceed() {
		target, err := table.PathFor(decision.Redirect, nil)
		if err != nil {
			return checkResult{}, fmt.Errorf("redirect target: %w", err)
		}
		result.Decision = "redirect"
		result.RedirectName = decision.Redirect
		result.RedirectPath = target
	}
	return result, nil
}

func printCheckResult(out io.Writer, r checkResult) {
	route := "(no matching route)"
	if r.Matched {
		route = fmt.Sprintf("%s (view %s)", r.Route.Name, r.Route.View)
	}
	fmt.Fprintf(out, "Path:     %s\n", r.Path)
	fmt.Fprintf(out, "Route:    %s\n", route)
	if r.Decision == "redirect" {
		fmt.Fprintf(out, "Decision: redirect to %s (%s)\n", r.RedirectName, r.RedirectPath)
		fmt.Fprintf(out, "Reason:   %s\n", r.Reason)
	} else {
		fmt.Fprintf(out, "Decision: proceed\n")
	}
	if r.Purged {
		fmt.Fprintf(out, "Credential purged: stored token could not be decoded\n")
	}
}

func writeJSONOutput(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
