package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/studyhall/shell/internal/auth"
	"github.com/studyhall/shell/internal/testauth"
)

func newTokenCommand() *cobra.Command {
	var (
		subject string
		admin   bool
		secret  string
		expiry  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local testing",
		Long: `Mint an HS256 access token carrying the is_admin claim, for use as the
access_token cookie or with "routes check --token".

The secret defaults to JWT_SECRET, then to a development secret. Tokens
signed with the development secret only pass a verifying server that uses
the same secret.

Examples:
  # A regular student
  server token --subject student

  # An admin, valid for one hour
  server token --subject instructor --admin --expiry 1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := secret
			if key == "" {
				key = os.Getenv("JWT_SECRET")
			}
			if key == "" {
				key = testauth.DevSecret
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: signing with the development secret")
			}
			if expiry <= 0 {
				return fmt.Errorf("--expiry must be positive, got %s", expiry)
			}

			token, err := auth.NewJWTManager(key, expiry, tokenIssuer).Generate(subject, admin)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "student", "token subject")
	cmd.Flags().BoolVar(&admin, "admin", false, "set the is_admin claim")
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC secret (default: JWT_SECRET or a development secret)")
	cmd.Flags().DurationVar(&expiry, "expiry", 24*time.Hour, "token lifetime")
	return cmd
}
