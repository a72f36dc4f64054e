package cli

import (
	"fmt"
	"time"

	"classroom-quiz-service/internal/auth"
	"classroom-quiz-service/internal/config"
	"classroom-quiz-service/internal/domain"
	"github.com/spf13/cobra"
)

// NewTokenCmd mints a bearer token for local development.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a development bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret not configured")
			}
			r := domain.Role(role)
			if r != domain.RoleInstructor && r != domain.RoleStudent {
				return fmt.Errorf("unknown role %q", role)
			}
			tok, err := auth.IssueToken(cfg.Auth.JWTSecret, cfg.Auth.Issuer, args[0], r, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStudent), "instructor or student")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
