package cli

import (
	"fmt"
	"time"

	"elearning-quiz-service/internal/config"
	transport "elearning-quiz-service/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewTokenCmd signs a bearer token for local testing against the configured secret.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		user  string
		admin bool
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwtSecret (JWT_SECRET) not configured")
			}
			role := ""
			if admin {
				role = transport.RoleAdmin
			}
			token, err := transport.NewAuthenticator(cfg.Auth.JWTSecret).IssueToken(user, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id placed in the sub claim")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
