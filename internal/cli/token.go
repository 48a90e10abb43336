package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/docuhub/exam-service/internal/config"
	"github.com/docuhub/exam-service/internal/handlers"
	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/repositories/memory"
)

// newTokenCmd prints a signed bearer token for the built-in JWT provider
func newTokenCmd(envFile *string) *cobra.Command {
	var (
		user models.User
		role string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development JWT",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			if cfg.AuthProvider != config.AuthJWT {
				return fmt.Errorf("token requires AUTH_PROVIDER=%s", config.AuthJWT)
			}

			user.Role = models.UserRole(role)
			if user.Role != models.RoleAdmin && user.Role != models.RoleUser {
				return fmt.Errorf("unknown role %q", role)
			}

			token, err := handlers.NewJWTAuthenticator(cfg.JWTSecret, memory.NewUserStore()).IssueToken(&user, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&user.ID, "user-id", "", "subject of the token")
	cmd.Flags().StringVar(&user.FullName, "name", "", "display name")
	cmd.Flags().StringVar(&user.Email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "admin or user")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
