package cli

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication helpers",
	}

	cmd.AddCommand(newAuthTokenCmd())
	return cmd
}

func newAuthTokenCmd() *cobra.Command {
	var (
		username string
		role     string
		secret   string
		expires  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate a dev-mode HS256 token for the gateway",
		Long:  "Generate an HS256 JWT for development and testing. Export it as SQLGATE_TOKEN or pass via --token.",
		Example: `  # Admin token with the default dev secret
  gatectl auth token --username alice --role admin --secret dev-secret-change-in-production`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if secret == "" {
				return fmt.Errorf("--secret is required")
			}
			now := time.Now()
			claims := jwt.MapClaims{
				"sub":  username,
				"role": role,
				"iat":  now.Unix(),
				"exp":  now.Add(expires).Unix(),
			}
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Println(signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "dev", "subject claim")
	cmd.Flags().StringVar(&role, "role", "analyst", "role claim (readonly, analyst, powerbi, admin)")
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 signing secret (must match the gateway)")
	cmd.Flags().DurationVar(&expires, "expires", 24*time.Hour, "token lifetime")
	return cmd
}
