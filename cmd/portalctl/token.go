package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"review-portal-backend/internal/security"
)

func tokenCmd() *cobra.Command {
	var (
		userID   string
		email    string
		secret   string
		audience string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		Long: `Sign an access token in the auth service's format. The secret defaults
to JWT_SECRET from the environment.

Examples:
  portalctl token --user-id 5b0c... --ttl 2h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user-id is required")
			}
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("--secret or JWT_SECRET is required")
			}

			token, err := security.NewTokenManager(secret, audience).GenerateAccessToken(userID, email, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "Auth user id placed in the subject")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringVar(&secret, "secret", "", "Signing secret shared with the server")
	cmd.Flags().StringVar(&audience, "audience", "authenticated", "Audience claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
