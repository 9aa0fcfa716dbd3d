package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"review-portal-backend/internal/config"
	"review-portal-backend/internal/dashboard"
)

func dashboardCmd() *cobra.Command {
	var (
		token string
		width int
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the dashboard of the token's user",
		Long: `Fetch /api/v1/dashboard from the configured backend and render it.

Examples:
  portalctl dashboard --token "$(portalctl token --user-id 5b0c...)"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv("PORTAL_TOKEN")
			}
			if token == "" {
				return errors.New("--token or PORTAL_TOKEN is required")
			}

			values, err := godotenv.Read(envFile)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to read %s: %w", envFile, err)
			}
			baseURL := firstNonEmpty(os.Getenv(config.EnvBackendURL), values[config.EnvBackendURL])
			anonKey := firstNonEmpty(os.Getenv(config.EnvBackendAnonKey), values[config.EnvBackendAnonKey])
			if baseURL == "" {
				return errors.New("backend URL is not configured; run portalctl setup")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			view, err := fetchDashboard(ctx, http.DefaultClient, baseURL, anonKey, token)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dashboard.Render(view, width))
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Access token (defaults to PORTAL_TOKEN)")
	cmd.Flags().IntVar(&width, "width", 100, "Render width in columns")
	return cmd
}

func fetchDashboard(ctx context.Context, client *http.Client, baseURL, anonKey, token string) (dashboard.View, error) {
	url := strings.TrimRight(baseURL, "/") + "/api/v1/dashboard"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if anonKey != "" {
		req.Header.Set("apikey", anonKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dashboard request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return dashboard.Decode(body)
}
