package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"review-portal-backend/internal/setup"
)

func setupCmd() *cobra.Command {
	var url, anonKey string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Select the backend the portal talks to",
		Long: `Prompt for the backend service URL and anonymous key and write them to
the env file as PORTAL_BACKEND_URL and PORTAL_BACKEND_ANON_KEY. Other
lines in the file are left untouched.

Examples:
  # Interactive
  portalctl setup

  # Non-interactive
  portalctl setup --url https://portal.example.com --anon-key <key>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" || anonKey == "" {
				currentURL, currentKey, err := setup.Current(envFile)
				if err != nil {
					return err
				}
				url, anonKey, err = setup.Ask(cmd.InOrStdin(), cmd.OutOrStdout(), firstNonEmpty(url, currentURL), firstNonEmpty(anonKey, currentKey))
				if err != nil {
					return err
				}
			}
			return runSetup(cmd, url, anonKey)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Backend service URL (skips the prompt together with --anon-key)")
	cmd.Flags().StringVar(&anonKey, "anon-key", "", "Backend anonymous key")
	return cmd
}

func runSetup(cmd *cobra.Command, url, anonKey string) error {
	if err := setup.Update(envFile, url, anonKey); err != nil {
		if errors.Is(err, setup.ErrMissingValues) {
			return errors.New(setup.MissingValuesMessage)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backend configuration updated in %s.\n", envFile)
	fmt.Fprintf(out, "URL: %s\n", url)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
