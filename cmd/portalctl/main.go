// portalctl is a CLI for local work against the review portal backend.
//
// Usage:
//
//	portalctl setup --env-file .env
//	portalctl token --user-id <auth user id>
//	portalctl dashboard --token <access token>
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	envFile string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Configure and inspect the review portal backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to the dotenv file holding the backend settings")

	// Add subcommands
	rootCmd.AddCommand(setupCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(tokenCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
