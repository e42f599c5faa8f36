// Package cli implements portalctl, the operator tool for the portal.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/boddenberg/client-portal-go/internal/config"
)

// NewRootCommand builds the portalctl command tree. Configuration is read
// from the environment (and .env) when a subcommand runs.
func NewRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Operator tooling for the client portal",
		Long: `portalctl signs gateway callbacks for testing, issues and inspects
bearer tokens, and prepares the MongoDB indexes the portal relies on.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = config.LoadDotEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading configuration")

	root.AddCommand(newSignCommand())
	root.AddCommand(newTokenCommand())
	root.AddCommand(newIndexesCommand())
	return root
}

// Execute runs portalctl with the process arguments.
func Execute(version string) error {
	root := NewRootCommand()
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
