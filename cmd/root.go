package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command for the airflow-mcp binary. It only carries
// subcommands; running it without one prints help.
var rootCmd = &cobra.Command{
	Use:   "airflow-mcp",
	Short: "MCP facade for one or more Apache Airflow deployments",
	Long: `airflow-mcp exposes a set of MCP tools for inspecting and operating
Apache Airflow deployments. Deployments are declared in a YAML registry
file; every tool call names its target instance explicitly or carries an
Airflow UI URL that is resolved against the registry.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This is called from the main package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "airflow-mcp version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
