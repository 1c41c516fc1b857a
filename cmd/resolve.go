package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"airflow-mcp/internal/registry"
	"airflow-mcp/internal/target"
)

var resolveInstancesFile string

var resolveCmd = &cobra.Command{
	Use:   "resolve <ui-url>",
	Short: "Resolve an Airflow UI URL against the registry",
	Long: `Parses an Airflow UI URL, matches its hostname against the registry,
and prints the instance key and any identifiers the path carries. Useful
for checking which deployment a pasted link belongs to.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	reg, err := registry.Load(resolveInstancesFile, "")
	if err != nil {
		return fmt.Errorf("failed to load instance registry: %w", err)
	}

	resolved, err := target.ParseUIURL(reg, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "instance:   %s\n", resolved.Instance)
	fmt.Fprintf(out, "route:      %s\n", resolved.Route)
	if resolved.DagID != "" {
		fmt.Fprintf(out, "dag_id:     %s\n", resolved.DagID)
	}
	if resolved.DagRunID != "" {
		fmt.Fprintf(out, "dag_run_id: %s\n", resolved.DagRunID)
	}
	if resolved.TaskID != "" {
		fmt.Fprintf(out, "task_id:    %s\n", resolved.TaskID)
	}
	if resolved.TryNumber > 0 {
		fmt.Fprintf(out, "try_number: %d\n", resolved.TryNumber)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVar(&resolveInstancesFile, "instances-file", "instances.yaml", "Path to the YAML registry of Airflow deployments")
}
