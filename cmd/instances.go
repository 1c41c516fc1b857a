package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"airflow-mcp/internal/registry"
)

var instancesFile string

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "List the Airflow deployments declared in the registry file",
	Long: `Loads the registry file and prints one row per deployment. Credential
material never appears in the output; only the auth type is shown.`,
	Args: cobra.NoArgs,
	RunE: runInstances,
}

func runInstances(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	reg, err := registry.Load(instancesFile, "")
	if err != nil {
		return fmt.Errorf("failed to load instance registry: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("INSTANCE"),
		text.FgHiCyan.Sprint("HOST"),
		text.FgHiCyan.Sprint("API"),
		text.FgHiCyan.Sprint("AUTH"),
		text.FgHiCyan.Sprint("VERIFY SSL"),
		text.FgHiCyan.Sprint("DEFAULT"),
	})

	defaultKey := reg.DefaultKey()
	for _, key := range reg.Keys() {
		desc, err := reg.Describe(key)
		if err != nil {
			return err
		}
		marker := ""
		if key == defaultKey {
			marker = text.FgGreen.Sprint("*")
		}
		t.AppendRow(table.Row{
			desc.Key,
			desc.Host,
			desc.APIVersion,
			desc.AuthType,
			desc.VerifySSL,
			marker,
		})
	}

	t.Render()
	return nil
}

func init() {
	rootCmd.AddCommand(instancesCmd)

	instancesCmd.Flags().StringVar(&instancesFile, "instances-file", "instances.yaml", "Path to the YAML registry of Airflow deployments")
}
