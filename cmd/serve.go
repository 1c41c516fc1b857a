package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"airflow-mcp/internal/airflow"
	"airflow-mcp/internal/registry"
	"airflow-mcp/internal/server"
	"airflow-mcp/pkg/logging"
)

// serveInstancesFile is the path to the YAML registry of Airflow deployments.
var serveInstancesFile string

// serveDefaultInstance optionally overrides the registry's default_instance.
var serveDefaultInstance string

// serveTransport selects how the MCP server is exposed: stdio, sse, or
// streamable-http.
var serveTransport string

var (
	serveHost string
	servePort int
)

// serveTimeout bounds every request to an Airflow backend.
var serveTimeout time.Duration

// serveExtendedClear opts into the Airflow 2.6+ extended clear parameters.
var serveExtendedClear bool

var (
	serveDebug   bool
	serveLogJSON bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for the configured Airflow deployments",
	Long: `Starts the MCP server. Deployments are loaded once from the registry
file; ${ENV_VAR} placeholders in it are resolved from the environment (a
.env file next to the working directory is loaded first if present).

Transports:
  stdio            serve MCP over stdin/stdout (default, for local agents)
  sse              HTTP server with /sse and /message endpoints
  streamable-http  HTTP server with a /mcp endpoint

Changes to the registry file while the server is running are detected and
logged but require a restart to take effect.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Secrets referenced from the registry commonly live in a .env file
	// during development. A missing file is not an error.
	_ = godotenv.Load()

	level := logging.LevelInfo
	if serveDebug {
		level = logging.LevelDebug
	}
	if env := os.Getenv("AIRFLOW_MCP_LOG_LEVEL"); env != "" && !serveDebug {
		level = logging.ParseLevel(env)
	}
	// Stdout carries the MCP protocol on the stdio transport, so logs
	// always go to stderr.
	logging.Init(level, os.Stderr, serveLogJSON)

	reg, err := registry.Init(serveInstancesFile, serveDefaultInstance)
	if err != nil {
		return fmt.Errorf("failed to load instance registry: %w", err)
	}
	logging.Info("Serve", "loaded %d instance(s) from %s", len(reg.Keys()), serveInstancesFile)

	factory := airflow.NewFactory(reg, airflow.Config{
		Timeout:             serveTimeout,
		ExtendedClearParams: serveExtendedClear,
	})

	srv := server.New(factory, server.Config{
		Transport: serveTransport,
		Host:      serveHost,
		Port:      servePort,
	}, GetVersion())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.WatchRegistryFile(ctx, serveInstancesFile); err != nil {
		logging.Warn("Serve", "registry file watch unavailable: %v", err)
	}

	return srv.Start(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveInstancesFile, "instances-file", "instances.yaml", "Path to the YAML registry of Airflow deployments")
	serveCmd.Flags().StringVar(&serveDefaultInstance, "default-instance", "", "Override the registry's default instance key")
	serveCmd.Flags().StringVar(&serveTransport, "transport", server.TransportStdio, "MCP transport: stdio, sse, or streamable-http")
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Bind host for the HTTP transports")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Bind port for the HTTP transports")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", airflow.DefaultTimeout, "Per-request timeout for Airflow API calls")
	serveCmd.Flags().BoolVar(&serveExtendedClear, "extended-clear-params", false, "Send Airflow 2.6+ extended parameters on clear operations")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveLogJSON, "log-json", false, "Emit logs as JSON")
}
