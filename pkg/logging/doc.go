// Package logging provides a structured logging system for airflow-mcp with
// unified log handling and level filtering.
//
// This package wraps Go's standard slog package with a subsystem-oriented
// API. All log entries include a timestamp, level, subsystem identifier, and
// message; error entries additionally carry the error string.
//
// # Usage
//
//	import "airflow-mcp/pkg/logging"
//
//	// Initialize with Info level logging to stderr (stdout belongs to the
//	// stdio MCP transport and must stay clean).
//	logging.Init(logging.LevelInfo, os.Stderr, true)
//
//	logging.Info("Bootstrap", "Server starting up")
//	logging.Debug("Registry", "Loaded registry from %s", path)
//	logging.Error("Factory", err, "Failed to build client for %s", key)
//
// # Subsystem Organization
//
// Logs are organized by subsystem to enable filtering:
//
//   - Bootstrap: process initialization and startup
//   - Registry: instance registry loading and validation
//   - Factory: backend client construction and caching
//   - Server: MCP server and transport lifecycle
//   - Operation: per-tool-call structured events with request_id
//
// # Thread Safety
//
// The logging system is safe for concurrent use from multiple goroutines.
package logging
