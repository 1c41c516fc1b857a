// Package server exposes the Airflow facade as an MCP server over stdio,
// SSE, or streamable-http transport.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"airflow-mcp/internal/airflow"
	"airflow-mcp/pkg/logging"
)

// Supported transports.
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

const shutdownTimeout = 5 * time.Second

// Config selects the transport and bind address for an MCP server.
type Config struct {
	Transport string
	Host      string
	Port      int
}

// Server hosts the MCP tool surface for a set of configured Airflow
// deployments. Tool handlers are stateless; all shared state lives in the
// registry and the client factory.
type Server struct {
	cfg     Config
	factory *airflow.Factory
	mcp     *mcpserver.MCPServer
	httpSrv *http.Server
}

// New builds a server with all tools registered.
func New(factory *airflow.Factory, cfg Config, version string) *Server {
	s := &Server{
		cfg:     cfg,
		factory: factory,
		mcp: mcpserver.NewMCPServer(
			"airflow-mcp",
			version,
			mcpserver.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// Start runs the server until the context is cancelled or the transport
// shuts down.
func (s *Server) Start(ctx context.Context) error {
	switch s.cfg.Transport {
	case TransportStdio, "":
		logging.Info("Server", "Starting MCP server with stdio transport")
		stdio := mcpserver.NewStdioServer(s.mcp)
		return stdio.Listen(ctx, os.Stdin, os.Stdout)
	case TransportSSE, TransportStreamableHTTP:
		return s.startHTTP(ctx)
	default:
		return fmt.Errorf("unknown transport %q (expected %s, %s, or %s)",
			s.cfg.Transport, TransportStdio, TransportSSE, TransportStreamableHTTP)
	}
}

func (s *Server) startHTTP(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})

	switch s.cfg.Transport {
	case TransportSSE:
		logging.Info("Server", "Starting MCP server with SSE transport on %s", addr)
		sse := mcpserver.NewSSEServer(
			s.mcp,
			mcpserver.WithBaseURL(fmt.Sprintf("http://%s", addr)),
			mcpserver.WithSSEEndpoint("/sse"),
			mcpserver.WithMessageEndpoint("/message"),
			mcpserver.WithKeepAlive(true),
			mcpserver.WithKeepAliveInterval(30*time.Second),
		)
		r.Handle("/sse", sse)
		r.Handle("/message", sse)
	case TransportStreamableHTTP:
		logging.Info("Server", "Starting MCP server with streamable-http transport on %s", addr)
		streamable := mcpserver.NewStreamableHTTPServer(s.mcp)
		handler := blockGET(streamable)
		r.Handle("/mcp", handler)
		r.Handle("/mcp/*", handler)
	}

	s.httpSrv = &http.Server{Addr: addr, Handler: r}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// blockGET rejects GET on the MCP endpoint with 405. The streamable-http
// transport is POST-only here; answering GET would advertise an SSE stream
// this deployment does not serve.
func blockGET(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			logging.Info("Server", "Blocking GET %s with 405 Method Not Allowed", r.URL.Path)
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
