// Package server exposes the Kusto toolset over MCP transports.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jhzhu89/mcp-server-azure-kusto/internal/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
)

// Name is the implementation name reported to MCP clients.
const Name = "mcp-kusto-server"

// Transports.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

const shutdownTimeout = 5 * time.Second

// Server serves one toolset.
type Server struct {
	toolset    *tools.Toolset
	version    string
	enableBeta bool
	host       string
	port       int
	logger     *slog.Logger
}

// Config holds configuration for the server.
type Config struct {
	Toolset    *tools.Toolset
	Version    string
	EnableBeta bool
	Host       string
	Port       int
	Logger     *slog.Logger
}

// New creates a server.
// If cfg.Logger is nil, a discard logger is used.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		toolset:    cfg.Toolset,
		version:    cfg.Version,
		enableBeta: cfg.EnableBeta,
		host:       cfg.Host,
		port:       cfg.Port,
		logger:     logger,
	}
}

// NewMCPServer builds an MCP server with the toolset registered.
func (s *Server) NewMCPServer() (*mcp.Server, error) {
	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: s.version}, nil)
	if err := tools.Register(server, s.toolset, s.enableBeta); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return server, nil
}

// Handler returns the HTTP routes. Every POST /mcp is served by a fresh,
// stateless MCP server.
func (s *Server) Handler() (http.Handler, error) {
	// Registration errors are static, so surface them before serving.
	if _, err := s.NewMCPServer(); err != nil {
		return nil, err
	}

	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		s.logger.Debug("MCP request received")
		server, err := s.NewMCPServer()
		if err != nil {
			s.logger.Error("failed to create MCP server", slog.String("error", err.Error()))
			return nil
		}
		return server
	}, &mcp.StreamableHTTPOptions{Stateless: true, JSONResponse: true})

	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)
	r.Post("/mcp", mcpHandler.ServeHTTP)
	r.Get("/mcp", methodNotAllowed)
	r.Delete("/mcp", methodNotAllowed)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return r, nil
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcErrorResponse struct {
	JSONRPC string   `json:"jsonrpc"`
	Error   rpcError `json:"error"`
	ID      any      `json:"id"`
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_ = json.NewEncoder(w).Encode(rpcErrorResponse{
		JSONRPC: "2.0",
		Error:   rpcError{Code: -32000, Message: "Method not allowed."},
	})
}

// Serve starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.serveListener(ctx, ln, handler)
}

func (s *Server) serveListener(ctx context.Context, ln net.Listener, handler http.Handler) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Azure Kusto MCP Server listening", slog.String("addr", ln.Addr().String()), slog.Bool("beta_tools", s.enableBeta))

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down MCP server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// RunStdio serves a single client over stdin and stdout until the client
// disconnects or the context is cancelled.
func (s *Server) RunStdio(ctx context.Context) error {
	server, err := s.NewMCPServer()
	if err != nil {
		return err
	}
	s.logger.Info("Azure Kusto MCP Server running on stdio", slog.Bool("beta_tools", s.enableBeta))
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
