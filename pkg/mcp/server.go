package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/rbplint/pkg/lint"
	"github.com/macropower/rbplint/pkg/report"
	"github.com/macropower/rbplint/pkg/version"
)

// Linter lints files and raw content.
type Linter interface {
	LintFile(ctx context.Context, path string, kind lint.Kind) *report.File
	LintContent(ctx context.Context, kind lint.Kind, path string, data []byte) (*report.File, error)
}

// Server implements the MCP server for rbplint.
type Server struct {
	linter  Linter
	server  *mcp.Server
	tracer  trace.Tracer
	address string
	root    string
}

// NewServer creates a new MCP server. Relative paths given to the tools
// are resolved against root.
func NewServer(address string, linter Linter, root string) *Server {
	impl := &mcp.Implementation{
		Name:    name,
		Version: version.GetVersion(),
	}

	opts := &mcp.ServerOptions{
		Instructions: instructions,
	}

	s := &Server{
		address: address,
		linter:  linter,
		root:    root,
		server:  mcp.NewServer(impl, opts),
		tracer:  otel.Tracer("mcp"),
	}

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "lint_file",
		Description: "Lint a profiler configuration or requirements manifest on disk. You MUST specify a path.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "The file to lint, relative to the project root.",
				},
				"kind": newKindSchema(),
			},
			Required: []string{"path"},
		},
	}, WithTracing(s.tracer, s.handleLintFile))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "lint_content",
		Description: "Lint the raw content of a profiler configuration or requirements manifest. You MUST specify the kind and the content.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"kind": newKindSchema(),
				"content": {
					Type:        "string",
					Description: "The file content to lint.",
				},
				"path": {
					Type:        "string",
					Description: "The path the content would have on disk. Used to detect the kind and to resolve manifest includes.",
				},
			},
			Required: []string{"kind", "content"},
		},
	}, WithTracing(s.tracer, s.handleLintContent))
}

func (s *Server) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || s.root == "" {
		return path
	}

	return filepath.Join(s.root, path)
}

// Server returns the underlying MCP server.
func (s *Server) Server() *mcp.Server {
	return s.server
}

// Serve starts the MCP server. An empty address serves over stdio,
// otherwise streamable HTTP is served on address.
func (s *Server) Serve(ctx context.Context) error {
	slog.InfoContext(ctx, "starting MCP server", slog.String("address", s.address))

	if s.address == "" {
		err := s.serveStdio(ctx)
		if err != nil {
			return fmt.Errorf("serve stdio: %w", err)
		}

		return nil
	}

	err := s.serveHTTP(ctx)
	if err != nil {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	return nil
}

func (s *Server) serveHTTP(ctx context.Context) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)

	server := &http.Server{
		Addr:    s.address,
		Handler: handler,

		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			slog.ErrorContext(ctx, "shutdown MCP server", slog.Any("error", err))
		}
	}()

	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}

func (s *Server) serveStdio(ctx context.Context) error {
	t := &mcp.LoggingTransport{
		Transport: &mcp.StdioTransport{},
		Writer:    os.Stderr,
	}

	err := s.server.Run(ctx, t)
	if err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}
