package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/macropower/rbplint/pkg/lint"
	"github.com/macropower/rbplint/pkg/report"
)

// ErrMissingArgument is returned when a required tool argument is empty.
var ErrMissingArgument = errors.New("missing argument")

// LintFileParams defines parameters for the lint_file tool.
type LintFileParams struct {
	Path string `json:"path"`
	Kind string `json:"kind,omitempty"`
}

// LintContentParams defines parameters for the lint_content tool.
type LintContentParams struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Path    string `json:"path,omitempty"`
}

// LintResult contains the result of a lint tool call.
type LintResult struct {
	File    *report.File   `json:"file"`
	Message string         `json:"message"`
	Summary report.Summary `json:"summary"`
	Failed  bool           `json:"failed"`
}

func (s *Server) handleLintFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	in LintFileParams,
) (*mcp.CallToolResult, LintResult, error) {
	if in.Path == "" {
		return nil, LintResult{}, fmt.Errorf("%w: path", ErrMissingArgument)
	}

	kind, err := lint.ParseKind(in.Kind)
	if err != nil {
		return nil, LintResult{}, fmt.Errorf("parse kind: %w", err)
	}

	f := s.linter.LintFile(ctx, s.resolve(in.Path), kind)

	return createLintResult(f)
}

func (s *Server) handleLintContent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	in LintContentParams,
) (*mcp.CallToolResult, LintResult, error) {
	kind, err := lint.ParseKind(in.Kind)
	if err != nil {
		return nil, LintResult{}, fmt.Errorf("parse kind: %w", err)
	}

	path := in.Path
	if path == "" {
		path = "<content>"
	}

	f, err := s.linter.LintContent(ctx, kind, s.resolve(path), []byte(in.Content))
	if err != nil {
		return nil, LintResult{}, fmt.Errorf("lint content: %w", err)
	}

	return createLintResult(f)
}

// createLintResult creates the MCP tool result for a linted file. The
// structured content is set by the SDK from the returned [LintResult].
func createLintResult(f *report.File) (*mcp.CallToolResult, LintResult, error) {
	r := report.New(f)

	result := LintResult{
		File:    f,
		Summary: r.Summary(),
		Failed:  r.Failed(report.FailOnError),
	}
	result.Message = result.Summary.String()

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: result.Message,
			},
		},
	}, result, nil
}
