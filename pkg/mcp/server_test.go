package mcp_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/macropower/rbplint/pkg/lint"
	"github.com/macropower/rbplint/pkg/mcp"
)

const unresolved = `name: p
config_version: 1.0
rules:
  r:
    domain_builder:
      class_name: TableDomainBuilder
    expectation_configuration_builders:
      - expectation_type: expect_table_row_count_to_be_between
        class_name: DefaultExpectationConfigurationBuilder
        mostly: $variables.missing
`

func TestServer_Tools(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profiler.yaml"), []byte(unresolved), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("flask==3.0.0\n"), 0o600))

	clientTransport, serverTransport := sdk.NewInMemoryTransports()

	testServer := mcp.NewServer("", lint.New(), dir)

	ctx := t.Context()

	serverSession, err := testServer.Server().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := sdk.NewClient(&sdk.Implementation{Name: "client"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	tcs := map[string]struct {
		params      *sdk.CallToolParams
		wantMessage string
		wantKind    string
		wantIDs     []any
		wantFailed  bool
	}{
		"lint_file profiler": {
			params: &sdk.CallToolParams{
				Name:      "lint_file",
				Arguments: map[string]any{"path": "profiler.yaml"},
			},
			wantMessage: "Found 1 error in 1 file.",
			wantKind:    "profiler",
			wantIDs:     []any{"RF002"},
			wantFailed:  true,
		},
		"lint_file manifest": {
			params: &sdk.CallToolParams{
				Name:      "lint_file",
				Arguments: map[string]any{"path": "requirements.txt", "kind": "manifest"},
			},
			wantMessage: "No problems found in 1 file.",
			wantKind:    "manifest",
			wantIDs:     []any{},
		},
		"lint_content profiler": {
			params: &sdk.CallToolParams{
				Name:      "lint_content",
				Arguments: map[string]any{"kind": "profiler", "content": unresolved},
			},
			wantMessage: "Found 1 error in 1 file.",
			wantKind:    "profiler",
			wantIDs:     []any{"RF002"},
			wantFailed:  true,
		},
		"lint_content manifest": {
			params: &sdk.CallToolParams{
				Name:      "lint_content",
				Arguments: map[string]any{"kind": "manifest", "content": "flask>>1\n"},
			},
			wantMessage: "Found 1 error in 1 file.",
			wantKind:    "manifest",
			wantIDs:     []any{"MF002"},
			wantFailed:  true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			r, err := clientSession.CallTool(ctx, tc.params)
			require.NoError(t, err)
			require.NotNil(t, r)
			assert.False(t, r.IsError)

			got, ok := r.StructuredContent.(map[string]any)
			require.True(t, ok)

			assert.Equal(t, tc.wantMessage, got["message"])
			assert.Equal(t, tc.wantFailed, got["failed"])

			file, ok := got["file"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tc.wantKind, file["kind"])

			diags, ok := file["diagnostics"].([]any)
			require.True(t, ok)

			ids := []any{}
			for _, d := range diags {
				dm, ok := d.(map[string]any)
				require.True(t, ok)

				ids = append(ids, dm["id"])
			}

			assert.Equal(t, tc.wantIDs, ids)
		})
	}

	require.NoError(t, clientSession.Close())
	require.NoError(t, serverSession.Wait())
}

func TestServer_ListTools(t *testing.T) {
	t.Parallel()

	clientTransport, serverTransport := sdk.NewInMemoryTransports()

	testServer := mcp.NewServer("", lint.New(), t.TempDir())

	ctx := t.Context()

	serverSession, err := testServer.Server().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := sdk.NewClient(&sdk.Implementation{Name: "client"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	res, err := clientSession.ListTools(ctx, nil)
	require.NoError(t, err)

	names := []string{}
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}

	assert.ElementsMatch(t, []string{"lint_file", "lint_content"}, names)

	for _, tool := range res.Tools {
		require.NotNil(t, tool.InputSchema, tool.Name)
		assert.Equal(t, "object", tool.InputSchema.Type, tool.Name)
		assert.Contains(t, tool.InputSchema.Properties, "kind", tool.Name)

		require.NotNil(t, tool.OutputSchema, tool.Name)
		assert.Contains(t, tool.OutputSchema.Properties, "summary", tool.Name)
	}

	require.NoError(t, clientSession.Close())
	require.NoError(t, serverSession.Wait())
}

func TestServer_ToolErrors(t *testing.T) {
	t.Parallel()

	clientTransport, serverTransport := sdk.NewInMemoryTransports()

	testServer := mcp.NewServer("", lint.New(), t.TempDir())

	ctx := t.Context()

	serverSession, err := testServer.Server().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := sdk.NewClient(&sdk.Implementation{Name: "client"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	r, err := clientSession.CallTool(ctx, &sdk.CallToolParams{
		Name:      "lint_file",
		Arguments: map[string]any{"path": ""},
	})
	require.NoError(t, err)
	require.True(t, r.IsError)
	require.NotEmpty(t, r.Content)

	text, ok := r.Content[0].(*sdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "missing argument")

	// Unknown kinds fail schema validation or are rejected by the handler.
	r, err = clientSession.CallTool(ctx, &sdk.CallToolParams{
		Name:      "lint_content",
		Arguments: map[string]any{"kind": "bogus", "content": "x"},
	})
	if err == nil {
		assert.True(t, r.IsError)
	}

	require.NoError(t, clientSession.Close())
	require.NoError(t, serverSession.Wait())
}
