package mcp

import "github.com/google/jsonschema-go/jsonschema"

const (
	name         = "rbplint"
	instructions = `MCP Server 'rbplint' lints rule-based profiler configurations (YAML) and Python requirements manifests.

When to use these tools:
- Checking a profiler configuration for unresolved variables, parameter references, builder classes and schema problems
- Checking a requirements manifest for invalid requirement lines and unresolved includes
- Verifying that an edit to one of these files did not introduce new problems

Workflow:
1. Use 'lint_file' with the path of a file on disk, or 'lint_content' with the kind and the raw content
2. READ every diagnostic; each one carries an id, a severity, a message, and a line and column when known
3. After editing, call the same tool again and compare the results

IMPORTANT: Diagnostics with severity 'error' MUST be fixed before the configuration is used.
`
)

func newKindSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: "The kind of file. One of auto, profiler, or manifest. Defaults to auto.",
		Enum:        []any{"auto", "profiler", "manifest"},
	}
}
