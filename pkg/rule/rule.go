package rule

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/cel-go/cel"

	"github.com/macropower/rbplint/pkg/check"
	"github.com/macropower/rbplint/pkg/expr"
	"github.com/macropower/rbplint/pkg/yaml"
)

var (
	ErrReservedID = errors.New("id is reserved for a built-in check")
	ErrEmptyID    = errors.New("id must not be empty")
)

// Rule is a user-defined check.
//
// CEL expressions have access to variables:
//   - `name` (string): The name of the profiler rule
//   - `rule` (map): The profiler rule definition
//   - `variables` (map): The document's variables
//   - `config` (map): The whole document
//   - `file` (string): The path of the document
//
// CEL expressions must return a boolean value, for example:
//   - has(rule.parameter_builders) - every rule defines parameter builders
//   - name.matches("^[a-z_]+$") - rule names are snake_case
//   - references(rule).all(r, refRoot(r) != "variables" || r.split(".")[1] in variables)
//   - !has(rule.domain_builder.batch_request) || isReference(rule.domain_builder.batch_request)
//
// CEL also provides standard functions like `endsWith`, `contains`,
// `startsWith`, `matches`, list macros like `all`, `exists` and `filter`,
// and the cel-go string, list and math extensions.
type Rule struct {
	program cel.Program

	// ID identifies the check in reports and in checks.disable.
	ID check.ID `json:"id" jsonschema:"title=ID,minLength=1"`
	// Message is reported when the expression returns false.
	Message string `json:"message" jsonschema:"title=Message"`
	// Severity of failures. Defaults to error.
	Severity check.Severity `json:"severity,omitempty" jsonschema:"title=Severity,enum=error,enum=warning,enum=info"`
	// Match is a CEL expression that must hold for every profiler rule.
	Match string `json:"match" jsonschema:"title=Match Expression"`
}

// Input holds the values a [Rule] is evaluated against.
type Input = expr.Activation

// New creates a new rule with the given ID, message and match expression.
func New(id check.ID, message, match string) (*Rule, error) {
	r := &Rule{
		ID:      id,
		Message: message,
		Match:   match,
	}

	err := r.CompileMatch()
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", match, err)
	}

	return r, nil
}

// MustNew creates a new rule and panics if there's an error.
func MustNew(id check.ID, message, match string) *Rule {
	r, err := New(id, message, match)
	if err != nil {
		panic(err)
	}

	return r
}

// Validate checks the ID and severity and compiles the match expression.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return ErrEmptyID
	}
	if _, builtin := check.Lookup(r.ID); builtin {
		return fmt.Errorf("%w: %s", ErrReservedID, r.ID)
	}
	if r.Severity != "" {
		sev, err := check.ParseSeverity(string(r.Severity))
		if err != nil {
			return fmt.Errorf("rule %s: %w", r.ID, err)
		}

		r.Severity = sev
	}

	err := r.CompileMatch()
	if err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}

	return nil
}

// CompileMatch compiles the rule's match expression into a CEL program.
func (r *Rule) CompileMatch() error {
	if r.program != nil {
		return nil
	}

	env, err := expr.ProfilerEnvironment()
	if err != nil {
		return fmt.Errorf("create CEL environment: %w", err)
	}

	program, err := env.CompileCheck(r.Match)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	r.program = program

	return nil
}

// Evaluate runs the match expression against in.
func (r *Rule) Evaluate(in Input) (bool, error) {
	err := r.CompileMatch()
	if err != nil {
		return false, err
	}

	return expr.EvalCheck(r.program, in) //nolint:wrapcheck // Already wrapped.
}

// Check evaluates the rule for every profiler rule in doc, which is a
// document decoded into untyped maps and slices.
func (r *Rule) Check(file string, doc any) []check.Diagnostic {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil
	}

	variables, _ := root["variables"].(map[string]any)
	rules, _ := root["rules"].(map[string]any)

	var diags []check.Diagnostic

	for _, name := range slices.Sorted(maps.Keys(rules)) {
		def, _ := rules[name].(map[string]any)
		path := yaml.BuildPath("rules", name)

		pass, err := r.Evaluate(Input{
			File:      file,
			Name:      name,
			Rule:      def,
			Variables: variables,
			Config:    root,
		})
		if err != nil {
			diags = append(diags, check.New(check.CustomCheckEvaluation, path, "%s: %v", r.ID, err))
			continue
		}
		if pass {
			continue
		}

		d := check.New(r.ID, path, "%s", r.message(name))
		if r.Severity != "" {
			d.Severity = r.Severity
		}

		diags = append(diags, d)
	}

	return diags
}

func (r *Rule) message(name string) string {
	if r.Message == "" {
		return fmt.Sprintf("rule %q does not satisfy %s", name, r.Match)
	}

	return fmt.Sprintf("rule %q: %s", name, r.Message)
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s: %s", r.ID, r.Match)
}
