package rule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rbplint/pkg/check"
	"github.com/macropower/rbplint/pkg/rule"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		match   string
		wantErr bool
	}{
		"valid rule": {
			match: `has(rule.parameter_builders)`,
		},
		"reference functions": {
			match: `references(rule).all(r, refRoot(r) != "domain")`,
		},
		"invalid CEL expression": {
			match:   "rule.invalidFunction()",
			wantErr: true,
		},
		"empty match": {
			match:   "",
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r, err := rule.New("CUSTOM001", "msg", tc.match)
			if tc.wantErr {
				require.Error(t, err)
				assert.Nil(t, r)
				assert.Contains(t, err.Error(), tc.match)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, r)
			assert.Equal(t, tc.match, r.Match)
		})
	}
}

func TestMustNew(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		rule.MustNew("CUSTOM001", "", "true")
	})
	assert.Panics(t, func() {
		rule.MustNew("CUSTOM001", "", "invalid syntax [")
	})
}

func TestRule_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		wantErr error
		rule    rule.Rule
		wantSev check.Severity
	}{
		"valid": {
			rule: rule.Rule{ID: "CUSTOM001", Match: "true"},
		},
		"severity alias": {
			rule:    rule.Rule{ID: "CUSTOM001", Match: "true", Severity: "warn"},
			wantSev: check.SeverityWarning,
		},
		"empty id": {
			rule:    rule.Rule{Match: "true"},
			wantErr: rule.ErrEmptyID,
		},
		"reserved id": {
			rule:    rule.Rule{ID: check.UnusedVariable, Match: "true"},
			wantErr: rule.ErrReservedID,
		},
		"bad severity": {
			rule:    rule.Rule{ID: "CUSTOM001", Match: "true", Severity: "fatal"},
			wantErr: check.ErrUnknownSeverity,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := tc.rule

			err := r.Validate()
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			if tc.wantSev != "" {
				assert.Equal(t, tc.wantSev, r.Severity)
			}
		})
	}
}

func TestRule_Evaluate(t *testing.T) {
	t.Parallel()

	in := rule.Input{
		File: "profilers/profiler.yaml",
		Name: "column_ranges_rule",
		Rule: map[string]any{
			"domain_builder": map[string]any{"class_name": "ColumnDomainBuilder"},
			"parameter_builders": []any{
				map[string]any{"name": "min_range", "false_positive_rate": "$variables.fpr"},
			},
		},
		Variables: map[string]any{"fpr": 0.01},
		Config:    map[string]any{"name": "my_profiler"},
	}

	tcs := map[string]struct {
		match   string
		want    bool
		wantErr bool
	}{
		"name": {
			match: `name.endsWith("_rule")`,
			want:  true,
		},
		"file": {
			match: `pathBase(file) == "profiler.yaml"`,
			want:  true,
		},
		"config": {
			match: `config.name == "my_profiler"`,
			want:  true,
		},
		"variables resolve": {
			match: `references(rule).all(r, refRoot(r) != "variables" || r.split(".")[1] in variables)`,
			want:  true,
		},
		"failing": {
			match: `has(rule.expectation_configuration_builders)`,
			want:  false,
		},
		"not a boolean": {
			match:   `name`,
			wantErr: true,
		},
		"runtime error": {
			match:   `rule.missing == 1`,
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := &rule.Rule{ID: "CUSTOM001", Match: tc.match}

			got, err := r.Evaluate(in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRule_Check(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"name": "p",
		"rules": map[string]any{
			"b_rule": map[string]any{"parameter_builders": []any{}},
			"a_rule": map[string]any{},
			"bad":    map[string]any{"parameter_builders": 42},
		},
	}

	r := &rule.Rule{
		ID:       "CUSTOM001",
		Message:  "rules must define parameter builders",
		Severity: check.SeverityWarning,
		Match:    `has(rule.parameter_builders) && size(rule.parameter_builders) >= 0`,
	}
	require.NoError(t, r.Validate())

	diags := r.Check("p.yaml", doc)
	require.Len(t, diags, 2)

	assert.Equal(t, check.ID("CUSTOM001"), diags[0].ID)
	assert.Equal(t, check.SeverityWarning, diags[0].Severity)
	assert.Equal(t, "$.rules.a_rule", diags[0].Path)
	assert.Equal(t, `rule "a_rule": rules must define parameter builders`, diags[0].Message)

	assert.Equal(t, check.CustomCheckEvaluation, diags[1].ID)
	assert.Equal(t, "$.rules.bad", diags[1].Path)

	assert.Empty(t, r.Check("p.yaml", []any{"not", "a", "mapping"}))
}
