package lintconfigs_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rbplint/api/v1beta1"
	"github.com/macropower/rbplint/api/v1beta1/lintconfigs"
	"github.com/macropower/rbplint/pkg/check"
	"github.com/macropower/rbplint/pkg/manifest"
	"github.com/macropower/rbplint/pkg/profiler"
	"github.com/macropower/rbplint/pkg/yaml"
)

func TestNew(t *testing.T) {
	t.Parallel()

	cfg := lintconfigs.New()

	assert.Equal(t, "rbplint.jacobcolvin.com/v1beta1", cfg.GetAPIVersion())
	assert.Equal(t, "LintConfig", cfg.GetKind())
	require.NotNil(t, cfg.Checks)
	require.NotNil(t, cfg.Files)
	assert.Equal(t, lintconfigs.DefaultProfilerFiles, cfg.Files.Profiler)
	assert.Equal(t, lintconfigs.DefaultManifestFiles, cfg.Files.Manifest)
	require.NoError(t, cfg.Validate())
}

func TestLintConfig_EnsureDefaults(t *testing.T) {
	t.Parallel()

	cfg := &lintconfigs.LintConfig{
		Files: &lintconfigs.FilesConfig{Profiler: []string{}},
	}

	cfg.EnsureDefaults()

	assert.NotNil(t, cfg.Checks.Severity)
	assert.NotNil(t, cfg.Profiler.KnownClasses)
	assert.NotNil(t, cfg.Manifest)
	assert.Empty(t, cfg.Files.Profiler, "explicit empty list is kept")
	assert.Equal(t, lintconfigs.DefaultManifestFiles, cfg.Files.Manifest)
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := lintconfigs.Default()

	require.Len(t, cfg.Checks.Custom, 1)
	assert.Equal(t, check.ID("RBP001"), cfg.Checks.Custom[0].ID)
	assert.Equal(t, check.SeverityWarning, cfg.Checks.Severity[check.UnusedVariable])
	assert.Equal(t, lintconfigs.DefaultManifestFiles, cfg.Files.Manifest)
}

func TestParse(t *testing.T) {
	t.Parallel()

	header := "apiVersion: rbplint.jacobcolvin.com/v1beta1\nkind: LintConfig\n"

	tcs := map[string]struct {
		check   func(t *testing.T, cfg *lintconfigs.LintConfig)
		wantErr error
		errMsg  string
		input   string
	}{
		"minimal": {
			input: header,
			check: func(t *testing.T, cfg *lintconfigs.LintConfig) {
				t.Helper()

				assert.Empty(t, cfg.Checks.Disable)
				assert.Equal(t, lintconfigs.DefaultProfilerFiles, cfg.Files.Profiler)
			},
		},
		"full": {
			input: header + `checks:
  disable: [RF006, CUSTOM]
  severity:
    BD001: error
    NM004: warn
  custom:
    - id: CUSTOM
      message: must have parameters
      match: has(rule.parameter_builders)
profiler:
  knownClasses:
    parameterBuilders: [MyParameterBuilder]
  requireModuleName: true
manifest:
  allowedComparators: ["==", "~="]
  requirePins: true
`,
			check: func(t *testing.T, cfg *lintconfigs.LintConfig) {
				t.Helper()

				assert.Equal(t, []check.ID{check.UnusedVariable, "CUSTOM"}, cfg.Checks.Disable)
				assert.Equal(t, check.SeverityWarning, cfg.Checks.Severity[check.RatioRange])
				assert.True(t, cfg.ProfilerChecks().RequireModuleName)

				_, known := cfg.Registry().Lookup(profiler.KindParameterBuilder, "MyParameterBuilder")
				assert.True(t, known)

				assert.Equal(t, manifest.Options{
					AllowedComparators: []string{"==", "~="},
					RequirePins:        true,
				}, cfg.ManifestOptions())

				settings := cfg.Settings()
				diags := settings.Apply([]check.Diagnostic{
					check.New(check.UnusedVariable, nil, "unused"),
					check.New(check.UnknownBuilderClass, nil, "unknown"),
				})
				require.Len(t, diags, 1)
				assert.Equal(t, check.SeverityError, diags[0].Severity)
			},
		},
		"wrong kind": {
			input:  "apiVersion: rbplint.jacobcolvin.com/v1beta1\nkind: Profiler\n",
			errMsg: "kind",
		},
		"wrong api version": {
			input:  "apiVersion: v1\nkind: LintConfig\n",
			errMsg: "apiVersion",
		},
		"unknown field type": {
			input:  header + "checks:\n  disable: RF006\n",
			errMsg: "disable",
		},
		"unknown disabled check": {
			input:   header + "checks:\n  disable: [XX999]\n",
			wantErr: lintconfigs.ErrUnknownCheck,
		},
		"reserved custom id": {
			input:  header + "checks:\n  custom:\n    - id: RF001\n      message: m\n      match: \"true\"\n",
			errMsg: "reserved",
		},
		"duplicate custom id": {
			input: header + `checks:
  custom:
    - {id: C1, message: m, match: "true"}
    - {id: C1, message: m, match: "false"}
`,
			wantErr: lintconfigs.ErrDuplicateCheck,
		},
		"invalid custom expression": {
			input:  header + "checks:\n  custom:\n    - {id: C1, message: m, match: \"rule.\"}\n",
			errMsg: "compile expression",
		},
		"unknown comparator": {
			input:   header + "manifest:\n  allowedComparators: [\"=>\"]\n",
			wantErr: manifest.ErrUnknownComparator,
		},
		"bad pattern": {
			input:   header + "files:\n  profiler: [\"[\"]\n",
			wantErr: lintconfigs.ErrInvalidPattern,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, err := lintconfigs.Parse([]byte(tc.input))

			switch {
			case tc.wantErr != nil:
				require.ErrorIs(t, err, tc.wantErr)
			case tc.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
			default:
				require.NoError(t, err)
				tc.check(t, cfg)
			}
		})
	}
}

func TestParse_SchemaErrorLocation(t *testing.T) {
	t.Parallel()

	input := "apiVersion: rbplint.jacobcolvin.com/v1beta1\nkind: LintConfig\nprofiler:\n  requireModuleName: yes please\n"

	_, err := lintconfigs.Parse([]byte(input))
	require.Error(t, err)

	var yamlErr *yaml.Error
	require.ErrorAs(t, err, &yamlErr)

	line, col, posErr := yamlErr.Position()
	require.NoError(t, posErr)
	assert.Equal(t, 4, line)
	assert.Equal(t, 3, col)
}

func TestSchema(t *testing.T) {
	t.Parallel()

	data, err := lintconfigs.Schema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, lintconfigs.SchemaID, schema["$id"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "checks")
	assert.Contains(t, props, "apiVersion")
}

func TestFind(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, err := lintconfigs.Find(nested)
	require.NoError(t, err)

	// A config may exist above the temp dir; only assert on ours.
	if path != "" {
		assert.NotContains(t, path, root)
	}

	cfgPath := filepath.Join(root, "a", ".rbplint.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("apiVersion: "+v1beta1.APIVersion+"\nkind: LintConfig\n"), 0o600))

	path, err = lintconfigs.Find(nested)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, path)

	cfg, err := lintconfigs.Load(path)
	require.NoError(t, err)
	assert.Equal(t, lintconfigs.Kind, cfg.GetKind())
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".rbplint.yaml")

	wrote, err := lintconfigs.WriteDefault(path, false)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = lintconfigs.WriteDefault(path, false)
	require.NoError(t, err)
	assert.False(t, wrote)

	cfg, err := lintconfigs.Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Checks.Custom, 1)

	wrote, err = lintconfigs.WriteDefault(path, true)
	require.NoError(t, err)
	assert.True(t, wrote)

	matches, err := filepath.Glob(path + ".*.old")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
