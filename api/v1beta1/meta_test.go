package v1beta1_test

import (
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rbplint/api/v1beta1"
)

type lintConfigHeader struct {
	v1beta1.TypeMeta `json:",inline"`
}

func (lintConfigHeader) EnsureDefaults() {}

func TestCheckTypeMeta(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err     error
		src     string
		wantMsg string
	}{
		"lint config": {
			src: "apiVersion: rbplint.jacobcolvin.com/v1beta1\nkind: LintConfig\n",
		},
		"future version": {
			src:     "apiVersion: rbplint.jacobcolvin.com/v1\nkind: LintConfig\n",
			err:     v1beta1.ErrUnsupportedAPIVersion,
			wantMsg: `"rbplint.jacobcolvin.com/v1"`,
		},
		"profiler document": {
			src:     "name: my_profiler\nconfig_version: 1.0\n",
			err:     v1beta1.ErrUnsupportedAPIVersion,
			wantMsg: `""`,
		},
		"unknown kind": {
			src:     "apiVersion: rbplint.jacobcolvin.com/v1beta1\nkind: Profiler\n",
			err:     v1beta1.ErrUnsupportedKind,
			wantMsg: `"Profiler", expected one of [LintConfig]`,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var obj lintConfigHeader
			require.NoError(t, yaml.Unmarshal([]byte(tc.src), &obj))

			err := v1beta1.CheckTypeMeta(obj, []string{"LintConfig"})
			if tc.err == nil {
				require.NoError(t, err)
				assert.Equal(t, v1beta1.APIVersion, obj.GetAPIVersion())
				assert.Equal(t, "LintConfig", obj.GetKind())

				return
			}

			require.ErrorIs(t, err, tc.err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestExtendSchemaWithEnums(t *testing.T) {
	t.Parallel()

	r := &jsonschema.Reflector{DoNotReference: true}
	jss := r.Reflect(&lintConfigHeader{})

	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, []string{"LintConfig"})

	apiVersion, ok := jss.Properties.Get("apiVersion")
	require.True(t, ok)
	require.Len(t, apiVersion.OneOf, 1)
	assert.Equal(t, v1beta1.APIVersion, apiVersion.OneOf[0].Const)
	assert.Equal(t, "API Version", apiVersion.OneOf[0].Title)

	kind, ok := jss.Properties.Get("kind")
	require.True(t, ok)
	require.Len(t, kind.OneOf, 1)
	assert.Equal(t, "LintConfig", kind.OneOf[0].Const)
	assert.Equal(t, "Kind", kind.OneOf[0].Title)
}

func TestExtendSchemaWithEnums_MissingProperty(t *testing.T) {
	t.Parallel()

	for _, present := range []string{"apiVersion", "kind"} {
		jss := &jsonschema.Schema{Properties: jsonschema.NewProperties()}
		jss.Properties.Set(present, &jsonschema.Schema{Type: "string"})

		assert.Panics(t, func() {
			v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, []string{"LintConfig"})
		}, present)
	}
}
