package manifest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rbplint/pkg/manifest"
)

func TestParseRequirement(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		want    manifest.Requirement
		input   string
		wantErr bool
	}{
		"name only": {
			input: "freezegun",
			want:  manifest.Requirement{Name: "freezegun"},
		},
		"pinned": {
			input: "pytest==7.4.0",
			want: manifest.Requirement{
				Name:       "pytest",
				Specifiers: []manifest.Specifier{{Comparator: "==", Version: "7.4.0"}},
			},
		},
		"range with spaces": {
			input: "moto >= 2.0, < 3",
			want: manifest.Requirement{
				Name: "moto",
				Specifiers: []manifest.Specifier{
					{Comparator: ">=", Version: "2.0"},
					{Comparator: "<", Version: "3"},
				},
			},
		},
		"extras and marker": {
			input: `requests[security, socks]~=2.31; python_version >= "3.8"`,
			want: manifest.Requirement{
				Name:       "requests",
				Extras:     []string{"security", "socks"},
				Specifiers: []manifest.Specifier{{Comparator: "~=", Version: "2.31"}},
				Marker:     `python_version >= "3.8"`,
			},
		},
		"parenthesized": {
			input: "black (==23.1.0)",
			want: manifest.Requirement{
				Name:       "black",
				Specifiers: []manifest.Specifier{{Comparator: "==", Version: "23.1.0"}},
			},
		},
		"hash option": {
			input: "flake8==6.0.0 --hash=sha256:abc",
			want: manifest.Requirement{
				Name:       "flake8",
				Specifiers: []manifest.Specifier{{Comparator: "==", Version: "6.0.0"}},
			},
		},
		"unknown comparator parses": {
			input: "pytest=>7",
			want: manifest.Requirement{
				Name:       "pytest",
				Specifiers: []manifest.Specifier{{Comparator: "=>", Version: "7"}},
			},
		},
		"invalid name": {
			input:   "-pytest==1",
			wantErr: true,
		},
		"specifier without comparator": {
			input:   "pytest 7.0",
			wantErr: true,
		},
		"invalid extra": {
			input:   "requests[!]",
			wantErr: true,
		},
		"unbalanced parentheses": {
			input:   "black (==23.1.0",
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := manifest.ParseRequirement(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, manifest.ErrInvalidRequirement)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSpecifier_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		wantErr error
		spec    manifest.Specifier
		allowed []string
	}{
		"release":            {spec: manifest.Specifier{Comparator: "==", Version: "1.2.3"}},
		"pre and post":       {spec: manifest.Specifier{Comparator: ">=", Version: "1.0rc1.post2.dev3"}},
		"epoch":              {spec: manifest.Specifier{Comparator: "<", Version: "1!2.0"}},
		"wildcard":           {spec: manifest.Specifier{Comparator: "!=", Version: "1.4.*"}},
		"compatible":         {spec: manifest.Specifier{Comparator: "~=", Version: "2.2"}},
		"arbitrary equality": {spec: manifest.Specifier{Comparator: "===", Version: "foobar"}},
		"local version":      {spec: manifest.Specifier{Comparator: "==", Version: "1.9.0+cpu"}},
		"local exclusion":    {spec: manifest.Specifier{Comparator: "!=", Version: "2.1.0+cu118.post1"}},
		"local with >=": {
			spec:    manifest.Specifier{Comparator: ">=", Version: "1.9.0+cpu"},
			wantErr: manifest.ErrInvalidVersion,
		},
		"empty local": {
			spec:    manifest.Specifier{Comparator: "==", Version: "1.9.0+"},
			wantErr: manifest.ErrInvalidVersion,
		},
		"wildcard with >=": {
			spec:    manifest.Specifier{Comparator: ">=", Version: "1.4.*"},
			wantErr: manifest.ErrInvalidVersion,
		},
		"compatible single segment": {
			spec:    manifest.Specifier{Comparator: "~=", Version: "1"},
			wantErr: manifest.ErrInvalidVersion,
		},
		"not a version": {
			spec:    manifest.Specifier{Comparator: "==", Version: "latest"},
			wantErr: manifest.ErrInvalidVersion,
		},
		"unknown comparator": {
			spec:    manifest.Specifier{Comparator: "=>", Version: "1.0"},
			wantErr: manifest.ErrUnknownComparator,
		},
		"disallowed comparator": {
			spec:    manifest.Specifier{Comparator: ">=", Version: "1.0"},
			allowed: []string{"=="},
			wantErr: manifest.ErrUnknownComparator,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.spec.Validate(tc.allowed)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pytest-cov", manifest.NormalizeName("Pytest_Cov"))
	assert.Equal(t, "zope-interface", manifest.NormalizeName("zope.__interface"))
}

func TestRequirement_String(t *testing.T) {
	t.Parallel()

	req, err := manifest.ParseRequirement(`requests[socks]>=2,<3; os_name == "nt"`)
	require.NoError(t, err)
	assert.Equal(t, `requests[socks]>=2,<3; os_name == "nt"`, req.String())
}
