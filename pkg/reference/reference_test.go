package reference_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rbplint/pkg/reference"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err   error
		input string
		want  reference.Reference
		isRef bool
	}{
		"plain string": {
			input: "column",
		},
		"variable": {
			input: "$variables.quantiles",
			isRef: true,
			want: reference.Reference{
				Raw:  "$variables.quantiles",
				Root: reference.RootVariables,
				Path: []reference.Segment{{Key: "quantiles"}},
			},
		},
		"parameter with index": {
			input: "$parameter.my_metric.value[0]",
			isRef: true,
			want: reference.Reference{
				Raw:  "$parameter.my_metric.value[0]",
				Root: reference.RootParameter,
				Path: []reference.Segment{
					{Key: "my_metric"},
					{Key: "value", Indices: []int{0}},
				},
			},
		},
		"nested indices": {
			input: "$variables.bounds[1][0]",
			isRef: true,
			want: reference.Reference{
				Raw:  "$variables.bounds[1][0]",
				Root: reference.RootVariables,
				Path: []reference.Segment{{Key: "bounds", Indices: []int{1, 0}}},
			},
		},
		"domain": {
			input: "$domain.domain_kwargs.column",
			isRef: true,
			want: reference.Reference{
				Raw:  "$domain.domain_kwargs.column",
				Root: reference.RootDomain,
				Path: []reference.Segment{{Key: "domain_kwargs"}, {Key: "column"}},
			},
		},
		"unknown root": {
			input: "$variable.quantiles",
			isRef: true,
			err:   reference.ErrUnknownRoot,
		},
		"missing root": {
			input: "$.quantiles",
			isRef: true,
			err:   reference.ErrMalformed,
		},
		"empty path": {
			input: "$variables",
			isRef: true,
			err:   reference.ErrMalformed,
		},
		"empty segment": {
			input: "$variables..quantiles",
			isRef: true,
			err:   reference.ErrMalformed,
		},
		"negative index": {
			input: "$variables.quantiles[-1]",
			isRef: true,
			err:   reference.ErrMalformed,
		},
		"unterminated index": {
			input: "$variables.quantiles[0",
			isRef: true,
			err:   reference.ErrMalformed,
		},
		"empty index": {
			input: "$variables.quantiles[]",
			isRef: true,
			err:   reference.ErrMalformed,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, isRef, err := reference.Parse(tc.input)
			assert.Equal(t, tc.isRef, isRef)

			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}

			require.NoError(t, err)
			if tc.isRef {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	tree := map[string]any{
		"quantiles": []any{0.1, 0.5, 0.9},
		"bounds":    []any{[]any{1.0, 2.0}},
		"nested": map[string]any{
			"rate": 0.05,
		},
	}

	tcs := map[string]struct {
		want    any
		ref     string
		wantErr bool
	}{
		"top level": {
			ref:  "$variables.quantiles",
			want: []any{0.1, 0.5, 0.9},
		},
		"index": {
			ref:  "$variables.quantiles[2]",
			want: 0.9,
		},
		"double index": {
			ref:  "$variables.bounds[0][1]",
			want: 2.0,
		},
		"nested key": {
			ref:  "$variables.nested.rate",
			want: 0.05,
		},
		"missing key": {
			ref:     "$variables.missing",
			wantErr: true,
		},
		"index out of range": {
			ref:     "$variables.quantiles[3]",
			wantErr: true,
		},
		"index into mapping": {
			ref:     "$variables.nested[0]",
			wantErr: true,
		},
		"key into scalar": {
			ref:     "$variables.nested.rate.value",
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ref, _, err := reference.Parse(tc.ref)
			require.NoError(t, err)

			got, err := reference.Lookup(tree, ref.Path)
			if tc.wantErr {
				require.ErrorIs(t, err, reference.ErrNotFound)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCollect(t *testing.T) {
	t.Parallel()

	v := map[string]any{
		"b": []any{"$parameter.p.value", "literal", 3},
		"a": map[string]any{"x": "$variables.x"},
	}

	assert.Equal(t, []string{"$variables.x", "$parameter.p.value"}, reference.Collect(v))
	assert.Empty(t, reference.Collect("plain"))
}
