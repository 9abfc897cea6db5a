package profiler

import (
	"maps"
	"slices"
	"strings"
	"unicode"
)

// Kind is the list a builder belongs to.
type Kind string

const (
	KindDomainBuilder                   Kind = "domain_builder"
	KindParameterBuilder                Kind = "parameter_builder"
	KindExpectationConfigurationBuilder Kind = "expectation_configuration_builder"

	packageRoot = "great_expectations.rule_based_profiler"
)

// AllKinds lists every builder kind.
var AllKinds = []Kind{
	KindDomainBuilder,
	KindParameterBuilder,
	KindExpectationConfigurationBuilder,
}

// Package returns the module that builders of this kind live in.
func (k Kind) Package() string {
	return packageRoot + "." + string(k)
}

// Class describes a known builder class.
type Class struct {
	// Defaults are applied by [Expand] to attributes the document omits.
	Defaults map[string]any
	Name     string
	Kind     Kind
	// Required attributes, besides class_name.
	Required []string
}

// Module returns the fully qualified module of the class.
func (c Class) Module() string {
	return c.Kind.Package() + "." + SnakeCase(c.Name)
}

var builtinClasses = []Class{
	{Kind: KindDomainBuilder, Name: "TableDomainBuilder"},
	{Kind: KindDomainBuilder, Name: "ColumnDomainBuilder"},
	{Kind: KindDomainBuilder, Name: "ColumnPairDomainBuilder"},
	{Kind: KindDomainBuilder, Name: "MultiColumnDomainBuilder"},
	{Kind: KindDomainBuilder, Name: "CategoricalColumnDomainBuilder"},
	{Kind: KindDomainBuilder, Name: "SimpleColumnSuffixDomainBuilder"},
	{Kind: KindDomainBuilder, Name: "SimpleSemanticTypeColumnDomainBuilder"},
	{
		Kind:     KindDomainBuilder,
		Name:     "MapMetricColumnDomainBuilder",
		Required: []string{"map_metric_name"},
		Defaults: map[string]any{
			"max_unexpected_values":                uint64(0),
			"min_max_unexpected_values_proportion": 9.75e-1,
		},
	},
	{
		Kind:     KindParameterBuilder,
		Name:     "MetricMultiBatchParameterBuilder",
		Required: []string{keyName, "metric_name"},
		Defaults: map[string]any{
			"enforce_numeric_metric": false,
			"replace_nan_with_zero":  false,
			"reduce_scalar_metric":   true,
			"json_serialize":         true,
		},
	},
	{
		Kind:     KindParameterBuilder,
		Name:     "NumericMetricRangeMultiBatchParameterBuilder",
		Required: []string{keyName, "metric_name"},
		Defaults: map[string]any{
			"estimator":              "bootstrap",
			"enforce_numeric_metric": true,
			"replace_nan_with_zero":  true,
			"reduce_scalar_metric":   true,
			"false_positive_rate":    0.05,
			"truncate_values":        map[string]any{},
			"json_serialize":         true,
		},
	},
	{
		Kind:     KindParameterBuilder,
		Name:     "MeanUnexpectedMapMetricMultiBatchParameterBuilder",
		Required: []string{keyName, "map_metric_name", "total_count_parameter_builder_name"},
		Defaults: map[string]any{
			"json_serialize": true,
		},
	},
	{
		Kind:     KindParameterBuilder,
		Name:     "ValueSetMultiBatchParameterBuilder",
		Required: []string{keyName},
		Defaults: map[string]any{
			"json_serialize": true,
		},
	},
	{
		Kind:     KindParameterBuilder,
		Name:     "RegexPatternStringParameterBuilder",
		Required: []string{keyName},
		Defaults: map[string]any{
			"threshold":      1.0,
			"json_serialize": true,
		},
	},
	{
		Kind:     KindParameterBuilder,
		Name:     "SimpleDateFormatStringParameterBuilder",
		Required: []string{keyName},
		Defaults: map[string]any{
			"threshold":      1.0,
			"json_serialize": true,
		},
	},
	{
		Kind:     KindExpectationConfigurationBuilder,
		Name:     "DefaultExpectationConfigurationBuilder",
		Required: []string{KeyExpectationType},
	},
}

// Registry holds the builder classes that are known, by kind.
type Registry struct {
	classes map[Kind]map[string]Class
}

// NewRegistry creates a [Registry] with the built-in classes.
func NewRegistry() *Registry {
	r := &Registry{classes: map[Kind]map[string]Class{}}
	for _, c := range builtinClasses {
		r.Register(c)
	}

	return r
}

// DefaultRegistry contains the built-in classes only.
var DefaultRegistry = NewRegistry()

// Register adds or replaces a class.
func (r *Registry) Register(c Class) {
	if r.classes[c.Kind] == nil {
		r.classes[c.Kind] = map[string]Class{}
	}

	r.classes[c.Kind][c.Name] = c
}

// Extend returns a copy of the registry with extra class names of the given
// kind. Extra classes have no required or default attributes.
func (r *Registry) Extend(kind Kind, names ...string) *Registry {
	out := &Registry{classes: map[Kind]map[string]Class{}}
	for k, classes := range r.classes {
		out.classes[k] = maps.Clone(classes)
	}
	for _, name := range names {
		if _, ok := out.Lookup(kind, name); !ok {
			out.Register(Class{Kind: kind, Name: name})
		}
	}

	return out
}

// Lookup returns the class with the given kind and name.
func (r *Registry) Lookup(kind Kind, name string) (Class, bool) {
	c, ok := r.classes[kind][name]

	return c, ok
}

// Names returns the class names of a kind in sorted order.
func (r *Registry) Names(kind Kind) []string {
	return slices.Sorted(maps.Keys(r.classes[kind]))
}

// SnakeCase converts a Go or Python class name to snake_case, keeping
// acronyms together, e.g. "NumericMetricRangeMultiBatchParameterBuilder"
// becomes "numeric_metric_range_multi_batch_parameter_builder".
func SnakeCase(s string) string {
	runes := []rune(s)

	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				sb.WriteByte('_')
			}
		}

		sb.WriteRune(unicode.ToLower(r))
	}

	return sb.String()
}
