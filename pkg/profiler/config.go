// Package profiler models rule-based profiler configuration documents.
//
// A document names a profiler, declares shared variables, and lists rules.
// Each rule has one domain builder, an ordered list of parameter builders,
// and an ordered list of expectation configuration builders. Builders are
// never executed; the package only reads, validates, expands and writes
// them.
package profiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"
)

var ErrDuplicateRule = errors.New("duplicate rule name")

// Config is a rule-based profiler configuration document.
type Config struct {
	// Variables are shared values, referenced as `$variables.<path>`.
	Variables map[string]any `json:"variables,omitempty" jsonschema:"title=Variables"`
	// Name identifies the profiler.
	Name string `json:"name,omitempty" jsonschema:"title=Name"`
	// ClassName is the profiler class, usually RuleBasedProfiler.
	ClassName string `json:"class_name,omitempty" jsonschema:"title=Class Name"`
	// ModuleName is the module the profiler class is loaded from.
	ModuleName string `json:"module_name,omitempty" jsonschema:"title=Module Name"`
	// Rules maps rule names to rules, in document order.
	Rules Rules `json:"rules,omitempty" jsonschema:"title=Rules"`
	// ConfigVersion is the document format version.
	ConfigVersion float64 `json:"config_version,omitempty" jsonschema:"title=Config Version"`
}

// New creates an empty [Config].
func New() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults initializes nil fields to their default values.
func (c *Config) EnsureDefaults() {
	if c.Variables == nil {
		c.Variables = map[string]any{}
	}
}

// MarshalYAML writes the document keys in a stable, conventional order.
func (c Config) MarshalYAML() (any, error) {
	ms := yaml.MapSlice{}
	add := func(key string, v any, set bool) {
		if set {
			ms = append(ms, yaml.MapItem{Key: key, Value: v})
		}
	}

	add("name", c.Name, c.Name != "")
	add("config_version", c.ConfigVersion, c.ConfigVersion != 0)
	add("class_name", c.ClassName, c.ClassName != "")
	add("module_name", c.ModuleName, c.ModuleName != "")
	add("variables", c.Variables, len(c.Variables) > 0)
	add("rules", c.Rules, c.Rules != nil)

	return ms, nil
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	out := &Config{
		Name:          c.Name,
		ClassName:     c.ClassName,
		ModuleName:    c.ModuleName,
		ConfigVersion: c.ConfigVersion,
	}
	if c.Variables != nil {
		out.Variables = DeepCopy(c.Variables).(map[string]any) //nolint:forcetypeassert // Same type in and out.
	}
	for _, nr := range c.Rules {
		out.Rules = append(out.Rules, NamedRule{Name: nr.Name, Rule: nr.Rule.Clone()})
	}

	return out
}

// Rule is one profiler rule.
type Rule struct {
	DomainBuilder                    *Builder   `json:"domain_builder,omitempty"`
	ParameterBuilders                []*Builder `json:"parameter_builders,omitempty"`
	ExpectationConfigurationBuilders []*Builder `json:"expectation_configuration_builders,omitempty"`
}

// Clone returns a deep copy of the rule.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}

	out := &Rule{DomainBuilder: r.DomainBuilder.Clone()}
	for _, b := range r.ParameterBuilders {
		out.ParameterBuilders = append(out.ParameterBuilders, b.Clone())
	}
	for _, b := range r.ExpectationConfigurationBuilders {
		out.ExpectationConfigurationBuilders = append(out.ExpectationConfigurationBuilders, b.Clone())
	}

	return out
}

// Builders returns every builder of the rule, with its kind.
func (r *Rule) Builders() []KindBuilder {
	var out []KindBuilder
	if r.DomainBuilder != nil {
		out = append(out, KindBuilder{Kind: KindDomainBuilder, Builder: r.DomainBuilder})
	}
	for _, b := range r.ParameterBuilders {
		out = append(out, KindBuilder{Kind: KindParameterBuilder, Builder: b})
	}
	for _, b := range r.ExpectationConfigurationBuilders {
		out = append(out, KindBuilder{Kind: KindExpectationConfigurationBuilder, Builder: b})
	}

	return out
}

// KindBuilder pairs a [Builder] with the list it came from.
type KindBuilder struct {
	*Builder

	Kind Kind
}

// NamedRule is a [Rule] together with its name.
type NamedRule struct {
	*Rule

	Name string
}

// Rules is an ordered mapping of rule names to rules.
type Rules []NamedRule

// Get returns the rule with the given name.
func (rs Rules) Get(name string) (*Rule, bool) {
	i := slices.IndexFunc(rs, func(nr NamedRule) bool { return nr.Name == name })
	if i < 0 {
		return nil, false
	}

	return rs[i].Rule, true
}

// Names returns the rule names in order.
func (rs Rules) Names() []string {
	names := make([]string, len(rs))
	for i, nr := range rs {
		names[i] = nr.Name
	}

	return names
}

func (rs *Rules) UnmarshalYAML(unmarshal func(any) error) error {
	var order yaml.MapSlice

	err := unmarshal(&order)
	if err != nil {
		return err
	}

	var byName map[string]*Rule

	err = unmarshal(&byName)
	if err != nil {
		return err
	}

	out := make(Rules, 0, len(order))
	seen := map[string]bool{}

	for _, item := range order {
		name := fmt.Sprint(item.Key)
		if seen[name] {
			return fmt.Errorf("%w: %q", ErrDuplicateRule, name)
		}

		seen[name] = true

		rule := byName[name]
		if rule == nil {
			rule = &Rule{}
		}

		out = append(out, NamedRule{Name: name, Rule: rule})
	}

	*rs = out

	return nil
}

func (rs Rules) MarshalYAML() (any, error) {
	ms := make(yaml.MapSlice, 0, len(rs))
	for _, nr := range rs {
		ms = append(ms, yaml.MapItem{Key: nr.Name, Value: nr.Rule})
	}

	return ms, nil
}

// MarshalJSON writes rules as an object. Key order follows
// encoding/json, which sorts map keys.
func (rs Rules) MarshalJSON() ([]byte, error) {
	m := make(map[string]*Rule, len(rs))
	for _, nr := range rs {
		m[nr.Name] = nr.Rule
	}

	return json.Marshal(m) //nolint:wrapcheck // Return the original error.
}

func (Rules) JSONSchema() *jsonschema.Schema {
	builder := Builder{}.JSONSchema()

	props := jsonschema.NewProperties()
	props.Set("domain_builder", builder)
	props.Set("parameter_builders", &jsonschema.Schema{
		Type:  "array",
		Items: builder,
	})
	props.Set("expectation_configuration_builders", &jsonschema.Schema{
		Type:  "array",
		Items: builder,
	})

	return &jsonschema.Schema{
		Type: "object",
		AdditionalProperties: &jsonschema.Schema{
			Type:                 "object",
			Title:                "Rule",
			Properties:           props,
			AdditionalProperties: jsonschema.FalseSchema,
		},
	}
}

// BatchRequest selects the batches a builder computes over.
type BatchRequest struct {
	// Limit caps the number of batches.
	Limit              any                 `json:"limit,omitempty"`
	DataConnectorQuery *DataConnectorQuery `json:"data_connector_query,omitempty"`
	DatasourceName     string              `json:"datasource_name,omitempty"`
	DataConnectorName  string              `json:"data_connector_name,omitempty"`
	DataAssetName      string              `json:"data_asset_name,omitempty"`
}

// DataConnectorQuery narrows the batches of a [BatchRequest].
type DataConnectorQuery struct {
	// Index is an integer, an integer string, or a slice string such as
	// "-3:" selecting batches from an ordered collection. Negative
	// indices count from the end.
	Index any `json:"index,omitempty"`
}

func (BatchRequest) JSONSchema() *jsonschema.Schema {
	query := jsonschema.NewProperties()
	query.Set("index", &jsonschema.Schema{
		Title: "Index",
		AnyOf: []*jsonschema.Schema{
			{Type: "integer"},
			{Type: "string"},
			{Type: "null"},
		},
	})

	props := jsonschema.NewProperties()
	props.Set("datasource_name", &jsonschema.Schema{Type: "string"})
	props.Set("data_connector_name", &jsonschema.Schema{Type: "string"})
	props.Set("data_asset_name", &jsonschema.Schema{Type: "string"})
	props.Set("data_connector_query", &jsonschema.Schema{
		Type:                 "object",
		Properties:           query,
		AdditionalProperties: jsonschema.TrueSchema,
	})
	props.Set("limit", &jsonschema.Schema{
		AnyOf: []*jsonschema.Schema{
			{Type: "integer"},
			{Type: "string"},
			{Type: "null"},
		},
	})

	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		AdditionalProperties: jsonschema.TrueSchema,
	}
}

// VariableNames returns the variable names in key order.
func (c *Config) VariableNames() []string {
	return slices.Sorted(maps.Keys(c.Variables))
}
