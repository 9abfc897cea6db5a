// Package reconcile applies override documents to profiler configurations.
//
// An override document has the same shape as a profiler configuration, but
// only its variables and rules are read. How each part is combined with
// the base configuration is chosen by a [Strategy].
package reconcile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/macropower/rbplint/api"
	"github.com/macropower/rbplint/pkg/profiler"
	"github.com/macropower/rbplint/pkg/yaml"
)

// Strategy is how an override is combined with the base value.
type Strategy string

const (
	// Replace discards the base value.
	Replace Strategy = "replace"
	// Update replaces top-level keys, or matching list items, wholesale.
	Update Strategy = "update"
	// NestedUpdate merges mappings recursively.
	NestedUpdate Strategy = "nested_update"
)

var (
	ErrUnknownStrategy = errors.New("unknown reconciliation strategy")

	// AllStrategies lists the accepted [Strategy] values.
	AllStrategies = []string{
		string(Replace),
		string(Update),
		string(NestedUpdate),
	}
)

// ParseStrategy parses a [Strategy] value. Dashes are accepted in place
// of underscores.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ReplaceAll(strings.ToLower(s), "-", "_")); st {
	case Replace, Update, NestedUpdate:
		return st, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Directives selects a [Strategy] per part of the configuration.
type Directives struct {
	Variables                        Strategy
	DomainBuilder                    Strategy
	ParameterBuilders                Strategy
	ExpectationConfigurationBuilders Strategy
}

// DefaultDirectives returns directives that use [Update] everywhere.
func DefaultDirectives() Directives {
	return Directives{
		Variables:                        Update,
		DomainBuilder:                    Update,
		ParameterBuilders:                Update,
		ExpectationConfigurationBuilders: Update,
	}
}

// Config returns a copy of base with overrides applied and every builder
// expanded with reg. Base is not modified.
func Config(base, overrides *profiler.Config, d Directives, reg *profiler.Registry) *profiler.Config {
	out := base.Clone()
	if overrides != nil {
		out.Variables = Variables(out.Variables, overrides.Variables, d.Variables)
		out.Rules = Rules(out.Rules, overrides.Rules, d)
	}

	profiler.Expand(out, reg)

	return out
}

// Variables combines base and override variables.
func Variables(base, overrides map[string]any, s Strategy) map[string]any {
	if overrides == nil {
		return copyMap(base)
	}

	switch s {
	case Replace:
		return copyMap(overrides)
	case NestedUpdate:
		return merge(copyMap(base), overrides)
	default:
		out := copyMap(base)
		for k, v := range overrides {
			out[k] = profiler.DeepCopy(v)
		}

		return out
	}
}

// Rules combines base and override rules. Rules only present in overrides
// are appended in override order.
func Rules(base, overrides profiler.Rules, d Directives) profiler.Rules {
	out := make(profiler.Rules, 0, len(base)+len(overrides))
	for _, nr := range base {
		out = append(out, profiler.NamedRule{Name: nr.Name, Rule: nr.Rule.Clone()})
	}

	for _, over := range overrides {
		i := indexRule(out, over.Name)
		if i < 0 {
			out = append(out, profiler.NamedRule{Name: over.Name, Rule: over.Rule.Clone()})
			continue
		}

		out[i].Rule = rule(out[i].Rule, over.Rule, d)
	}

	return out
}

func indexRule(rules profiler.Rules, name string) int {
	for i, nr := range rules {
		if nr.Name == name {
			return i
		}
	}

	return -1
}

func rule(base, over *profiler.Rule, d Directives) *profiler.Rule {
	switch {
	case over == nil:
		return base
	case base == nil:
		return over.Clone()
	}

	out := base.Clone()
	if over.DomainBuilder != nil {
		out.DomainBuilder = builder(out.DomainBuilder, over.DomainBuilder, d.DomainBuilder)
	}
	if over.ParameterBuilders != nil {
		out.ParameterBuilders = builders(out.ParameterBuilders, over.ParameterBuilders,
			d.ParameterBuilders, parameterKey)
	}
	if over.ExpectationConfigurationBuilders != nil {
		out.ExpectationConfigurationBuilders = builders(out.ExpectationConfigurationBuilders,
			over.ExpectationConfigurationBuilders, d.ExpectationConfigurationBuilders, expectationKey)
	}

	return out
}

func builder(base, over *profiler.Builder, s Strategy) *profiler.Builder {
	if base == nil || s == Replace {
		return over.Clone()
	}

	m := base.Map()
	if s == NestedUpdate {
		m = merge(m, over.Map())
	} else {
		for k, v := range over.Map() {
			m[k] = profiler.DeepCopy(v)
		}
	}

	return profiler.NewBuilder("", m)
}

func parameterKey(b *profiler.Builder) string {
	return b.Name
}

func expectationKey(b *profiler.Builder) string {
	s, _ := b.Attributes[profiler.KeyExpectationType].(string)

	return s
}

// builders combines builder lists, matching items with key. Items without
// a key never match.
func builders(base, over []*profiler.Builder, s Strategy, key func(*profiler.Builder) string) []*profiler.Builder {
	if s == Replace {
		out := make([]*profiler.Builder, 0, len(over))
		for _, b := range over {
			out = append(out, b.Clone())
		}

		return out
	}

	out := make([]*profiler.Builder, 0, len(base)+len(over))
	for _, b := range base {
		out = append(out, b.Clone())
	}

	for _, b := range over {
		i := -1
		if k := key(b); k != "" {
			for j, existing := range out {
				if key(existing) == k {
					i = j
					break
				}
			}
		}

		switch {
		case i < 0:
			out = append(out, b.Clone())
		case s == NestedUpdate:
			out[i] = builder(out[i], b, NestedUpdate)
		default:
			out[i] = b.Clone()
		}
	}

	return out
}

// merge merges src into dst recursively and returns dst. Mappings are
// merged; any other value in src replaces the one in dst.
func merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}

	for k, v := range src {
		sm, srcIsMap := v.(map[string]any)
		dm, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = merge(dm, sm)
			continue
		}

		dst[k] = profiler.DeepCopy(v)
	}

	return dst
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = profiler.DeepCopy(v)
	}

	return out
}

// ParseOverrides decodes an override document. Unlike profiler documents,
// overrides are not validated against the schema, since partial builders
// are expected.
func ParseOverrides(data []byte) (*profiler.Config, error) {
	cfg := &profiler.Config{}

	err := yaml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode overrides: %w",
			yaml.NewErrorWrapper(yaml.WithSource(data)).Wrap(err))
	}

	return cfg, nil
}

// LoadOverrides reads and decodes the override document at path.
func LoadOverrides(path string) (*profiler.Config, error) {
	data, err := api.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}

	return ParseOverrides(data)
}
