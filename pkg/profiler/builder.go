package profiler

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"
)

const (
	keyClassName  = "class_name"
	keyModuleName = "module_name"
	keyName       = "name"

	KeyBatchRequest    = "batch_request"
	KeyExpectationType = "expectation_type"
	KeyCondition       = "condition"
)

// Builder is a domain, parameter, or expectation configuration builder.
//
// Every key of the document is kept in Attributes. ClassName, ModuleName
// and Name mirror the well-known keys and take precedence over Attributes
// when the builder is written back out.
type Builder struct {
	Attributes map[string]any
	ClassName  string
	ModuleName string
	Name       string
}

// NewBuilder creates a [Builder] of the given class.
func NewBuilder(className string, attrs map[string]any) *Builder {
	b := &Builder{Attributes: map[string]any{}}
	maps.Copy(b.Attributes, attrs)
	b.ClassName = className
	b.sync()

	return b
}

func (b *Builder) sync() {
	if s, ok := b.Attributes[keyClassName].(string); ok && b.ClassName == "" {
		b.ClassName = s
	}
	if s, ok := b.Attributes[keyModuleName].(string); ok && b.ModuleName == "" {
		b.ModuleName = s
	}
	if s, ok := b.Attributes[keyName].(string); ok && b.Name == "" {
		b.Name = s
	}
}

// Get returns an attribute, including the well-known keys.
func (b *Builder) Get(key string) (any, bool) {
	switch key {
	case keyClassName:
		return b.ClassName, b.ClassName != ""
	case keyModuleName:
		return b.ModuleName, b.ModuleName != ""
	case keyName:
		return b.Name, b.Name != ""
	}

	v, ok := b.Attributes[key]

	return v, ok
}

// Set sets an attribute, including the well-known keys.
func (b *Builder) Set(key string, v any) {
	if b.Attributes == nil {
		b.Attributes = map[string]any{}
	}

	s, _ := v.(string)

	switch key {
	case keyClassName:
		b.ClassName = s
	case keyModuleName:
		b.ModuleName = s
	case keyName:
		b.Name = s
	}

	b.Attributes[key] = v
}

// Map returns every attribute of the builder as a new map.
func (b *Builder) Map() map[string]any {
	m := make(map[string]any, len(b.Attributes)+3)
	maps.Copy(m, b.Attributes)

	for key, v := range map[string]string{
		keyClassName:  b.ClassName,
		keyModuleName: b.ModuleName,
		keyName:       b.Name,
	} {
		if v != "" {
			m[key] = v
		} else {
			delete(m, key)
		}
	}

	return m
}

// Clone returns a deep copy of the builder.
func (b *Builder) Clone() *Builder {
	if b == nil {
		return nil
	}

	c := &Builder{
		ClassName:  b.ClassName,
		ModuleName: b.ModuleName,
		Name:       b.Name,
	}
	if b.Attributes != nil {
		c.Attributes = DeepCopy(b.Attributes).(map[string]any) //nolint:forcetypeassert // Same type in and out.
	}

	return c
}

// BatchRequest decodes the builder's batch_request attribute. It returns
// nil when the attribute is absent or is a reference string.
func (b *Builder) BatchRequest() (*BatchRequest, error) {
	raw, ok := b.Attributes[KeyBatchRequest]
	if !ok {
		return nil, nil
	}
	if _, isString := raw.(string); isString {
		return nil, nil
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal batch_request: %w", err)
	}

	br := &BatchRequest{}

	err = yaml.Unmarshal(data, br)
	if err != nil {
		return nil, fmt.Errorf("decode batch_request: %w", err)
	}

	return br, nil
}

func (b *Builder) UnmarshalYAML(unmarshal func(any) error) error {
	var m map[string]any

	err := unmarshal(&m)
	if err != nil {
		return err
	}

	*b = Builder{Attributes: m}
	if b.Attributes == nil {
		b.Attributes = map[string]any{}
	}

	b.sync()

	return nil
}

// MarshalYAML writes the well-known keys first, then the remaining
// attributes in key order.
func (b Builder) MarshalYAML() (any, error) {
	m := b.Map()

	ms := yaml.MapSlice{}
	for _, key := range []string{keyName, keyClassName, keyModuleName} {
		if v, ok := m[key]; ok {
			ms = append(ms, yaml.MapItem{Key: key, Value: v})
			delete(m, key)
		}
	}

	for _, key := range slices.Sorted(maps.Keys(m)) {
		ms = append(ms, yaml.MapItem{Key: key, Value: m[key]})
	}

	return ms, nil
}

func (b Builder) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Map()) //nolint:wrapcheck // Return the original error.
}

func (b *Builder) UnmarshalJSON(data []byte) error {
	var m map[string]any

	err := json.Unmarshal(data, &m)
	if err != nil {
		return err //nolint:wrapcheck // Return the original error.
	}

	*b = Builder{Attributes: m}
	b.sync()

	return nil
}

func (Builder) JSONSchema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	props.Set(keyClassName, &jsonschema.Schema{
		Type:        "string",
		Title:       "Class Name",
		Description: "Builder class, e.g. ColumnDomainBuilder.",
		MinLength:   ptr(uint64(1)),
	})
	props.Set(keyModuleName, &jsonschema.Schema{
		Type:  "string",
		Title: "Module Name",
	})
	props.Set(keyName, &jsonschema.Schema{
		Type:  "string",
		Title: "Name",
	})
	props.Set(KeyBatchRequest, &jsonschema.Schema{
		Title: "Batch Request",
		AnyOf: []*jsonschema.Schema{
			{Type: "string", Pattern: `^\$`},
			BatchRequest{}.JSONSchema(),
		},
	})

	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             []string{keyClassName},
		AdditionalProperties: jsonschema.TrueSchema,
	}
}

func ptr[T any](v T) *T {
	return &v
}

// DeepCopy copies maps and slices decoded from YAML or JSON.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = DeepCopy(val)
		}

		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = DeepCopy(val)
		}

		return s
	}

	return v
}
