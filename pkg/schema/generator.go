// Package schema generates JSON schemas from Go types with
// [github.com/invopop/jsonschema].
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Generator reflects a JSON schema from a Go value.
type Generator struct {
	reflector *jsonschema.Reflector
	target    any
	id        string
	module    string
	packages  []string
}

// GeneratorOpt configures a [Generator].
type GeneratorOpt func(*Generator)

// WithGoComments reads doc comments for the given package directories
// (relative to the module root) into schema descriptions. It only works
// when the module source is available, i.e. when run by go:generate.
func WithGoComments(module string, packages ...string) GeneratorOpt {
	return func(g *Generator) {
		g.module = module
		g.packages = append(g.packages, packages...)
	}
}

// WithID sets the $id of the generated schema.
func WithID(id string) GeneratorOpt {
	return func(g *Generator) {
		g.id = id
	}
}

// NewGenerator creates a [Generator] for target, which should be a
// pointer to a struct.
func NewGenerator(target any, opts ...GeneratorOpt) *Generator {
	g := &Generator{
		target: target,
		reflector: &jsonschema.Reflector{
			Anonymous:      true,
			ExpandedStruct: true,
			FieldNameTag:   "json",
		},
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Reflect returns the schema for the target.
func (g *Generator) Reflect() (*jsonschema.Schema, error) {
	for _, pkg := range g.packages {
		err := g.reflector.AddGoComments(g.module, pkg)
		if err != nil {
			return nil, fmt.Errorf("add go comments for %s: %w", pkg, err)
		}
	}

	jss := g.reflector.Reflect(g.target)
	if g.id != "" {
		jss.ID = jsonschema.ID(g.id)
	}

	return jss, nil
}

// Generate returns the indented JSON encoding of the schema.
func (g *Generator) Generate() ([]byte, error) {
	jss, err := g.Reflect()
	if err != nil {
		return nil, err
	}

	out, err := json.MarshalIndent(jss, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return append(out, '\n'), nil
}
