package check

import (
	"slices"

	"github.com/goccy/go-yaml"

	rbyaml "github.com/macropower/rbplint/pkg/yaml"
)

// segments is a YAML path under construction. Strings select mapping keys
// and ints select sequence indices.
type segments []any

func (s segments) key(k string) segments {
	return append(slices.Clip(s), k)
}

func (s segments) index(i int) segments {
	return append(slices.Clip(s), i)
}

func (s segments) path() *yaml.Path {
	return rbyaml.BuildPath(s...)
}
