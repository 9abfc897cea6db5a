package profiler

import (
	"fmt"
	"sync"

	"github.com/macropower/rbplint/pkg/config"
	"github.com/macropower/rbplint/pkg/schema"
	"github.com/macropower/rbplint/pkg/yaml"
)

// SchemaID is the $id of the profiler document schema.
const SchemaID = "https://rbplint.jacobcolvin.com/schemas/profiler.json"

var (
	schemaOnce = sync.OnceValues(func() ([]byte, error) {
		return schema.NewGenerator(&Config{}, schema.WithID(SchemaID)).Generate()
	})

	validatorOnce = sync.OnceValues(func() (*yaml.Validator, error) {
		data, err := Schema()
		if err != nil {
			return nil, err
		}

		return yaml.NewValidator(SchemaID, data)
	})
)

// Schema returns the JSON schema of profiler documents.
func Schema() ([]byte, error) {
	data, err := schemaOnce()
	if err != nil {
		return nil, fmt.Errorf("generate profiler schema: %w", err)
	}

	return data, nil
}

// Validator returns the compiled profiler document schema.
func Validator() (*yaml.Validator, error) {
	v, err := validatorOnce()
	if err != nil {
		return nil, fmt.Errorf("compile profiler schema: %w", err)
	}

	return v, nil
}

// Parse validates data against the profiler schema and decodes it.
func Parse(data []byte, opts ...config.LoaderOpt) (*Config, error) {
	v, err := Validator()
	if err != nil {
		return nil, err
	}

	cfg, err := config.NewLoaderFromBytes(data, New, v, opts...).ValidateAndLoad()
	if err != nil {
		return nil, fmt.Errorf("load profiler config: %w", err)
	}

	return cfg, nil
}

// LoadFile reads and parses a profiler document from path.
func LoadFile(path string, opts ...config.LoaderOpt) (*Config, error) {
	v, err := Validator()
	if err != nil {
		return nil, err
	}

	loader, err := config.NewLoaderFromFile(path, New, v, opts...)
	if err != nil {
		return nil, fmt.Errorf("read profiler config: %w", err)
	}

	cfg, err := loader.ValidateAndLoad()
	if err != nil {
		return nil, fmt.Errorf("load profiler config %s: %w", path, err)
	}

	return cfg, nil
}

// Marshal writes cfg as YAML, keeping rule order.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal profiler config: %w", err)
	}

	return data, nil
}
