// Package lintconfigs provides the LintConfig configuration type for rbplint.
package lintconfigs

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/macropower/rbplint/api"
	"github.com/macropower/rbplint/api/v1beta1"
	"github.com/macropower/rbplint/pkg/check"
	"github.com/macropower/rbplint/pkg/config"
	"github.com/macropower/rbplint/pkg/manifest"
	"github.com/macropower/rbplint/pkg/profiler"
	"github.com/macropower/rbplint/pkg/rule"
	"github.com/macropower/rbplint/pkg/schema"
	"github.com/macropower/rbplint/pkg/yaml"
)

// SchemaID is the $id of the LintConfig schema.
const SchemaID = "https://rbplint.jacobcolvin.com/schemas/lintconfig.json"

// Kind is the kind of lint configurations.
const Kind = "LintConfig"

var (
	//go:embed lintconfig.yaml
	defaultConfigYAML []byte

	// ValidKinds contains the valid kind values for lint configurations.
	ValidKinds = []string{Kind}

	// FileNames are the names searched for by [Find], in order.
	FileNames = []string{".rbplint.yaml", "rbplint.yaml"}

	ErrUnknownCheck   = errors.New("unknown check")
	ErrDuplicateCheck = errors.New("duplicate custom check")
	ErrInvalidPattern = errors.New("invalid file pattern")

	// DefaultProfilerFiles match profiler documents when no config is found.
	DefaultProfilerFiles = []string{"*.yaml", "*.yml"}
	// DefaultManifestFiles match dependency manifests when no config is found.
	DefaultManifestFiles = []string{"requirements*.txt", "requirements*.in", "constraints*.txt"}

	schemaOnce = sync.OnceValues(func() ([]byte, error) {
		return schema.NewGenerator(&LintConfig{}, schema.WithID(SchemaID)).Generate()
	})

	validatorOnce = sync.OnceValues(func() (*yaml.Validator, error) {
		data, err := Schema()
		if err != nil {
			return nil, err
		}

		return yaml.NewValidator(SchemaID, data)
	})

	// Compile-time interface checks.
	_ v1beta1.Object = (*LintConfig)(nil)
)

// ChecksConfig controls which checks run and how they are reported.
type ChecksConfig struct {
	// Severity overrides the severity of checks by ID.
	Severity map[check.ID]check.Severity `json:"severity,omitempty" jsonschema:"title=Severity Overrides"`
	// Disable lists the IDs of checks to skip.
	Disable []check.ID `json:"disable,omitempty" jsonschema:"title=Disabled Checks"`
	// Custom contains user-defined CEL checks.
	Custom []*rule.Rule `json:"custom,omitempty" jsonschema:"title=Custom Checks"`
}

// EnsureDefaults initializes nil fields to their default values.
func (c *ChecksConfig) EnsureDefaults() {
	if c.Severity == nil {
		c.Severity = map[check.ID]check.Severity{}
	}
	if c.Disable == nil {
		c.Disable = []check.ID{}
	}
	if c.Custom == nil {
		c.Custom = []*rule.Rule{}
	}
}

// KnownClasses lists builder classes that are allowed in addition to the
// built-in ones.
type KnownClasses struct {
	DomainBuilders                   []string `json:"domainBuilders,omitempty" jsonschema:"title=Domain Builders"`
	ParameterBuilders                []string `json:"parameterBuilders,omitempty" jsonschema:"title=Parameter Builders"`
	ExpectationConfigurationBuilders []string `json:"expectationConfigurationBuilders,omitempty" jsonschema:"title=Expectation Configuration Builders"`
}

// ProfilerConfig configures the profiler document checks.
type ProfilerConfig struct {
	KnownClasses *KnownClasses `json:"knownClasses,omitempty" jsonschema:"title=Known Classes"`
	// RequireModuleName reports builders that omit module_name.
	RequireModuleName bool `json:"requireModuleName,omitempty" jsonschema:"title=Require Module Name"`
}

// EnsureDefaults initializes nil fields to their default values.
func (c *ProfilerConfig) EnsureDefaults() {
	if c.KnownClasses == nil {
		c.KnownClasses = &KnownClasses{}
	}
}

// ManifestConfig configures the dependency manifest checks.
type ManifestConfig struct {
	// AllowedComparators narrows the comparators requirements may use.
	AllowedComparators []string `json:"allowedComparators,omitempty" jsonschema:"title=Allowed Comparators"`
	// RequirePins reports packages that are not pinned with ==.
	RequirePins bool `json:"requirePins,omitempty" jsonschema:"title=Require Pins"`
	// RequireBase reports manifests that do not reference a base manifest.
	RequireBase bool `json:"requireBase,omitempty" jsonschema:"title=Require Base"`
}

// FilesConfig selects the files linted when a directory is given.
type FilesConfig struct {
	// Profiler contains glob patterns matching profiler documents.
	Profiler []string `json:"profiler,omitempty" jsonschema:"title=Profiler Files"`
	// Manifest contains glob patterns matching dependency manifests.
	// Manifest patterns take precedence over profiler patterns.
	Manifest []string `json:"manifest,omitempty" jsonschema:"title=Manifest Files"`
}

// EnsureDefaults initializes nil fields to their default values.
func (c *FilesConfig) EnsureDefaults() {
	if c.Profiler == nil {
		c.Profiler = slices.Clone(DefaultProfilerFiles)
	}
	if c.Manifest == nil {
		c.Manifest = slices.Clone(DefaultManifestFiles)
	}
}

// LintConfig represents the rbplint configuration file.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type LintConfig struct {
	Checks           *ChecksConfig   `json:"checks,omitempty" jsonschema:"title=Checks"`
	Profiler         *ProfilerConfig `json:"profiler,omitempty" jsonschema:"title=Profiler"`
	Manifest         *ManifestConfig `json:"manifest,omitempty" jsonschema:"title=Manifest"`
	Files            *FilesConfig    `json:"files,omitempty" jsonschema:"title=Files"`
	v1beta1.TypeMeta `json:",inline"`
}

// New creates a new [LintConfig] with default values.
func New() *LintConfig {
	c := &LintConfig{
		TypeMeta: v1beta1.TypeMeta{
			APIVersion: v1beta1.APIVersion,
			Kind:       Kind,
		},
	}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults initializes nil fields to their default values.
func (c *LintConfig) EnsureDefaults() {
	if c.Checks == nil {
		c.Checks = &ChecksConfig{}
	}
	if c.Profiler == nil {
		c.Profiler = &ProfilerConfig{}
	}
	if c.Manifest == nil {
		c.Manifest = &ManifestConfig{}
	}
	if c.Files == nil {
		c.Files = &FilesConfig{}
	}

	c.Checks.EnsureDefaults()
	c.Profiler.EnsureDefaults()
	c.Files.EnsureDefaults()
}

// Validate validates the configuration and compiles custom checks.
func (c *LintConfig) Validate() error {
	err := v1beta1.CheckTypeMeta(c, ValidKinds)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	custom := map[check.ID]bool{}
	for i, r := range c.Checks.Custom {
		err := r.Validate()
		if err != nil {
			return fmt.Errorf("checks.custom[%d]: %w", i, err)
		}
		if custom[r.ID] {
			return fmt.Errorf("checks.custom[%d]: %w: %s", i, ErrDuplicateCheck, r.ID)
		}

		custom[r.ID] = true
	}

	known := func(id check.ID) bool {
		_, builtin := check.Lookup(id)
		return builtin || custom[id]
	}

	for _, id := range c.Checks.Disable {
		if !known(id) {
			return fmt.Errorf("checks.disable: %w: %s", ErrUnknownCheck, id)
		}
	}

	for id, sev := range c.Checks.Severity {
		if !known(id) {
			return fmt.Errorf("checks.severity: %w: %s", ErrUnknownCheck, id)
		}

		parsed, err := check.ParseSeverity(string(sev))
		if err != nil {
			return fmt.Errorf("checks.severity.%s: %w", id, err)
		}

		c.Checks.Severity[id] = parsed
	}

	for _, cmp := range c.Manifest.AllowedComparators {
		if !slices.Contains(manifest.Comparators, cmp) {
			return fmt.Errorf("manifest.allowedComparators: %w %q", manifest.ErrUnknownComparator, cmp)
		}
	}

	for _, pattern := range slices.Concat(c.Files.Profiler, c.Files.Manifest) {
		_, err := filepath.Match(pattern, "")
		if err != nil {
			return fmt.Errorf("files: %w %q: %w", ErrInvalidPattern, pattern, err)
		}
	}

	return nil
}

// Settings returns the check overrides.
func (c *LintConfig) Settings() check.Settings {
	return check.Settings{
		Disabled: c.Checks.Disable,
		Severity: c.Checks.Severity,
	}
}

// Registry returns the default builder registry extended with the
// configured known classes.
func (c *LintConfig) Registry() *profiler.Registry {
	kc := c.Profiler.KnownClasses

	return profiler.DefaultRegistry.
		Extend(profiler.KindDomainBuilder, kc.DomainBuilders...).
		Extend(profiler.KindParameterBuilder, kc.ParameterBuilders...).
		Extend(profiler.KindExpectationConfigurationBuilder, kc.ExpectationConfigurationBuilders...)
}

// ProfilerChecks returns the built-in profiler checks configured by c.
func (c *LintConfig) ProfilerChecks() check.Profiler {
	return check.Profiler{
		Registry:          c.Registry(),
		RequireModuleName: c.Profiler.RequireModuleName,
	}
}

// ManifestOptions returns the manifest check options configured by c.
func (c *LintConfig) ManifestOptions() manifest.Options {
	return manifest.Options{
		AllowedComparators: c.Manifest.AllowedComparators,
		RequirePins:        c.Manifest.RequirePins,
		RequireBase:        c.Manifest.RequireBase,
	}
}

func (c LintConfig) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// MarshalYAML serializes the config to YAML.
func (c LintConfig) MarshalYAML() ([]byte, error) {
	type alias LintConfig

	b, err := api.MarshalYAML(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal lint config: %w", err)
	}

	return b, nil
}

// Schema returns the JSON schema of lint configurations.
func Schema() ([]byte, error) {
	data, err := schemaOnce()
	if err != nil {
		return nil, fmt.Errorf("generate lint config schema: %w", err)
	}

	return data, nil
}

// Validator returns the compiled lint configuration schema.
func Validator() (*yaml.Validator, error) {
	v, err := validatorOnce()
	if err != nil {
		return nil, fmt.Errorf("compile lint config schema: %w", err)
	}

	return v, nil
}

// Parse validates data against the schema and decodes it.
func Parse(data []byte, opts ...config.LoaderOpt) (*LintConfig, error) {
	v, err := Validator()
	if err != nil {
		return nil, err
	}

	cfg, err := config.NewLoaderFromBytes(data, newEmpty, v, opts...).ValidateAndLoad()
	if err != nil {
		return nil, fmt.Errorf("load lint config: %w", err)
	}

	return cfg, nil
}

// Load reads and parses the lint configuration at path.
func Load(path string, opts ...config.LoaderOpt) (*LintConfig, error) {
	v, err := Validator()
	if err != nil {
		return nil, err
	}

	loader, err := config.NewLoaderFromFile(path, newEmpty, v, opts...)
	if err != nil {
		return nil, fmt.Errorf("read lint config: %w", err)
	}

	cfg, err := loader.ValidateAndLoad()
	if err != nil {
		return nil, fmt.Errorf("load lint config %s: %w", path, err)
	}

	return cfg, nil
}

// Find returns the path of the lint configuration that applies to
// target, searching target's directory and its parents. It returns an
// empty string when there is none.
func Find(target string) (string, error) {
	path, err := api.FindConfigFile(target, FileNames)
	if err != nil {
		return "", fmt.Errorf("find lint config: %w", err)
	}

	return path, nil
}

// Default returns the embedded default configuration.
func Default() *LintConfig {
	cfg, err := Parse(defaultConfigYAML)
	if err != nil {
		panic(fmt.Errorf("embedded default config: %w", err))
	}

	return cfg
}

// WriteDefault writes the embedded default configuration to path. It
// reports whether the file was written.
func WriteDefault(path string, force bool) (bool, error) {
	wrote, err := api.WriteDefaultFile(path, defaultConfigYAML, force, "lint config")
	if err != nil {
		return false, fmt.Errorf("write default lint config: %w", err)
	}

	return wrote, nil
}

// newEmpty returns a config without defaults, so that decoding does not
// merge into default slices.
func newEmpty() *LintConfig {
	return &LintConfig{}
}
