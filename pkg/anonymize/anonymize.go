// Package anonymize produces usage summaries of profiler configurations in
// which every user-chosen name is replaced by a salted hash.
package anonymize

import (
	"crypto/md5" //nolint:gosec // Hashes identify names, they do not protect secrets.
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/macropower/rbplint/pkg/profiler"
)

// NotRecognized is reported as the parent class of builders whose class
// is not a built-in one.
const NotRecognized = "__not_recognized__"

// Anonymizer hashes names with a salt.
type Anonymizer struct {
	registry *profiler.Registry
	salt     string
}

// New creates an [Anonymizer]. An empty salt is replaced by a random UUID,
// so that hashes cannot be compared across runs.
func New(salt string) *Anonymizer {
	if salt == "" {
		salt = uuid.NewString()
	}

	return &Anonymizer{
		salt:     salt,
		registry: profiler.DefaultRegistry,
	}
}

// Salt returns the salt in use.
func (a *Anonymizer) Salt() string {
	return a.salt
}

// Anonymize returns the hex MD5 digest of the salt followed by s.
func (a *Anonymizer) Anonymize(s string) string {
	sum := md5.Sum([]byte(a.salt + s)) //nolint:gosec // See import.

	return hex.EncodeToString(sum[:])
}

// Run is the anonymized summary of a profiler configuration.
type Run struct {
	AnonymizedName  string  `json:"anonymized_name"`
	AnonymizedRules []Rule  `json:"anonymized_rules"`
	ConfigVersion   float64 `json:"config_version"`
	VariableCount   int     `json:"variable_count"`
	RuleCount       int     `json:"rule_count"`
}

// Rule is the anonymized summary of one profiler rule.
type Rule struct {
	AnonymizedDomainBuilder                    *Builder  `json:"anonymized_domain_builder,omitempty"`
	AnonymizedName                             string    `json:"anonymized_name"`
	AnonymizedParameterBuilders                []Builder `json:"anonymized_parameter_builders"`
	AnonymizedExpectationConfigurationBuilders []Builder `json:"anonymized_expectation_configuration_builders"`
}

// Builder is the anonymized summary of a builder.
type Builder struct {
	AnonymizedBatchRequest    *BatchRequest `json:"anonymized_batch_request,omitempty"`
	ParentClass               string        `json:"parent_class"`
	AnonymizedClass           string        `json:"anonymized_class,omitempty"`
	AnonymizedName            string        `json:"anonymized_name,omitempty"`
	ExpectationType           string        `json:"expectation_type,omitempty"`
	AnonymizedExpectationType string        `json:"anonymized_expectation_type,omitempty"`
	AnonymizedCondition       string        `json:"anonymized_condition,omitempty"`
}

// BatchRequest is the anonymized summary of a batch request.
type BatchRequest struct {
	RequiredTopLevelProperties BatchRequestProperties `json:"anonymized_batch_request_required_top_level_properties"`
}

// BatchRequestProperties holds the hashed names a batch request must have.
type BatchRequestProperties struct {
	AnonymizedDatasourceName    string `json:"anonymized_datasource_name,omitempty"`
	AnonymizedDataConnectorName string `json:"anonymized_data_connector_name,omitempty"`
	AnonymizedDataAssetName     string `json:"anonymized_data_asset_name,omitempty"`
}

// ProfilerRun summarizes cfg.
func (a *Anonymizer) ProfilerRun(cfg *profiler.Config) *Run {
	run := &Run{
		AnonymizedName:  a.Anonymize(cfg.Name),
		ConfigVersion:   cfg.ConfigVersion,
		VariableCount:   len(cfg.Variables),
		RuleCount:       len(cfg.Rules),
		AnonymizedRules: make([]Rule, 0, len(cfg.Rules)),
	}

	for _, nr := range cfg.Rules {
		r := Rule{
			AnonymizedName:                             a.Anonymize(nr.Name),
			AnonymizedParameterBuilders:                []Builder{},
			AnonymizedExpectationConfigurationBuilders: []Builder{},
		}

		if nr.Rule != nil {
			if nr.DomainBuilder != nil {
				b := a.builder(profiler.KindDomainBuilder, nr.DomainBuilder)
				r.AnonymizedDomainBuilder = &b
			}
			for _, pb := range nr.ParameterBuilders {
				r.AnonymizedParameterBuilders = append(r.AnonymizedParameterBuilders,
					a.builder(profiler.KindParameterBuilder, pb))
			}
			for _, eb := range nr.ExpectationConfigurationBuilders {
				r.AnonymizedExpectationConfigurationBuilders = append(r.AnonymizedExpectationConfigurationBuilders,
					a.builder(profiler.KindExpectationConfigurationBuilder, eb))
			}
		}

		run.AnonymizedRules = append(run.AnonymizedRules, r)
	}

	return run
}

func (a *Anonymizer) builder(kind profiler.Kind, b *profiler.Builder) Builder {
	out := Builder{}

	_, known := a.registry.Lookup(kind, b.ClassName)
	if known {
		out.ParentClass = b.ClassName
	} else {
		out.ParentClass = NotRecognized
		out.AnonymizedClass = a.Anonymize(b.ClassName)
	}

	switch kind {
	case profiler.KindParameterBuilder:
		out.AnonymizedName = a.Anonymize(b.Name)

	case profiler.KindExpectationConfigurationBuilder:
		if et, ok := b.Attributes[profiler.KeyExpectationType].(string); ok {
			if known {
				out.ExpectationType = et
			} else {
				out.AnonymizedExpectationType = a.Anonymize(et)
			}
		}
		if cond, ok := b.Attributes[profiler.KeyCondition].(string); ok && cond != "" {
			out.AnonymizedCondition = a.Anonymize(cond)
		}

	case profiler.KindDomainBuilder:
	}

	out.AnonymizedBatchRequest = a.batchRequest(b)

	return out
}

func (a *Anonymizer) batchRequest(b *profiler.Builder) *BatchRequest {
	raw, ok := b.Attributes[profiler.KeyBatchRequest].(map[string]any)
	if !ok {
		return nil
	}

	hash := func(key string) string {
		s, _ := raw[key].(string)
		if s == "" {
			return ""
		}

		return a.Anonymize(s)
	}

	return &BatchRequest{
		RequiredTopLevelProperties: BatchRequestProperties{
			AnonymizedDatasourceName:    hash("datasource_name"),
			AnonymizedDataConnectorName: hash("data_connector_name"),
			AnonymizedDataAssetName:     hash("data_asset_name"),
		},
	}
}
