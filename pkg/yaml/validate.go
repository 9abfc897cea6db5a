package yaml

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Validator validates data against a JSON schema.
// Uses [github.com/santhosh-tekuri/jsonschema/v6].
type Validator struct {
	schema  *jsonschema.Schema
	printer *message.Printer
}

// NewValidator creates a new [Validator] with the provided JSON schema data.
func NewValidator(url string, schemaData []byte) (*Validator, error) {
	var schema any

	err := json.Unmarshal(schemaData, &schema)
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	err = compiler.AddResource(url, schema)
	if err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	jss, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{
		schema:  jss,
		printer: message.NewPrinter(language.English),
	}, nil
}

func MustNewValidator(url string, schemaData []byte) *Validator {
	v, err := NewValidator(url, schemaData)
	if err != nil {
		panic(err)
	}

	return v
}

// Validate validates the given data against the schema.
// It returns an [*Error] pointing at the most specific failing location,
// which can be rendered against the source with [Error.Error].
func (s *Validator) Validate(data any) error {
	err := s.schema.Validate(data)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return fmt.Errorf("schema validation: %w", err)
	}

	leaf := findMostSpecific(validationErr)

	return &Error{
		Err:  errors.New(s.message(leaf)),
		Path: buildPathFromLocation(leaf.InstanceLocation),
	}
}

// ValidateAll validates data and returns one [*Error] per failing leaf of
// the validation tree, in instance-location order.
func (s *Validator) ValidateAll(data any) []*Error {
	err := s.schema.Validate(data)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return []*Error{{Err: fmt.Errorf("schema validation: %w", err)}}
	}

	leaves := collectLeaves(validationErr, nil)
	slices.SortStableFunc(leaves, func(a, b *jsonschema.ValidationError) int {
		return strings.Compare(strings.Join(a.InstanceLocation, "/"), strings.Join(b.InstanceLocation, "/"))
	})

	errs := make([]*Error, 0, len(leaves))
	seen := map[string]bool{}

	for _, leaf := range leaves {
		msg := s.message(leaf)

		key := strings.Join(leaf.InstanceLocation, "/") + "\x00" + msg
		if seen[key] {
			continue
		}

		seen[key] = true

		errs = append(errs, &Error{
			Err:  errors.New(msg),
			Path: buildPathFromLocation(leaf.InstanceLocation),
		})
	}

	return errs
}

func (s *Validator) message(verr *jsonschema.ValidationError) string {
	if verr.ErrorKind == nil {
		return "schema validation failed"
	}

	return verr.ErrorKind.LocalizedString(s.printer)
}

// findMostSpecific recursively searches through all causes to find the one
// with the longest InstanceLocation.
func findMostSpecific(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	best := err

	for _, cause := range err.Causes {
		candidate := findMostSpecific(cause)
		if len(candidate.InstanceLocation) > len(best.InstanceLocation) ||
			(len(best.Causes) > 0 && len(candidate.InstanceLocation) == len(best.InstanceLocation)) {
			best = candidate
		}
	}

	return best
}

func collectLeaves(err *jsonschema.ValidationError, acc []*jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return append(acc, err)
	}

	for _, cause := range err.Causes {
		acc = collectLeaves(cause, acc)
	}

	return acc
}

// buildPathFromLocation converts an InstanceLocation slice to a [*yaml.Path].
func buildPathFromLocation(location []string) *yaml.Path {
	segments := make([]any, 0, len(location))
	for _, part := range location {
		if index, err := strconv.ParseUint(part, 10, 64); err == nil {
			segments = append(segments, uint(index))
			continue
		}

		segments = append(segments, part)
	}

	return BuildPath(segments...)
}
