package check

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/macropower/rbplint/pkg/profiler"
	"github.com/macropower/rbplint/pkg/reference"
)

// Attribute names with range constraints.
const (
	attrFalsePositiveRate   = "false_positive_rate"
	attrQuantiles           = "quantiles"
	attrMaxUnexpectedValues = "max_unexpected_values"
	attrRoundDecimals       = "round_decimals"
)

var ratioAttributes = []string{
	"mostly",
	"max_unexpected_ratio",
	"min_max_unexpected_values_proportion",
}

var builderLists = []struct {
	key  string
	kind profiler.Kind
}{
	{"parameter_builders", profiler.KindParameterBuilder},
	{"expectation_configuration_builders", profiler.KindExpectationConfigurationBuilder},
}

// Profiler runs the built-in checks over a decoded profiler document.
type Profiler struct {
	// Registry lists the builder classes that are known. Nil means
	// [profiler.DefaultRegistry].
	Registry *profiler.Registry
	// RequireModuleName reports builders without a module_name.
	RequireModuleName bool
}

// profilerRun holds the state of a single [Profiler.Check] call.
type profilerRun struct {
	Profiler

	variables map[string]any
	used      map[string]bool
	diags     []Diagnostic
}

// Check returns the diagnostics for doc, which is a document decoded into
// untyped maps and slices. Schema conformance is checked separately.
func (p Profiler) Check(doc any) []Diagnostic {
	if p.Registry == nil {
		p.Registry = profiler.DefaultRegistry
	}

	r := &profilerRun{Profiler: p, used: map[string]bool{}}

	root, ok := doc.(map[string]any)
	if !ok {
		r.report(New(DocumentHeader, segments{}.path(), "document must be a mapping"))
		return r.diags
	}

	r.variables, _ = root["variables"].(map[string]any)

	r.checkHeader(root)
	r.checkVariables()

	rules, _ := root["rules"].(map[string]any)
	for _, name := range slices.Sorted(maps.Keys(rules)) {
		rule, ok := rules[name].(map[string]any)
		if !ok {
			continue
		}

		r.checkRule(segments{"rules", name}, rule)
	}

	r.checkUnusedVariables()

	return r.diags
}

func (r *profilerRun) report(d Diagnostic) {
	r.diags = append(r.diags, d)
}

func (r *profilerRun) checkHeader(root map[string]any) {
	if name, _ := root["name"].(string); strings.TrimSpace(name) == "" {
		r.report(New(DocumentHeader, segments{}.path(), "document must declare a non-empty name"))
	}

	switch v, ok := root["config_version"]; {
	case !ok:
		r.report(New(DocumentHeader, segments{}.path(), "document must declare config_version"))
	default:
		f, isNum := asFloat(v)
		if !isNum || f <= 0 {
			r.report(New(DocumentHeader, segments{"config_version"}.path(),
				"config_version must be a number greater than 0, got %v", v))
		}
	}

	rules, ok := root["rules"].(map[string]any)
	if !ok || len(rules) == 0 {
		r.report(New(DocumentHeader, segments{}.path(), "document must declare at least one rule"))
	}
}

func (r *profilerRun) checkVariables() {
	base := segments{"variables"}
	for _, name := range slices.Sorted(maps.Keys(r.variables)) {
		r.walk(base.key(name), r.variables[name], name, func(at segments, raw string, ref reference.Reference) {
			switch ref.Root {
			case reference.RootDomain:
				r.report(New(DomainReferenceVariables, at.path(),
					"variables cannot reference domains: %q", raw))
			case reference.RootParameter:
				r.report(New(UnresolvedParameter, at.path(),
					"variables cannot reference parameters: %q", raw))
			case reference.RootVariables:
				r.resolveVariable(at, ref)
			}
		})
	}
}

func (r *profilerRun) checkUnusedVariables() {
	for _, name := range slices.Sorted(maps.Keys(r.variables)) {
		if !r.used[name] {
			r.report(New(UnusedVariable, segments{"variables", name}.path(),
				"variable %q is never referenced", name))
		}
	}
}

// resolveVariable records the use of a variable and reports it when it
// does not resolve. It returns the resolved value.
func (r *profilerRun) resolveVariable(at segments, ref reference.Reference) (any, bool) {
	r.used[ref.Name()] = true

	v, err := reference.Lookup(r.variables, ref.Path)
	if err != nil {
		r.report(New(UnresolvedVariable, at.path(), "%q does not resolve: %v", ref.Raw, err))
		return nil, false
	}

	return v, true
}

func (r *profilerRun) checkRule(at segments, rule map[string]any) {
	// Parameter builder names, by list position.
	params := map[string]int{}

	if list, ok := rule["parameter_builders"].([]any); ok {
		for i, item := range list {
			b, ok := item.(map[string]any)
			if !ok {
				continue
			}

			name, _ := b["name"].(string)
			if name == "" {
				continue
			}
			if _, dup := params[name]; dup {
				r.report(New(DuplicateParameterName, at.key("parameter_builders").index(i).key("name").path(),
					"parameter builder %q is already defined in this rule", name))

				continue
			}

			params[name] = i
		}
	}

	if db, ok := rule["domain_builder"].(map[string]any); ok {
		r.checkBuilder(at.key("domain_builder"), db, profiler.KindDomainBuilder, params, 0)
	}

	for _, bl := range builderLists {
		list, _ := rule[bl.key].([]any)
		for i, item := range list {
			b, ok := item.(map[string]any)
			if !ok {
				continue
			}

			position := -1
			if bl.kind == profiler.KindParameterBuilder {
				position = i
			}

			r.checkBuilder(at.key(bl.key).index(i), b, bl.kind, params, position)
		}
	}
}

// checkBuilder checks one builder. Parameters defined at or after position
// are not yet computed when the builder runs. A negative position allows
// any parameter of the rule.
func (r *profilerRun) checkBuilder(at segments, b map[string]any, kind profiler.Kind, params map[string]int, position int) {
	className, _ := b["class_name"].(string)

	var required []string
	if className != "" {
		class, known := r.Registry.Lookup(kind, className)
		if !known {
			r.report(New(UnknownBuilderClass, at.key("class_name").path(),
				"unknown %s class %q", strings.ReplaceAll(string(kind), "_", " "), className))
		}

		required = slices.Clone(class.Required)
	}

	switch kind {
	case profiler.KindParameterBuilder:
		required = appendMissing(required, "name")
	case profiler.KindExpectationConfigurationBuilder:
		required = appendMissing(required, profiler.KeyExpectationType)
	}

	for _, attr := range required {
		if _, ok := b[attr]; !ok {
			r.report(New(MissingBuilderAttribute, at.path(),
				"%s requires attribute %q", builderLabel(kind, className), attr))
		}
	}

	if r.RequireModuleName {
		if _, ok := b["module_name"]; !ok {
			r.report(New(MissingModuleName, at.path(), "builder %q has no module_name", className))
		}
	}

	for _, key := range slices.Sorted(maps.Keys(b)) {
		r.walk(at.key(key), b[key], key, func(ref segments, raw string, parsed reference.Reference) {
			r.checkBuilderReference(ref, raw, parsed, params, position)
		})
	}

	r.checkBatchRequest(at.key(profiler.KeyBatchRequest), b[profiler.KeyBatchRequest])
}

func (r *profilerRun) checkBuilderReference(
	at segments,
	raw string,
	ref reference.Reference,
	params map[string]int,
	position int,
) {
	switch ref.Root {
	case reference.RootVariables:
		r.resolveVariable(at, ref)

	case reference.RootParameter:
		name := ref.Name()

		defined, ok := params[name]
		if !ok {
			r.report(New(UnresolvedParameter, at.path(),
				"%q references parameter %q, which no parameter builder in this rule defines", raw, name))

			return
		}
		if position >= 0 && defined >= position {
			r.report(New(ForwardParameter, at.path(),
				"%q references parameter %q, which is not computed before this builder", raw, name))
		}

		if len(ref.Path) < 2 {
			r.report(New(InvalidParameterField, at.path(),
				"%q must select one of %v", raw, reference.ParameterFields))
		} else if field := ref.Path[1].Key; !slices.Contains(reference.ParameterFields, field) {
			r.report(New(InvalidParameterField, at.path(),
				"%q selects field %q, expected one of %v", raw, field, reference.ParameterFields))
		}

	case reference.RootDomain:
		if field := ref.Name(); !slices.Contains(reference.DomainFields, field) {
			r.report(New(MalformedReference, at.path(),
				"%q selects unknown domain field %q, expected one of %v", raw, field, reference.DomainFields))
		}
	}
}

func (r *profilerRun) checkBatchRequest(at segments, v any) {
	var resolved bool
	if s, ok := v.(string); ok {
		ref, isRef, err := reference.Parse(s)
		if !isRef || err != nil || ref.Root != reference.RootVariables {
			return
		}

		v, err = reference.Lookup(r.variables, ref.Path)
		if err != nil {
			return
		}

		resolved = true
	}

	br, ok := v.(map[string]any)
	if !ok {
		return
	}

	indexAt, limitAt := at.key("data_connector_query").key("index"), at.key("limit")
	if resolved {
		// The request is defined in variables, so its fields have no
		// location under the builder.
		indexAt, limitAt = at, at
	}

	if query, ok := br["data_connector_query"].(map[string]any); ok {
		if index, ok := query["index"]; ok {
			r.checkIndex(indexAt, index)
		}
	}

	if limit, ok := br["limit"]; ok {
		r.checkLimit(limitAt, limit)
	}
}

func (r *profilerRun) checkIndex(at segments, v any) {
	resolved, via, ok := r.literal(v)
	if !ok || resolved == nil {
		return
	}

	if valid, reason := validIndex(resolved); !valid {
		r.report(New(InvalidBatchIndex, at.path(), "batch index %s %s", describe(resolved, via), reason))
	}
}

func (r *profilerRun) checkLimit(at segments, v any) {
	resolved, via, ok := r.literal(v)
	if !ok || resolved == nil {
		return
	}

	if n, isInt := asInt(resolved); !isInt || n <= 0 {
		r.report(New(InvalidBatchLimit, at.path(), "batch limit %s must be a positive integer", describe(resolved, via)))
	}
}

// literal returns v, or the value a $variables reference in v resolves
// to. ok is false for references that cannot be checked statically.
func (r *profilerRun) literal(v any) (any, string, bool) {
	s, isString := v.(string)
	if !isString {
		return v, "", true
	}

	ref, isRef, err := reference.Parse(s)
	if !isRef {
		return v, "", true
	}
	if err != nil || ref.Root != reference.RootVariables {
		return nil, "", false
	}

	resolved, err := reference.Lookup(r.variables, ref.Path)
	if err != nil {
		return nil, "", false
	}

	return resolved, s, true
}

func describe(v any, via string) string {
	if via != "" {
		return fmt.Sprintf("%v (from %s)", v, via)
	}

	return fmt.Sprintf("%v", v)
}

// walk visits v recursively. It checks range-constrained attributes by
// their key and calls onRef for every reference string.
func (r *profilerRun) walk(at segments, v any, key string, onRef func(segments, string, reference.Reference)) {
	r.checkNumeric(at, key, v)

	switch t := v.(type) {
	case string:
		ref, isRef, err := reference.Parse(t)
		if !isRef {
			return
		}
		if err != nil {
			r.report(New(MalformedReference, at.path(), "%v", err))
			return
		}

		onRef(at, t, ref)

	case []any:
		for i, item := range t {
			r.walk(at.index(i), item, "", onRef)
		}

	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(t)) {
			r.walk(at.key(k), t[k], k, onRef)
		}
	}
}

// checkNumeric checks the value of a range-constrained attribute. A
// $variables reference is followed, unless it points at a variable of
// the same name, which is checked where it is defined. Null values are
// left unset and not checked.
func (r *profilerRun) checkNumeric(at segments, key string, v any) {
	if !isNumericAttribute(key) {
		return
	}

	resolved, via, ok := r.literal(v)
	if !ok || resolved == nil {
		return
	}
	if via != "" {
		ref, _, _ := reference.Parse(via)
		if last := ref.Path[len(ref.Path)-1]; last.Key == key && len(last.Indices) == 0 {
			return
		}
	}

	switch key {
	case attrFalsePositiveRate:
		if f, isNum := asFloat(resolved); !isNum || f <= 0 || f >= 1 {
			r.report(New(FalsePositiveRate, at.path(),
				"false_positive_rate %s must be a number in (0, 1)", describe(resolved, via)))
		}

	case attrQuantiles:
		r.checkQuantiles(at, resolved, via)

	case attrMaxUnexpectedValues:
		if n, isInt := asInt(resolved); !isInt || n < 0 {
			r.report(New(RatioRange, at.path(),
				"max_unexpected_values %s must be a non-negative integer", describe(resolved, via)))
		}

	case attrRoundDecimals:
		if n, isInt := asInt(resolved); !isInt || n < 0 {
			r.report(New(RoundDecimals, at.path(),
				"round_decimals %s must be a non-negative integer", describe(resolved, via)))
		}

	default:
		if f, isNum := asFloat(resolved); !isNum || f < 0 || f > 1 {
			r.report(New(RatioRange, at.path(),
				"%s %s must be a number in [0, 1]", key, describe(resolved, via)))
		}
	}
}

func (r *profilerRun) checkQuantiles(at segments, v any, via string) {
	list, ok := v.([]any)
	if !ok {
		r.report(New(QuantileRange, at.path(), "quantiles %s must be a list of numbers", describe(v, via)))
		return
	}

	prev := -1.0
	for i, item := range list {
		itemAt := at.index(i)
		if via != "" {
			itemAt = at
		}

		f, isNum := asFloat(item)
		if !isNum || f < 0 || f > 1 {
			r.report(New(QuantileRange, itemAt.path(), "quantile %s must be a number in [0, 1]", describe(item, via)))
			continue
		}
		if f < prev {
			r.report(New(QuantileOrder, itemAt.path(),
				"quantiles %s must be non-decreasing, %v follows %v", describe(list, via), f, prev))
		}

		prev = f
	}
}

func isNumericAttribute(key string) bool {
	switch key {
	case attrFalsePositiveRate, attrQuantiles, attrMaxUnexpectedValues, attrRoundDecimals:
		return true
	}

	return slices.Contains(ratioAttributes, key)
}

func appendMissing(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}

	return append(list, s)
}

func builderLabel(kind profiler.Kind, className string) string {
	if className != "" {
		return className
	}

	return strings.ReplaceAll(string(kind), "_", " ")
}
