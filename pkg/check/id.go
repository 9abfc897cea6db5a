package check

import (
	"slices"
)

// ID identifies a check. Built-in IDs carry a two letter category prefix:
//
//   - PR: profiler document structure
//   - RF: references
//   - BD: builders
//   - BT: batch selection
//   - NM: numeric ranges
//   - MF: dependency manifests
//   - CL: user-defined CEL checks
type ID string

const (
	SchemaViolation ID = "PR000"
	DocumentHeader  ID = "PR001"

	MalformedReference       ID = "RF001"
	UnresolvedVariable       ID = "RF002"
	UnresolvedParameter      ID = "RF003"
	ForwardParameter         ID = "RF004"
	InvalidParameterField    ID = "RF005"
	UnusedVariable           ID = "RF006"
	DomainReferenceVariables ID = "RF007"

	UnknownBuilderClass     ID = "BD001"
	MissingBuilderAttribute ID = "BD002"
	DuplicateParameterName  ID = "BD003"
	MissingModuleName       ID = "BD004"

	InvalidBatchIndex ID = "BT001"
	InvalidBatchLimit ID = "BT002"

	FalsePositiveRate ID = "NM001"
	QuantileRange     ID = "NM002"
	QuantileOrder     ID = "NM003"
	RatioRange        ID = "NM004"
	RoundDecimals     ID = "NM005"

	InvalidRequirement   ID = "MF001"
	UnknownComparator    ID = "MF002"
	InvalidVersion       ID = "MF003"
	MissingReference     ID = "MF004"
	CyclicReference      ID = "MF005"
	DuplicatePackage     ID = "MF006"
	UnpinnedPackage      ID = "MF007"
	MissingBaseReference ID = "MF008"

	CustomCheckEvaluation ID = "CL000"
)

// Info describes a built-in check.
type Info struct {
	ID       ID       `json:"id"`
	Severity Severity `json:"severity"`
	Summary  string   `json:"summary"`
}

// Catalog lists every built-in check.
var Catalog = []Info{
	{SchemaViolation, SeverityError, "document does not match the profiler schema"},
	{DocumentHeader, SeverityError, "document must declare a name, a positive config_version and at least one rule"},
	{MalformedReference, SeverityError, "malformed $ reference"},
	{UnresolvedVariable, SeverityError, "$variables reference does not resolve"},
	{UnresolvedParameter, SeverityError, "$parameter reference names no parameter builder in the rule"},
	{ForwardParameter, SeverityError, "$parameter reference to the same or a later parameter builder"},
	{InvalidParameterField, SeverityError, "$parameter field must be value or details"},
	{UnusedVariable, SeverityWarning, "variable is never referenced"},
	{DomainReferenceVariables, SeverityError, "$domain reference inside variables"},
	{UnknownBuilderClass, SeverityWarning, "unknown builder class"},
	{MissingBuilderAttribute, SeverityError, "builder is missing a required attribute"},
	{DuplicateParameterName, SeverityError, "duplicate parameter builder name in a rule"},
	{MissingModuleName, SeverityInfo, "builder has no module_name"},
	{InvalidBatchIndex, SeverityError, "batch index must be an integer or a slice"},
	{InvalidBatchLimit, SeverityError, "batch limit must be a positive integer"},
	{FalsePositiveRate, SeverityError, "false_positive_rate must be in (0, 1)"},
	{QuantileRange, SeverityError, "quantiles must be numbers in [0, 1]"},
	{QuantileOrder, SeverityError, "quantiles must be non-decreasing"},
	{RatioRange, SeverityError, "ratio attribute out of range"},
	{RoundDecimals, SeverityError, "round_decimals must be a non-negative integer"},
	{InvalidRequirement, SeverityError, "invalid requirement syntax"},
	{UnknownComparator, SeverityError, "unknown or disallowed version comparator"},
	{InvalidVersion, SeverityError, "invalid version"},
	{MissingReference, SeverityError, "referenced manifest is missing or unreadable"},
	{CyclicReference, SeverityError, "cyclic manifest reference"},
	{DuplicatePackage, SeverityWarning, "package listed more than once"},
	{UnpinnedPackage, SeverityWarning, "package is not pinned with =="},
	{MissingBaseReference, SeverityError, "manifest does not reference a base manifest"},
	{CustomCheckEvaluation, SeverityError, "custom check failed to evaluate"},
}

// Lookup returns the catalog entry for id.
func Lookup(id ID) (Info, bool) {
	i := slices.IndexFunc(Catalog, func(info Info) bool { return info.ID == id })
	if i < 0 {
		return Info{}, false
	}

	return Catalog[i], true
}

// DefaultSeverity returns the catalog severity of id, or
// [SeverityError] for IDs outside the catalog.
func (id ID) DefaultSeverity() Severity {
	if info, ok := Lookup(id); ok {
		return info.Severity
	}

	return SeverityError
}

// Settings holds per-check overrides.
type Settings struct {
	Disabled []ID
	Severity map[ID]Severity
}

// Apply drops disabled diagnostics and applies severity overrides.
func (s Settings) Apply(diags []Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if slices.Contains(s.Disabled, d.ID) {
			continue
		}
		if sev, ok := s.Severity[d.ID]; ok {
			d.Severity = sev
		}

		out = append(out, d)
	}

	return out
}
