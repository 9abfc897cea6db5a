package expr

import (
	"math"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/cel-go/ext"

	"github.com/macropower/rbplint/pkg/reference"
)

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Math(),
		ext.Strings(),
		ext.Lists(),

		// `pathBase` returns the last element of the path.
		// Example: pathBase(file) == "profiler.yaml".
		cel.Function("pathBase",
			cel.Overload("path_base", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathBase", filepath.Base)),
			),
		),

		// `pathDir` returns all but the last element of the path.
		// Example: pathDir(file).endsWith("/profilers").
		cel.Function("pathDir",
			cel.Overload("path_dir", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathDir", filepath.Dir)),
			),
		),

		// `pathExt` returns the file extension of the path.
		// Example: pathExt(file) in [".yaml", ".yml"].
		cel.Function("pathExt",
			cel.Overload("path_ext", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathExt", filepath.Ext)),
			),
		),

		// `isReference` reports whether a value is a string using `$`
		// reference syntax.
		// Example: isReference(rule.domain_builder.batch_request).
		cel.Function("isReference",
			cel.Overload("is_reference", []*cel.Type{cel.DynType}, cel.BoolType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					s, ok := v.(types.String)

					return types.Bool(ok && reference.Is(string(s)))
				}),
			),
		),

		// `refRoot` returns the root of a reference, or "" if the string is
		// not a well-formed reference.
		// Example: refRoot("$variables.quantiles") == "variables".
		cel.Function("refRoot",
			cel.Overload("ref_root", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("refRoot", func(s string) string {
					r, ok, err := reference.Parse(s)
					if !ok || err != nil {
						return ""
					}

					return string(r.Root)
				})),
			),
		),

		// `references` returns every reference string in a value, at any
		// depth. Mapping keys are visited in sorted order.
		// Example: references(rule).all(r, refRoot(r) != "domain").
		cel.Function("references",
			cel.Overload("references_dyn", []*cel.Type{cel.DynType}, cel.ListType(cel.StringType),
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					var refs []string

					walk(v, func(s string) {
						if reference.Is(s) {
							refs = append(refs, s)
						}
					})

					return types.NewStringList(types.DefaultTypeAdapter, refs)
				}),
			),
		),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

func stringFunc(name string, fn func(string) string) func(ref.Val) ref.Val {
	return func(v ref.Val) ref.Val {
		s, ok := v.(types.String)
		if !ok {
			return types.NewErr("%s: invalid string value", name)
		}

		return types.String(fn(string(s)))
	}
}

// walk calls fn for every string in a CEL value.
func walk(v ref.Val, fn func(string)) {
	switch t := v.(type) {
	case types.String:
		fn(string(t))

	case traits.Mapper:
		var keys []ref.Val

		it := t.Iterator()
		for it.HasNext() == types.True {
			keys = append(keys, it.Next())
		}

		slices.SortFunc(keys, func(a, b ref.Val) int {
			as, _ := a.(types.String)
			bs, _ := b.(types.String)

			return strings.Compare(string(as), string(bs))
		})

		for _, k := range keys {
			walk(t.Get(k), fn)
		}

	case traits.Lister:
		size, ok := t.Size().(types.Int)
		if !ok {
			return
		}

		for i := range size {
			walk(t.Get(i), fn)
		}
	}
}

// ConvertToCELValue converts a Go value to a CEL value.
// Handles common YAML types and returns null for unsupported types.
//
//nolint:ireturn // Following CEL's function signature.
func ConvertToCELValue(value any) ref.Val {
	switch v := value.(type) {
	case nil:
		return types.NullValue

	case bool:
		return types.Bool(v)

	case int:
		return types.Int(v)

	case int64:
		return types.Int(v)

	case uint64:
		// Check for overflow when converting to int64.
		if v > math.MaxInt64 {
			return types.Double(float64(v))
		}

		return types.Int(int64(v))

	case float32:
		return types.Double(float64(v))

	case float64:
		return types.Double(v)

	case string:
		return types.String(v)

	case []any:
		celValues := make([]ref.Val, len(v))
		for i, item := range v {
			celValues[i] = ConvertToCELValue(item)
		}

		return types.NewDynamicList(types.DefaultTypeAdapter, celValues)

	case map[string]any:
		celMap := make(map[ref.Val]ref.Val, len(v))
		for key, val := range v {
			celMap[types.String(key)] = ConvertToCELValue(val)
		}

		return types.NewDynamicMap(types.DefaultTypeAdapter, celMap)

	default:
		// For unsupported types, return null instead of erroring.
		return types.NullValue
	}
}
