// Package expr provides CEL (Common Expression Language) environments for
// evaluating user-defined checks against profiler documents.
//
// Environments include the cel-go string, list and math extensions, and
// custom functions for:
//   - File path operations (pathBase, pathDir, pathExt)
//   - Reference inspection (isReference, refRoot, references)
package expr
