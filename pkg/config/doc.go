// Package config loads YAML configuration documents.
//
// A [Loader] decodes a document once into an untyped tree for JSON schema
// validation, and once into its Go type. Errors carry the document source
// so they can be rendered with an excerpt of the offending lines.
package config
