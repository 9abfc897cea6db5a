package yaml

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/token"
)

func NewPathBuilder() *yaml.PathBuilder {
	return &yaml.PathBuilder{}
}

// BuildPath converts a list of segments into a [*yaml.Path]. String segments
// select mapping keys, int segments select sequence indices.
func BuildPath(segments ...any) *yaml.Path {
	b := NewPathBuilder().Root()
	for _, seg := range segments {
		switch s := seg.(type) {
		case int:
			if s < 0 {
				s = 0
			}

			b = b.Index(uint(s))
		case uint:
			b = b.Index(s)
		case string:
			b = b.Child(s)
		default:
			b = b.Child(fmt.Sprint(s))
		}
	}

	return b.Build()
}

// Document is parsed YAML source that can map paths back to tokens.
type Document struct {
	file   *ast.File
	Source []byte
}

// ParseDocument parses src into a [Document]. Comments are kept so that
// token positions match the original source.
func ParseDocument(src []byte) (*Document, error) {
	file, err := parser.ParseBytes(src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse source bytes into ast.File: %w", err)
	}

	return &Document{file: file, Source: src}, nil
}

// Token returns the token for the given path. Where the path ends in a
// mapping key, the key token is returned rather than the value token.
func (d *Document) Token(path *yaml.Path) (*token.Token, error) {
	node, err := path.FilterFile(d.file)
	if err != nil {
		return nil, fmt.Errorf("filter from ast.File by YAMLPath: %w", err)
	}

	if keyToken := findKeyToken(d.file, path); keyToken != nil {
		return keyToken, nil
	}

	return node.GetToken(), nil
}

// Position returns the 1-based line and column for the path, or zeros when
// the path cannot be found.
func (d *Document) Position(path *yaml.Path) (int, int) {
	if d == nil || path == nil {
		return 0, 0
	}

	tk, err := d.Token(path)
	if err != nil || tk == nil || tk.Position == nil {
		return 0, 0
	}

	return tk.Position.Line, tk.Position.Column
}

// findKeyToken looks up the KEY token for the given path in its parent
// mapping, since [yaml.Path.FilterFile] returns the value node.
func findKeyToken(file *ast.File, path *yaml.Path) *token.Token {
	pathStr := path.String()

	lastDot := strings.LastIndex(pathStr, ".")
	lastBracket := strings.LastIndex(pathStr, "[")

	if lastDot == -1 || lastDot <= lastBracket {
		// Root, or the last element is a sequence index.
		return nil
	}

	parentPath, err := yaml.PathString(pathStr[:lastDot])
	if err != nil {
		return nil
	}

	parentNode, err := parentPath.FilterFile(file)
	if err != nil {
		return nil
	}

	lastSegment := strings.Trim(pathStr[lastDot+1:], `'"`)

	var values []*ast.MappingValueNode

	switch n := parentNode.(type) {
	case *ast.MappingNode:
		values = n.Values
	case *ast.MappingValueNode:
		values = []*ast.MappingValueNode{n}
	default:
		return nil
	}

	for _, val := range values {
		if val.Key.String() == lastSegment {
			return val.Key.GetToken()
		}
	}

	return nil
}
