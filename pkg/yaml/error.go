package yaml

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/token"
)

// ErrorWrapper applies a fixed set of [ErrorOpt]s to any [*Error] it wraps.
type ErrorWrapper struct {
	Opts []ErrorOpt
}

func NewErrorWrapper(opts ...ErrorOpt) *ErrorWrapper {
	return &ErrorWrapper{
		Opts: opts,
	}
}

// Wrap wraps an error with additional context for [Error]s.
// If the error isn't an [Error], it returns the original error unmodified.
func (ew *ErrorWrapper) Wrap(err error, opts ...ErrorOpt) error {
	if err == nil {
		return nil
	}

	var yamlErr *Error
	if errors.As(err, &yamlErr) {
		for _, opt := range ew.Opts {
			opt(yamlErr)
		}

		for _, opt := range opts {
			opt(yamlErr)
		}

		return yamlErr
	}

	return err
}

// Error represents a YAML error. It includes the original error, and either
// the [*yaml.Path] or the [*token.Token] where the error occurred.
type Error struct {
	Err         error
	Path        *yaml.Path
	Token       *token.Token
	Source      []byte
	SourceLines int // Number of lines to show around the error in the source.
	Color       bool
}

func NewError(err error, opts ...ErrorOpt) *Error {
	e := &Error{
		Err:         err,
		SourceLines: 2,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

type ErrorOpt func(e *Error)

func WithSourceLines(lines int) ErrorOpt {
	return func(e *Error) {
		e.SourceLines = lines
	}
}

func WithPath(path *yaml.Path) ErrorOpt {
	return func(e *Error) {
		e.Path = path
	}
}

func WithToken(tk *token.Token) ErrorOpt {
	return func(e *Error) {
		e.Token = tk
	}
}

func WithSource(source []byte) ErrorOpt {
	return func(e *Error) {
		e.Source = source
	}
}

func WithColor(color bool) ErrorOpt {
	return func(e *Error) {
		e.Color = color
	}
}

func (e Error) Unwrap() error {
	return e.Err
}

func (e Error) Error() string {
	if e.Err == nil {
		return ""
	}
	if e.Path == nil && e.Token == nil {
		return e.Err.Error()
	}

	line, col, err := e.Position()
	if err != nil || len(e.Source) == 0 {
		if err != nil {
			slog.Debug("failed to locate error in source",
				slog.String("path", e.Path.String()),
				slog.Any("error", err),
			)
		}

		if e.Path != nil {
			return fmt.Sprintf("error at %s: %v", e.Path.String(), e.Err)
		}

		return e.Err.Error()
	}

	msg := fmt.Sprintf("[%d:%d] %v:", line, col, e.Err)

	excerpt := Excerpt(e.Source, line, col, e.SourceLines, e.Color)
	if excerpt == "" {
		return msg
	}

	return msg + "\n\n" + excerpt
}

// Position returns the 1-based line and column of the error.
func (e Error) Position() (int, int, error) {
	tk := e.Token
	if tk == nil {
		if e.Path == nil {
			return 0, 0, errors.New("no path or token")
		}
		if len(e.Source) == 0 {
			return 0, 0, errors.New("no source")
		}

		doc, err := ParseDocument(e.Source)
		if err != nil {
			return 0, 0, err
		}

		tk, err = doc.Token(e.Path)
		if err != nil {
			return 0, 0, err
		}
	}

	if tk == nil || tk.Position == nil {
		return 0, 0, errors.New("token has no position")
	}

	return tk.Position.Line, tk.Position.Column, nil
}
