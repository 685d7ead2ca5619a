package kuvatypes

import (
	"errors"
	"fmt"
)

/*	failure classes
	===============

	syntax        malformed tag/option grammar. always a hard failure - a parse
	              error is a bug in the calling template, not a runtime condition.
	configuration requested transform is unsatisfiable (e.g. both dimensions
	              wildcard). surfaced like a syntax failure.
	source        original image missing, unreadable or undecodable. swallowed to
	              an empty render in production, surfaced when debug is on.
	render        decode/encode failed mid-transform. fatal, not retried.
*/

type SyntaxError struct {
	Reason string
}

func (e *SyntaxError) Error() string {
	return "thumbnail syntax: " + e.Reason
}

func Syntaxf(format string, args ...interface{}) error {
	return &SyntaxError{Reason: fmt.Sprintf(format, args...)}
}

type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "thumbnail configuration: " + e.Reason
}

func Configurationf(format string, args ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("thumbnail source <%s>: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func NewSourceError(path string, err error) error {
	return &SourceError{Path: path, Err: err}
}

type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("thumbnail render: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func NewRenderError(err error) error {
	return &RenderError{Err: err}
}

// syntax class = errors that must surface to the caller no matter what
// (SyntaxError and ConfigurationError)
func IsSyntaxClass(err error) bool {
	syntaxErr := &SyntaxError{}
	configErr := &ConfigurationError{}
	return errors.As(err, &syntaxErr) || errors.As(err, &configErr)
}

// source class = errors eligible for silent degradation when debug mode is off
func IsSourceClass(err error) bool {
	sourceErr := &SourceError{}
	return errors.As(err, &sourceErr)
}
