package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the dataset file does not exist.
	ErrNotFound = errors.New("not found")
	// ErrParse indicates invalid JSON or a root that is not an object.
	ErrParse = errors.New("parse error")
)

// NotFoundError reports a missing dataset file.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ParseError reports a dataset that could not be read as a JSON object.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrParse, e.Err}
	}
	return []error{ErrParse}
}
