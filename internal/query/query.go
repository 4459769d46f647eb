// Package query defines the contract between the HTTP/pipeline layers and the
// schema-typed query engine.
package query

import (
	"context"
	"errors"
	"time"
)

var ErrMutationNotAllowed = errors.New("query: mutations are not allowed")

type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
	// ReadOnly rejects mutation operations for this request.
	ReadOnly bool `json:"-"`
}

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Error struct {
	Message   string     `json:"message"`
	Locations []Location `json:"locations,omitempty"`
	Path      []any      `json:"path,omitempty"`
}

type Result struct {
	Data     any           `json:"data"`
	Errors   []Error       `json:"errors,omitempty"`
	Duration time.Duration `json:"-"`
}

func (r Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// FirstError returns the first error message, or "" when the result is clean.
func (r Result) FirstError() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// Engine executes query documents. Query-level failures are reported in
// Result.Errors; the error return is reserved for requests that could not run.
type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
	SDL() string
}
