package gql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"

	"github.com/shelfchat/shelfchat/internal/library"
	"github.com/shelfchat/shelfchat/internal/observability"
	"github.com/shelfchat/shelfchat/internal/query"
)

type Options struct {
	// ReadOnly rejects every mutation regardless of the request flag.
	ReadOnly bool
	Logger   *slog.Logger
}

type Engine struct {
	schema   graphql.Schema
	sdl      string
	readOnly bool
	logger   *slog.Logger
}

var _ query.Engine = (*Engine)(nil)

func NewEngine(repo library.Repository, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	schema, err := NewSchema(repo, logger)
	if err != nil {
		return nil, err
	}
	return &Engine{
		schema:   schema,
		sdl:      PrintSDL(schema),
		readOnly: opts.ReadOnly,
		logger:   logger,
	}, nil
}

// WithReadOnly returns an engine sharing the schema that rejects mutations.
func (e *Engine) WithReadOnly() *Engine {
	clone := *e
	clone.readOnly = true
	return &clone
}

func (e *Engine) SDL() string {
	return e.sdl
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	source := strings.TrimSpace(request.Query)
	if source == "" {
		return query.Result{}, fmt.Errorf("query is required")
	}

	operation := operationType(source, request.OperationName)
	if operation == "mutation" && (e.readOnly || request.ReadOnly) {
		observability.ObserveGraphQLOperation(operation, true)
		return query.Result{}, query.ErrMutationNotAllowed
	}

	start := time.Now()
	res := graphql.Do(graphql.Params{
		Schema:         e.schema,
		RequestString:  source,
		VariableValues: request.Variables,
		OperationName:  request.OperationName,
		Context:        ctx,
	})
	out := query.Result{Data: res.Data, Duration: time.Since(start)}
	for _, gqlErr := range res.Errors {
		item := query.Error{Message: gqlErr.Message, Path: gqlErr.Path}
		for _, loc := range gqlErr.Locations {
			item.Locations = append(item.Locations, query.Location{Line: loc.Line, Column: loc.Column})
		}
		out.Errors = append(out.Errors, item)
	}

	observability.ObserveGraphQLOperation(operation, out.HasErrors())
	e.logger.DebugContext(ctx, "graphql executed",
		slog.String("operation", operation),
		slog.Int("errors", len(out.Errors)),
		slog.String("duration", out.Duration.String()),
	)
	return out, nil
}

// operationType finds the selected operation's type. Unparseable documents
// report "unknown" and are left for graphql.Do to reject.
func operationType(source, operationName string) string {
	doc, err := parser.Parse(parser.ParseParams{Source: source})
	if err != nil {
		return "unknown"
	}
	var ops []*ast.OperationDefinition
	for _, def := range doc.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			ops = append(ops, op)
		}
	}
	for _, op := range ops {
		if operationName == "" && len(ops) == 1 {
			return op.Operation
		}
		if op.Name != nil && op.Name.Value == operationName {
			return op.Operation
		}
	}
	// Several anonymous or unmatched operations: treat any mutation as one.
	for _, op := range ops {
		if op.Operation == "mutation" {
			return "mutation"
		}
	}
	return "unknown"
}
