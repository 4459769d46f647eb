// Package pipeline chains question translation, query execution and result
// description into one conversational turn.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shelfchat/shelfchat/internal/auth"
	"github.com/shelfchat/shelfchat/internal/nl2gql"
	"github.com/shelfchat/shelfchat/internal/observability"
	"github.com/shelfchat/shelfchat/internal/query"
)

type Stage string

const (
	StageTranslate Stage = "translate"
	StageExecute   Stage = "execute"
	StageDescribe  Stage = "describe"
)

// StageEvent is emitted once per completed stage. Only the field belonging to
// the stage is set.
type StageEvent struct {
	Stage           Stage         `json:"stage"`
	Query           string        `json:"query,omitempty"`
	Result          *query.Result `json:"result,omitempty"`
	Description     string        `json:"description,omitempty"`
	DescriptionHTML string        `json:"description_html,omitempty"`
}

// Sink receives stage events as they happen. It may be nil.
type Sink func(StageEvent)

// StageError reports which stage of a run failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Run records one question and whatever the stages produced before finishing
// or failing.
type Run struct {
	ID              string        `json:"id"`
	Question        string        `json:"question"`
	Query           string        `json:"query,omitempty"`
	Result          *query.Result `json:"result,omitempty"`
	Description     string        `json:"description,omitempty"`
	DescriptionHTML string        `json:"description_html,omitempty"`
	Provider        string        `json:"provider,omitempty"`
	Model           string        `json:"model,omitempty"`
	CachedQuery     bool          `json:"cached_query,omitempty"`
	FailedStage     Stage         `json:"failed_stage,omitempty"`
	Error           string        `json:"error,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
}

func (r Run) Failed() bool {
	return r.FailedStage != ""
}

type Translator interface {
	Translate(ctx context.Context, question, sdl string) (nl2gql.Translation, error)
}

type Describer interface {
	Describe(ctx context.Context, response any) (nl2gql.Description, error)
}

type Archiver interface {
	Archive(ctx context.Context, run Run) error
}

type Options struct {
	Archiver Archiver
	Logger   *slog.Logger
	// AllowMutations lets translated queries run mutation operations.
	AllowMutations bool
	// Timeout bounds a whole run. Zero means no limit beyond ctx.
	Timeout time.Duration
	Now     func() time.Time
	NewID   func() string
}

type Service struct {
	translator Translator
	engine     query.Engine
	describer  Describer
	opts       Options
	logger     *slog.Logger
}

func NewService(translator Translator, engine query.Engine, describer Describer, opts Options) (*Service, error) {
	if translator == nil {
		return nil, errors.New("translator is required")
	}
	if engine == nil {
		return nil, errors.New("query engine is required")
	}
	if describer == nil {
		return nil, errors.New("describer is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Service{translator: translator, engine: engine, describer: describer, opts: opts, logger: logger}, nil
}

// Ask answers question. On failure the returned Run still carries the output
// of every stage that completed, and the error is a *StageError.
func (s *Service) Ask(ctx context.Context, question string, sink Sink) (Run, error) {
	if sink == nil {
		sink = func(StageEvent) {}
	}
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	logger := observability.LoggerWithTrace(ctx, s.logger)

	run := Run{
		ID:        s.opts.NewID(),
		Question:  strings.TrimSpace(question),
		StartedAt: s.opts.Now().UTC(),
	}

	err := s.run(ctx, logger, &run, sink)
	run.FinishedAt = s.opts.Now().UTC()

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		run.FailedStage = stageErr.Stage
		run.Error = stageErr.Err.Error()
		logger.WarnContext(ctx, "pipeline run failed",
			slog.String("run_id", run.ID),
			slog.String("stage", string(stageErr.Stage)),
			slog.String("error", run.Error),
		)
	}
	observability.ObservePipelineRun(string(run.FailedStage))
	s.archive(ctx, logger, run)
	return run, err
}

func (s *Service) run(ctx context.Context, logger *slog.Logger, run *Run, sink Sink) error {
	err := s.stage(ctx, StageTranslate, func() error {
		translation, err := s.translator.Translate(ctx, run.Question, s.engine.SDL())
		if err != nil {
			return err
		}
		run.Query = translation.Query
		run.Provider = translation.Provider
		run.Model = translation.Model
		run.CachedQuery = translation.Cached
		return nil
	})
	if err != nil {
		return err
	}
	logger.DebugContext(ctx, "question translated", slog.String("run_id", run.ID), slog.String("query", run.Query), slog.Bool("cached", run.CachedQuery))
	sink(StageEvent{Stage: StageTranslate, Query: run.Query})

	err = s.stage(ctx, StageExecute, func() error {
		result, err := s.engine.Execute(ctx, query.Request{
			Query:    run.Query,
			ReadOnly: !s.opts.AllowMutations || !auth.AllowsWrite(ctx),
		})
		if err != nil {
			return err
		}
		run.Result = &result
		if result.HasErrors() {
			return errors.New(result.FirstError())
		}
		return nil
	})
	if err != nil {
		return err
	}
	sink(StageEvent{Stage: StageExecute, Result: run.Result})

	err = s.stage(ctx, StageDescribe, func() error {
		description, err := s.describer.Describe(ctx, run.Result)
		if err != nil {
			return err
		}
		run.Description = description.Text
		run.DescriptionHTML = description.HTML
		return nil
	})
	if err != nil {
		return err
	}
	sink(StageEvent{Stage: StageDescribe, Description: run.Description, DescriptionHTML: run.DescriptionHTML})
	return nil
}

func (s *Service) stage(ctx context.Context, stage Stage, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	started := time.Now()
	err := fn()
	outcome := observability.OutcomeOK
	if err != nil {
		outcome = observability.OutcomeError
	}
	observability.ObservePipelineStage(string(stage), outcome, time.Since(started))
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

func (s *Service) archive(ctx context.Context, logger *slog.Logger, run Run) {
	if s.opts.Archiver == nil {
		return
	}
	// The run's own deadline may already be spent.
	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.opts.Archiver.Archive(archiveCtx, run); err != nil {
		logger.WarnContext(ctx, "archive run failed", slog.String("run_id", run.ID), slog.String("error", err.Error()))
	}
}
