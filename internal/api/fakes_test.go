package api

import (
	"context"

	"github.com/shelfchat/shelfchat/internal/nl2gql"
	"github.com/shelfchat/shelfchat/internal/pipeline"
	"github.com/shelfchat/shelfchat/internal/query"
	"github.com/shelfchat/shelfchat/internal/storage"
)

type fakeEngine struct {
	result   query.Result
	err      error
	requests []query.Request
}

func (f *fakeEngine) Execute(_ context.Context, request query.Request) (query.Result, error) {
	f.requests = append(f.requests, request)
	if f.err != nil {
		return query.Result{}, f.err
	}
	if f.result.Data == nil && f.result.Errors == nil {
		return query.Result{Data: map[string]any{"authors": []any{}}}, nil
	}
	return f.result, nil
}

func (f *fakeEngine) SDL() string {
	return "type Query {\n  authors: [Author]\n}"
}

type fakeTranslator struct {
	translation nl2gql.Translation
	err         error
	question    string
	sdl         string
}

func (f *fakeTranslator) Translate(_ context.Context, question, sdl string) (nl2gql.Translation, error) {
	f.question = question
	f.sdl = sdl
	return f.translation, f.err
}

type fakeDescriber struct {
	description nl2gql.Description
	err         error
	input       any
}

func (f *fakeDescriber) Describe(_ context.Context, response any) (nl2gql.Description, error) {
	f.input = response
	return f.description, f.err
}

type fakeAsker struct {
	run    pipeline.Run
	err    error
	events []pipeline.StageEvent
	asked  []string
}

func (f *fakeAsker) Ask(_ context.Context, question string, sink pipeline.Sink) (pipeline.Run, error) {
	f.asked = append(f.asked, question)
	if sink != nil {
		for _, event := range f.events {
			sink(event)
		}
	}
	return f.run, f.err
}

type fakeTranscripts struct {
	runs  []pipeline.Run
	limit int
}

func (f *fakeTranscripts) List(_ context.Context, limit int) ([]pipeline.Run, error) {
	f.limit = limit
	return f.runs, nil
}

func (f *fakeTranscripts) Get(_ context.Context, id string) (pipeline.Run, error) {
	for _, run := range f.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return pipeline.Run{}, storage.ErrObjectNotFound
}
