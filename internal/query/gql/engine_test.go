package gql

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfchat/shelfchat/internal/query"
)

func newTestEngine(t *testing.T, repo *fakeRepo, opts Options) *Engine {
	t.Helper()
	engine, err := NewEngine(repo, opts)
	require.NoError(t, err)
	return engine
}

func execJSON(t *testing.T, engine *Engine, req query.Request) (query.Result, map[string]any) {
	t.Helper()
	res, err := engine.Execute(context.Background(), req)
	require.NoError(t, err)
	body, err := json.Marshal(res.Data)
	require.NoError(t, err)
	var data map[string]any
	require.NoError(t, json.Unmarshal(body, &data))
	return res, data
}

func TestExecuteAuthorLookupWithBooks(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(t, repo, Options{})

	res, data := execJSON(t, engine, query.Request{Query: `{ author(name: "Brent Weeks") { id name books { name } } }`})
	require.False(t, res.HasErrors(), "errors: %+v", res.Errors)

	author := data["author"].(map[string]any)
	assert.Equal(t, "a-1", author["id"])
	books := author["books"].([]any)
	require.Len(t, books, 2)
	assert.Equal(t, "The Black Prism", books[0].(map[string]any)["name"])
}

func TestExecuteMissingBookReturnsErrorWithNullData(t *testing.T) {
	engine := newTestEngine(t, newFakeRepo(), Options{})

	res, data := execJSON(t, engine, query.Request{Query: `{ book(name: "Nope") { id name } }`})
	require.True(t, res.HasErrors())
	assert.Equal(t, "book not found", res.FirstError())
	assert.Nil(t, data["book"])
	assert.Equal(t, []any{"book"}, res.Errors[0].Path)

	res, _ = execJSON(t, engine, query.Request{Query: `{ author(name: "Nobody") { id } }`})
	assert.Equal(t, "author not found", res.FirstError())
}

func TestExecuteAuthorsPrefetchesBooksInOneQuery(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(t, repo, Options{})

	res, data := execJSON(t, engine, query.Request{Query: `{ authors { name books { name } } }`})
	require.False(t, res.HasErrors(), "errors: %+v", res.Errors)
	require.Len(t, data["authors"].([]any), 2)

	assert.Equal(t, 1, repo.count("ListBooksByAuthorIDs"), "books should be loaded in one batch")
}

func TestExecuteAuthorsWithoutBooksSkipsPrefetch(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(t, repo, Options{})

	res, _ := execJSON(t, engine, query.Request{Query: `{ authors { name } }`})
	require.False(t, res.HasErrors())
	assert.Zero(t, repo.count("ListBooksByAuthorIDs"))
}

func TestExecuteBooksPrefetchesAuthors(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(t, repo, Options{})

	res, data := execJSON(t, engine, query.Request{Query: `{ books { name authorId author { name } } }`})
	require.False(t, res.HasErrors(), "errors: %+v", res.Errors)

	books := data["books"].([]any)
	require.Len(t, books, 3)
	first := books[0].(map[string]any)
	assert.Equal(t, "Brent Weeks", first["author"].(map[string]any)["name"])
	assert.Equal(t, 1, repo.count("ListAuthorsByIDs"))
	assert.Zero(t, repo.count("GetAuthorByID"))
}

func TestExecuteSingleBookLoadsAuthorLazily(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(t, repo, Options{})

	res, data := execJSON(t, engine, query.Request{Query: `{ book(name: "A Wizard of Earthsea") { name author { name } } }`})
	require.False(t, res.HasErrors(), "errors: %+v", res.Errors)
	assert.Equal(t, "Ursula K. Le Guin", data["book"].(map[string]any)["author"].(map[string]any)["name"])
	assert.Equal(t, 1, repo.count("GetAuthorByID"))
}

func TestExecuteMutations(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(t, repo, Options{})

	res, data := execJSON(t, engine, query.Request{
		Query:     `mutation Add($name: String!) { addAuthor(name: $name) { id name books { id } } }`,
		Variables: map[string]any{"name": "Robin Hobb"},
	})
	require.False(t, res.HasErrors(), "errors: %+v", res.Errors)
	added := data["addAuthor"].(map[string]any)
	assert.Equal(t, "Robin Hobb", added["name"])
	assert.Empty(t, added["books"])

	res, data = execJSON(t, engine, query.Request{
		Query: `mutation { addBook(name: "Assassin's Apprentice", authorId: "` + added["id"].(string) + `") { id name authorId } }`,
	})
	require.False(t, res.HasErrors(), "errors: %+v", res.Errors)
	assert.Equal(t, "Assassin's Apprentice", data["addBook"].(map[string]any)["name"])

	res, _ = execJSON(t, engine, query.Request{Query: `mutation { addBook(name: "Orphan", authorId: "missing") { id } }`})
	assert.Equal(t, "author not found", res.FirstError())

	res, _ = execJSON(t, engine, query.Request{Query: `mutation { addAuthor(name: "   ") { id } }`})
	assert.Equal(t, "name is required", res.FirstError())
}

func TestExecuteRejectsMutationsWhenReadOnly(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(t, repo, Options{ReadOnly: true})

	_, err := engine.Execute(context.Background(), query.Request{Query: `mutation { addAuthor(name: "X") { id } }`})
	require.True(t, errors.Is(err, query.ErrMutationNotAllowed), "err = %v", err)
	assert.Zero(t, repo.count("CreateAuthor"))

	_, err = newTestEngine(t, repo, Options{}).Execute(context.Background(), query.Request{
		Query:    `mutation { addAuthor(name: "X") { id } }`,
		ReadOnly: true,
	})
	require.ErrorIs(t, err, query.ErrMutationNotAllowed)

	res, err := engine.Execute(context.Background(), query.Request{Query: `{ books { name } }`})
	require.NoError(t, err)
	assert.False(t, res.HasErrors())
}

func TestExecuteHidesStoreErrors(t *testing.T) {
	repo := newFakeRepo()
	repo.failOn = "ListBooks"
	engine := newTestEngine(t, repo, Options{})

	res, _ := execJSON(t, engine, query.Request{Query: `{ books { name } }`})
	require.True(t, res.HasErrors())
	assert.Equal(t, "failed to fetch books", res.FirstError())
	assert.NotContains(t, res.FirstError(), "connection refused")
}

func TestExecuteReportsSyntaxErrors(t *testing.T) {
	engine := newTestEngine(t, newFakeRepo(), Options{})

	res, err := engine.Execute(context.Background(), query.Request{Query: `{ books { name `})
	require.NoError(t, err)
	require.True(t, res.HasErrors())
	assert.Nil(t, res.Data)

	_, err = engine.Execute(context.Background(), query.Request{Query: "  "})
	require.Error(t, err)
}

func TestOperationType(t *testing.T) {
	assert.Equal(t, "query", operationType(`{ books { name } }`, ""))
	assert.Equal(t, "mutation", operationType(`mutation { addAuthor(name: "x") { id } }`, ""))
	assert.Equal(t, "query", operationType(`query A { books { id } } mutation B { addAuthor(name: "x") { id } }`, "A"))
	assert.Equal(t, "mutation", operationType(`query A { books { id } } mutation B { addAuthor(name: "x") { id } }`, ""))
	assert.Equal(t, "unknown", operationType(`{ broken`, ""))
}

func TestSDLDescribesLibrarySchema(t *testing.T) {
	engine := newTestEngine(t, newFakeRepo(), Options{})
	sdl := engine.SDL()

	for _, want := range []string{
		"type Query {",
		"  book(name: String): Book",
		"  authors: [Author]",
		"type Mutation {",
		"  addBook(authorId: String!, name: String!): Book",
		"  addAuthor(name: String!): Author",
		"type Author {\n  id: String!",
		"  books: [Book]",
		"  authorId: String!",
		`"""This is an author"""`,
	} {
		assert.Contains(t, sdl, want)
	}
	assert.Less(t, strings.Index(sdl, "type Query"), strings.Index(sdl, "type Mutation"))
	assert.Less(t, strings.Index(sdl, "type Mutation"), strings.Index(sdl, "type Author"))
	assert.NotContains(t, sdl, "__Schema")
	assert.Equal(t, sdl, PrintSDL(engine.schema), "SDL must be stable")
}
