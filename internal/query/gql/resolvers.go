package gql

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/samber/lo"

	"github.com/shelfchat/shelfchat/internal/library"
)

var (
	errBookNotFound   = errors.New("book not found")
	errAuthorNotFound = errors.New("author not found")
)

type resolver struct {
	repo   library.Repository
	logger *slog.Logger
}

func (r *resolver) book(p graphql.ResolveParams) (any, error) {
	name, _ := p.Args["name"].(string)
	book, err := r.repo.GetBookByName(p.Context, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			return nil, errBookNotFound
		}
		return nil, r.internal(p, "fetch book", err)
	}
	return book, nil
}

func (r *resolver) books(p graphql.ResolveParams) (any, error) {
	books, err := r.repo.ListBooks(p.Context)
	if err != nil {
		return nil, r.internal(p, "fetch books", err)
	}
	if selects(p, "author") {
		if err := r.prefetchAuthors(p, books); err != nil {
			return nil, err
		}
	}
	return books, nil
}

func (r *resolver) author(p graphql.ResolveParams) (any, error) {
	name, _ := p.Args["name"].(string)
	author, err := r.repo.GetAuthorByName(p.Context, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			return nil, errAuthorNotFound
		}
		return nil, r.internal(p, "fetch author", err)
	}
	return author, nil
}

func (r *resolver) authors(p graphql.ResolveParams) (any, error) {
	authors, err := r.repo.ListAuthors(p.Context)
	if err != nil {
		return nil, r.internal(p, "fetch authors", err)
	}
	if selects(p, "books") && len(authors) > 0 {
		ids := lo.Map(authors, func(a library.Author, _ int) string { return a.ID })
		books, err := r.repo.ListBooksByAuthorIDs(p.Context, ids)
		if err != nil {
			return nil, r.internal(p, "fetch books", err)
		}
		byAuthor := lo.GroupBy(books, func(b library.Book) string { return b.AuthorID })
		for i := range authors {
			authors[i] = authors[i].WithBooks(byAuthor[authors[i].ID])
		}
	}
	return authors, nil
}

// authorBooks returns prefetched books when the parent list loaded them and
// falls back to a per-author query otherwise.
func (r *resolver) authorBooks(p graphql.ResolveParams) (any, error) {
	author, ok := asAuthor(p.Source)
	if !ok {
		return nil, nil
	}
	if author.BooksLoaded() {
		return lo.Ternary(author.Books == nil, []library.Book{}, author.Books), nil
	}
	books, err := r.repo.ListBooksByAuthorIDs(p.Context, []string{author.ID})
	if err != nil {
		return nil, r.internal(p, "fetch books", err)
	}
	if books == nil {
		books = []library.Book{}
	}
	return books, nil
}

func (r *resolver) bookAuthor(p graphql.ResolveParams) (any, error) {
	book, ok := asBook(p.Source)
	if !ok {
		return nil, nil
	}
	if book.Author != nil {
		return *book.Author, nil
	}
	author, err := r.repo.GetAuthorByID(p.Context, book.AuthorID)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			return nil, nil
		}
		return nil, r.internal(p, "fetch author", err)
	}
	return author, nil
}

func (r *resolver) addBook(p graphql.ResolveParams) (any, error) {
	name, _ := p.Args["name"].(string)
	authorID, _ := p.Args["authorId"].(string)
	book, err := r.repo.CreateBook(p.Context, library.CreateBookInput{Name: name, AuthorID: authorID})
	if err != nil {
		return nil, r.mutationError(p, "add book", err)
	}
	r.logger.InfoContext(p.Context, "book added", slog.String("book_id", book.ID), slog.String("author_id", book.AuthorID))
	return book, nil
}

func (r *resolver) addAuthor(p graphql.ResolveParams) (any, error) {
	name, _ := p.Args["name"].(string)
	author, err := r.repo.CreateAuthor(p.Context, library.CreateAuthorInput{Name: name})
	if err != nil {
		return nil, r.mutationError(p, "add author", err)
	}
	r.logger.InfoContext(p.Context, "author added", slog.String("author_id", author.ID))
	return author.WithBooks(nil), nil
}

func (r *resolver) prefetchAuthors(p graphql.ResolveParams, books []library.Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := lo.Map(books, func(b library.Book, _ int) string { return b.AuthorID })
	authors, err := r.repo.ListAuthorsByIDs(p.Context, ids)
	if err != nil {
		return r.internal(p, "fetch authors", err)
	}
	byID := lo.KeyBy(authors, func(a library.Author) string { return a.ID })
	for i := range books {
		if author, ok := byID[books[i].AuthorID]; ok {
			books[i].Author = &author
		}
	}
	return nil
}

func (r *resolver) mutationError(p graphql.ResolveParams, op string, err error) error {
	var vErr *library.ValidationError
	switch {
	case errors.As(err, &vErr):
		return vErr
	case errors.Is(err, library.ErrNotFound):
		return errAuthorNotFound
	default:
		return r.internal(p, op, err)
	}
}

// internal logs the store failure and hides its details from the client.
func (r *resolver) internal(p graphql.ResolveParams, op string, err error) error {
	r.logger.ErrorContext(p.Context, "library resolver failed",
		slog.String("field", p.Info.FieldName),
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return errors.New("failed to " + op)
}

// selects reports whether any AST node for the current field selects name directly.
func selects(p graphql.ResolveParams, name string) bool {
	for _, field := range p.Info.FieldASTs {
		if field == nil || field.SelectionSet == nil {
			continue
		}
		for _, selection := range field.SelectionSet.Selections {
			if child, ok := selection.(*ast.Field); ok && child.Name != nil && child.Name.Value == name {
				return true
			}
		}
	}
	return false
}
