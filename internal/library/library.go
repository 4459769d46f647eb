// Package library holds the author and book records served by the query layer.
package library

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("library: not found")

type Repository interface {
	HealthCheck(ctx context.Context) error
	ListAuthors(ctx context.Context) ([]Author, error)
	GetAuthorByName(ctx context.Context, name string) (Author, error)
	GetAuthorByID(ctx context.Context, id string) (Author, error)
	ListAuthorsByIDs(ctx context.Context, ids []string) ([]Author, error)
	CreateAuthor(ctx context.Context, in CreateAuthorInput) (Author, error)
	ListBooks(ctx context.Context) ([]Book, error)
	GetBookByName(ctx context.Context, name string) (Book, error)
	ListBooksByAuthorIDs(ctx context.Context, authorIDs []string) ([]Book, error)
	CreateBook(ctx context.Context, in CreateBookInput) (Book, error)
}

type Author struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Books []Book `json:"books,omitempty"`

	// booksLoaded distinguishes a prefetched empty list from an unloaded one.
	booksLoaded bool
}

func (a Author) BooksLoaded() bool {
	return a.booksLoaded
}

// WithBooks returns a copy carrying a prefetched book list.
func (a Author) WithBooks(books []Book) Author {
	a.Books = books
	a.booksLoaded = true
	return a
}

type Book struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	AuthorID string  `json:"authorId"`
	Author   *Author `json:"author,omitempty"`
}

type CreateAuthorInput struct {
	ID   string
	Name string `validate:"required,max=255"`
}

type CreateBookInput struct {
	ID       string
	Name     string `validate:"required,max=255"`
	AuthorID string `validate:"required,max=64"`
}
