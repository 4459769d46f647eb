package gql

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/shelfchat/shelfchat/internal/library"
)

type fakeRepo struct {
	mu      sync.Mutex
	authors []library.Author
	books   []library.Book
	calls   map[string]int
	failOn  string
	nextID  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		authors: []library.Author{
			{ID: "a-1", Name: "Brent Weeks"},
			{ID: "a-2", Name: "Ursula K. Le Guin"},
		},
		books: []library.Book{
			{ID: "b-1", Name: "The Black Prism", AuthorID: "a-1"},
			{ID: "b-2", Name: "The Way of Shadows", AuthorID: "a-1"},
			{ID: "b-3", Name: "A Wizard of Earthsea", AuthorID: "a-2"},
		},
		calls: map[string]int{},
	}
}

func (f *fakeRepo) track(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if f.failOn == name {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeRepo) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRepo) HealthCheck(context.Context) error { return f.track("HealthCheck") }

func (f *fakeRepo) ListAuthors(context.Context) ([]library.Author, error) {
	if err := f.track("ListAuthors"); err != nil {
		return nil, err
	}
	return append([]library.Author(nil), f.authors...), nil
}

func (f *fakeRepo) GetAuthorByName(_ context.Context, name string) (library.Author, error) {
	if err := f.track("GetAuthorByName"); err != nil {
		return library.Author{}, err
	}
	for _, a := range f.authors {
		if a.Name == name {
			return a, nil
		}
	}
	return library.Author{}, library.ErrNotFound
}

func (f *fakeRepo) GetAuthorByID(_ context.Context, id string) (library.Author, error) {
	if err := f.track("GetAuthorByID"); err != nil {
		return library.Author{}, err
	}
	for _, a := range f.authors {
		if a.ID == id {
			return a, nil
		}
	}
	return library.Author{}, library.ErrNotFound
}

func (f *fakeRepo) ListAuthorsByIDs(_ context.Context, ids []string) ([]library.Author, error) {
	if err := f.track("ListAuthorsByIDs"); err != nil {
		return nil, err
	}
	return lo.Filter(f.authors, func(a library.Author, _ int) bool { return lo.Contains(ids, a.ID) }), nil
}

func (f *fakeRepo) CreateAuthor(_ context.Context, in library.CreateAuthorInput) (library.Author, error) {
	if err := f.track("CreateAuthor"); err != nil {
		return library.Author{}, err
	}
	in, err := in.Normalize()
	if err != nil {
		return library.Author{}, err
	}
	f.nextID++
	author := library.Author{ID: fmt.Sprintf("a-new-%d", f.nextID), Name: in.Name}
	f.authors = append(f.authors, author)
	return author, nil
}

func (f *fakeRepo) ListBooks(context.Context) ([]library.Book, error) {
	if err := f.track("ListBooks"); err != nil {
		return nil, err
	}
	return append([]library.Book(nil), f.books...), nil
}

func (f *fakeRepo) GetBookByName(_ context.Context, name string) (library.Book, error) {
	if err := f.track("GetBookByName"); err != nil {
		return library.Book{}, err
	}
	for _, b := range f.books {
		if b.Name == name {
			return b, nil
		}
	}
	return library.Book{}, library.ErrNotFound
}

func (f *fakeRepo) ListBooksByAuthorIDs(_ context.Context, ids []string) ([]library.Book, error) {
	if err := f.track("ListBooksByAuthorIDs"); err != nil {
		return nil, err
	}
	return lo.Filter(f.books, func(b library.Book, _ int) bool { return lo.Contains(ids, b.AuthorID) }), nil
}

func (f *fakeRepo) CreateBook(_ context.Context, in library.CreateBookInput) (library.Book, error) {
	if err := f.track("CreateBook"); err != nil {
		return library.Book{}, err
	}
	in, err := in.Normalize()
	if err != nil {
		return library.Book{}, err
	}
	if !lo.ContainsBy(f.authors, func(a library.Author) bool { return a.ID == in.AuthorID }) {
		return library.Book{}, fmt.Errorf("author %q: %w", in.AuthorID, library.ErrNotFound)
	}
	f.nextID++
	book := library.Book{ID: fmt.Sprintf("b-new-%d", f.nextID), Name: in.Name, AuthorID: in.AuthorID}
	f.books = append(f.books, book)
	return book, nil
}
