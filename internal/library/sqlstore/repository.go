package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/shelfchat/shelfchat/internal/library"
)

const (
	authorTable = "author"
	bookTable   = "books"
)

type Repository struct {
	db    *sql.DB
	sb    sq.StatementBuilderType
	newID func() string
}

type Option func(*Repository)

// WithIDGenerator replaces the UUID generator used for new records.
func WithIDGenerator(fn func() string) Option {
	return func(r *Repository) {
		if fn != nil {
			r.newID = fn
		}
	}
}

func NewRepository(db *sql.DB, dialect Dialect, opts ...Option) *Repository {
	placeholder := dialect.Placeholder
	if placeholder == nil {
		placeholder = sq.Question
	}
	repo := &Repository{
		db:    db,
		sb:    sq.StatementBuilder.PlaceholderFormat(placeholder),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

var _ library.Repository = (*Repository)(nil)

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping library store: %w", err)
	}
	return nil
}

func (r *Repository) ListAuthors(ctx context.Context) ([]library.Author, error) {
	authors, err := r.queryAuthors(ctx, r.authorSelect().OrderBy("name", "id"))
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return authors, nil
}

func (r *Repository) GetAuthorByName(ctx context.Context, name string) (library.Author, error) {
	return r.getAuthor(ctx, sq.Eq{"name": name}, "get author by name")
}

func (r *Repository) GetAuthorByID(ctx context.Context, id string) (library.Author, error) {
	return r.getAuthor(ctx, sq.Eq{"id": id}, "get author by id")
}

func (r *Repository) ListAuthorsByIDs(ctx context.Context, ids []string) ([]library.Author, error) {
	ids = lo.Uniq(lo.Compact(ids))
	if len(ids) == 0 {
		return nil, nil
	}
	authors, err := r.queryAuthors(ctx, r.authorSelect().Where(sq.Eq{"id": ids}).OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("list authors by ids: %w", err)
	}
	return authors, nil
}

func (r *Repository) CreateAuthor(ctx context.Context, in library.CreateAuthorInput) (library.Author, error) {
	in, err := in.Normalize()
	if err != nil {
		return library.Author{}, err
	}
	if in.ID == "" {
		in.ID = r.newID()
	}

	if err := r.exec(ctx, r.db, r.sb.Insert(authorTable).Columns("id", "name").Values(in.ID, in.Name)); err != nil {
		return library.Author{}, fmt.Errorf("create author: %w", err)
	}
	return library.Author{ID: in.ID, Name: in.Name}, nil
}

func (r *Repository) ListBooks(ctx context.Context) ([]library.Book, error) {
	books, err := r.queryBooks(ctx, r.bookSelect().OrderBy("name", "id"))
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (r *Repository) GetBookByName(ctx context.Context, name string) (library.Book, error) {
	books, err := r.queryBooks(ctx, r.bookSelect().Where(sq.Eq{"name": name}).OrderBy("id").Limit(1))
	if err != nil {
		return library.Book{}, fmt.Errorf("get book by name: %w", err)
	}
	if len(books) == 0 {
		return library.Book{}, library.ErrNotFound
	}
	return books[0], nil
}

func (r *Repository) ListBooksByAuthorIDs(ctx context.Context, authorIDs []string) ([]library.Book, error) {
	authorIDs = lo.Uniq(lo.Compact(authorIDs))
	if len(authorIDs) == 0 {
		return nil, nil
	}
	books, err := r.queryBooks(ctx, r.bookSelect().Where(sq.Eq{"author_id": authorIDs}).OrderBy("author_id", "name", "id"))
	if err != nil {
		return nil, fmt.Errorf("list books by author ids: %w", err)
	}
	return books, nil
}

// CreateBook checks the owning author inside the insert transaction so an
// unknown author surfaces as library.ErrNotFound on every driver.
func (r *Repository) CreateBook(ctx context.Context, in library.CreateBookInput) (library.Book, error) {
	in, err := in.Normalize()
	if err != nil {
		return library.Book{}, err
	}
	if in.ID == "" {
		in.ID = r.newID()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return library.Book{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := r.sb.Select("id").From(authorTable).Where(sq.Eq{"id": in.AuthorID}).ToSql()
	if err != nil {
		return library.Book{}, fmt.Errorf("build author lookup: %w", err)
	}
	var authorID string
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&authorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return library.Book{}, fmt.Errorf("author %q: %w", in.AuthorID, library.ErrNotFound)
		}
		return library.Book{}, fmt.Errorf("lookup author: %w", err)
	}

	insert := r.sb.Insert(bookTable).Columns("id", "name", "author_id").Values(in.ID, in.Name, in.AuthorID)
	if err := r.exec(ctx, tx, insert); err != nil {
		return library.Book{}, fmt.Errorf("create book: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return library.Book{}, fmt.Errorf("commit create book: %w", err)
	}
	return library.Book{ID: in.ID, Name: in.Name, AuthorID: in.AuthorID}, nil
}

func (r *Repository) authorSelect() sq.SelectBuilder {
	return r.sb.Select("id", "name").From(authorTable)
}

func (r *Repository) bookSelect() sq.SelectBuilder {
	return r.sb.Select("id", "name", "author_id").From(bookTable)
}

func (r *Repository) getAuthor(ctx context.Context, where sq.Eq, op string) (library.Author, error) {
	authors, err := r.queryAuthors(ctx, r.authorSelect().Where(where).OrderBy("id").Limit(1))
	if err != nil {
		return library.Author{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(authors) == 0 {
		return library.Author{}, library.ErrNotFound
	}
	return authors[0], nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) exec(ctx context.Context, db execer, stmt sq.Sqlizer) error {
	query, args, err := stmt.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	_, err = db.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) queryAuthors(ctx context.Context, stmt sq.SelectBuilder) ([]library.Author, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	authors := []library.Author{}
	for rows.Next() {
		var author library.Author
		if err := rows.Scan(&author.ID, &author.Name); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, author)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return authors, nil
}

func (r *Repository) queryBooks(ctx context.Context, stmt sq.SelectBuilder) ([]library.Book, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	books := []library.Book{}
	for rows.Next() {
		var book library.Book
		if err := rows.Scan(&book.ID, &book.Name, &book.AuthorID); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return books, nil
}
