// Package gql serves the library through a GraphQL schema with Author and Book
// types, list/lookup queries and insert mutations.
package gql

import (
	"fmt"
	"log/slog"

	"github.com/graphql-go/graphql"

	"github.com/shelfchat/shelfchat/internal/library"
	"github.com/shelfchat/shelfchat/internal/observability"
)

// NewSchema builds the library schema over repo.
func NewSchema(repo library.Repository, logger *slog.Logger) (graphql.Schema, error) {
	if repo == nil {
		return graphql.Schema{}, fmt.Errorf("library repository is required")
	}
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	r := &resolver{repo: repo, logger: logger}

	authorType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Author",
		Description: "This is an author",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: authorField(func(a library.Author) any { return a.ID })},
			"name": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: authorField(func(a library.Author) any { return a.Name })},
		},
	})
	bookType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Book",
		Description: "This represents a book written by an author",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: bookField(func(b library.Book) any { return b.ID })},
			"name":     &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: bookField(func(b library.Book) any { return b.Name })},
			"authorId": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: bookField(func(b library.Book) any { return b.AuthorID })},
		},
	})
	// The two types reference each other, so the relation fields are added afterwards.
	authorType.AddFieldConfig("books", &graphql.Field{
		Type:    graphql.NewList(bookType),
		Resolve: r.authorBooks,
	})
	bookType.AddFieldConfig("author", &graphql.Field{
		Type:    authorType,
		Resolve: r.bookAuthor,
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Query",
		Description: "Root Query",
		Fields: graphql.Fields{
			"book": &graphql.Field{
				Type:        bookType,
				Description: "A Book",
				Args:        graphql.FieldConfigArgument{"name": &graphql.ArgumentConfig{Type: graphql.String}},
				Resolve:     r.book,
			},
			"books": &graphql.Field{
				Type:        graphql.NewList(bookType),
				Description: "List of All Books",
				Resolve:     r.books,
			},
			"author": &graphql.Field{
				Type:        authorType,
				Description: "An Author",
				Args:        graphql.FieldConfigArgument{"name": &graphql.ArgumentConfig{Type: graphql.String}},
				Resolve:     r.author,
			},
			"authors": &graphql.Field{
				Type:        graphql.NewList(authorType),
				Description: "List of All Authors",
				Resolve:     r.authors,
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Mutation",
		Description: "Root Mutation",
		Fields: graphql.Fields{
			"addBook": &graphql.Field{
				Type:        bookType,
				Description: "Add a new book",
				Args: graphql.FieldConfigArgument{
					"name":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"authorId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.addBook,
			},
			"addAuthor": &graphql.Field{
				Type:        authorType,
				Description: "Add an author",
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.addAuthor,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("build library schema: %w", err)
	}
	return schema, nil
}

func authorField(get func(library.Author) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		author, ok := asAuthor(p.Source)
		if !ok {
			return nil, nil
		}
		return get(author), nil
	}
}

func bookField(get func(library.Book) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		book, ok := asBook(p.Source)
		if !ok {
			return nil, nil
		}
		return get(book), nil
	}
}

func asAuthor(source any) (library.Author, bool) {
	switch v := source.(type) {
	case library.Author:
		return v, true
	case *library.Author:
		if v == nil {
			return library.Author{}, false
		}
		return *v, true
	default:
		return library.Author{}, false
	}
}

func asBook(source any) (library.Book, bool) {
	switch v := source.(type) {
	case library.Book:
		return v, true
	case *library.Book:
		if v == nil {
			return library.Book{}, false
		}
		return *v, true
	default:
		return library.Book{}, false
	}
}
