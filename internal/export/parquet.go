package export

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/shelfchat/shelfchat/internal/library"
)

type authorRow struct {
	ID   string `parquet:"id"`
	Name string `parquet:"name"`
}

type bookRow struct {
	ID       string `parquet:"id"`
	Name     string `parquet:"name"`
	AuthorID string `parquet:"author_id"`
}

func EncodeAuthors(authors []library.Author) ([]byte, error) {
	rows := make([]authorRow, 0, len(authors))
	for _, author := range authors {
		rows = append(rows, authorRow{ID: author.ID, Name: author.Name})
	}
	return encodeRows(rows)
}

func EncodeBooks(books []library.Book) ([]byte, error) {
	rows := make([]bookRow, 0, len(books))
	for _, book := range books {
		rows = append(rows, bookRow{ID: book.ID, Name: book.Name, AuthorID: book.AuthorID})
	}
	return encodeRows(rows)
}

func encodeRows[T any](rows []T) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
