package export

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// CountParquetRows reads data back with DuckDB's read_parquet and returns the
// row count.
func CountParquetRows(ctx context.Context, data []byte) (int64, error) {
	dir, err := os.MkdirTemp("", "shelfchat-export-")
	if err != nil {
		return 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "verify.parquet")
	if err := writeFile(path, bytes.NewReader(data)); err != nil {
		return 0, fmt.Errorf("write temp parquet: %w", err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return 0, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	var count int64
	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM read_parquet(%s)`, quoteString(path))
	if err := db.QueryRowContext(ctx, countSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("count parquet rows: %w", err)
	}
	return count, nil
}

func writeFile(path string, reader io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(file, reader); err != nil {
		return err
	}
	return file.Sync()
}

func quoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
