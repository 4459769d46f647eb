//go:build integration

package migrations_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfchat/shelfchat/internal/library"
	"github.com/shelfchat/shelfchat/internal/library/sqlstore"
	"github.com/shelfchat/shelfchat/internal/migrations"
)

func TestLibrarySchemaOnPostgres(t *testing.T) {
	adminDSN := strings.TrimSpace(os.Getenv("SHELFCHAT_TEST_POSTGRES_DSN"))
	if adminDSN == "" {
		t.Skip("SHELFCHAT_TEST_POSTGRES_DSN is not set")
	}
	testDSN, cleanup := createTemporaryPostgresDatabase(t, adminDSN)
	defer cleanup()

	exerciseLibrarySchema(t, "postgres", testDSN,
		`SELECT COUNT(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = $1`)
}

// The MySQL DSN must point at a dedicated, empty database.
func TestLibrarySchemaOnMySQL(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("SHELFCHAT_TEST_MYSQL_DSN"))
	if dsn == "" {
		t.Skip("SHELFCHAT_TEST_MYSQL_DSN is not set")
	}
	exerciseLibrarySchema(t, "mysql", dsn,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`)
}

func exerciseLibrarySchema(t *testing.T, driver, dsn, tableExistsQuery string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, dialect, err := sqlstore.Open(ctx, sqlstore.DBConfig{Driver: driver, DSN: dsn})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	runner := migrations.NewRunner(dialect.Placeholder)
	applied, err := runner.Up(ctx, db, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, applied, 1)

	again, err := runner.Up(ctx, db, 0)
	require.NoError(t, err)
	require.Zero(t, again, "second Up must be a no-op")

	assertTableExists(t, db, tableExistsQuery, "author", true)
	assertTableExists(t, db, tableExistsQuery, "books", true)

	repo := sqlstore.NewRepository(db, dialect)
	author, err := repo.CreateAuthor(ctx, library.CreateAuthorInput{Name: "Brent Weeks"})
	require.NoError(t, err)
	_, err = repo.CreateBook(ctx, library.CreateBookInput{Name: "The Way of Shadows", AuthorID: author.ID})
	require.NoError(t, err)

	_, err = repo.CreateBook(ctx, library.CreateBookInput{Name: "Orphan", AuthorID: "missing"})
	require.True(t, errors.Is(err, library.ErrNotFound), "unknown author error = %v", err)

	books, err := repo.ListBooksByAuthorIDs(ctx, []string{author.ID})
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Equal(t, "The Way of Shadows", books[0].Name)

	rolledBack, err := runner.Down(ctx, db, 1)
	require.NoError(t, err)
	require.Equal(t, 1, rolledBack)

	assertTableExists(t, db, tableExistsQuery, "books", false)
	assertTableExists(t, db, tableExistsQuery, "author", false)
}

func createTemporaryPostgresDatabase(t *testing.T, adminDSN string) (string, func()) {
	t.Helper()

	parsed, err := url.Parse(adminDSN)
	require.NoError(t, err)
	if strings.TrimPrefix(parsed.Path, "/") == "" {
		t.Fatal("admin DSN must include a database name")
	}

	adminDB, err := sql.Open("pgx", adminDSN)
	require.NoError(t, err)

	name := fmt.Sprintf("shelfchat_it_%d", time.Now().UnixNano())
	if _, err := adminDB.Exec(`CREATE DATABASE ` + name); err != nil {
		t.Fatalf("CREATE DATABASE failed: %v", err)
	}

	testURL := *parsed
	testURL.Path = "/" + name
	cleanup := func() {
		defer func() { _ = adminDB.Close() }()
		if _, err := adminDB.Exec(`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1`, name); err != nil {
			t.Fatalf("terminate test db sessions: %v", err)
		}
		if _, err := adminDB.Exec(`DROP DATABASE ` + name); err != nil {
			t.Fatalf("DROP DATABASE failed: %v", err)
		}
	}
	return testURL.String(), cleanup
}

func assertTableExists(t *testing.T, db *sql.DB, query, table string, expected bool) {
	t.Helper()
	var count int
	require.NoError(t, db.QueryRow(query, table).Scan(&count), "query table %q existence", table)
	require.Equal(t, expected, count > 0, "table %q existence", table)
}
