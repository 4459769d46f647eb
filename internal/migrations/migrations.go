// Package migrations applies the embedded library schema. Scripts are kept to
// DDL that PostgreSQL, MySQL, SQLite and DuckDB all accept.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const migrationTable = "shelfchat_schema_migrations"

var migrationNamePattern = regexp.MustCompile(`^([0-9]+)_.+\.(up|down)\.sql$`)

type Runner struct {
	fsys fs.FS
	sb   sq.StatementBuilderType
}

// NewRunner uses placeholder to render bookkeeping statements for the target driver.
func NewRunner(placeholder sq.PlaceholderFormat) *Runner {
	if placeholder == nil {
		placeholder = sq.Question
	}
	return &Runner{fsys: embeddedFS, sb: sq.StatementBuilder.PlaceholderFormat(placeholder)}
}

type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

// Status describes one known migration.
type Status struct {
	Version int64
	Name    string
	Applied bool
}

func (r *Runner) Up(ctx context.Context, db *sql.DB, steps int) (int, error) {
	migrations, err := loadMigrations(r.fsys)
	if err != nil {
		return 0, err
	}
	if err := ensureMigrationTable(ctx, db); err != nil {
		return 0, err
	}
	applied, err := r.appliedVersions(ctx, db, "ASC")
	if err != nil {
		return 0, err
	}

	appliedSet := make(map[int64]struct{}, len(applied))
	for _, version := range applied {
		appliedSet[version] = struct{}{}
	}

	runCount := 0
	for _, item := range migrations {
		if _, ok := appliedSet[item.Version]; ok {
			continue
		}
		if steps > 0 && runCount >= steps {
			break
		}
		mark := r.sb.Insert(migrationTable).Columns("version").Values(item.Version)
		if err := r.run(ctx, db, item.Version, "apply", item.UpSQL, mark); err != nil {
			return runCount, err
		}
		runCount++
	}
	return runCount, nil
}

func (r *Runner) Down(ctx context.Context, db *sql.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}

	migrations, err := loadMigrations(r.fsys)
	if err != nil {
		return 0, err
	}
	if err := ensureMigrationTable(ctx, db); err != nil {
		return 0, err
	}
	applied, err := r.appliedVersions(ctx, db, "DESC")
	if err != nil {
		return 0, err
	}

	lookup := make(map[int64]migration, len(migrations))
	for _, item := range migrations {
		lookup[item.Version] = item
	}

	runCount := 0
	for _, version := range applied {
		if runCount >= steps {
			break
		}
		item, ok := lookup[version]
		if !ok {
			return runCount, fmt.Errorf("applied migration %d is missing from source", version)
		}
		unmark := r.sb.Delete(migrationTable).Where(sq.Eq{"version": item.Version})
		if err := r.run(ctx, db, item.Version, "rollback", item.DownSQL, unmark); err != nil {
			return runCount, err
		}
		runCount++
	}
	return runCount, nil
}

// Status lists every embedded migration with its applied flag.
func (r *Runner) Status(ctx context.Context, db *sql.DB) ([]Status, error) {
	migrations, err := loadMigrations(r.fsys)
	if err != nil {
		return nil, err
	}
	if err := ensureMigrationTable(ctx, db); err != nil {
		return nil, err
	}
	applied, err := r.appliedVersions(ctx, db, "ASC")
	if err != nil {
		return nil, err
	}
	appliedSet := make(map[int64]struct{}, len(applied))
	for _, version := range applied {
		appliedSet[version] = struct{}{}
	}

	out := make([]Status, 0, len(migrations))
	for _, item := range migrations {
		_, ok := appliedSet[item.Version]
		out = append(out, Status{Version: item.Version, Name: item.Name, Applied: ok})
	}
	return out, nil
}

func ensureMigrationTable(ctx context.Context, db *sql.DB) error {
	query := `
CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
	version BIGINT NOT NULL PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return nil
}

func (r *Runner) run(ctx context.Context, db *sql.DB, version int64, action, script string, bookkeeping sq.Sqlizer) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range splitStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s migration %d: %w", action, version, err)
		}
	}
	query, args, err := bookkeeping.ToSql()
	if err != nil {
		return fmt.Errorf("build bookkeeping for migration %d: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record %s of migration %d: %w", action, version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s of migration %d: %w", action, version, err)
	}
	return nil
}

func (r *Runner) appliedVersions(ctx context.Context, db *sql.DB, order string) ([]int64, error) {
	query, args, err := r.sb.Select("version").From(migrationTable).OrderBy("version " + order).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build applied versions query: %w", err)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []int64
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return versions, nil
}

// splitStatements drops comment lines and splits on semicolons. Not every
// driver accepts several statements per Exec.
func splitStatements(script string) []string {
	var cleaned strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		cleaned.WriteString(line)
		cleaned.WriteByte('\n')
	}

	var out []string
	for _, stmt := range strings.Split(cleaned.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, "sql")
	if err != nil {
		return nil, fmt.Errorf("read migration dir: %w", err)
	}

	items := map[int64]migration{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base := path.Base(entry.Name())
		matches := migrationNamePattern.FindStringSubmatch(base)
		if len(matches) != 3 {
			continue
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version for %q: %w", base, err)
		}

		script, err := fs.ReadFile(fsys, path.Join("sql", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", entry.Name(), err)
		}

		item := items[version]
		item.Version = version
		item.Name = migrationName(base)
		switch matches[2] {
		case "up":
			item.UpSQL = string(script)
		case "down":
			item.DownSQL = string(script)
		}
		items[version] = item
	}

	versions := make([]int64, 0, len(items))
	for version := range items {
		versions = append(versions, version)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })

	migrations := make([]migration, 0, len(versions))
	for _, version := range versions {
		item := items[version]
		if strings.TrimSpace(item.UpSQL) == "" {
			return nil, fmt.Errorf("migration %d missing up SQL", version)
		}
		if strings.TrimSpace(item.DownSQL) == "" {
			return nil, fmt.Errorf("migration %d missing down SQL", version)
		}
		migrations = append(migrations, item)
	}
	return migrations, nil
}

func migrationName(base string) string {
	name := strings.TrimSuffix(strings.TrimSuffix(base, ".up.sql"), ".down.sql")
	if _, rest, ok := strings.Cut(name, "_"); ok {
		return rest
	}
	return name
}
