package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/PancyStudios/SentinelGo/pkg/models"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const createLedger = `CREATE TABLE IF NOT EXISTS migrations (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    executed_at INTEGER NOT NULL
)`

var addColumnStmt = regexp.MustCompile(`(?is)^ALTER\s+TABLE\s+"?(\w+)"?\s+ADD\s+(?:COLUMN\s+)?"?(\w+)"?`)

// Migrate applies every embedded migration that is not yet in the ledger,
// in filename order. Each file runs in its own transaction together with
// its ledger row.
func (s *Store) Migrate(ctx context.Context) error {
	return s.migrateFS(ctx, migrationFiles, "migrations")
}

func (s *Store) migrateFS(ctx context.Context, fsys fs.FS, dir string) error {
	if _, err := s.db.ExecContext(ctx, createLedger); err != nil {
		return fmt.Errorf("create migrations ledger: %w", err)
	}

	applied, err := s.appliedNames(ctx)
	if err != nil {
		return err
	}

	files, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	pending := 0
	for _, file := range files {
		name := path.Base(file)
		if applied[name] {
			continue
		}

		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if err := s.applyMigration(ctx, name, string(body)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		logger.Info("📦 Migración aplicada: "+name, "DB")
		pending++
	}

	if pending == 0 {
		logger.Debug("Esquema al día, no hay migraciones pendientes", "DB")
	}

	s.guilds.purge()
	return nil
}

func (s *Store) applyMigration(ctx context.Context, name, body string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range splitStatements(body) {
		if m := addColumnStmt.FindStringSubmatch(stmt); m != nil {
			exists, err := columnExists(ctx, tx, m[1], m[2])
			if err != nil {
				return err
			}
			if exists {
				logger.Debug(fmt.Sprintf("Columna %s.%s ya existe, se omite", m[1], m[2]), "DB")
				continue
			}
		}

		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO migrations (name, executed_at) VALUES (?, ?)`,
		name, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}

func (s *Store) appliedNames(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM migrations`)
	if err != nil {
		return nil, fmt.Errorf("read migrations ledger: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// AppliedMigrations lists the ledger in execution order.
func (s *Store) AppliedMigrations(ctx context.Context) ([]models.MigrationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, executed_at FROM migrations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()

	var out []models.MigrationRecord
	for rows.Next() {
		var rec models.MigrationRecord
		var executed int64
		if err := rows.Scan(&rec.ID, &rec.Name, &executed); err != nil {
			return nil, err
		}
		rec.ExecutedAt = unix(executed)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func columnExists(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspect %s: %w", table, err)
	}
	return n > 0, nil
}

// splitStatements strips line comments and splits a script on semicolons.
// Migration files must not contain semicolons inside string literals.
func splitStatements(script string) []string {
	var cleaned strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if i := strings.Index(line, "--"); i >= 0 {
			line = line[:i]
		}
		cleaned.WriteString(line)
		cleaned.WriteByte('\n')
	}

	var stmts []string
	for _, part := range strings.Split(cleaned.String(), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return strings.TrimSpace(stmt[:i])
	}
	return stmt
}
