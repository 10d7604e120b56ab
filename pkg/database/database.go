// Package database provides the SQLite-backed persistent store.
// It owns schema migrations and exposes typed access to guilds, users,
// warnings, moderation cases and verification settings.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/logger"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("database: not found")

// Store wraps the single shared SQLite handle
type Store struct {
	db     *sql.DB
	path   string
	guilds *guildCache
}

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// Open opens (or creates) the database file at path and verifies the connection.
// Use ":memory:" for an isolated in-memory store.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database: empty path")
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	logger.System("Abriendo base de datos SQLite en "+path, "DB")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Un único handle compartido: SQLite serializa las escrituras y
	// ":memory:" solo existe dentro de una conexión.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", strings.ToLower(pragma), err)
		}
	}

	logger.Success("✅ Conectado a la base de datos", "DB")

	return &Store{
		db:     db,
		path:   path,
		guilds: newGuildCache(defaultGuildCacheSize),
	}, nil
}

// Close closes the underlying handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	logger.System("Cerrando base de datos...", "DB")
	return s.db.Close()
}

// Ping checks that the store still answers queries.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("database: store not initialised")
	}
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Status returns a human readable status and whether the store is online
func (s *Store) Status(ctx context.Context) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.Ping(ctx); err != nil {
		return "🔴 | Desconectado", false
	}
	return "🟢 | Conectado", true
}

// Path returns the database location
func (s *Store) Path() string {
	return s.path
}

type scanner interface {
	Scan(dest ...any) error
}

func unix(t int64) time.Time {
	if t == 0 {
		return time.Time{}
	}
	return time.Unix(t, 0).UTC()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
