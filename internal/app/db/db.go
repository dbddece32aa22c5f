/*
Package db owns the durable store connection layer.

This file opens the embedded SQLite database in WAL mode and executes schema
migrations. The store backend serializes writes internally, so the rest of the
application reaches it through a small fixed pool of reusable handles (see pool.go)
instead of per-request connection setup.
*/
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Open initializes the SQLite database at the given path and executes database migrations.
// The returned handle is configured for the fixed-size handle pool layered on top of it.
func Open(path string, poolSize int) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	dsn := fmt.Sprintf("file:%s?%s", path, url.Values{
		"_pragma": []string{"journal_mode(WAL)", "busy_timeout(5000)", "foreign_keys(1)"},
	}.Encode())

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The handle pool checks out poolSize dedicated connections; the driver-level
	// pool must be able to satisfy all of them plus the migration connection.
	sqlDB.SetMaxOpenConns(poolSize + 1)
	sqlDB.SetMaxIdleConns(poolSize + 1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return sqlDB, nil
}

// runMigrations applies all pending migrations from the embedded file system.
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
