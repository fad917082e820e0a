package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"nass-harvest/utils"
)

// SQLSTATE 42P04: the database already exists.
const pqDuplicateDatabase = "42P04"

var postgresDialect = dialect{
	name: "postgres",
	types: map[kind]string{
		kindText: "TEXT",
		kindInt:  "BIGINT",
	},
	quote: pq.QuoteIdentifier,
	load:  copyIn,
}

// NewPostgresStore connects to an existing PostgreSQL database.
func NewPostgresStore(ctx context.Context, dsn string, logger *utils.Logger) (*SQLStore, error) {
	return newSQLStore(ctx, "postgres", dsn, postgresDialect, logger)
}

// EnsureDatabase creates the database name through the server's maintenance
// connection unless it already exists. Calling it again is a no-op.
func EnsureDatabase(ctx context.Context, serverDSN, name string, logger *utils.Logger) error {
	db, err := sql.Open("postgres", serverDSN)
	if err != nil {
		return fmt.Errorf("%w: postgres: open: %w", ErrConnect, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: postgres: ping: %w", ErrConnect, err)
	}

	var exists bool
	err = db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("storage: check database %q: %w", name, err)
	}
	if exists {
		logger.Debug("[storage] Database %s already exists", name)
		return nil
	}

	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqDuplicateDatabase {
			return nil
		}
		return fmt.Errorf("storage: create database %q: %w", name, err)
	}
	logger.Info("[storage] Created database %s", name)
	return nil
}

// copyIn streams rows with COPY FROM STDIN.
func copyIn(ctx context.Context, tx *sql.Tx, t table) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(t.name, t.columnNames()...))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}

	for _, row := range t.rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy row: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	return stmt.Close()
}
