package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"nass-harvest/utils"
)

const sqliteBatchSize = 50

var sqliteDialect = dialect{
	name: "sqlite",
	types: map[kind]string{
		kindText: "TEXT",
		kindInt:  "INTEGER",
	},
	quote: quoteIdent,
	load:  insertBatches,
}

// NewSQLiteStore opens (creating if needed) the SQLite database file at path.
func NewSQLiteStore(ctx context.Context, path string, logger *utils.Logger) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite: empty path", ErrConnect)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: sqlite: create dir: %w", ErrConnect, err)
		}
	}
	return newSQLStore(ctx, "sqlite", path, sqliteDialect, logger)
}

// sqlitePath maps a database name to a file, adding ".db" when the name has
// no extension.
func sqlitePath(name string) string {
	if filepath.Ext(name) == "" {
		return name + ".db"
	}
	return name
}

func insertBatches(ctx context.Context, tx *sql.Tx, t table) error {
	for i := 0; i < len(t.rows); i += sqliteBatchSize {
		end := min(i+sqliteBatchSize, len(t.rows))
		if err := insertBatch(ctx, tx, t, t.rows[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func insertBatch(ctx context.Context, tx *sql.Tx, t table, batch [][]any) error {
	width := len(t.columns)
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?,", width), ",") + ")"

	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*width)
	for _, row := range batch {
		if len(row) != width {
			return fmt.Errorf("row has %d values, table has %d columns", len(row), width)
		}
		valueStrings = append(valueStrings, placeholders)
		valueArgs = append(valueArgs, row...)
	}

	names := make([]string, width)
	for i, c := range t.columns {
		names[i] = quoteIdent(c.name)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quoteIdent(t.name), strings.Join(names, ", "), strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// quoteIdent double-quotes an identifier, escaping embedded quotes.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
