package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"nass-harvest/config"
	"nass-harvest/models"
	"nass-harvest/utils"
)

var (
	// ErrConnect is returned when the database cannot be reached.
	ErrConnect = errors.New("storage: connect")
	// ErrUnknownDriver is returned for an unsupported DatabaseDriver.
	ErrUnknownDriver = errors.New("storage: unknown driver")
)

// dialect captures what differs between backends.
type dialect struct {
	name  string
	types map[kind]string
	quote func(string) string
	// load bulk-inserts t.rows into the freshly created table.
	load func(ctx context.Context, tx *sql.Tx, t table) error
}

// SQLStore persists datasets through database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *utils.Logger
}

// Open ensures the configured database exists and connects to it.
func Open(ctx context.Context, cfg config.Config, logger *utils.Logger) (*SQLStore, error) {
	switch strings.ToLower(cfg.DatabaseDriver) {
	case "postgres", "postgresql", "":
		if err := EnsureDatabase(ctx, cfg.ServerDSN(), cfg.DatabaseName, logger); err != nil {
			return nil, err
		}
		return NewPostgresStore(ctx, cfg.DSN(), logger)
	case "sqlite":
		return NewSQLiteStore(ctx, sqlitePath(cfg.DatabaseName), logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.DatabaseDriver)
	}
}

func newSQLStore(ctx context.Context, driver, dsn string, d dialect, logger *utils.Logger) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: open: %w", ErrConnect, d.name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s: ping: %w", ErrConnect, d.name, err)
	}
	return &SQLStore{db: db, dialect: d, logger: logger}, nil
}

// WriteRecords replaces table with records. The row_id column keeps the
// source order.
func (s *SQLStore) WriteRecords(ctx context.Context, table string, records []models.CropRecord) error {
	if err := s.replaceTable(ctx, factTable(table, records)); err != nil {
		return err
	}
	s.logger.Info("[storage] Wrote %d rows to %s", len(records), table)
	return nil
}

// WriteReport replaces table with the single-row textual form of report.
func (s *SQLStore) WriteReport(ctx context.Context, table string, report *models.SummaryReport) error {
	if err := s.replaceTable(ctx, statsTable(table, report)); err != nil {
		return err
	}
	s.logger.Info("[storage] Wrote summary to %s", table)
	return nil
}

// replaceTable drops, recreates and fills t inside one transaction.
func (s *SQLStore) replaceTable(ctx context.Context, t table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: %s: begin: %w", t.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.dialect.quote(t.name)); err != nil {
		return fmt.Errorf("storage: %s: drop: %w", t.name, err)
	}
	if _, err := tx.ExecContext(ctx, s.createTableSQL(t)); err != nil {
		return fmt.Errorf("storage: %s: create: %w", t.name, err)
	}
	if err := s.dialect.load(ctx, tx, t); err != nil {
		return fmt.Errorf("storage: %s: load: %w", t.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: %s: commit: %w", t.name, err)
	}
	return nil
}

func (s *SQLStore) createTableSQL(t table) string {
	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		defs[i] = s.dialect.quote(c.name) + " " + s.dialect.types[c.kind]
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", s.dialect.quote(t.name), strings.Join(defs, ", "))
}

func (s *SQLStore) selectSQL(table string, cols []column, suffix string) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = s.dialect.quote(c.name)
	}
	return fmt.Sprintf("SELECT %s FROM %s %s", strings.Join(names, ", "), s.dialect.quote(table), suffix)
}

// FetchRecords reads a table written by WriteRecords back in source order.
func (s *SQLStore) FetchRecords(ctx context.Context, table string) ([]models.CropRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.selectSQL(table, factColumns, "ORDER BY "+s.dialect.quote("row_id")))
	if err != nil {
		return nil, fmt.Errorf("storage: fetch %s: %w", table, err)
	}
	defer rows.Close()

	var records []models.CropRecord
	for rows.Next() {
		var (
			rowID int64
			year  int64
			r     models.CropRecord
		)
		if err := rows.Scan(
			&rowID, &r.Domain, &r.Commodity, &r.Group, &r.StatisticCategory, &r.AggLevel,
			&r.Country, &r.State, &r.County, &r.Unit, &r.Value, &year,
		); err != nil {
			return nil, fmt.Errorf("storage: scan %s: %w", table, err)
		}
		r.Year = int(year)
		records = append(records, r)
	}
	return records, rows.Err()
}

// FetchReport reads the row written by WriteReport.
func (s *SQLStore) FetchReport(ctx context.Context, table string) (*StatsRow, error) {
	row := s.db.QueryRowContext(ctx, s.selectSQL(table, statsColumns, "LIMIT 1"))

	var st StatsRow
	if err := row.Scan(&st.Datapoints, &st.CommodityCounts, &st.StateCounts); err != nil {
		return nil, fmt.Errorf("storage: fetch %s: %w", table, err)
	}
	return &st, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
