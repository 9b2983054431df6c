package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/vk/fakegridgo/internal/ctxlog"
	"github.com/vk/fakegridgo/internal/reshape"

	_ "modernc.org/sqlite"
)

// DefaultTable is the table the sqlite sink writes to when none is given.
const DefaultTable = "records"

const (
	batchColumn = "batch_id"
	indexColumn = "record_index"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLite inserts flattened records into a table, one row per record. Every
// Write is tagged with a fresh batch id. Columns missing from an existing
// table are added.
type SQLite struct {
	path  string
	table string

	lastBatch string
}

// NewSQLite returns a sink writing to table in the database file at path.
func NewSQLite(path, table string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite output requires a database path")
	}
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid sqlite table name %q", table)
	}
	return &SQLite{path: path, table: table}, nil
}

// BatchID returns the id of the last written batch.
func (s *SQLite) BatchID() string {
	return s.lastBatch
}

func (s *SQLite) Write(ctx context.Context, records []map[string]any) error {
	logger := ctxlog.FromContext(ctx)

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database %s: %w", s.path, err)
	}
	defer db.Close()

	cols := reshape.Columns(records)
	for _, col := range cols {
		if col == batchColumn || col == indexColumn {
			return fmt.Errorf("field %q collides with a reserved sqlite column", col)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.ensureTable(ctx, tx, cols); err != nil {
		return err
	}

	all := append([]string{batchColumn, indexColumn}, cols...)
	quoted := make([]string, len(all))
	marks := make([]string, len(all))
	for i, c := range all {
		quoted[i] = quote(c)
		marks[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(s.table), strings.Join(quoted, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	batch := uuid.NewString()
	for i, rec := range records {
		flat := reshape.Flatten(rec)
		args := make([]any, 0, len(all))
		args = append(args, batch, i)
		for _, col := range cols {
			v, err := sqlValue(flat[col])
			if err != nil {
				return fmt.Errorf("record %d column %q: %w", i, col, err)
			}
			args = append(args, v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.lastBatch = batch
	logger.Debug("Records written to sqlite.", "path", s.path, "table", s.table, "batch_id", batch, "records", len(records))
	return nil
}

func (s *SQLite) ensureTable(ctx context.Context, tx *sql.Tx, cols []string) error {
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s TEXT NOT NULL, %s INTEGER NOT NULL)",
		quote(s.table), quote(batchColumn), quote(indexColumn))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}

	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quote(s.table)))
	if err != nil {
		return err
	}
	existing := make(map[string]struct{})
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			rows.Close()
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, col := range cols {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quote(s.table), quote(col))); err != nil {
			return fmt.Errorf("failed to add column %q: %w", col, err)
		}
	}
	return nil
}

// sqlValue maps a generated value to a driver value. Arrays and maps are
// stored as JSON text.
func sqlValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int, int64, float64:
		return val, nil
	case []any, map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return fmt.Sprint(val), nil
	}
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
