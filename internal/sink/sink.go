package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/vk/fakegridgo/internal/ctxlog"
	"github.com/vk/fakegridgo/internal/reshape"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON   = "json"
	FormatYAML   = "yaml"
	FormatTable  = "table"
	FormatSQLite = "sqlite"
)

// Formats lists every supported format name.
var Formats = []string{FormatJSON, FormatYAML, FormatTable, FormatSQLite}

// Sink writes a batch of generated records somewhere.
type Sink interface {
	Write(ctx context.Context, records []map[string]any) error
}

// Options configure the sink built by New.
type Options struct {
	// Single makes the document sinks emit one record instead of a list.
	Single bool
	// Path is the database file of the sqlite sink.
	Path string
	// Table is the table the sqlite sink inserts into.
	Table string
}

// New builds the sink for format. w is ignored by the sqlite sink.
func New(format string, w io.Writer, opts Options) (Sink, error) {
	switch format {
	case FormatJSON:
		return &JSON{w: w, single: opts.Single}, nil
	case FormatYAML:
		return &YAML{w: w, single: opts.Single}, nil
	case FormatTable:
		return &Table{w: w}, nil
	case FormatSQLite:
		return NewSQLite(opts.Path, opts.Table)
	default:
		return nil, fmt.Errorf("unknown output format %q, want one of %v", format, Formats)
	}
}

// Known reports whether format names a supported sink.
func Known(format string) bool {
	return slices.Contains(Formats, format)
}

func document(records []map[string]any, single bool) any {
	if single && len(records) == 1 {
		return records[0]
	}
	return records
}

// JSON writes indented JSON.
type JSON struct {
	w      io.Writer
	single bool
}

func (s *JSON) Write(ctx context.Context, records []map[string]any) error {
	ctxlog.FromContext(ctx).Debug("Writing JSON output.", "records", len(records))
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	return enc.Encode(document(records, s.single))
}

// YAML writes a YAML document.
type YAML struct {
	w      io.Writer
	single bool
}

func (s *YAML) Write(ctx context.Context, records []map[string]any) error {
	ctxlog.FromContext(ctx).Debug("Writing YAML output.", "records", len(records))
	enc := yaml.NewEncoder(s.w)
	enc.SetIndent(2)
	if err := enc.Encode(document(records, s.single)); err != nil {
		return err
	}
	return enc.Close()
}

// Table renders flattened records as a text table, one column per dotted
// field id.
type Table struct {
	w io.Writer
}

func (s *Table) Write(ctx context.Context, records []map[string]any) error {
	ctxlog.FromContext(ctx).Debug("Writing table output.", "records", len(records))
	if len(records) == 0 {
		_, _ = fmt.Fprintln(s.w, "(0 rows)")
		return nil
	}

	cols := reshape.Columns(records)
	t := table.NewWriter()
	t.SetOutputMirror(s.w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, rec := range records {
		flat := reshape.Flatten(rec)
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(flat[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(s.w, "(%d rows)\n", len(records))
	return nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []any, map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
