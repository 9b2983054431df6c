package sink

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleRecords() []map[string]any {
	return []map[string]any{
		{"name": "Ann", "addr": map[string]any{"city": "X", "zip": 10001}, "codes": []any{"001.1", "002.0"}},
		{"name": nil, "addr": map[string]any{"city": "Y", "zip": 10002}, "codes": []any{}},
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatYAML, FormatTable} {
		s, err := New(format, &bytes.Buffer{}, Options{})
		require.NoError(t, err, format)
		assert.NotNil(t, s)
		assert.True(t, Known(format))
	}

	_, err := New("csv", &bytes.Buffer{}, Options{})
	assert.ErrorContains(t, err, `unknown output format "csv"`)
	assert.False(t, Known("csv"))

	_, err = New(FormatSQLite, nil, Options{})
	assert.ErrorContains(t, err, "requires a database path")

	_, err = New(FormatSQLite, nil, Options{Path: "x.db", Table: "drop table;"})
	assert.ErrorContains(t, err, "invalid sqlite table name")
}

func TestJSON(t *testing.T) {
	ctx := context.Background()

	t.Run("list", func(t *testing.T) {
		var buf bytes.Buffer
		s, _ := New(FormatJSON, &buf, Options{})
		require.NoError(t, s.Write(ctx, sampleRecords()))

		var got []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "Ann", got[0]["name"])
		assert.Nil(t, got[1]["name"])
		assert.Equal(t, map[string]any{"city": "X", "zip": float64(10001)}, got[0]["addr"])
	})

	t.Run("single record", func(t *testing.T) {
		var buf bytes.Buffer
		s, _ := New(FormatJSON, &buf, Options{Single: true})
		require.NoError(t, s.Write(ctx, sampleRecords()[:1]))

		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "Ann", got["name"])
	})
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	s, _ := New(FormatYAML, &buf, Options{})
	require.NoError(t, s.Write(context.Background(), sampleRecords()))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{"city": "Y", "zip": 10002}, got[1]["addr"])
	assert.Equal(t, []any{"001.1", "002.0"}, got[0]["codes"])
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	s, _ := New(FormatTable, &buf, Options{})
	require.NoError(t, s.Write(context.Background(), sampleRecords()))

	out := buf.String()
	assert.Contains(t, out, "ADDR.CITY")
	assert.Contains(t, out, "ADDR.ZIP")
	assert.Contains(t, out, `["001.1","002.0"]`)
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")

	buf.Reset()
	require.NoError(t, s.Write(context.Background(), nil))
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.db")

	s, err := NewSQLite(path, "")
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, sampleRecords()))
	first := s.BatchID()
	require.NotEmpty(t, first)

	// a second batch with an extra column extends the table
	require.NoError(t, s.Write(ctx, []map[string]any{{"name": "Bo", "age": 40}}))
	assert.NotEqual(t, first, s.BatchID())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&count))
	assert.Equal(t, 3, count)

	var (
		city  string
		zip   int
		codes string
	)
	require.NoError(t, db.QueryRow(
		`SELECT "addr.city", "addr.zip", "codes" FROM records WHERE batch_id = ? AND record_index = 0`, first,
	).Scan(&city, &zip, &codes))
	assert.Equal(t, "X", city)
	assert.Equal(t, 10001, zip)
	assert.JSONEq(t, `["001.1","002.0"]`, codes)

	var name sql.NullString
	require.NoError(t, db.QueryRow(
		`SELECT name FROM records WHERE batch_id = ? AND record_index = 1`, first,
	).Scan(&name))
	assert.False(t, name.Valid)

	var age sql.NullInt64
	require.NoError(t, db.QueryRow(`SELECT age FROM records WHERE name = 'Bo'`).Scan(&age))
	assert.Equal(t, int64(40), age.Int64)
}

func TestSQLite_ReservedColumn(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "out.db"), "people")
	require.NoError(t, err)
	err = s.Write(context.Background(), []map[string]any{{"batch_id": "x"}})
	assert.ErrorContains(t, err, "reserved sqlite column")
}
