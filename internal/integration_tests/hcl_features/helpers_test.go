package integration_tests

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/fakegridgo/internal/app"
)

// generate writes the declaration files into a temp dir, runs the app over
// the whole dir and decodes the JSON output.
func generate(t *testing.T, files map[string]string, count int) []map[string]any {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	cfg := app.DefaultConfig()
	cfg.DeclarationPath = dir
	cfg.Count = count
	cfg.Seed = 11
	testApp, out, _ := app.SetupAppTest(t, &cfg)
	require.NoError(t, testApp.Run(context.Background()))

	if count == 1 {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
		return []map[string]any{rec}
	}
	var recs []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &recs))
	return recs
}
