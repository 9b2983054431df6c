package integration_tests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vk/fakegridgo/internal/app"
)

// newConfig writes files into a temp dir and returns a config pointing at
// the first one.
func newConfig(t *testing.T, files map[string]string, first string) *app.Config {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	cfg := app.DefaultConfig()
	cfg.DeclarationPath = filepath.Join(dir, first)
	cfg.Seed = 1
	return &cfg
}
