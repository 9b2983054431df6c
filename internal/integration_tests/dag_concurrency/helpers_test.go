package integration_tests

import (
	"os"
	"path/filepath"
	"testing"
)

// writeHCL writes a declaration into a fresh temp dir and returns its path.
func writeHCL(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.hcl")
	if err := os.WriteFile(path, []byte(src), 0600); err != nil {
		t.Fatalf("failed to write hcl file: %v", err)
	}
	return path
}
