package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteConfig writes content as config.toml in a fresh temp directory and
// returns the file path.
func WriteConfig(t testing.TB, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
