package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteDatasetFile writes ValidDatasetJSON(uid) under dir and returns its path.
func WriteDatasetFile(t testing.TB, dir, uid string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, uid+".json")
	if err := os.WriteFile(path, []byte(ValidDatasetJSON(uid)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
