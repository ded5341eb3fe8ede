package testsupport

import (
	"context"
	"testing"

	"worklist/internal/config"
	"worklist/internal/store"
)

// MustApplySchema migrates the test database to version (zero for latest).
func MustApplySchema(t testing.TB, cfg *config.Config, version int) {
	t.Helper()

	if _, _, err := store.ApplySchema(context.Background(), cfg, version); err != nil {
		t.Fatalf("store.ApplySchema(%d): %v", version, err)
	}
}

// MustOpenStore migrates the test database to schemaVersion (zero for
// latest), opens a store handle and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, schemaVersion int, opts ...store.Option) *store.Handle {
	t.Helper()

	MustApplySchema(t, cfg, schemaVersion)
	handle, err := store.Open(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = handle.Close()
	})
	return handle
}
