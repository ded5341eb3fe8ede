package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"worklist/internal/config"
)

const schemaLockRetry = 50 * time.Millisecond

// SchemaStatus describes the deployed and available schema versions.
type SchemaStatus struct {
	Deployed int
	Latest   int
	Revision string
}

// Status reports the schema version of the configured database without
// changing it. Revision is empty when no store revision supports the
// deployed schema.
func Status(ctx context.Context, cfg *config.Config) (SchemaStatus, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return SchemaStatus{}, fmt.Errorf("ensure directories: %w", err)
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return SchemaStatus{}, err
	}
	defer db.Close()

	deployed, err := SchemaVersion(ctx, db)
	if err != nil {
		return SchemaStatus{}, err
	}
	status := SchemaStatus{Deployed: deployed, Latest: LatestSchemaVersion()}
	if rev, err := RevisionFor(deployed); err == nil {
		status.Revision = rev.Name
	}
	return status, nil
}

// ApplySchema migrates the configured database to target (zero for latest)
// while holding the schema lock file, and returns the version before and
// after.
func ApplySchema(ctx context.Context, cfg *config.Config, target int) (int, int, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return 0, 0, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(cfg.SchemaLockPath())
	locked, err := lock.TryLockContext(ctx, schemaLockRetry)
	if err != nil {
		return 0, 0, fmt.Errorf("acquire schema lock: %w", err)
	}
	if !locked {
		return 0, 0, fmt.Errorf("acquire schema lock: %s is held by another process", cfg.SchemaLockPath())
	}
	defer func() {
		_ = lock.Unlock()
	}()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return 0, 0, err
	}
	defer db.Close()

	before, err := SchemaVersion(ctx, db)
	if err != nil {
		return 0, 0, err
	}
	var after int
	err = retryOnBusy(ctx, cfg.Store.BusyRetryAttempts, cfg.Database.BusyTimeout(), func() error {
		var err error
		after, err = Migrate(ctx, db, target)
		return err
	})
	if err != nil {
		return before, 0, err
	}
	return before, after, nil
}
