package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"worklist/internal/config"
	"worklist/internal/store"
)

const schemaCheckTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDriver verifies that the configured SQL driver is compiled into this
// binary.
func CheckDriver(driver string) Result {
	const name = "Database driver"
	if err := store.DriverAvailable(driver); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: driver}
}

// CheckSchema verifies that the deployed schema is served by a store
// revision and satisfies the configured minimum.
func CheckSchema(ctx context.Context, cfg *config.Config) Result {
	const name = "Schema"

	checkCtx, cancel := context.WithTimeout(ctx, schemaCheckTimeout)
	defer cancel()

	status, err := store.Status(checkCtx, cfg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Name: name, Detail: "database did not respond (locked by another process?)"}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	if status.Revision == "" {
		return Result{Name: name, Detail: fmt.Sprintf("version %d has no store revision (run `worklist schema apply`)", status.Deployed)}
	}
	if floor := cfg.Database.MinSchemaVersion; floor > 0 && status.Deployed < floor {
		return Result{Name: name, Detail: fmt.Sprintf("version %d is below configured minimum %d", status.Deployed, floor)}
	}
	detail := fmt.Sprintf("version %d, store %s", status.Deployed, status.Revision)
	if status.Deployed < status.Latest {
		detail += fmt.Sprintf(" (version %d available)", status.Latest)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
