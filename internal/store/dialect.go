package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"worklist/internal/config"
)

// driverBusyTimeoutMS is the lock wait SQLite's busy handler performs on its
// own. The handler cannot see a context, so longer waits are left to
// retryOnBusy.
const driverBusyTimeoutMS = 25

// dialect describes how one SQLite driver is opened.
type dialect struct {
	driver string
	dsn    func(path string, busyTimeoutMS int) string
}

var dialects = map[string]dialect{
	config.DriverSQLite: {
		driver: "sqlite",
		dsn: func(path string, busyTimeoutMS int) string {
			q := url.Values{}
			q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
			q.Add("_pragma", "journal_mode(WAL)")
			q.Add("_pragma", "foreign_keys(1)")
			q.Set("_txlock", "immediate")
			return "file:" + path + "?" + q.Encode()
		},
	},
	config.DriverSQLite3: {
		driver: "sqlite3",
		dsn: func(path string, busyTimeoutMS int) string {
			q := url.Values{}
			q.Set("_busy_timeout", strconv.Itoa(busyTimeoutMS))
			q.Set("_journal_mode", "WAL")
			q.Set("_foreign_keys", "on")
			q.Set("_txlock", "immediate")
			return "file:" + path + "?" + q.Encode()
		},
	},
}

func dialectFor(name string) (dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
	return d, nil
}

// openDB opens the configured database file. The connection is verified
// with a ping so configuration mistakes surface at startup.
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	d, err := dialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, d.dsn(cfg.Database.Path, driverBusyTimeoutMS))
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", d.driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", d.driver, err)
	}
	return db, nil
}

// DriverAvailable reports whether the named dialect can open a database in
// this binary. The cgo driver compiles to a stub without cgo.
func DriverAvailable(name string) error {
	d, err := dialectFor(name)
	if err != nil {
		return err
	}
	db, err := sql.Open(d.driver, ":memory:")
	if err != nil {
		return fmt.Errorf("open %s: %w", d.driver, err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("%s driver unavailable: %w", d.driver, err)
	}
	return nil
}

// Both drivers expose the extended result code through Code() on their
// error values or name it in the message.
func sqliteCode(err error) (int, bool) {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code(), true
	}
	return 0, false
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && code&0xff == sqlite3lib.SQLITE_BUSY {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok {
		if code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
