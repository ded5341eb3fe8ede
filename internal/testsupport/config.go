package testsupport

import (
	"path/filepath"
	"testing"

	"worklist/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The database lives in a real file so WAL and locking behave as deployed.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Database.Path = filepath.Join(base, "data", "worklist.db")
	cfgVal.Workitem.TransitionBackoffMS = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDriver selects the database driver.
func WithDriver(driver string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Database.Driver = driver
	}
}

// WithMinSchemaVersion sets the configured schema floor.
func WithMinSchemaVersion(version int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Database.MinSchemaVersion = version
	}
}

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(maxFailures, openSeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.BreakerMaxFailures = maxFailures
		b.cfg.Store.BreakerOpenSeconds = openSeconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
