package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Database contains configuration for the relational backing store.
type Database struct {
	// Path is the SQLite database file. Defaults to <data_dir>/worklist.db.
	Path string `toml:"path"`
	// Driver selects the SQL dialect: "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `toml:"driver"`
	// BusyTimeoutMS bounds how long a store call waits for a locked
	// database. The wait stops early when the caller's context ends.
	BusyTimeoutMS int `toml:"busy_timeout_ms"`
	// MinSchemaVersion refuses to start against an older deployed schema.
	// Zero accepts any schema a store revision supports.
	MinSchemaVersion int `toml:"min_schema_version"`
}

// Store contains resilience settings for store operations.
type Store struct {
	BreakerMaxFailures int `toml:"breaker_max_failures"`
	BreakerOpenSeconds int `toml:"breaker_open_seconds"`
	BusyRetryAttempts  int `toml:"busy_retry_attempts"`
}

// Workitem contains defaults for workitem operations issued by the CLI.
type Workitem struct {
	DefaultPartition    int `toml:"default_partition"`
	TransitionAttempts  int `toml:"transition_attempts"`
	TransitionBackoffMS int `toml:"transition_backoff_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// ToFile additionally writes logs to <log_dir>/worklist.log.
	ToFile bool `toml:"to_file"`
}

// Config encapsulates all configuration values for worklist.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Database: SQLite file, driver and schema floor
//   - Store: circuit breaker and busy retry settings
//   - Workitem: CLI defaults for partition and transition retries
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Database Database `toml:"database"`
	Store    Store    `toml:"store"`
	Workitem Workitem `toml:"workitem"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/worklist/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file. The returned config has all path
// fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("worklist.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log and database directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, filepath.Dir(c.Database.Path)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SchemaLockPath returns the lock file serializing schema changes to the database.
func (c *Config) SchemaLockPath() string {
	return c.Database.Path + ".schema.lock"
}

// BusyTimeout returns the lock wait budget of one store call.
func (d Database) BusyTimeout() time.Duration {
	return time.Duration(d.BusyTimeoutMS) * time.Millisecond
}

// TransitionBackoff returns the initial delay between transition retries.
func (w Workitem) TransitionBackoff() time.Duration {
	return time.Duration(w.TransitionBackoffMS) * time.Millisecond
}

// LogFilePath returns the log file used when logging.to_file is set.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "worklist.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
