package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateWorkitem(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverSQLite3:
	default:
		return fmt.Errorf("database.driver: unsupported value %q (want %q or %q)", c.Database.Driver, DriverSQLite, DriverSQLite3)
	}
	if c.Database.Path == "" {
		return errors.New("database.path must be set")
	}
	if c.Database.MinSchemaVersion < 0 {
		return errors.New("database.min_schema_version must not be negative")
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.BreakerMaxFailures < 0 {
		return errors.New("store.breaker_max_failures must not be negative")
	}
	if c.Store.BreakerOpenSeconds < 0 {
		return errors.New("store.breaker_open_seconds must not be negative")
	}
	if c.Store.BusyRetryAttempts < 1 {
		return errors.New("store.busy_retry_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateWorkitem() error {
	if c.Workitem.DefaultPartition < 1 {
		return errors.New("workitem.default_partition must be positive")
	}
	if c.Workitem.TransitionAttempts < 1 {
		return errors.New("workitem.transition_attempts must be at least 1")
	}
	if c.Workitem.TransitionBackoffMS < 0 {
		return errors.New("workitem.transition_backoff_ms must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
