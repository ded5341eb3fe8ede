package config

const (
	defaultDataDir             = "~/.local/share/worklist"
	defaultDatabaseFile        = "worklist.db"
	defaultLogDirName          = "logs"
	defaultDriver              = DriverSQLite
	defaultBusyTimeoutMS       = 5000
	defaultBreakerMaxFailures  = 5
	defaultBreakerOpenSeconds  = 30
	defaultBusyRetryAttempts   = 5
	defaultPartition           = 1
	defaultTransitionAttempts  = 3
	defaultTransitionBackoffMS = 50
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Supported database drivers.
const (
	DriverSQLite  = "sqlite"
	DriverSQLite3 = "sqlite3"
)

// Default returns a Config populated with repository defaults. Database and
// log paths stay empty and are derived from the data directory during
// normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Database: Database{
			Driver:        defaultDriver,
			BusyTimeoutMS: defaultBusyTimeoutMS,
		},
		Store: Store{
			BreakerMaxFailures: defaultBreakerMaxFailures,
			BreakerOpenSeconds: defaultBreakerOpenSeconds,
			BusyRetryAttempts:  defaultBusyRetryAttempts,
		},
		Workitem: Workitem{
			DefaultPartition:    defaultPartition,
			TransitionAttempts:  defaultTransitionAttempts,
			TransitionBackoffMS: defaultTransitionBackoffMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
