package config

import (
	"fmt"
	"strings"

	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "WORKLIST_"

// envKeys lists every config key that may be overridden from the environment.
// WORKLIST_DATABASE_BUSY_TIMEOUT_MS maps to database.busy_timeout_ms.
var envKeys = []string{
	"paths.data_dir",
	"paths.log_dir",
	"database.path",
	"database.driver",
	"database.busy_timeout_ms",
	"database.min_schema_version",
	"store.breaker_max_failures",
	"store.breaker_open_seconds",
	"store.busy_retry_attempts",
	"workitem.default_partition",
	"workitem.transition_attempts",
	"workitem.transition_backoff_ms",
	"logging.format",
	"logging.level",
	"logging.to_file",
}

// applyEnv overlays WORKLIST_* environment variables onto cfg. Unknown
// variables with the prefix are ignored.
func applyEnv(cfg *Config) error {
	lookup := make(map[string]string, len(envKeys))
	for _, key := range envKeys {
		lookup[strings.ReplaceAll(key, ".", "_")] = key
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			if mapped, ok := lookup[key]; ok {
				return mapped, strings.TrimSpace(value)
			}
			return "", nil
		},
	}), nil); err != nil {
		return fmt.Errorf("load environment overrides: %w", err)
	}
	if len(k.Keys()) == 0 {
		return nil
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "toml"}); err != nil {
		return fmt.Errorf("apply environment overrides: %w", err)
	}
	return nil
}
