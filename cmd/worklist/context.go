package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"worklist/internal/config"
	"worklist/internal/logging"
	"worklist/internal/requestctx"
	"worklist/internal/store"
	"worklist/internal/workitem"
)

type commandContext struct {
	configFlag    *string
	partitionFlag *int

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, partitionFlag *int) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		partitionFlag: partitionFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) partition() int {
	if c.partitionFlag != nil && *c.partitionFlag > 0 {
		return *c.partitionFlag
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return cfg.Workitem.DefaultPartition
	}
	return 1
}

// requestContext tags the command's context with a fresh correlation ID.
func (c *commandContext) requestContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return requestctx.WithRequestID(ctx, uuid.NewString())
}

// withService opens the store selected by the deployed schema version and
// hands fn a workitem service bound to it.
func (c *commandContext) withService(ctx context.Context, fn func(*workitem.Service, *store.Handle) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	handle, err := store.Open(ctx, cfg, store.WithLogger(logger))
	if err != nil {
		return err
	}
	defer handle.Close()

	svc := workitem.NewService(handle, workitem.WithLogger(logger))
	return fn(svc, handle)
}

func (c *commandContext) retryPolicy(attempts int) workitem.RetryPolicy {
	cfg, _ := c.ensureConfig()
	policy := workitem.RetryPolicy{Attempts: 1}
	if cfg != nil {
		policy.Attempts = cfg.Workitem.TransitionAttempts
		policy.Backoff = cfg.Workitem.TransitionBackoff()
	}
	if attempts > 0 {
		policy.Attempts = attempts
	}
	return policy
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
