package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"worklist/internal/config"
	"worklist/internal/logging"
	"worklist/internal/workitem"
)

// ErrSchemaTooOld is returned when the deployed schema is older than every
// store revision or than the configured floor.
var ErrSchemaTooOld = errors.New("database schema is too old")

// Revision is one physical implementation of workitem.Store.
type Revision struct {
	Name             string
	MinSchemaVersion int
	build            func(*sqlCore) workitem.Store
}

// revisions are ordered by MinSchemaVersion.
var revisions = []Revision{
	{Name: "v1", MinSchemaVersion: 1, build: newStoreV1},
	{Name: "v2", MinSchemaVersion: 2, build: newStoreV2},
}

// Revisions lists the store revisions known to this build, oldest first.
func Revisions() []Revision {
	out := make([]Revision, len(revisions))
	copy(out, revisions)
	return out
}

// RevisionFor returns the newest revision whose minimum schema version is at
// most version. A schema newer than every revision gets the newest one.
func RevisionFor(version int) (Revision, error) {
	for i := len(revisions) - 1; i >= 0; i-- {
		if revisions[i].MinSchemaVersion <= version {
			return revisions[i], nil
		}
	}
	return Revision{}, fmt.Errorf("%w: deployed version %d, oldest supported %d",
		ErrSchemaTooOld, version, revisions[0].MinSchemaVersion)
}

// Option customizes Open.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracerProvider sets the provider used for store spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// Handle is an open workitem store bound to the revision selected for the
// deployed schema.
type Handle struct {
	workitem.Store
	db            *sql.DB
	schemaVersion int
	revision      Revision
}

// Open connects to the configured database, reads the deployed schema
// version and instantiates the matching store revision.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Handle, error) {
	o := options{logger: logging.NewNop(), tracerProvider: otel.GetTracerProvider()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	version, err := SchemaVersion(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if floor := cfg.Database.MinSchemaVersion; floor > 0 && version < floor {
		_ = db.Close()
		return nil, fmt.Errorf("%w: deployed version %d, configured minimum %d (run 'worklist schema apply')",
			ErrSchemaTooOld, version, floor)
	}
	rev, err := RevisionFor(version)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w (run 'worklist schema apply')", err)
	}

	core := newCore(db, rev.Name, cfg.Store, cfg.Database.BusyTimeout(), o.logger, o.tracerProvider)
	if version > LatestSchemaVersion() {
		core.logger.Warn("deployed schema is newer than this build",
			logging.Int("schema_version", version),
			logging.String(logging.FieldErrorHint, "upgrade worklist to use the newer schema features"),
		)
	}
	core.logger.Debug("store opened",
		logging.Int("schema_version", version),
		logging.String("path", cfg.Database.Path),
	)

	return &Handle{
		Store:         rev.build(core),
		db:            db,
		schemaVersion: version,
		revision:      rev,
	}, nil
}

// SchemaVersion returns the schema version read at open.
func (h *Handle) SchemaVersion() int {
	return h.schemaVersion
}

// Revision returns the selected store revision.
func (h *Handle) Revision() Revision {
	return h.revision
}

// DB exposes the underlying connection pool.
func (h *Handle) DB() *sql.DB {
	return h.db
}

// Close closes the underlying database connection.
func (h *Handle) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}
