package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"worklist/internal/config"
	"worklist/internal/indexrows"
	"worklist/internal/logging"
	"worklist/internal/workitem"
)

const (
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	tracerName              = "worklist/internal/store"

	// staleCreatingAfter is how long a row may sit in creating status
	// before a new add of the same UID takes it over.
	staleCreatingAfter = time.Minute
)

// sqlCore holds the connection, resilience wrappers and the SQL shared by
// every store revision.
type sqlCore struct {
	db           *sql.DB
	revision     string
	logger       *slog.Logger
	tracer       trace.Tracer
	breaker      *gobreaker.CircuitBreaker[struct{}]
	busyAttempts int
	busyWait     time.Duration
	now          func() time.Time
}

func newCore(db *sql.DB, revision string, settings config.Store, busyWait time.Duration, logger *slog.Logger, tp trace.TracerProvider) *sqlCore {
	logger = logging.NewComponentLogger(logger, "store").With(logging.String(logging.FieldRevision, revision))
	c := &sqlCore{
		db:           db,
		revision:     revision,
		logger:       logger,
		tracer:       tp.Tracer(tracerName),
		busyAttempts: settings.BusyRetryAttempts,
		busyWait:     busyWait,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if c.busyAttempts < 1 {
		c.busyAttempts = 1
	}
	maxFailures := settings.BreakerMaxFailures
	c.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "workitem-store",
		Timeout: time.Duration(settings.BreakerOpenSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return maxFailures > 0 && int(counts.ConsecutiveFailures) >= maxFailures
		},
		IsSuccessful: isExpectedOutcome,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return c
}

// isExpectedOutcome reports whether err is a normal result of a store call
// rather than a backend fault.
func isExpectedOutcome(err error) bool {
	return err == nil ||
		errors.Is(err, workitem.ErrConflict) ||
		errors.Is(err, workitem.ErrConcurrencyConflict) ||
		errors.Is(err, workitem.ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// call identifies one store operation for spans and logs.
type call struct {
	op          string
	partition   int
	uid         string
	workitemKey int64
}

// run executes fn behind the breaker with busy retries inside a span.
// Expected outcomes pass through unchanged; any other failure is logged and
// returned as *workitem.DataStoreError.
func (c *sqlCore) run(ctx context.Context, cl call, fn func(context.Context) error) error {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "sqlite"),
		attribute.String("worklist.revision", c.revision),
		attribute.Int("worklist.partition_key", cl.partition),
	}
	if cl.uid != "" {
		attrs = append(attrs, attribute.String("worklist.workitem_uid", cl.uid))
	}
	if cl.workitemKey != 0 {
		attrs = append(attrs, attribute.Int64("worklist.workitem_key", cl.workitemKey))
	}
	ctx, span := c.tracer.Start(ctx, "store."+cl.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.retryOnBusy(ctx, func() error { return fn(ctx) })
	})
	if err == nil {
		return nil
	}
	if isExpectedOutcome(err) {
		span.SetAttributes(attribute.String("worklist.outcome", workitem.Kind(err)))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger := logging.WithContext(ctx, c.logger)
	logging.ErrorWithContext(logger, "store operation failed", "store_failure",
		logging.String(logging.FieldOperation, cl.op),
		logging.Int(logging.FieldPartitionKey, cl.partition),
		logging.String(logging.FieldWorkitemUID, cl.uid),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check database availability and schema version"),
	)
	var dsErr *workitem.DataStoreError
	if errors.As(err, &dsErr) {
		return err
	}
	return &workitem.DataStoreError{Op: cl.op, Err: err}
}

func (c *sqlCore) retryOnBusy(ctx context.Context, op func() error) error {
	return retryOnBusy(ctx, c.busyAttempts, c.busyWait, op)
}

// retryOnBusy retries op while the database is locked, for at least
// attempts tries and until wait has elapsed. The driver only blocks for
// driverBusyTimeoutMS per try, so the waiting happens here where ctx is
// observed.
func retryOnBusy(ctx context.Context, attempts int, wait time.Duration, op func() error) error {
	delay := busyRetryInitialBackoff
	deadline := time.Now().Add(wait)
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !isSQLiteBusy(err) {
			return err
		}
		if attempt >= attempts && !time.Now().Before(deadline) {
			return err
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
}

// inTx runs fn in a transaction. The DSN requests immediate transactions so
// concurrent writers queue on the busy timeout instead of deadlocking on
// lock upgrades.
func (c *sqlCore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// nextWatermark draws the next value of the global watermark sequence.
func nextWatermark(ctx context.Context, tx *sql.Tx) (int64, error) {
	var value int64
	err := tx.QueryRowContext(ctx,
		`UPDATE watermark_sequence SET value = value + 1 WHERE id = 1 RETURNING value`,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("draw watermark: %w", err)
	}
	return value, nil
}

// add inserts a workitem in creating status with its state row and the
// extracted rows. withStateColumn also writes the procedure_step_state
// column introduced by schema v2.
func (c *sqlCore) add(ctx context.Context, partitionKey int, uid string, rows indexrows.Rows, withStateColumn bool) (workitem.AddResult, error) {
	var result workitem.AddResult
	cl := call{op: "Add", partition: partitionKey, uid: uid}
	err := c.run(ctx, cl, func(ctx context.Context) error {
		return c.inTx(ctx, func(tx *sql.Tx) error {
			watermark, err := nextWatermark(ctx, tx)
			if err != nil {
				return err
			}
			stamp := c.now().Format(time.RFC3339Nano)

			query := `INSERT INTO workitem (partition_key, workitem_uid, status, transaction_uid, watermark, created_at, updated_at)
                VALUES (?, ?, ?, NULL, ?, ?, ?)`
			args := []any{partitionKey, uid, int(workitem.StatusCreating), watermark, stamp, stamp}
			if withStateColumn {
				query = `INSERT INTO workitem (partition_key, workitem_uid, status, transaction_uid, watermark, created_at, updated_at, procedure_step_state)
                VALUES (?, ?, ?, NULL, ?, ?, ?, ?)`
				args = append(args, string(workitem.StateScheduled))
			}
			var key int64
			res, err := tx.ExecContext(ctx, query, args...)
			switch {
			case err == nil:
				if key, err = res.LastInsertId(); err != nil {
					return fmt.Errorf("last insert id: %w", err)
				}
			case isUniqueViolation(err):
				if key, err = c.reclaimAbandoned(ctx, tx, partitionKey, uid, watermark, stamp, withStateColumn); err != nil {
					return err
				}
			default:
				return fmt.Errorf("insert workitem: %w", err)
			}

			indexed := rows.WithoutPath(indexrows.StatePath)
			indexed.Strings = append(indexed.Strings, indexrows.StringRow{
				TagPath: indexrows.StatePath,
				Value:   string(workitem.StateScheduled),
			})
			if err := insertRows(ctx, tx, partitionKey, key, indexed); err != nil {
				return err
			}
			result = workitem.AddResult{WorkitemUID: uid, WorkitemKey: key, Watermark: watermark}
			return nil
		})
	})
	if err != nil {
		return workitem.AddResult{}, err
	}
	return result, nil
}

// reclaimAbandoned takes over a row for uid left in creating status by an
// add whose completion never ran, once it has been idle for
// staleCreatingAfter. Its rows are dropped so the caller rewrites them.
// Any other existing row is a conflict.
func (c *sqlCore) reclaimAbandoned(ctx context.Context, tx *sql.Tx, partitionKey int, uid string, watermark int64, stamp string, withStateColumn bool) (int64, error) {
	var (
		key       int64
		status    int
		updatedAt string
	)
	err := tx.QueryRowContext(ctx,
		`SELECT workitem_key, status, updated_at FROM workitem WHERE partition_key = ? AND workitem_uid = ?`,
		partitionKey, uid,
	).Scan(&key, &status, &updatedAt)
	if err != nil {
		return 0, fmt.Errorf("read existing workitem: %w", err)
	}
	if workitem.Status(status) != workitem.StatusCreating {
		return 0, &workitem.AlreadyExistsError{UID: uid}
	}
	last, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil || c.now().Sub(last) < staleCreatingAfter {
		return 0, &workitem.AlreadyExistsError{UID: uid}
	}

	query := `UPDATE workitem SET watermark = ?, updated_at = ? WHERE workitem_key = ? AND status = ?`
	args := []any{watermark, stamp, key, int(workitem.StatusCreating)}
	if withStateColumn {
		query = `UPDATE workitem SET watermark = ?, updated_at = ?, procedure_step_state = ? WHERE workitem_key = ? AND status = ?`
		args = []any{watermark, stamp, string(workitem.StateScheduled), key, int(workitem.StatusCreating)}
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("reclaim workitem: %w", err)
	}
	for _, table := range []string{"workitem_string_attr", "workitem_datetime_attr", "workitem_personname_attr"} {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE partition_key = ? AND workitem_key = ?`, partitionKey, key,
		); err != nil {
			return 0, fmt.Errorf("clear %s: %w", table, err)
		}
	}
	c.logger.Warn("reclaimed abandoned workitem creation",
		logging.Int(logging.FieldPartitionKey, partitionKey),
		logging.String(logging.FieldWorkitemUID, uid),
		logging.Int64(logging.FieldWorkitemKey, key),
		logging.String("idle_since", updatedAt),
	)
	return key, nil
}

func insertRows(ctx context.Context, tx *sql.Tx, partitionKey int, workitemKey int64, rows indexrows.Rows) error {
	for _, row := range rows.Strings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workitem_string_attr (partition_key, workitem_key, tag_path, value) VALUES (?, ?, ?, ?)`,
			partitionKey, workitemKey, row.TagPath, row.Value,
		); err != nil {
			return fmt.Errorf("insert string row %s: %w", row.TagPath, err)
		}
	}
	for _, row := range rows.DateTimes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workitem_datetime_attr (partition_key, workitem_key, tag_path, value, value_utc) VALUES (?, ?, ?, ?, ?)`,
			partitionKey, workitemKey, row.TagPath,
			row.Value.Format(time.RFC3339Nano), row.UTC.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert datetime row %s: %w", row.TagPath, err)
		}
	}
	for _, row := range rows.PersonNames {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workitem_personname_attr (partition_key, workitem_key, tag_path, value, words) VALUES (?, ?, ?, ?, ?)`,
			partitionKey, workitemKey, row.TagPath, row.Value, row.Words,
		); err != nil {
			return fmt.Errorf("insert person name row %s: %w", row.TagPath, err)
		}
	}
	return nil
}

// getMetadata runs a metadata query whose projection ends with the state.
func (c *sqlCore) getMetadata(ctx context.Context, partitionKey int, uid, query string, args ...any) (*workitem.Metadata, error) {
	var md *workitem.Metadata
	err := c.run(ctx, call{op: "GetMetadata", partition: partitionKey, uid: uid}, func(ctx context.Context) error {
		row := c.db.QueryRowContext(ctx, query, args...)
		scanned, err := scanMetadata(row)
		if errors.Is(err, sql.ErrNoRows) {
			md = nil
			return nil
		}
		if err != nil {
			return err
		}
		md = scanned
		return nil
	})
	if err != nil {
		return nil, err
	}
	return md, nil
}

func scanMetadata(scanner interface{ Scan(dest ...any) error }) (*workitem.Metadata, error) {
	var (
		uid            string
		key            int64
		partition      int
		status         int
		transactionUID sql.NullString
		watermark      int64
		state          sql.NullString
	)
	if err := scanner.Scan(&uid, &key, &partition, &status, &transactionUID, &watermark, &state); err != nil {
		return nil, err
	}
	md := &workitem.Metadata{
		WorkitemUID:        uid,
		WorkitemKey:        key,
		PartitionKey:       partition,
		Status:             workitem.Status(status),
		TransactionUID:     transactionUID.String,
		Watermark:          watermark,
		ProcedureStepState: workitem.StateScheduled,
	}
	if state.Valid && state.String != "" {
		parsed, err := workitem.ParseState(state.String)
		if err != nil {
			return nil, fmt.Errorf("workitem %s: %w", uid, err)
		}
		md.ProcedureStepState = parsed
	}
	return md, nil
}

// updateState performs the watermark compare-and-swap and rewrites the
// indexed state row. withStateColumn also sets the v2 state column.
func (c *sqlCore) updateState(ctx context.Context, md *workitem.Metadata, proposed int64, state workitem.ProcedureStepState, withStateColumn bool) error {
	if md == nil {
		return &workitem.DataStoreError{Op: "UpdateProcedureStepState", Err: errors.New("metadata is required")}
	}
	if !state.Valid() {
		return &workitem.DataStoreError{Op: "UpdateProcedureStepState", Err: fmt.Errorf("unknown state %q", state)}
	}
	cl := call{op: "UpdateProcedureStepState", partition: md.PartitionKey, uid: md.WorkitemUID, workitemKey: md.WorkitemKey}
	return c.run(ctx, cl, func(ctx context.Context) error {
		return c.inTx(ctx, func(tx *sql.Tx) error {
			stamp := c.now().Format(time.RFC3339Nano)
			query := `UPDATE workitem SET watermark = ?, updated_at = ?
                WHERE partition_key = ? AND workitem_key = ? AND watermark = ?`
			args := []any{proposed, stamp, md.PartitionKey, md.WorkitemKey, md.Watermark}
			if withStateColumn {
				query = `UPDATE workitem SET watermark = ?, updated_at = ?, procedure_step_state = ?
                WHERE partition_key = ? AND workitem_key = ? AND watermark = ?`
				args = []any{proposed, stamp, string(state), md.PartitionKey, md.WorkitemKey, md.Watermark}
			}
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("update workitem watermark: %w", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			if affected == 0 {
				return workitem.ErrConcurrencyConflict
			}

			res, err = tx.ExecContext(ctx,
				`UPDATE workitem_string_attr SET value = ?
                WHERE partition_key = ? AND workitem_key = ? AND tag_path = ?`,
				string(state), md.PartitionKey, md.WorkitemKey, indexrows.StatePath,
			)
			if err != nil {
				return fmt.Errorf("update state row: %w", err)
			}
			if affected, err = res.RowsAffected(); err == nil && affected == 0 {
				_, err = tx.ExecContext(ctx,
					`INSERT INTO workitem_string_attr (partition_key, workitem_key, tag_path, value) VALUES (?, ?, ?, ?)`,
					md.PartitionKey, md.WorkitemKey, indexrows.StatePath, string(state),
				)
			}
			if err != nil {
				return fmt.Errorf("write state row: %w", err)
			}
			return nil
		})
	})
}
