package logging

import (
	"context"
	"log/slog"

	"worklist/internal/requestctx"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldPartitionKey is the standardized key for data partition identifiers.
	FieldPartitionKey = "partition_key"
	// FieldWorkitemUID is the standardized key for workitem instance UIDs.
	FieldWorkitemUID = "workitem_uid"
	// FieldWorkitemKey is the standardized key for workitem surrogate keys.
	FieldWorkitemKey = "workitem_key"
	// FieldOperation is the standardized key for store and service operation names.
	FieldOperation = "operation"
	// FieldRevision is the standardized key for the store revision in use.
	FieldRevision = "revision"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries a short operator-facing next step.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if partition, ok := requestctx.PartitionFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldPartitionKey, partition))
	}
	if uid, ok := requestctx.WorkitemUIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldWorkitemUID, uid))
	}
	if op, ok := requestctx.OperationFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldOperation, op))
	}
	if rid, ok := requestctx.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
