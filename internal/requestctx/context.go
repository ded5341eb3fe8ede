// Package requestctx carries request-scoped identifiers through contexts so
// logs and spans can be tagged without threading extra parameters.
package requestctx

import "context"

type contextKey string

const (
	partitionKey   contextKey = "partition_key"
	workitemUIDKey contextKey = "workitem_uid"
	operationKey   contextKey = "operation"
	requestIDKey   contextKey = "request_id"
)

// WithPartition annotates context with the partition key.
func WithPartition(ctx context.Context, partition int) context.Context {
	return context.WithValue(ctx, partitionKey, partition)
}

// PartitionFromContext extracts the partition key if present.
func PartitionFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(partitionKey).(int)
	return v, ok
}

// WithWorkitemUID annotates context with the workitem UID.
func WithWorkitemUID(ctx context.Context, uid string) context.Context {
	if uid == "" {
		return ctx
	}
	return context.WithValue(ctx, workitemUIDKey, uid)
}

// WorkitemUIDFromContext returns the workitem UID if present.
func WorkitemUIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(workitemUIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithOperation annotates context with the store or service operation name.
func WithOperation(ctx context.Context, op string) context.Context {
	if op == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey, op)
}

// OperationFromContext returns the operation name if present.
func OperationFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(operationKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
