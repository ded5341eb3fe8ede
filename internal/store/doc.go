// Package store implements workitem.Store on SQLite.
//
// The physical schema is versioned. Each store revision declares the
// minimum schema version it needs, and Open picks the newest revision the
// deployed schema supports. Revisions share their SQL through sqlCore and
// delegate explicitly where the physical shape did not change.
//
// Every operation runs behind a circuit breaker, retries SQLITE_BUSY with
// bounded backoff, and records an OpenTelemetry span.
package store
