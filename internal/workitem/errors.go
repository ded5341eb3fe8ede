package workitem

import (
	"errors"
	"fmt"

	"worklist/internal/dataset"
)

// Sentinel error kinds. Typed errors below match them with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("workitem already exists")
	ErrNotFound            = errors.New("workitem not found")
	ErrDataStore           = errors.New("data store operation failed")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrConcurrencyConflict = errors.New("workitem was updated concurrently")
)

// ReasonCode is a stable, machine-checkable failure reason.
type ReasonCode uint16

// Dataset validation reason codes.
const (
	ReasonInvalidAttributeValue     ReasonCode = 0x0106
	ReasonMissingAttribute          ReasonCode = 0x0120
	ReasonMissingSequence           ReasonCode = 0x0122
	ReasonUIDMismatch               ReasonCode = 0xA901
	ReasonInvalidUID                ReasonCode = 0xA902
	ReasonInvalidProcedureStepState ReasonCode = 0xA903
	ReasonDuplicateValueInSequence  ReasonCode = 0xA904
)

// Transition failure reason codes.
const (
	ReasonNotUpdatable       ReasonCode = 0xC300
	ReasonAlreadyInProgress  ReasonCode = 0xC302
	ReasonOnlyScheduledByAdd ReasonCode = 0xC303
	ReasonNotInProgress      ReasonCode = 0xC310
	ReasonAlreadyCompleted   ReasonCode = 0xC311
)

// DatasetValidationError rejects a creation dataset before any storage call.
type DatasetValidationError struct {
	Code    ReasonCode
	Tag     dataset.Tag
	Message string
}

func (e *DatasetValidationError) Error() string {
	return fmt.Sprintf("dataset validation failed (0x%04X): %s", uint16(e.Code), e.Message)
}

func (e *DatasetValidationError) Is(target error) bool { return target == ErrValidation }

func (e *DatasetValidationError) ErrorKind() string { return KindValidation }

// AlreadyExistsError reports a creation whose UID is taken in the partition.
type AlreadyExistsError struct {
	UID string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("workitem %s already exists", e.UID)
}

func (e *AlreadyExistsError) Is(target error) bool { return target == ErrConflict }

func (e *AlreadyExistsError) ErrorKind() string { return KindConflict }

// NotFoundError reports a transition against a workitem that does not exist
// or whose creation has not completed.
type NotFoundError struct {
	PartitionKey int
	UID          string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("workitem %s not found in partition %d", e.UID, e.PartitionKey)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) ErrorKind() string { return KindNotFound }

// DataStoreError wraps an unexpected backend failure.
type DataStoreError struct {
	Op  string
	Err error
}

func (e *DataStoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, ErrDataStore)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrDataStore, e.Err)
}

func (e *DataStoreError) Unwrap() error { return e.Err }

func (e *DataStoreError) Is(target error) bool { return target == ErrDataStore }

func (e *DataStoreError) ErrorKind() string { return KindDataStore }

// InvalidTransitionError rejects a state change that is not a permitted edge.
type InvalidTransitionError struct {
	From ProcedureStepState
	To   ProcedureStepState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition workitem from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

func (e *InvalidTransitionError) ErrorKind() string { return KindInvalidTransition }

// ReasonCode maps the rejected edge to its procedure step failure code.
func (e *InvalidTransitionError) ReasonCode() ReasonCode {
	switch {
	case e.From == StateCanceled:
		return ReasonNotUpdatable
	case e.From == StateCompleted:
		return ReasonAlreadyCompleted
	case e.To == StateScheduled:
		return ReasonOnlyScheduledByAdd
	case e.From == StateInProgress && e.To == StateInProgress:
		return ReasonAlreadyInProgress
	default:
		return ReasonNotInProgress
	}
}

// Error kinds reported by Kind.
const (
	KindValidation        = "validation"
	KindConflict          = "conflict"
	KindConcurrency       = "concurrency"
	KindNotFound          = "not_found"
	KindInvalidTransition = "invalid_transition"
	KindDataStore         = "data_store"
	KindUnknown           = "unknown"
)

// ErrorClassifier lets an error declare its kind.
type ErrorClassifier interface {
	ErrorKind() string
}

// Kind classifies err for callers that map failures to exit codes or
// protocol responses.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	switch {
	case errors.Is(err, ErrConcurrencyConflict):
		return KindConcurrency
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrDataStore):
		return KindDataStore
	default:
		return KindUnknown
	}
}

// Retryable reports whether err is an expected conflict a caller may retry
// by re-reading the workitem.
func Retryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
