package workitem

import (
	"context"

	"worklist/internal/dataset"
	"worklist/internal/indexrows"
)

// Metadata is the stored view of a workitem used by the transition protocol.
type Metadata struct {
	WorkitemUID        string
	WorkitemKey        int64
	PartitionKey       int
	Status             Status
	TransactionUID     string
	Watermark          int64
	ProcedureStepState ProcedureStepState
}

// WatermarkPair holds a workitem's committed watermark and a freshly drawn
// value for a forthcoming conditional update.
type WatermarkPair struct {
	Current  int64
	Proposed int64
}

// AddResult identifies a newly inserted workitem.
type AddResult struct {
	WorkitemUID string
	WorkitemKey int64
	Watermark   int64
}

// Store is the persistence contract for workitems. Every revision of the
// physical schema provides an implementation with identical semantics.
//
// Absent workitems are reported as (nil, nil) by the read operations.
// UpdateProcedureStepState returns ErrConcurrencyConflict when the stored
// watermark no longer matches md.Watermark. Unexpected backend failures
// surface as *DataStoreError.
type Store interface {
	// Add inserts the workitem with status creating, its initial SCHEDULED
	// state and the extracted rows in one transaction. A taken UID in the
	// partition fails with *AlreadyExistsError.
	Add(ctx context.Context, partitionKey int, workitemUID string, ds *dataset.Dataset, rows indexrows.Rows) (AddResult, error)
	// CompleteAdd marks an added workitem as created.
	CompleteAdd(ctx context.Context, partitionKey int, workitemKey int64) error
	GetMetadata(ctx context.Context, partitionKey int, workitemUID string) (*Metadata, error)
	GetCurrentAndProposedWatermark(ctx context.Context, partitionKey int, workitemUID string) (*WatermarkPair, error)
	UpdateProcedureStepState(ctx context.Context, md *Metadata, proposedWatermark int64, state ProcedureStepState) error
}
