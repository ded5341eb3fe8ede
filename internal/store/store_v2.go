package store

import (
	"context"

	"worklist/internal/dataset"
	"worklist/internal/indexrows"
	"worklist/internal/workitem"
)

// storeV2 serves schema version 2, which adds the procedure_step_state
// column. Operations whose physical shape did not change go to v1.
type storeV2 struct {
	core *sqlCore
	v1   *storeV1
}

func newStoreV2(core *sqlCore) workitem.Store {
	return &storeV2{core: core, v1: &storeV1{core: core}}
}

func (s *storeV2) Add(ctx context.Context, partitionKey int, uid string, _ *dataset.Dataset, rows indexrows.Rows) (workitem.AddResult, error) {
	return s.core.add(ctx, partitionKey, uid, rows, true)
}

func (s *storeV2) CompleteAdd(ctx context.Context, partitionKey int, workitemKey int64) error {
	return s.v1.CompleteAdd(ctx, partitionKey, workitemKey)
}

func (s *storeV2) GetMetadata(ctx context.Context, partitionKey int, uid string) (*workitem.Metadata, error) {
	return s.core.getMetadata(ctx, partitionKey, uid,
		`SELECT workitem_uid, workitem_key, partition_key, status, transaction_uid, watermark, procedure_step_state
        FROM workitem
        WHERE partition_key = ? AND workitem_uid = ?`,
		partitionKey, uid,
	)
}

func (s *storeV2) GetCurrentAndProposedWatermark(ctx context.Context, partitionKey int, uid string) (*workitem.WatermarkPair, error) {
	return s.v1.GetCurrentAndProposedWatermark(ctx, partitionKey, uid)
}

func (s *storeV2) UpdateProcedureStepState(ctx context.Context, md *workitem.Metadata, proposed int64, state workitem.ProcedureStepState) error {
	return s.core.updateState(ctx, md, proposed, state, true)
}
