package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"worklist/internal/dataset"
	"worklist/internal/indexrows"
	"worklist/internal/workitem"
)

// storeV1 serves schema version 1, where the procedure step state lives
// only in the indexed string row.
type storeV1 struct {
	core *sqlCore
}

func newStoreV1(core *sqlCore) workitem.Store {
	return &storeV1{core: core}
}

func (s *storeV1) Add(ctx context.Context, partitionKey int, uid string, _ *dataset.Dataset, rows indexrows.Rows) (workitem.AddResult, error) {
	return s.core.add(ctx, partitionKey, uid, rows, false)
}

func (s *storeV1) CompleteAdd(ctx context.Context, partitionKey int, workitemKey int64) error {
	cl := call{op: "CompleteAdd", partition: partitionKey, workitemKey: workitemKey}
	return s.core.run(ctx, cl, func(ctx context.Context) error {
		res, err := s.core.db.ExecContext(ctx,
			`UPDATE workitem SET status = ?, updated_at = ?
            WHERE partition_key = ? AND workitem_key = ? AND status = ?`,
			int(workitem.StatusCreated),
			s.core.now().Format(time.RFC3339Nano),
			partitionKey,
			workitemKey,
			int(workitem.StatusCreating),
		)
		if err != nil {
			return fmt.Errorf("complete add: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return &workitem.DataStoreError{
				Op:  "CompleteAdd",
				Err: fmt.Errorf("workitem %d in partition %d is not in creating status", workitemKey, partitionKey),
			}
		}
		return nil
	})
}

func (s *storeV1) GetMetadata(ctx context.Context, partitionKey int, uid string) (*workitem.Metadata, error) {
	return s.core.getMetadata(ctx, partitionKey, uid,
		`SELECT w.workitem_uid, w.workitem_key, w.partition_key, w.status, w.transaction_uid, w.watermark, s.value
        FROM workitem w
        LEFT JOIN workitem_string_attr s
            ON s.workitem_key = w.workitem_key AND s.partition_key = w.partition_key AND s.tag_path = ?
        WHERE w.partition_key = ? AND w.workitem_uid = ?`,
		indexrows.StatePath, partitionKey, uid,
	)
}

func (s *storeV1) GetCurrentAndProposedWatermark(ctx context.Context, partitionKey int, uid string) (*workitem.WatermarkPair, error) {
	var pair *workitem.WatermarkPair
	cl := call{op: "GetCurrentAndProposedWatermark", partition: partitionKey, uid: uid}
	err := s.core.run(ctx, cl, func(ctx context.Context) error {
		pair = nil
		return s.core.inTx(ctx, func(tx *sql.Tx) error {
			var current int64
			err := tx.QueryRowContext(ctx,
				`SELECT watermark FROM workitem WHERE partition_key = ? AND workitem_uid = ?`,
				partitionKey, uid,
			).Scan(&current)
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read watermark: %w", err)
			}
			proposed, err := nextWatermark(ctx, tx)
			if err != nil {
				return err
			}
			pair = &workitem.WatermarkPair{Current: current, Proposed: proposed}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *storeV1) UpdateProcedureStepState(ctx context.Context, md *workitem.Metadata, proposed int64, state workitem.ProcedureStepState) error {
	return s.core.updateState(ctx, md, proposed, state, false)
}
