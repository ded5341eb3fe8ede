package workitem

import (
	"context"
	"fmt"

	"worklist/internal/logging"
	"worklist/internal/requestctx"
)

// Transition moves the workitem to target using a read, check, propose and
// commit sequence. The commit succeeds only if the watermark read in the
// first step is still current; otherwise ErrConcurrencyConflict is returned
// and the caller decides whether to start over. Transition never retries.
func (s *Service) Transition(ctx context.Context, partitionKey int, uid string, target ProcedureStepState) (*Metadata, error) {
	ctx = requestctx.WithPartition(ctx, partitionKey)
	ctx = requestctx.WithWorkitemUID(ctx, uid)
	ctx = requestctx.WithOperation(ctx, "transition")
	logger := logging.WithContext(ctx, s.logger)

	md, err := s.store.GetMetadata(ctx, partitionKey, uid)
	if err != nil {
		return nil, err
	}
	if md == nil || md.Status != StatusCreated {
		return nil, &NotFoundError{PartitionKey: partitionKey, UID: uid}
	}

	if !CanTransition(md.ProcedureStepState, target) {
		return nil, &InvalidTransitionError{From: md.ProcedureStepState, To: target}
	}

	pair, err := s.store.GetCurrentAndProposedWatermark(ctx, partitionKey, uid)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, &NotFoundError{PartitionKey: partitionKey, UID: uid}
	}
	if pair.Current != md.Watermark {
		logger.Debug("watermark moved before update",
			logging.Int64("observed", md.Watermark),
			logging.Int64("current", pair.Current),
		)
		return nil, fmt.Errorf("workitem %s: %w", uid, ErrConcurrencyConflict)
	}

	if err := s.store.UpdateProcedureStepState(ctx, md, pair.Proposed, target); err != nil {
		return nil, err
	}

	updated := *md
	updated.Watermark = pair.Proposed
	updated.ProcedureStepState = target
	logger.Info("workitem state changed",
		logging.String("from", string(md.ProcedureStepState)),
		logging.String("to", string(target)),
		logging.Int64("watermark", updated.Watermark),
	)
	return &updated, nil
}
