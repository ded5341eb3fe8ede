package store_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/sync/errgroup"

	"worklist/internal/config"
	"worklist/internal/indexrows"
	"worklist/internal/store"
	"worklist/internal/testsupport"
	"worklist/internal/workitem"
)

func addCreated(t *testing.T, s workitem.Store, partition int, uid string) workitem.AddResult {
	t.Helper()
	ctx := context.Background()
	ds := testsupport.ValidDataset(t, uid)
	res, err := s.Add(ctx, partition, uid, ds, indexrows.Build(ds, indexrows.DefaultWorkitemTags))
	if err != nil {
		t.Fatalf("Add(%s) failed: %v", uid, err)
	}
	if err := s.CompleteAdd(ctx, partition, res.WorkitemKey); err != nil {
		t.Fatalf("CompleteAdd(%s) failed: %v", uid, err)
	}
	return res
}

func forEachRevision(t *testing.T, fn func(t *testing.T, h *store.Handle)) {
	for _, rev := range store.Revisions() {
		t.Run(rev.Name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			h := testsupport.MustOpenStore(t, cfg, rev.MinSchemaVersion)
			if h.Revision().Name != rev.Name {
				t.Fatalf("expected revision %s, got %s", rev.Name, h.Revision().Name)
			}
			fn(t, h)
		})
	}
}

func TestAddThenGetMetadataIsScheduled(t *testing.T) {
	forEachRevision(t, func(t *testing.T, h *store.Handle) {
		ctx := context.Background()
		first := addCreated(t, h, 1, "1.2.3.1")
		second := addCreated(t, h, 1, "1.2.3.2")

		if first.Watermark == second.Watermark {
			t.Fatalf("watermarks must differ across workitems, both %d", first.Watermark)
		}

		md, err := h.GetMetadata(ctx, 1, "1.2.3.1")
		if err != nil {
			t.Fatalf("GetMetadata failed: %v", err)
		}
		if md == nil {
			t.Fatal("expected metadata")
		}
		if md.ProcedureStepState != workitem.StateScheduled {
			t.Fatalf("expected SCHEDULED, got %q", md.ProcedureStepState)
		}
		if md.Status != workitem.StatusCreated {
			t.Fatalf("expected created status, got %s", md.Status)
		}
		if md.WorkitemKey != first.WorkitemKey || md.Watermark != first.Watermark || md.PartitionKey != 1 {
			t.Fatalf("unexpected metadata %+v for %+v", md, first)
		}
		if md.TransactionUID != "" {
			t.Fatalf("expected no transaction uid, got %q", md.TransactionUID)
		}
	})
}

func TestAddPersistsIndexedRows(t *testing.T) {
	forEachRevision(t, func(t *testing.T, h *store.Handle) {
		res := addCreated(t, h, 1, "1.2.3.9")

		var strs, dts, names int
		db := h.DB()
		ctx := context.Background()
		if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM workitem_string_attr WHERE workitem_key = ?`, res.WorkitemKey).Scan(&strs); err != nil {
			t.Fatalf("count string rows: %v", err)
		}
		if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM workitem_datetime_attr WHERE workitem_key = ?`, res.WorkitemKey).Scan(&dts); err != nil {
			t.Fatalf("count datetime rows: %v", err)
		}
		if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM workitem_personname_attr WHERE workitem_key = ?`, res.WorkitemKey).Scan(&names); err != nil {
			t.Fatalf("count person name rows: %v", err)
		}
		if strs == 0 || dts != 2 || names != 1 {
			t.Fatalf("unexpected row counts strings=%d datetimes=%d names=%d", strs, dts, names)
		}

		var states int
		if err := db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM workitem_string_attr WHERE workitem_key = ? AND tag_path = ?`,
			res.WorkitemKey, indexrows.StatePath,
		).Scan(&states); err != nil {
			t.Fatalf("count state rows: %v", err)
		}
		if states != 1 {
			t.Fatalf("expected exactly one state row, got %d", states)
		}
	})
}

func TestGetMetadataAbsent(t *testing.T) {
	forEachRevision(t, func(t *testing.T, h *store.Handle) {
		ctx := context.Background()
		md, err := h.GetMetadata(ctx, 1, "9.9.9")
		if err != nil || md != nil {
			t.Fatalf("expected (nil, nil), got (%+v, %v)", md, err)
		}
		pair, err := h.GetCurrentAndProposedWatermark(ctx, 1, "9.9.9")
		if err != nil || pair != nil {
			t.Fatalf("expected (nil, nil), got (%+v, %v)", pair, err)
		}
	})
}

func TestPartitionsScopeUIDs(t *testing.T) {
	forEachRevision(t, func(t *testing.T, h *store.Handle) {
		addCreated(t, h, 1, "1.2.3")
		addCreated(t, h, 2, "1.2.3")

		md, err := h.GetMetadata(context.Background(), 3, "1.2.3")
		if err != nil || md != nil {
			t.Fatalf("expected no workitem in partition 3, got (%+v, %v)", md, err)
		}
	})
}

func TestConcurrentDuplicateAddYieldsOneWinner(t *testing.T) {
	forEachRevision(t, func(t *testing.T, h *store.Handle) {
		const writers = 8
		ds := testsupport.ValidDataset(t, "1.2.840.10")
		rows := indexrows.Build(ds, indexrows.DefaultWorkitemTags)

		var wins, conflicts atomic.Int32
		var g errgroup.Group
		for i := 0; i < writers; i++ {
			g.Go(func() error {
				_, err := h.Add(context.Background(), 1, "1.2.840.10", ds, rows)
				switch {
				case err == nil:
					wins.Add(1)
					return nil
				case errors.Is(err, workitem.ErrConflict):
					var exists *workitem.AlreadyExistsError
					if !errors.As(err, &exists) || exists.UID != "1.2.840.10" {
						return fmt.Errorf("unexpected conflict error %v", err)
					}
					conflicts.Add(1)
					return nil
				default:
					return err
				}
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("concurrent add failed: %v", err)
		}
		if wins.Load() != 1 || conflicts.Load() != writers-1 {
			t.Fatalf("expected 1 win and %d conflicts, got %d and %d", writers-1, wins.Load(), conflicts.Load())
		}
	})
}

func TestConditionalUpdateScenario(t *testing.T) {
	forEachRevision(t, func(t *testing.T, h *store.Handle) {
		ctx := context.Background()
		added := addCreated(t, h, 1, "1.2.3.4")

		pair, err := h.GetCurrentAndProposedWatermark(ctx, 1, "1.2.3.4")
		if err != nil {
			t.Fatalf("GetCurrentAndProposedWatermark failed: %v", err)
		}
		if pair.Current != added.Watermark {
			t.Fatalf("expected current %d, got %d", added.Watermark, pair.Current)
		}
		if pair.Proposed <= pair.Current {
			t.Fatalf("proposed %d must exceed current %d", pair.Proposed, pair.Current)
		}

		md, err := h.GetMetadata(ctx, 1, "1.2.3.4")
		if err != nil {
			t.Fatalf("GetMetadata failed: %v", err)
		}
		if err := h.UpdateProcedureStepState(ctx, md, pair.Proposed, workitem.StateInProgress); err != nil {
			t.Fatalf("UpdateProcedureStepState failed: %v", err)
		}

		after, err := h.GetMetadata(ctx, 1, "1.2.3.4")
		if err != nil {
			t.Fatalf("GetMetadata failed: %v", err)
		}
		if after.Watermark != pair.Proposed || after.ProcedureStepState != workitem.StateInProgress {
			t.Fatalf("unexpected metadata after update: %+v", after)
		}

		err = h.UpdateProcedureStepState(ctx, md, pair.Proposed+100, workitem.StateCompleted)
		if !errors.Is(err, workitem.ErrConcurrencyConflict) {
			t.Fatalf("expected concurrency conflict for stale watermark, got %v", err)
		}
		unchanged, err := h.GetMetadata(ctx, 1, "1.2.3.4")
		if err != nil {
			t.Fatalf("GetMetadata failed: %v", err)
		}
		if unchanged.ProcedureStepState != workitem.StateInProgress || unchanged.Watermark != pair.Proposed {
			t.Fatalf("stale update must not change the row: %+v", unchanged)
		}
	})
}

func TestCompleteAddRequiresCreatingStatus(t *testing.T) {
	forEachRevision(t, func(t *testing.T, h *store.Handle) {
		res := addCreated(t, h, 1, "1.2.3.5")
		err := h.CompleteAdd(context.Background(), 1, res.WorkitemKey)
		if !errors.Is(err, workitem.ErrDataStore) {
			t.Fatalf("expected data store error on second CompleteAdd, got %v", err)
		}
	})
}

func TestAddLeavesCreatingStatusUntilCompleted(t *testing.T) {
	forEachRevision(t, func(t *testing.T, h *store.Handle) {
		ctx := context.Background()
		ds := testsupport.ValidDataset(t, "1.2.3.6")
		if _, err := h.Add(ctx, 1, "1.2.3.6", ds, indexrows.Rows{}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		md, err := h.GetMetadata(ctx, 1, "1.2.3.6")
		if err != nil {
			t.Fatalf("GetMetadata failed: %v", err)
		}
		if md.Status != workitem.StatusCreating {
			t.Fatalf("expected creating status, got %s", md.Status)
		}
	})
}

func TestConcurrentTransitionsHaveSingleWinner(t *testing.T) {
	forEachRevision(t, func(t *testing.T, h *store.Handle) {
		svc := workitem.NewService(h)
		ctx := context.Background()
		if _, err := svc.Add(ctx, 1, "", testsupport.ValidDataset(t, "1.2.3.7")); err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		const racers = 6
		var wins, conflicts atomic.Int32
		var g errgroup.Group
		for i := 0; i < racers; i++ {
			g.Go(func() error {
				_, err := svc.Transition(ctx, 1, "1.2.3.7", workitem.StateInProgress)
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, workitem.ErrConcurrencyConflict), errors.Is(err, workitem.ErrInvalidTransition):
					conflicts.Add(1)
				default:
					return err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("transition race failed: %v", err)
		}
		if wins.Load() != 1 || conflicts.Load() != racers-1 {
			t.Fatalf("expected a single winner, got wins=%d losers=%d", wins.Load(), conflicts.Load())
		}

		md, err := h.GetMetadata(ctx, 1, "1.2.3.7")
		if err != nil {
			t.Fatalf("GetMetadata failed: %v", err)
		}
		if md.ProcedureStepState != workitem.StateInProgress {
			t.Fatalf("expected IN PROGRESS after race, got %s", md.ProcedureStepState)
		}
	})
}

func TestRevisionFor(t *testing.T) {
	cases := []struct {
		version int
		want    string
	}{
		{1, "v1"},
		{2, "v2"},
		{7, "v2"},
	}
	for _, tc := range cases {
		rev, err := store.RevisionFor(tc.version)
		if err != nil {
			t.Fatalf("RevisionFor(%d) failed: %v", tc.version, err)
		}
		if rev.Name != tc.want {
			t.Fatalf("RevisionFor(%d) = %s, want %s", tc.version, rev.Name, tc.want)
		}
	}
	if _, err := store.RevisionFor(0); !errors.Is(err, store.ErrSchemaTooOld) {
		t.Fatalf("expected ErrSchemaTooOld for version 0, got %v", err)
	}
}

func TestOpenRejectsUninitializedDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := store.Open(context.Background(), cfg)
	if !errors.Is(err, store.ErrSchemaTooOld) {
		t.Fatalf("expected ErrSchemaTooOld, got %v", err)
	}
}

func TestOpenHonorsConfiguredSchemaFloor(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMinSchemaVersion(2))
	testsupport.MustApplySchema(t, cfg, 1)

	_, err := store.Open(context.Background(), cfg)
	if !errors.Is(err, store.ErrSchemaTooOld) {
		t.Fatalf("expected ErrSchemaTooOld below configured floor, got %v", err)
	}

	testsupport.MustApplySchema(t, cfg, 0)
	h, err := store.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open after upgrade failed: %v", err)
	}
	defer h.Close()
	if h.SchemaVersion() != store.LatestSchemaVersion() || h.Revision().Name != "v2" {
		t.Fatalf("unexpected handle version=%d revision=%s", h.SchemaVersion(), h.Revision().Name)
	}
}

func TestUpgradeKeepsStateOfExistingWorkitems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	old := testsupport.MustOpenStore(t, cfg, 1)
	svc := workitem.NewService(old)
	if _, err := svc.Add(ctx, 1, "", testsupport.ValidDataset(t, "1.2.5.1")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := svc.Transition(ctx, 1, "1.2.5.1", workitem.StateInProgress); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if err := old.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	upgraded := testsupport.MustOpenStore(t, cfg, 0)
	if upgraded.Revision().Name != "v2" {
		t.Fatalf("expected v2 after upgrade, got %s", upgraded.Revision().Name)
	}
	md, err := upgraded.GetMetadata(ctx, 1, "1.2.5.1")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if md.ProcedureStepState != workitem.StateInProgress {
		t.Fatalf("expected backfilled IN PROGRESS, got %s", md.ProcedureStepState)
	}
}

func TestSchemaStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	status, err := store.Status(ctx, cfg)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Deployed != 0 || status.Revision != "" || status.Latest != store.LatestSchemaVersion() {
		t.Fatalf("unexpected status for empty database: %+v", status)
	}

	before, after, err := store.ApplySchema(ctx, cfg, 1)
	if err != nil {
		t.Fatalf("ApplySchema failed: %v", err)
	}
	if before != 0 || after != 1 {
		t.Fatalf("unexpected versions before=%d after=%d", before, after)
	}
	status, err = store.Status(ctx, cfg)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Deployed != 1 || status.Revision != "v1" {
		t.Fatalf("unexpected status after apply: %+v", status)
	}

	if _, _, err := store.ApplySchema(ctx, cfg, 99); !errors.Is(err, store.ErrUnknownSchemaVersion) {
		t.Fatalf("expected ErrUnknownSchemaVersion, got %v", err)
	}
}

func TestStoreSpansCarryWorkitemAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})

	cfg := testsupport.NewConfig(t)
	h := testsupport.MustOpenStore(t, cfg, 0, store.WithTracerProvider(tp))
	addCreated(t, h, 4, "1.2.6.1")

	var found bool
	for _, span := range recorder.Ended() {
		if span.Name() != "store.Add" {
			continue
		}
		found = true
		attrs := map[string]string{}
		for _, kv := range span.Attributes() {
			attrs[string(kv.Key)] = kv.Value.Emit()
		}
		if attrs["worklist.workitem_uid"] != "1.2.6.1" || attrs["worklist.partition_key"] != "4" || attrs["worklist.revision"] != "v2" {
			t.Fatalf("unexpected span attributes %v", attrs)
		}
	}
	if !found {
		t.Fatal("expected a store.Add span")
	}
}

func TestMattnDriverDialect(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDriver(config.DriverSQLite3))
	if _, _, err := store.ApplySchema(context.Background(), cfg, 0); err != nil {
		if strings.Contains(err.Error(), "CGO_ENABLED=0") {
			t.Skip("go-sqlite3 requires cgo")
		}
		t.Fatalf("ApplySchema failed: %v", err)
	}
	h, err := store.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.Close()

	ds := testsupport.ValidDataset(t, "1.2.7.1")
	if _, err := h.Add(context.Background(), 1, "1.2.7.1", ds, indexrows.Rows{}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	_, err = h.Add(context.Background(), 1, "1.2.7.1", ds, indexrows.Rows{})
	if !errors.Is(err, workitem.ErrConflict) {
		t.Fatalf("expected already exists from sqlite3 driver, got %v", err)
	}
}

func TestBreakerFailsFastOnceDatabaseIsGone(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBreaker(2, 60))
	h := testsupport.MustOpenStore(t, cfg, 0)
	if err := h.DB().Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := h.GetMetadata(ctx, 1, "1.2.3")
		if !errors.Is(err, workitem.ErrDataStore) {
			t.Fatalf("call %d: expected data store error, got %v", i, err)
		}
		if errors.Is(err, gobreaker.ErrOpenState) {
			t.Fatalf("call %d: breaker opened too early", i)
		}
	}
	_, err := h.GetMetadata(ctx, 1, "1.2.3")
	if !errors.Is(err, workitem.ErrDataStore) || !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker wrapped as data store error, got %v", err)
	}
}

// holdWriteLock takes the database write lock on a dedicated connection and
// returns a func releasing it.
func holdWriteLock(t *testing.T, h *store.Handle) func() {
	t.Helper()
	ctx := context.Background()
	conn, err := h.DB().Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		_ = conn.Close()
		t.Fatalf("begin immediate: %v", err)
	}
	var once sync.Once
	release := func() {
		once.Do(func() {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
			_ = conn.Close()
		})
	}
	t.Cleanup(release)
	return release
}

func TestLockWaitEndsWithCallerDeadline(t *testing.T) {
	forEachRevision(t, func(t *testing.T, h *store.Handle) {
		existing := addCreated(t, h, 1, "1.2.5.1")
		release := holdWriteLock(t, h)

		ds := testsupport.ValidDataset(t, "1.2.5.2")
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		start := time.Now()
		_, err := h.Add(ctx, 1, "1.2.5.2", ds, indexrows.Build(ds, indexrows.DefaultWorkitemTags))
		elapsed := time.Since(start)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded from Add, got %v", err)
		}
		if elapsed > 2*time.Second {
			t.Fatalf("Add waited %s on the lock past its deadline", elapsed)
		}

		ctx2, cancel2 := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel2()
		start = time.Now()
		_, err = h.GetCurrentAndProposedWatermark(ctx2, 1, "1.2.5.1")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded from GetCurrentAndProposedWatermark, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Fatalf("watermark proposal waited %s past its deadline", elapsed)
		}

		release()
		md, err := h.GetMetadata(context.Background(), 1, "1.2.5.2")
		if err != nil || md != nil {
			t.Fatalf("aborted add must leave nothing behind, got %+v err=%v", md, err)
		}
		md, err = h.GetMetadata(context.Background(), 1, "1.2.5.1")
		if err != nil || md.Watermark != existing.Watermark {
			t.Fatalf("aborted proposal must not touch the workitem, got %+v err=%v", md, err)
		}
	})
}

func TestLockWaitOutlastsShortHolds(t *testing.T) {
	forEachRevision(t, func(t *testing.T, h *store.Handle) {
		release := holdWriteLock(t, h)
		timer := time.AfterFunc(150*time.Millisecond, release)
		defer timer.Stop()

		addCreated(t, h, 1, "1.2.6.1")
	})
}
