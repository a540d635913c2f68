package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/bitfantasy/nimo-scm/internal/audit"
	"github.com/bitfantasy/nimo-scm/internal/board/entity"
	"github.com/bitfantasy/nimo-scm/internal/testutil"
)

func TestCollectorSnapshotsAroundTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	queue := audit.NewQueue(rdb)

	seed := entity.MaterialRequest{Procurement: entity.Procurement{
		ID:     "mr-snap-1",
		Title:  "Q3 物料申请",
		Status: "pending",
	}}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	ctx := context.Background()
	err := db.Transaction(func(tx *gorm.DB) error {
		collector := audit.NewCollector(tx, queue, audit.RequestInfo{
			RequestID:  "req-snap-1",
			Method:     "PUT",
			Path:       "/api/v1/tasks/:id/status",
			UserID:     "u-1",
			StatusCode: 200,
			DurationMs: 7,
		})
		targets := []audit.Target{{Table: "material_requests", IDs: []string{"mr-snap-1"}}}
		if err := collector.SnapshotBefore(ctx, targets); err != nil {
			return err
		}
		if err := tx.Model(&entity.MaterialRequest{}).
			Where("id = ?", "mr-snap-1").
			Update("status", "approved").Error; err != nil {
			return err
		}
		if err := collector.SnapshotAfter(ctx); err != nil {
			return err
		}
		return collector.Emit(ctx)
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	payload, err := queue.Dequeue(ctx, time.Second)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if payload == nil {
		t.Fatal("expected enqueued audit log")
	}
	entry := payload.Log
	if entry.RequestID != "req-snap-1" || !entry.Success {
		t.Errorf("request context missing: %+v", entry)
	}

	prevRows, ok := entry.PrevData["material_requests"].([]interface{})
	if !ok || len(prevRows) != 1 {
		t.Fatalf("expected 1 prev snapshot for material_requests, got %v", entry.PrevData)
	}
	prevRow := prevRows[0].(map[string]interface{})
	if prevRow["status"] != "pending" {
		t.Errorf("expected prev status pending, got %v", prevRow["status"])
	}

	nextRows, ok := entry.UpdateData["material_requests"].([]interface{})
	if !ok || len(nextRows) != 1 {
		t.Fatalf("expected 1 after snapshot for material_requests, got %v", entry.UpdateData)
	}
	nextRow := nextRows[0].(map[string]interface{})
	if nextRow["status"] != "approved" {
		t.Errorf("expected after status approved, got %v", nextRow["status"])
	}

	fields := entry.UpdatedFields["material_requests"]
	if len(fields) != 1 || fields[0] != "status" {
		t.Errorf("expected [status] changed, got %v", entry.UpdatedFields)
	}
}

func TestCollectorSkipsEmptyTargets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	queue := audit.NewQueue(rdb)

	ctx := context.Background()
	collector := audit.NewCollector(db, queue, audit.RequestInfo{StatusCode: 200})
	if err := collector.SnapshotBefore(ctx, []audit.Target{{Table: "material_requests"}}); err != nil {
		t.Fatalf("snapshot before failed: %v", err)
	}
	if err := collector.SnapshotAfter(ctx); err != nil {
		t.Fatalf("snapshot after failed: %v", err)
	}
	if err := collector.Emit(ctx); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	payload, err := queue.Dequeue(ctx, time.Second)
	if err != nil || payload == nil {
		t.Fatalf("expected enqueued log, got %v err=%v", payload, err)
	}
	if len(payload.Log.PrevData) != 0 || len(payload.Log.UpdateData) != 0 {
		t.Errorf("targets without ids should produce empty snapshots: %+v", payload.Log)
	}
	if len(payload.Log.UpdatedFields) != 0 {
		t.Errorf("expected no changed fields, got %v", payload.Log.UpdatedFields)
	}
}
