package audit

import (
	"context"
	"testing"
)

func TestRecorderNilSafe(t *testing.T) {
	var rec *Recorder
	rec.Record(Event{Op: OpCreate, Table: "t", RecordID: "1"})
	if events := rec.Events(); events != nil {
		t.Errorf("nil recorder should return nil events, got %v", events)
	}
}

func TestFromContextMissing(t *testing.T) {
	if rec := FromContext(context.Background()); rec != nil {
		t.Errorf("expected nil recorder from bare context")
	}
}

func TestCaptureWithoutRecorder(t *testing.T) {
	// 后台任务的上下文里没有收集器, Capture 应是空操作
	Capture(context.Background(), OpCreate, "material_requests", "mr-1", nil, map[string]string{"status": "pending"})
}

func TestCaptureRecordsSnapshots(t *testing.T) {
	rec := NewRecorder()
	ctx := WithRecorder(context.Background(), rec)

	type row struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}

	Capture(ctx, OpUpdate, "material_requests", "mr-1",
		&row{ID: "mr-1", Status: "pending"},
		&row{ID: "mr-1", Status: "approved"},
	)

	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Op != OpUpdate || ev.Table != "material_requests" || ev.RecordID != "mr-1" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.Prev["status"] != "pending" || ev.Next["status"] != "approved" {
		t.Errorf("snapshots not captured: prev=%v next=%v", ev.Prev, ev.Next)
	}
}

func TestToMapNil(t *testing.T) {
	if m := ToMap(nil); m != nil {
		t.Errorf("expected nil map for nil input, got %v", m)
	}
}
