package audit

import (
	"reflect"
	"testing"
)

func TestSanitizeRecordMasksSensitiveFields(t *testing.T) {
	record := map[string]interface{}{
		"title":    "Q3 物料申请",
		"password": "super-secret",
		"profile": map[string]interface{}{
			"fcm_token": "fcm-abc-123",
			"email":     "buyer@example.com",
		},
	}

	out := SanitizeRecord(record)

	if out["password"] != "***" {
		t.Errorf("expected password masked, got %v", out["password"])
	}
	profile := out["profile"].(map[string]interface{})
	if profile["fcm_token"] != "***" {
		t.Errorf("expected nested fcm_token masked, got %v", profile["fcm_token"])
	}
	if profile["email"] != "buyer@example.com" {
		t.Errorf("expected email untouched, got %v", profile["email"])
	}
	// 原始快照不应被修改
	if record["password"] != "super-secret" {
		t.Errorf("sanitize mutated the original record")
	}
}

func TestSanitizeRecordNil(t *testing.T) {
	if out := SanitizeRecord(nil); out != nil {
		t.Errorf("expected nil for nil input, got %v", out)
	}
}

func TestDiffChangedFieldsBasic(t *testing.T) {
	prev := map[string]interface{}{
		"status":      "pending",
		"title":       "MR-001",
		"description": "first batch",
	}
	next := map[string]interface{}{
		"status":      "approved",
		"title":       "MR-001",
		"description": "first batch",
	}

	changed := DiffChangedFields(prev, next)
	want := []string{"status"}
	if !reflect.DeepEqual(changed, want) {
		t.Errorf("expected %v, got %v", want, changed)
	}
}

func TestDiffChangedFieldsNumericStrings(t *testing.T) {
	prev := map[string]interface{}{"quantity": "100"}
	next := map[string]interface{}{"quantity": float64(100)}

	if changed := DiffChangedFields(prev, next); len(changed) != 0 {
		t.Errorf("numeric string and number should compare equal, got %v", changed)
	}
}

func TestDiffChangedFieldsArrayOrder(t *testing.T) {
	prev := map[string]interface{}{
		"assigned_to": []interface{}{"u1", "u2", "u3"},
	}
	next := map[string]interface{}{
		"assigned_to": []interface{}{"u3", "u1", "u2"},
	}

	if changed := DiffChangedFields(prev, next); len(changed) != 0 {
		t.Errorf("array comparison should ignore order, got %v", changed)
	}

	next["assigned_to"] = []interface{}{"u3", "u1"}
	changed := DiffChangedFields(prev, next)
	if !reflect.DeepEqual(changed, []string{"assigned_to"}) {
		t.Errorf("expected assigned_to changed, got %v", changed)
	}
}

func TestDiffChangedFieldsIgnoresTimestamps(t *testing.T) {
	prev := map[string]interface{}{
		"status":     "pending",
		"updated_at": "2026-01-01T00:00:00Z",
		"createdAt":  "2026-01-01T00:00:00Z",
	}
	next := map[string]interface{}{
		"status":     "pending",
		"updated_at": "2026-02-02T00:00:00Z",
		"createdAt":  "2026-02-02T00:00:00Z",
	}

	if changed := DiffChangedFields(prev, next); len(changed) != 0 {
		t.Errorf("timestamp fields should be excluded, got %v", changed)
	}
}

func TestDiffChangedFieldsAddedAndRemoved(t *testing.T) {
	prev := map[string]interface{}{"a": 1, "b": 2}
	next := map[string]interface{}{"a": 1, "c": 3}

	changed := DiffChangedFields(prev, next)
	want := []string{"b", "c"}
	if !reflect.DeepEqual(changed, want) {
		t.Errorf("expected %v, got %v", want, changed)
	}
}

func TestBuildLogGroupsEventsIntoSingleRecord(t *testing.T) {
	events := []Event{
		{
			Op:       OpUpdate,
			Table:    "material_requests",
			RecordID: "mr-1",
			Prev:     map[string]interface{}{"id": "mr-1", "status": "pending"},
			Next:     map[string]interface{}{"id": "mr-1", "status": "approved"},
		},
		{
			Op:       OpUpdate,
			Table:    "task_boards",
			RecordID: "tb-1",
			Prev:     map[string]interface{}{"id": "tb-1", "status": "pending", "title": "MR-001"},
			Next:     map[string]interface{}{"id": "tb-1", "status": "approved", "title": "MR-001"},
		},
	}

	entry := BuildLog(RequestInfo{
		RequestID:  "req-1",
		Method:     "PUT",
		Path:       "/api/v1/tasks/:id/status",
		UserID:     "u-1",
		StatusCode: 200,
		DurationMs: 12,
	}, events)

	if entry.ID == "" {
		t.Errorf("expected generated log id")
	}
	if entry.RequestID != "req-1" || entry.UserID != "u-1" || entry.Method != "PUT" {
		t.Errorf("request context not carried: %+v", entry)
	}
	if !entry.Success || entry.StatusCode != 200 || entry.DurationMs != 12 {
		t.Errorf("unexpected request outcome fields: %+v", entry)
	}
	if len(entry.PrevData) != 2 || len(entry.UpdateData) != 2 {
		t.Fatalf("expected snapshots grouped under 2 tables, got prev=%v update=%v",
			entry.PrevData, entry.UpdateData)
	}
	rows := entry.UpdateData["material_requests"].([]map[string]interface{})
	if len(rows) != 1 || rows[0]["status"] != "approved" {
		t.Errorf("unexpected material_requests snapshot: %v", rows)
	}
	if !reflect.DeepEqual(entry.UpdatedFields["task_boards"], []string{"status"}) {
		t.Errorf("expected task_boards changed fields [status], got %v", entry.UpdatedFields["task_boards"])
	}
}

func TestBuildLogMergesFieldsPerTable(t *testing.T) {
	events := []Event{
		{
			Op:       OpUpdate,
			Table:    "material_requests",
			RecordID: "mr-1",
			Prev:     map[string]interface{}{"status": "pending", "title": "a"},
			Next:     map[string]interface{}{"status": "approved", "title": "a"},
		},
		{
			Op:       OpUpdate,
			Table:    "material_requests",
			RecordID: "mr-2",
			Prev:     map[string]interface{}{"status": "pending", "title": "b"},
			Next:     map[string]interface{}{"status": "pending", "title": "c"},
		},
	}

	entry := BuildLog(RequestInfo{Method: "PUT", StatusCode: 200}, events)

	rows := entry.PrevData["material_requests"].([]map[string]interface{})
	if len(rows) != 2 {
		t.Fatalf("expected 2 prev snapshots for material_requests, got %d", len(rows))
	}
	want := []string{"status", "title"}
	if !reflect.DeepEqual(entry.UpdatedFields["material_requests"], want) {
		t.Errorf("expected merged fields %v, got %v", want, entry.UpdatedFields["material_requests"])
	}
}

func TestBuildLogMasksSnapshotsAndFlagsFailure(t *testing.T) {
	events := []Event{
		{
			Op:       OpCreate,
			Table:    "users",
			RecordID: "u-9",
			Next:     map[string]interface{}{"name": "test", "password": "plain"},
		},
	}

	entry := BuildLog(RequestInfo{Method: "POST", Path: "/api/v1/users", StatusCode: 500}, events)

	if entry.Success {
		t.Errorf("status 500 should not be marked success")
	}
	if len(entry.PrevData) != 0 {
		t.Errorf("create should not record prev snapshots, got %v", entry.PrevData)
	}
	rows := entry.UpdateData["users"].([]map[string]interface{})
	if rows[0]["password"] != "***" {
		t.Errorf("expected masked password in snapshot, got %v", rows[0]["password"])
	}
	if len(entry.UpdatedFields) != 0 {
		t.Errorf("create should not compute changed fields, got %v", entry.UpdatedFields)
	}
}
