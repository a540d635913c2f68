package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bitfantasy/nimo-scm/internal/board/entity"
)

func TestKanbanBoardEmptyColumns(t *testing.T) {
	svc, _ := setupBoardTest(t)

	board, err := svc.GetKanbanBoard(context.Background(), entity.TaskTypeContainer, nil)
	if err != nil {
		t.Fatalf("get kanban failed: %v", err)
	}
	if board.TotalTasks != 0 {
		t.Errorf("expected empty board, got %d tasks", board.TotalTasks)
	}
	// 空看板也要有全部状态列
	if len(board.Board) != len(board.Statuses) {
		t.Errorf("expected %d columns, got %d", len(board.Statuses), len(board.Board))
	}
	for _, status := range board.Statuses {
		if cards, ok := board.Board[status]; !ok || cards == nil {
			t.Errorf("column %s missing or nil", status)
		}
	}
}

func TestKanbanBoardGroupsByStatus(t *testing.T) {
	svc, _ := setupBoardTest(t)
	ctx := context.Background()

	createMaterialRequest(t, svc, "MR-kb-001")
	detail := createMaterialRequest(t, svc, "MR-kb-002")
	if _, err := svc.DragDropStatusUpdate(ctx, detail.Task.ID, entity.MaterialRequestStatusInPurchaseReq, "buyer-1"); err != nil {
		t.Fatalf("move failed: %v", err)
	}

	board, err := svc.GetKanbanBoard(ctx, entity.TaskTypeMaterialRequest, nil)
	if err != nil {
		t.Fatalf("get kanban failed: %v", err)
	}
	if board.TotalTasks != 2 {
		t.Errorf("expected 2 tasks, got %d", board.TotalTasks)
	}
	if len(board.Board[entity.MaterialRequestStatusPending]) != 1 {
		t.Errorf("expected 1 pending card, got %d", len(board.Board[entity.MaterialRequestStatusPending]))
	}
	if len(board.Board[entity.MaterialRequestStatusInPurchaseReq]) != 1 {
		t.Errorf("expected 1 in_purchase_req card, got %d", len(board.Board[entity.MaterialRequestStatusInPurchaseReq]))
	}
}

func TestKanbanBoardCacheInvalidation(t *testing.T) {
	svc, _ := setupBoardTest(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	svc.SetRedis(rdb)

	ctx := context.Background()
	createMaterialRequest(t, svc, "MR-cache-001")

	if _, err := svc.GetKanbanBoard(ctx, entity.TaskTypeMaterialRequest, nil); err != nil {
		t.Fatalf("get kanban failed: %v", err)
	}
	cacheKey := "taskboard:kanban:" + entity.TaskTypeMaterialRequest
	if n, _ := rdb.Exists(ctx, cacheKey).Result(); n != 1 {
		t.Fatal("expected kanban view cached after first read")
	}

	// 新建任务后缓存应被清掉
	createMaterialRequest(t, svc, "MR-cache-002")
	if n, _ := rdb.Exists(ctx, cacheKey).Result(); n != 0 {
		t.Fatal("expected kanban cache invalidated after mutation")
	}

	board, err := svc.GetKanbanBoard(ctx, entity.TaskTypeMaterialRequest, nil)
	if err != nil {
		t.Fatalf("get kanban failed: %v", err)
	}
	if board.TotalTasks != 2 {
		t.Errorf("expected fresh board with 2 tasks, got %d", board.TotalTasks)
	}
}

func TestGetAllTasksGroupsEntitiesByType(t *testing.T) {
	svc, _ := setupBoardTest(t)
	ctx := context.Background()

	createMaterialRequest(t, svc, "MR-list-001")
	if _, err := svc.CreateTask(ctx, &CreateTaskRequest{
		TaskType: entity.TaskTypeContainer,
		Title:    "CT-list-001",
	}); err != nil {
		t.Fatalf("create container failed: %v", err)
	}

	result, err := svc.GetAllTasks(ctx, 1, 20, nil)
	if err != nil {
		t.Fatalf("get all tasks failed: %v", err)
	}
	if result.TotalRecords != 2 {
		t.Errorf("expected 2 records, got %d", result.TotalRecords)
	}
	for _, item := range result.Tasks {
		if item.Entity == nil {
			t.Errorf("task %s should carry its underlying entity", item.ID)
			continue
		}
		if item.Entity.ID != item.TaskID {
			t.Errorf("entity mismatch: %s != %s", item.Entity.ID, item.TaskID)
		}
	}

	filtered, err := svc.GetAllTasks(ctx, 1, 20, map[string]string{"task_type": entity.TaskTypeContainer})
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if filtered.TotalRecords != 1 {
		t.Errorf("expected 1 container task, got %d", filtered.TotalRecords)
	}
}

func TestWorkflowAuditTrailSpansStages(t *testing.T) {
	svc, _ := setupBoardTest(t)
	detail := createMaterialRequest(t, svc, "MR-trail-001")
	walkToReadyForPickup(t, svc, detail.Entity.ID)

	if _, err := svc.UpdateTaskStatus(context.Background(), detail.Entity.ID, &UpdateTaskStatusRequest{
		NewStatus: entity.MaterialRequestStatusApproved,
		ChangedBy: "buyer-1",
	}); err != nil {
		t.Fatalf("approval failed: %v", err)
	}

	trail, err := svc.GetWorkflowAuditTrail(context.Background(), detail.Task.ID)
	if err != nil {
		t.Fatalf("workflow trail failed: %v", err)
	}

	stages := make(map[string]int)
	for _, h := range trail {
		stages[h.Stage]++
	}
	// 物料申请: 创建 + 四步流转 + 审批 = 6 条
	if stages[entity.TaskTypeMaterialRequest] != 6 {
		t.Errorf("expected 6 material_request entries, got %d", stages[entity.TaskTypeMaterialRequest])
	}
	// 自动创建的采购申请带一条初始记录
	if stages[entity.TaskTypePurchaseRequest] != 1 {
		t.Errorf("expected 1 purchase_request entry, got %d", stages[entity.TaskTypePurchaseRequest])
	}
}

func TestExportKanbanBoard(t *testing.T) {
	svc, _ := setupBoardTest(t)
	createMaterialRequest(t, svc, "MR-export-001")

	f, filename, err := svc.ExportKanbanBoard(context.Background(), entity.TaskTypeMaterialRequest)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	defer f.Close()

	wantPrefix := fmt.Sprintf("kanban_%s_", entity.TaskTypeMaterialRequest)
	if !strings.HasPrefix(filename, wantPrefix) || !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("unexpected filename: %s", filename)
	}

	// 每个状态一个工作表
	sheets := f.GetSheetList()
	if len(sheets) != 8 {
		t.Errorf("expected 8 sheets, got %d: %v", len(sheets), sheets)
	}

	title, err := f.GetCellValue(entity.MaterialRequestStatusPending, "A2")
	if err != nil {
		t.Fatalf("read cell failed: %v", err)
	}
	if title != "MR-export-001" {
		t.Errorf("expected exported title in pending sheet, got %q", title)
	}
	header, _ := f.GetCellValue(entity.MaterialRequestStatusPending, "A1")
	if header != "Title" {
		t.Errorf("expected Title header, got %q", header)
	}
}
