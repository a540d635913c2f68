package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-scm/internal/board/entity"
	"github.com/bitfantasy/nimo-scm/internal/board/repository"
	"github.com/bitfantasy/nimo-scm/internal/testutil"
)

func setupLabelTest(t *testing.T) (*LabelService, *TaskBoardService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewLabelService(db, repos), NewTaskBoardService(db, repos)
}

func TestCreateAndListLabels(t *testing.T) {
	svc, _ := setupLabelTest(t)
	ctx := context.Background()

	label, err := svc.CreateLabel(ctx, &CreateLabelRequest{Name: "urgent", Color: "#FF0000"})
	if err != nil {
		t.Fatalf("create label failed: %v", err)
	}
	if label.ID == "" {
		t.Error("expected generated label id")
	}

	labels, err := svc.ListLabels(ctx)
	if err != nil {
		t.Fatalf("list labels failed: %v", err)
	}
	if len(labels) != 1 || labels[0].Name != "urgent" {
		t.Errorf("unexpected labels: %+v", labels)
	}
}

func TestAttachLabelUnknownTask(t *testing.T) {
	svc, _ := setupLabelTest(t)

	err := svc.AttachLabel(context.Background(), "no-such-board", "no-such-label", "buyer-1")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestAttachLabelIsIdempotent(t *testing.T) {
	labelSvc, boardSvc := setupLabelTest(t)
	ctx := context.Background()

	detail, err := boardSvc.CreateTask(ctx, &CreateTaskRequest{
		TaskType: entity.TaskTypeMaterialRequest,
		Title:    "MR-label-001",
	})
	if err != nil {
		t.Fatalf("create task failed: %v", err)
	}
	label, err := labelSvc.CreateLabel(ctx, &CreateLabelRequest{Name: "q4", Color: "#00FF00"})
	if err != nil {
		t.Fatalf("create label failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := labelSvc.AttachLabel(ctx, detail.Task.ID, label.ID, "buyer-1"); err != nil {
			t.Fatalf("attach %d failed: %v", i, err)
		}
	}

	task, err := boardSvc.GetTaskByID(ctx, detail.Task.ID)
	if err != nil {
		t.Fatalf("get task failed: %v", err)
	}
	if len(task.Labels) != 1 {
		t.Errorf("expected single label after repeated attach, got %d", len(task.Labels))
	}
}

func TestLabelsCopiedToAutoCreatedStage(t *testing.T) {
	labelSvc, boardSvc := setupLabelTest(t)
	ctx := context.Background()

	detail := createMaterialRequest(t, boardSvc, "MR-label-advance")
	label, err := labelSvc.CreateLabel(ctx, &CreateLabelRequest{Name: "overseas", Color: "#0000FF"})
	if err != nil {
		t.Fatalf("create label failed: %v", err)
	}
	if err := labelSvc.AttachLabel(ctx, detail.Task.ID, label.ID, "buyer-1"); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	walkToReadyForPickup(t, boardSvc, detail.Entity.ID)
	if _, err := boardSvc.UpdateTaskStatus(ctx, detail.Entity.ID, &UpdateTaskStatusRequest{
		NewStatus: entity.MaterialRequestStatusApproved,
		ChangedBy: "buyer-2",
	}); err != nil {
		t.Fatalf("approval failed: %v", err)
	}

	board, err := boardSvc.GetKanbanBoard(ctx, entity.TaskTypePurchaseRequest, nil)
	if err != nil {
		t.Fatalf("get kanban failed: %v", err)
	}
	cards := board.Board[entity.PurchaseRequestStatusPending]
	if len(cards) != 1 {
		t.Fatalf("expected 1 auto-created card, got %d", len(cards))
	}
	if len(cards[0].Labels) != 1 || cards[0].Labels[0].Name != "overseas" {
		t.Errorf("expected label carried to next stage, got %+v", cards[0].Labels)
	}
}

func TestDetachLabel(t *testing.T) {
	labelSvc, boardSvc := setupLabelTest(t)
	ctx := context.Background()

	detail := createMaterialRequest(t, boardSvc, "MR-label-detach")
	label, _ := labelSvc.CreateLabel(ctx, &CreateLabelRequest{Name: "temp", Color: ""})
	if err := labelSvc.AttachLabel(ctx, detail.Task.ID, label.ID, "buyer-1"); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	if err := labelSvc.DetachLabel(ctx, detail.Task.ID, label.ID); err != nil {
		t.Fatalf("detach failed: %v", err)
	}
	if err := labelSvc.DetachLabel(ctx, detail.Task.ID, label.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second detach, got %v", err)
	}
}
