package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/bitfantasy/nimo-scm/internal/board/entity"
	"github.com/bitfantasy/nimo-scm/internal/board/registry"
	"github.com/bitfantasy/nimo-scm/internal/board/repository"
	"github.com/bitfantasy/nimo-scm/internal/push"
	"github.com/bitfantasy/nimo-scm/internal/sse"
)

// TaskBoardService 看板任务服务, 承载采购流程的状态机
type TaskBoardService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	rdb    *redis.Client
	sender push.Sender
}

func NewTaskBoardService(db *gorm.DB, repos *repository.Repositories) *TaskBoardService {
	return &TaskBoardService{
		db:     db,
		repos:  repos,
		sender: push.NoopSender{},
	}
}

// SetPushSender 注入推送发送器
func (s *TaskBoardService) SetPushSender(sender push.Sender) {
	if sender != nil {
		s.sender = sender
	}
}

// SetRedis 注入Redis客户端（看板缓存失效用）
func (s *TaskBoardService) SetRedis(rdb *redis.Client) {
	s.rdb = rdb
}

// TaskDetail 卡片及其底层单据
type TaskDetail struct {
	Task   *entity.TaskBoard   `json:"task"`
	Entity *entity.Procurement `json:"entity"`
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	TaskType     string     `json:"task_type" binding:"required"`
	Title        string     `json:"title" binding:"required"`
	Description  string     `json:"description"`
	AssignedTo   []string   `json:"assigned_to"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	Status       string     `json:"status"`
	CurrentState string     `json:"current_state"`
	Labels       []string   `json:"labels"`
}

// CreateTask 在任意阶段创建任务: 单据行、看板卡片与首条流转记录一起落库
func (s *TaskBoardService) CreateTask(ctx context.Context, req *CreateTaskRequest) (*TaskDetail, error) {
	stage, err := registry.Lookup(req.TaskType)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = stage.Pending
	}

	var assignedTo *string
	if len(req.AssignedTo) > 0 {
		assignedTo = &req.AssignedTo[0]
	}

	procurement := &entity.Procurement{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  assignedTo,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      status,
	}

	taskBoard := &entity.TaskBoard{
		TaskType:     req.TaskType,
		Title:        req.Title,
		Description:  req.Description,
		Status:       status,
		CurrentState: req.CurrentState,
		AssignedTo:   req.AssignedTo,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repos.Procurement.Create(ctx, tx, stage, procurement); err != nil {
			return fmt.Errorf("create %s: %w", stage.Table, err)
		}

		taskBoard.TaskID = procurement.ID
		if err := s.repos.TaskBoard.Create(ctx, tx, taskBoard); err != nil {
			return fmt.Errorf("create task board: %w", err)
		}

		for _, labelID := range req.Labels {
			if err := s.repos.Label.AttachToTask(ctx, tx, taskBoard.ID, labelID, changedByOrSystem(req.AssignedTo)); err != nil {
				return fmt.Errorf("attach label: %w", err)
			}
		}

		for _, userID := range req.AssignedTo {
			if err := s.repos.AssignedUser.Assign(ctx, tx, taskBoard.ID, userID); err != nil {
				return fmt.Errorf("assign user: %w", err)
			}
		}

		history := &entity.TaskStatusHistory{
			TaskBoardID: taskBoard.ID,
			Status:      status,
			NewState:    req.CurrentState,
			ChangedBy:   changedByOrSystem(req.AssignedTo),
		}
		if err := s.repos.History.Append(ctx, tx, history); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.clearKanbanCache(ctx)
	go s.notifyAssigned(context.Background(), taskBoard, req.AssignedTo)

	return &TaskDetail{Task: taskBoard, Entity: procurement}, nil
}

// UpdateTaskStatusRequest 状态更新请求, 标题、描述和负责人可一并更新
type UpdateTaskStatusRequest struct {
	NewStatus   string   `json:"new_status" binding:"required"`
	NewState    string   `json:"new_state"`
	ChangedBy   string   `json:"changed_by"`
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	AssignedTo  []string `json:"assigned_to"`
}

// UpdateResult 状态更新结果
type UpdateResult struct {
	Task    *entity.TaskBoard          `json:"task"`
	History []entity.TaskStatusHistory `json:"history"`
}

// UpdateTaskStatus 更新任务状态, 带级联推进逻辑.
// taskID 是底层单据的ID, 不是卡片ID.
func (s *TaskBoardService) UpdateTaskStatus(ctx context.Context, taskID string, req *UpdateTaskStatusRequest) (*UpdateResult, error) {
	var taskBoard *entity.TaskBoard
	var newState string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tb, err := s.repos.TaskBoard.FindByTaskIDForUpdate(ctx, tx, taskID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTaskNotFound
			}
			return err
		}
		taskBoard = tb

		stage, err := registry.Lookup(tb.TaskType)
		if err != nil {
			return err
		}

		procurement, err := s.repos.Procurement.FindByIDForUpdate(ctx, tx, stage, tb.TaskID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		oldStatus := tb.Status
		oldState := tb.CurrentState

		// 物料申请审批前必须走完全部前置状态
		if tb.TaskType == entity.TaskTypeMaterialRequest && req.NewStatus == entity.MaterialRequestStatusApproved {
			if err := s.checkApprovalGate(ctx, tx, tb.ID, oldStatus); err != nil {
				return err
			}
		}

		// 物料申请完结前末阶段必须已完结
		if tb.TaskType == entity.TaskTypeMaterialRequest && req.NewStatus == entity.MaterialRequestStatusCompleted {
			if err := s.checkFinalStageCompleted(ctx, tx, procurement.Title); err != nil {
				return err
			}
		}

		if err := s.repos.Procurement.UpdateStatus(ctx, tx, stage, procurement, req.NewStatus); err != nil {
			return fmt.Errorf("update %s status: %w", stage.Table, err)
		}

		newState = req.NewState
		if newState == "" {
			newState = oldState
		}
		if err := s.repos.TaskBoard.UpdateStatus(ctx, tx, tb, req.NewStatus, newState); err != nil {
			return fmt.Errorf("update task board: %w", err)
		}

		history := &entity.TaskStatusHistory{
			TaskBoardID: tb.ID,
			OldStatus:   oldStatus,
			Status:      req.NewStatus,
			OldState:    oldState,
			NewState:    newState,
			ChangedBy:   req.ChangedBy,
		}
		if err := s.repos.History.Append(ctx, tx, history); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		// 到达审批状态后自动创建下一阶段任务
		if req.NewStatus == stage.Approved {
			if err := s.createNextStageTask(ctx, tx, stage, tb, procurement, req.ChangedBy); err != nil {
				return err
			}
		}

		// 末阶段完结后级联完结源头的物料申请
		if req.NewStatus == stage.Completed {
			if err := s.cascadeOriginCompletion(ctx, tx, stage, procurement, req.ChangedBy); err != nil {
				return err
			}
		}

		if req.Title != nil || req.Description != nil {
			fields := map[string]interface{}{}
			if req.Title != nil {
				fields["title"] = *req.Title
			}
			if req.Description != nil {
				fields["description"] = *req.Description
			}
			if err := s.repos.Procurement.UpdateFields(ctx, tx, stage, procurement, fields); err != nil {
				return fmt.Errorf("update %s fields: %w", stage.Table, err)
			}
			// 卡片上的冗余标题/描述一起改, 看板、搜索和导出读的是卡片
			if err := s.repos.TaskBoard.UpdateFields(ctx, tx, tb, fields); err != nil {
				return fmt.Errorf("update task board fields: %w", err)
			}
		}

		if req.AssignedTo != nil {
			if err := s.repos.AssignedUser.ReplaceForTask(ctx, tx, tb.ID, req.AssignedTo); err != nil {
				return fmt.Errorf("replace assigned users: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.clearKanbanCache(ctx)
	sse.PublishTaskBoardUpdate(taskBoard.ID, req.NewStatus, newState, req.ChangedBy)

	history, err := s.repos.History.ListByTaskBoard(ctx, taskBoard.ID, false)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{Task: taskBoard, History: history}, nil
}

// DragDropResult 拖拽更新结果
type DragDropResult struct {
	Success bool              `json:"success"`
	Task    *entity.TaskBoard `json:"task"`
	Message string            `json:"message"`
}

// DragDropStatusUpdate 看板拖拽更新: 校验目标列属于该类型的状态枚举.
// taskBoardID 是卡片ID.
func (s *TaskBoardService) DragDropStatusUpdate(ctx context.Context, taskBoardID, newStatus, changedBy string) (*DragDropResult, error) {
	var taskBoard *entity.TaskBoard
	var oldStatus, oldState string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tb, err := s.repos.TaskBoard.FindByIDForUpdate(ctx, tx, taskBoardID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTaskNotFound
			}
			return err
		}
		taskBoard = tb

		stage, err := registry.Lookup(tb.TaskType)
		if err != nil {
			return err
		}

		procurement, err := s.repos.Procurement.FindByIDForUpdate(ctx, tx, stage, tb.TaskID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		oldStatus = tb.Status
		oldState = tb.CurrentState

		if tb.TaskType == entity.TaskTypeMaterialRequest && newStatus == entity.MaterialRequestStatusCompleted {
			if err := s.checkFinalStageCompleted(ctx, tx, procurement.Title); err != nil {
				return err
			}
		}

		if !stage.HasStatus(newStatus) {
			return &InvalidStatusError{Status: newStatus, TaskType: tb.TaskType}
		}

		if err := s.repos.Procurement.UpdateStatus(ctx, tx, stage, procurement, newStatus); err != nil {
			return fmt.Errorf("update %s status: %w", stage.Table, err)
		}
		if err := s.repos.TaskBoard.UpdateStatus(ctx, tx, tb, newStatus, oldState); err != nil {
			return fmt.Errorf("update task board: %w", err)
		}

		history := &entity.TaskStatusHistory{
			TaskBoardID: tb.ID,
			OldStatus:   oldStatus,
			Status:      newStatus,
			OldState:    oldState,
			NewState:    oldState,
			ChangedBy:   changedBy,
		}
		if err := s.repos.History.Append(ctx, tx, history); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		// 拖到审批列或完结列都会触发下一阶段创建
		if newStatus == stage.Approved || newStatus == stage.Completed {
			if err := s.createNextStageTask(ctx, tx, stage, tb, procurement, changedBy); err != nil {
				return err
			}
		}

		if newStatus == stage.Completed {
			if err := s.cascadeOriginCompletion(ctx, tx, stage, procurement, changedBy); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.clearKanbanCache(ctx)
	sse.PublishTaskBoardUpdate(taskBoard.ID, newStatus, oldState, changedBy)

	return &DragDropResult{
		Success: true,
		Task:    taskBoard,
		Message: fmt.Sprintf("Task moved from '%s' to '%s'", oldStatus, newStatus),
	}, nil
}

// checkApprovalGate 物料申请审批闸门: 历史必须覆盖全部前置状态
func (s *TaskBoardService) checkApprovalGate(ctx context.Context, tx *gorm.DB, taskBoardID, currentStatus string) error {
	required := []string{
		entity.MaterialRequestStatusPending,
		entity.MaterialRequestStatusInPurchaseReq,
		entity.MaterialRequestStatusReceivedFromVendor,
		entity.MaterialRequestStatusSendForPickup,
		entity.MaterialRequestStatusReadyForPickup,
	}

	seen, err := s.repos.History.Statuses(ctx, tx, taskBoardID)
	if err != nil {
		return fmt.Errorf("load status history: %w", err)
	}

	var missing []string
	for _, status := range required {
		if !seen[status] && status != currentStatus {
			missing = append(missing, status)
		}
	}
	if len(missing) > 0 {
		return &WorkflowGateError{
			Message: "material request cannot be approved, missing required statuses",
			Missing: missing,
		}
	}
	return nil
}

// checkFinalStageCompleted 物料申请完结闸门: 同标题的商业发票任务必须已完结
func (s *TaskBoardService) checkFinalStageCompleted(ctx context.Context, tx *gorm.DB, title string) error {
	finalStage, err := registry.Lookup(entity.TaskTypeCommercialInvoice)
	if err != nil {
		return err
	}

	finalEntity, err := s.repos.Procurement.FindByTitle(ctx, tx, finalStage, title)
	if err != nil {
		return err
	}
	if finalEntity == nil {
		return &WorkflowGateError{Message: "final stage task not found for this workflow"}
	}

	finalBoard, err := s.repos.TaskBoard.FindByTask(ctx, tx, finalStage.TaskType, finalEntity.ID)
	if err != nil {
		return err
	}
	if finalBoard == nil || finalBoard.Status != entity.CommercialInvoiceStatusCompleted {
		return &WorkflowGateError{Message: "material request cannot be completed until final stage is completed"}
	}
	return nil
}

// createNextStageTask 自动创建下一阶段任务.
// 标题是跨阶段的关联键, 下一阶段已有同标题单据时跳过.
func (s *TaskBoardService) createNextStageTask(ctx context.Context, tx *gorm.DB, stage *registry.Stage, tb *entity.TaskBoard, procurement *entity.Procurement, changedBy string) error {
	next := stage.Next()
	if next == nil {
		return nil
	}

	existing, err := s.repos.Procurement.FindByTitle(ctx, tx, next, procurement.Title)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	now := time.Now()
	var assignedTo *string
	if len(tb.AssignedTo) > 0 {
		assignedTo = &tb.AssignedTo[0]
	}

	nextEntity := &entity.Procurement{
		Title:       procurement.Title,
		Description: fmt.Sprintf("Auto-created from %s: %s", stage.TaskType, procurement.Title),
		AssignedTo:  assignedTo,
		StartDate:   &now,
		EndDate:     procurement.EndDate,
		Status:      next.Pending,
	}
	if err := s.repos.Procurement.Create(ctx, tx, next, nextEntity); err != nil {
		return fmt.Errorf("create next stage %s: %w", next.Table, err)
	}

	nextBoard := &entity.TaskBoard{
		TaskID:       nextEntity.ID,
		TaskType:     next.TaskType,
		Title:        nextEntity.Title,
		Description:  nextEntity.Description,
		Status:       next.Pending,
		CurrentState: entity.TaskStateAutoCreated,
		AssignedTo:   tb.AssignedTo,
	}
	if err := s.repos.TaskBoard.Create(ctx, tx, nextBoard); err != nil {
		return fmt.Errorf("create next stage task board: %w", err)
	}

	// 标签随流程一起带到下一阶段, 落款换成本次操作人
	currentLabels, err := s.repos.Label.TaskLabels(ctx, tx, tb.ID)
	if err != nil {
		return err
	}
	for _, tl := range currentLabels {
		if err := s.repos.Label.AttachToTask(ctx, tx, nextBoard.ID, tl.LabelID, changedBy); err != nil {
			return fmt.Errorf("copy label: %w", err)
		}
	}

	history := &entity.TaskStatusHistory{
		TaskBoardID: nextBoard.ID,
		Status:      next.Pending,
		NewState:    entity.TaskStateAutoCreated,
		ChangedBy:   changedBy,
	}
	if err := s.repos.History.Append(ctx, tx, history); err != nil {
		return fmt.Errorf("append next stage history: %w", err)
	}

	log.Printf("[TaskBoard] 自动创建下一阶段任务: %s -> %s (title=%s)", stage.TaskType, next.TaskType, procurement.Title)
	return nil
}

// cascadeOriginCompletion 末阶段完结后把同标题的物料申请一并置为完结
func (s *TaskBoardService) cascadeOriginCompletion(ctx context.Context, tx *gorm.DB, stage *registry.Stage, procurement *entity.Procurement, changedBy string) error {
	if stage.TaskType != entity.TaskTypeCommercialInvoice {
		return nil
	}

	mrStage, err := registry.Lookup(entity.TaskTypeMaterialRequest)
	if err != nil {
		return err
	}

	mrEntity, err := s.repos.Procurement.FindByTitle(ctx, tx, mrStage, procurement.Title)
	if err != nil {
		return err
	}
	if mrEntity == nil {
		return nil
	}

	mrBoard, err := s.repos.TaskBoard.FindByTask(ctx, tx, mrStage.TaskType, mrEntity.ID)
	if err != nil {
		return err
	}
	if mrBoard == nil || mrBoard.Status == entity.MaterialRequestStatusCompleted {
		return nil
	}

	oldStatus := mrBoard.Status
	if err := s.repos.Procurement.UpdateStatus(ctx, tx, mrStage, mrEntity, entity.MaterialRequestStatusCompleted); err != nil {
		return fmt.Errorf("complete material request: %w", err)
	}
	if err := s.repos.TaskBoard.UpdateStatus(ctx, tx, mrBoard, entity.MaterialRequestStatusCompleted, mrBoard.CurrentState); err != nil {
		return fmt.Errorf("complete material request board: %w", err)
	}

	history := &entity.TaskStatusHistory{
		TaskBoardID: mrBoard.ID,
		OldStatus:   oldStatus,
		Status:      entity.MaterialRequestStatusCompleted,
		OldState:    mrBoard.CurrentState,
		NewState:    mrBoard.CurrentState,
		ChangedBy:   changedBy,
	}
	if err := s.repos.History.Append(ctx, tx, history); err != nil {
		return fmt.Errorf("append cascade history: %w", err)
	}

	log.Printf("[TaskBoard] 末阶段完结, 级联完结物料申请: title=%s", procurement.Title)
	return nil
}

// notifyAssigned 给被指派的用户发推送, 尽力而为
func (s *TaskBoardService) notifyAssigned(ctx context.Context, tb *entity.TaskBoard, userIDs []string) {
	if len(userIDs) == 0 {
		return
	}
	users, err := s.repos.User.FindByIDs(ctx, userIDs)
	if err != nil {
		log.Printf("[TaskBoard] 查询被指派用户失败: %v", err)
		return
	}
	for _, user := range users {
		if user.FCMToken == nil || *user.FCMToken == "" {
			continue
		}
		msg := push.Message{
			Token: *user.FCMToken,
			Title: "Task Assigned",
			Body:  fmt.Sprintf("You have been assigned to task: %s", tb.Title),
			Data: map[string]string{
				"task_id":   tb.ID,
				"task_type": tb.TaskType,
				"status":    tb.Status,
				"state":     tb.CurrentState,
			},
		}
		if err := s.sender.Send(ctx, msg); err != nil {
			log.Printf("[TaskBoard] 推送任务指派通知失败: user=%s err=%v", user.ID, err)
			continue
		}
		sse.PublishUserTaskUpdate(user.ID, tb.ID, "assigned")
	}
}

// clearKanbanCache 使看板缓存失效
func (s *TaskBoardService) clearKanbanCache(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	keys, err := s.rdb.Keys(ctx, kanbanCachePrefix+"*").Result()
	if err != nil {
		log.Printf("[TaskBoard] 查询看板缓存键失败: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[TaskBoard] 清理看板缓存失败: %v", err)
	}
}

func changedByOrSystem(assignedTo []string) string {
	if len(assignedTo) > 0 {
		return assignedTo[0]
	}
	return "system"
}
