package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-scm/internal/board/registry"
	"github.com/bitfantasy/nimo-scm/internal/board/service"
)

// TaskBoardHandler 看板任务处理器
type TaskBoardHandler struct {
	svc *service.TaskBoardService
}

func NewTaskBoardHandler(svc *service.TaskBoardService) *TaskBoardHandler {
	return &TaskBoardHandler{svc: svc}
}

// respondError 把服务层错误映射为HTTP响应
func respondError(c *gin.Context, err error) {
	var unknownType *registry.UnknownTaskTypeError
	var invalidStatus *service.InvalidStatusError
	var gateErr *service.WorkflowGateError

	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		NotFound(c, err.Error())
	case errors.As(err, &unknownType),
		errors.As(err, &invalidStatus),
		errors.As(err, &gateErr):
		BadRequest(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// CreateTask POST /tasks
func (h *TaskBoardHandler) CreateTask(c *gin.Context) {
	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	detail, err := h.svc.CreateTask(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, detail)
}

// UpdateTaskStatus PUT /tasks/:id/status
// :id 是底层单据的ID
func (h *TaskBoardHandler) UpdateTaskStatus(c *gin.Context) {
	var req service.UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.ChangedBy == "" {
		req.ChangedBy = GetUserID(c)
	}

	result, err := h.svc.UpdateTaskStatus(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}

// DragDropRequest 拖拽更新请求
type DragDropRequest struct {
	NewStatus string `json:"new_status" binding:"required"`
	ChangedBy string `json:"changed_by"`
}

// DragDropStatusUpdate PUT /tasks/:id/drag-drop
// :id 是卡片ID
func (h *TaskBoardHandler) DragDropStatusUpdate(c *gin.Context) {
	var req DragDropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.ChangedBy == "" {
		req.ChangedBy = GetUserID(c)
	}

	result, err := h.svc.DragDropStatusUpdate(c.Request.Context(), c.Param("id"), req.NewStatus, req.ChangedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}

// GetKanbanBoard GET /kanban/:taskType
func (h *TaskBoardHandler) GetKanbanBoard(c *gin.Context) {
	labelIDs := c.QueryArray("label_id")

	board, err := h.svc.GetKanbanBoard(c.Request.Context(), c.Param("taskType"), labelIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, board)
}

// ExportKanbanBoard GET /kanban/:taskType/export
func (h *TaskBoardHandler) ExportKanbanBoard(c *gin.Context) {
	f, filename, err := h.svc.ExportKanbanBoard(c.Request.Context(), c.Param("taskType"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, err.Error())
	}
}

// GetAllTasks GET /tasks
func (h *TaskBoardHandler) GetAllTasks(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"task_type":   c.Query("task_type"),
		"status":      c.Query("status"),
		"assigned_to": c.Query("assigned_to"),
		"search":      c.Query("search"),
	}

	result, err := h.svc.GetAllTasks(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}

// GetTaskByID GET /tasks/:id
func (h *TaskBoardHandler) GetTaskByID(c *gin.Context) {
	detail, err := h.svc.GetTaskByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, detail)
}

// GetTaskAuditTrail GET /tasks/:id/audit-trail
func (h *TaskBoardHandler) GetTaskAuditTrail(c *gin.Context) {
	history, err := h.svc.GetTaskAuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, history)
}

// GetWorkflowAuditTrail GET /tasks/:id/workflow-trail
func (h *TaskBoardHandler) GetWorkflowAuditTrail(c *gin.Context) {
	trail, err := h.svc.GetWorkflowAuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, trail)
}
