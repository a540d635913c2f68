package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-scm/internal/board/service"
)

// Handlers 看板处理器集合
type Handlers struct {
	TaskBoard *TaskBoardHandler
	Label     *LabelHandler
}

// NewHandlers 创建看板处理器集合
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		TaskBoard: NewTaskBoardHandler(services.TaskBoard),
		Label:     NewLabelHandler(services.Label),
	}
}

// RegisterRoutes 注册看板路由
func (h *Handlers) RegisterRoutes(rg *gin.RouterGroup) {
	tasks := rg.Group("/tasks")
	{
		tasks.POST("", h.TaskBoard.CreateTask)
		tasks.GET("", h.TaskBoard.GetAllTasks)
		tasks.GET("/:id", h.TaskBoard.GetTaskByID)
		tasks.PUT("/:id/status", h.TaskBoard.UpdateTaskStatus)
		tasks.PUT("/:id/drag-drop", h.TaskBoard.DragDropStatusUpdate)
		tasks.GET("/:id/audit-trail", h.TaskBoard.GetTaskAuditTrail)
		tasks.GET("/:id/workflow-trail", h.TaskBoard.GetWorkflowAuditTrail)
		tasks.POST("/:id/labels", h.Label.AttachLabel)
		tasks.DELETE("/:id/labels/:labelId", h.Label.DetachLabel)
	}

	kanban := rg.Group("/kanban")
	{
		kanban.GET("/:taskType", h.TaskBoard.GetKanbanBoard)
		kanban.GET("/:taskType/export", h.TaskBoard.ExportKanbanBoard)
	}

	labels := rg.Group("/labels")
	{
		labels.GET("", h.Label.ListLabels)
		labels.POST("", h.Label.CreateLabel)
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
