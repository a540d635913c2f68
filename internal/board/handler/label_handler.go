package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-scm/internal/board/repository"
	"github.com/bitfantasy/nimo-scm/internal/board/service"
)

// LabelHandler 标签处理器
type LabelHandler struct {
	svc *service.LabelService
}

func NewLabelHandler(svc *service.LabelService) *LabelHandler {
	return &LabelHandler{svc: svc}
}

// ListLabels GET /labels
func (h *LabelHandler) ListLabels(c *gin.Context) {
	labels, err := h.svc.ListLabels(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, labels)
}

// CreateLabel POST /labels
func (h *LabelHandler) CreateLabel(c *gin.Context) {
	var req service.CreateLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	label, err := h.svc.CreateLabel(c.Request.Context(), &req)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Created(c, label)
}

// AttachLabelRequest 挂标签请求
type AttachLabelRequest struct {
	LabelID string `json:"label_id" binding:"required"`
}

// AttachLabel POST /tasks/:id/labels
func (h *LabelHandler) AttachLabel(c *gin.Context) {
	var req AttachLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	err := h.svc.AttachLabel(c.Request.Context(), c.Param("id"), req.LabelID, GetUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) || errors.Is(err, repository.ErrNotFound) {
			NotFound(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, nil)
}

// DetachLabel DELETE /tasks/:id/labels/:labelId
func (h *LabelHandler) DetachLabel(c *gin.Context) {
	err := h.svc.DetachLabel(c.Request.Context(), c.Param("id"), c.Param("labelId"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, nil)
}
