package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bitfantasy/nimo-scm/internal/board/entity"
	"github.com/bitfantasy/nimo-scm/internal/board/repository"
)

// LabelService 标签服务
type LabelService struct {
	db    *gorm.DB
	repos *repository.Repositories
}

func NewLabelService(db *gorm.DB, repos *repository.Repositories) *LabelService {
	return &LabelService{db: db, repos: repos}
}

// ListLabels 全部标签
func (s *LabelService) ListLabels(ctx context.Context) ([]entity.Label, error) {
	return s.repos.Label.FindAll(ctx)
}

// CreateLabelRequest 创建标签请求
type CreateLabelRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

// CreateLabel 创建标签
func (s *LabelService) CreateLabel(ctx context.Context, req *CreateLabelRequest) (*entity.Label, error) {
	label := &entity.Label{
		Name:  req.Name,
		Color: req.Color,
	}
	if err := s.repos.Label.Create(ctx, label); err != nil {
		return nil, err
	}
	return label, nil
}

// AttachLabel 为卡片挂标签
func (s *LabelService) AttachLabel(ctx context.Context, taskBoardID, labelID, changedBy string) error {
	if _, err := s.repos.TaskBoard.FindByID(ctx, taskBoardID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	if _, err := s.repos.Label.FindByID(ctx, labelID); err != nil {
		return err
	}
	return s.repos.Label.AttachToTask(ctx, s.db, taskBoardID, labelID, changedBy)
}

// DetachLabel 摘掉卡片上的标签
func (s *LabelService) DetachLabel(ctx context.Context, taskBoardID, labelID string) error {
	return s.repos.Label.DetachFromTask(ctx, s.db, taskBoardID, labelID)
}
