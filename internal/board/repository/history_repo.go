package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bitfantasy/nimo-scm/internal/audit"
	"github.com/bitfantasy/nimo-scm/internal/board/entity"
)

// HistoryRepository 状态流转记录仓库, 只追加
type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append 追加一条流转记录
func (r *HistoryRepository) Append(ctx context.Context, tx *gorm.DB, h *entity.TaskStatusHistory) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if err := tx.WithContext(ctx).Create(h).Error; err != nil {
		return err
	}
	audit.Capture(ctx, audit.OpCreate, entity.TaskStatusHistory{}.TableName(), h.ID, nil, h)
	return nil
}

// ListByTaskBoard 取某张卡片的流转记录
func (r *HistoryRepository) ListByTaskBoard(ctx context.Context, taskBoardID string, ascending bool) ([]entity.TaskStatusHistory, error) {
	order := "created_at DESC"
	if ascending {
		order = "created_at ASC"
	}
	var items []entity.TaskStatusHistory
	err := r.db.WithContext(ctx).
		Where("task_board_id = ?", taskBoardID).
		Order(order).
		Find(&items).Error
	return items, err
}

// ListByTaskBoards 批量取多张卡片的流转记录
func (r *HistoryRepository) ListByTaskBoards(ctx context.Context, taskBoardIDs []string) ([]entity.TaskStatusHistory, error) {
	if len(taskBoardIDs) == 0 {
		return nil, nil
	}
	var items []entity.TaskStatusHistory
	err := r.db.WithContext(ctx).
		Where("task_board_id IN ?", taskBoardIDs).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// Statuses 某张卡片历史上出现过的全部状态（审批闸门用）
func (r *HistoryRepository) Statuses(ctx context.Context, tx *gorm.DB, taskBoardID string) (map[string]bool, error) {
	var statuses []string
	err := tx.WithContext(ctx).
		Model(&entity.TaskStatusHistory{}).
		Where("task_board_id = ?", taskBoardID).
		Distinct().
		Pluck("status", &statuses).Error
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		seen[s] = true
	}
	return seen, nil
}
