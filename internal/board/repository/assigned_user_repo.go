package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bitfantasy/nimo-scm/internal/audit"
	"github.com/bitfantasy/nimo-scm/internal/board/entity"
)

// AssignedUserRepository 任务负责人关联仓库
type AssignedUserRepository struct {
	db *gorm.DB
}

func NewAssignedUserRepository(db *gorm.DB) *AssignedUserRepository {
	return &AssignedUserRepository{db: db}
}

// Assign 为卡片指派负责人, 已存在则跳过
func (r *AssignedUserRepository) Assign(ctx context.Context, tx *gorm.DB, taskBoardID, userID string) error {
	var existing entity.TaskAssignedUser
	err := tx.WithContext(ctx).
		Where("task_board_id = ? AND user_id = ?", taskBoardID, userID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	au := entity.TaskAssignedUser{
		ID:          uuid.New().String(),
		TaskBoardID: taskBoardID,
		UserID:      userID,
	}
	if err := tx.WithContext(ctx).Create(&au).Error; err != nil {
		return err
	}
	audit.Capture(ctx, audit.OpCreate, entity.TaskAssignedUser{}.TableName(), au.ID, nil, &au)
	return nil
}

// ReplaceForTask 整体替换卡片的负责人
func (r *AssignedUserRepository) ReplaceForTask(ctx context.Context, tx *gorm.DB, taskBoardID string, userIDs []string) error {
	var existing []entity.TaskAssignedUser
	if err := tx.WithContext(ctx).Where("task_board_id = ?", taskBoardID).Find(&existing).Error; err != nil {
		return err
	}
	for i := range existing {
		if err := tx.WithContext(ctx).Delete(&existing[i]).Error; err != nil {
			return err
		}
		audit.Capture(ctx, audit.OpDelete, entity.TaskAssignedUser{}.TableName(), existing[i].ID, &existing[i], nil)
	}
	for _, userID := range userIDs {
		au := entity.TaskAssignedUser{
			ID:          uuid.New().String(),
			TaskBoardID: taskBoardID,
			UserID:      userID,
		}
		if err := tx.WithContext(ctx).Create(&au).Error; err != nil {
			return err
		}
		audit.Capture(ctx, audit.OpCreate, entity.TaskAssignedUser{}.TableName(), au.ID, nil, &au)
	}
	return nil
}

// Unassign 取消指派
func (r *AssignedUserRepository) Unassign(ctx context.Context, tx *gorm.DB, taskBoardID, userID string) error {
	var existing entity.TaskAssignedUser
	err := tx.WithContext(ctx).
		Where("task_board_id = ? AND user_id = ?", taskBoardID, userID).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := tx.WithContext(ctx).Delete(&existing).Error; err != nil {
		return err
	}
	audit.Capture(ctx, audit.OpDelete, entity.TaskAssignedUser{}.TableName(), existing.ID, &existing, nil)
	return nil
}
