package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bitfantasy/nimo-scm/internal/audit"
	"github.com/bitfantasy/nimo-scm/internal/board/entity"
)

// LabelRepository 标签仓库
type LabelRepository struct {
	db *gorm.DB
}

func NewLabelRepository(db *gorm.DB) *LabelRepository {
	return &LabelRepository{db: db}
}

// FindAll 全部标签
func (r *LabelRepository) FindAll(ctx context.Context) ([]entity.Label, error) {
	var labels []entity.Label
	err := r.db.WithContext(ctx).Order("name ASC").Find(&labels).Error
	return labels, err
}

// FindByID 按ID查找标签
func (r *LabelRepository) FindByID(ctx context.Context, id string) (*entity.Label, error) {
	var label entity.Label
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&label).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &label, nil
}

// Create 创建标签
func (r *LabelRepository) Create(ctx context.Context, label *entity.Label) error {
	if label.ID == "" {
		label.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(label).Error; err != nil {
		return err
	}
	audit.Capture(ctx, audit.OpCreate, entity.Label{}.TableName(), label.ID, nil, label)
	return nil
}

// TaskLabels 取某张卡片的全部标签关联
func (r *LabelRepository) TaskLabels(ctx context.Context, db *gorm.DB, taskBoardID string) ([]entity.TaskLabel, error) {
	var items []entity.TaskLabel
	err := db.WithContext(ctx).
		Preload("Label").
		Where("task_board_id = ?", taskBoardID).
		Find(&items).Error
	return items, err
}

// AttachToTask 为卡片挂标签, 已存在则跳过
func (r *LabelRepository) AttachToTask(ctx context.Context, tx *gorm.DB, taskBoardID, labelID, changedBy string) error {
	var existing entity.TaskLabel
	err := tx.WithContext(ctx).
		Where("task_board_id = ? AND label_id = ?", taskBoardID, labelID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	tl := entity.TaskLabel{
		ID:          uuid.New().String(),
		TaskBoardID: taskBoardID,
		LabelID:     labelID,
		ChangedBy:   changedBy,
	}
	if err := tx.WithContext(ctx).Create(&tl).Error; err != nil {
		return err
	}
	audit.Capture(ctx, audit.OpCreate, entity.TaskLabel{}.TableName(), tl.ID, nil, &tl)
	return nil
}

// DetachFromTask 摘掉卡片上的标签
func (r *LabelRepository) DetachFromTask(ctx context.Context, tx *gorm.DB, taskBoardID, labelID string) error {
	var existing entity.TaskLabel
	err := tx.WithContext(ctx).
		Where("task_board_id = ? AND label_id = ?", taskBoardID, labelID).
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
	audit.Capture(ctx, audit.OpDelete, entity.TaskLabel{}.TableName(), existing.ID, &existing, nil)
	return nil
}
