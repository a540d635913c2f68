package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitfantasy/nimo-scm/internal/audit"
	"github.com/bitfantasy/nimo-scm/internal/board/entity"
)

// TaskBoardRepository 看板任务仓库
type TaskBoardRepository struct {
	db *gorm.DB
}

func NewTaskBoardRepository(db *gorm.DB) *TaskBoardRepository {
	return &TaskBoardRepository{db: db}
}

// FindByID 按卡片ID查找
func (r *TaskBoardRepository) FindByID(ctx context.Context, id string) (*entity.TaskBoard, error) {
	var tb entity.TaskBoard
	err := r.db.WithContext(ctx).
		Preload("TaskLabels.Label").
		Preload("AssignedUsers.User").
		Where("id = ?", id).
		First(&tb).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tb, nil
}

// FindByIDForUpdate 按卡片ID查找并加行锁
func (r *TaskBoardRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*entity.TaskBoard, error) {
	var tb entity.TaskBoard
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&tb).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tb, nil
}

// FindByTaskIDForUpdate 按底层单据ID查找卡片并加行锁
func (r *TaskBoardRepository) FindByTaskIDForUpdate(ctx context.Context, tx *gorm.DB, taskID string) (*entity.TaskBoard, error) {
	var tb entity.TaskBoard
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("task_id = ?", taskID).
		First(&tb).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tb, nil
}

// FindByTask 按任务类型和底层单据ID查找卡片, 未找到返回nil
func (r *TaskBoardRepository) FindByTask(ctx context.Context, db *gorm.DB, taskType, taskID string) (*entity.TaskBoard, error) {
	var tb entity.TaskBoard
	err := db.WithContext(ctx).
		Where("task_type = ? AND task_id = ?", taskType, taskID).
		First(&tb).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tb, nil
}

// Create 创建卡片并登记审计
func (r *TaskBoardRepository) Create(ctx context.Context, tx *gorm.DB, tb *entity.TaskBoard) error {
	if tb.ID == "" {
		tb.ID = uuid.New().String()
	}
	if err := tx.WithContext(ctx).Create(tb).Error; err != nil {
		return err
	}
	audit.Capture(ctx, audit.OpCreate, entity.TaskBoard{}.TableName(), tb.ID, nil, tb)
	return nil
}

// UpdateStatus 更新卡片状态与来源标记并登记审计
func (r *TaskBoardRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, tb *entity.TaskBoard, status, currentState string) error {
	prev := *tb
	now := time.Now()
	err := tx.WithContext(ctx).Model(&entity.TaskBoard{}).
		Where("id = ?", tb.ID).
		Updates(map[string]interface{}{
			"status":        status,
			"current_state": currentState,
			"updated_at":    now,
		}).Error
	if err != nil {
		return err
	}
	tb.Status = status
	tb.CurrentState = currentState
	tb.UpdatedAt = now
	audit.Capture(ctx, audit.OpUpdate, entity.TaskBoard{}.TableName(), tb.ID, &prev, tb)
	return nil
}

// UpdateFields 更新卡片字段并登记审计
func (r *TaskBoardRepository) UpdateFields(ctx context.Context, tx *gorm.DB, tb *entity.TaskBoard, fields map[string]interface{}) error {
	prev := *tb
	fields["updated_at"] = time.Now()
	err := tx.WithContext(ctx).Model(&entity.TaskBoard{}).
		Where("id = ?", tb.ID).
		Updates(fields).Error
	if err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Where("id = ?", tb.ID).First(tb).Error; err != nil {
		return err
	}
	audit.Capture(ctx, audit.OpUpdate, entity.TaskBoard{}.TableName(), tb.ID, &prev, tb)
	return nil
}

// ListByType 按任务类型取全部卡片（看板聚合用）, 可按标签过滤
func (r *TaskBoardRepository) ListByType(ctx context.Context, taskType string, labelIDs []string) ([]entity.TaskBoard, error) {
	query := r.db.WithContext(ctx).
		Preload("TaskLabels.Label").
		Preload("AssignedUsers.User").
		Where("task_type = ?", taskType)

	if len(labelIDs) > 0 {
		query = query.Where("id IN (?)",
			r.db.Model(&entity.TaskLabel{}).Select("task_board_id").Where("label_id IN ?", labelIDs))
	}

	var items []entity.TaskBoard
	err := query.Order("created_at DESC").Find(&items).Error
	return items, err
}

// List 分页查询卡片
func (r *TaskBoardRepository) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.TaskBoard, int64, error) {
	var items []entity.TaskBoard
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.TaskBoard{})

	if taskType := filters["task_type"]; taskType != "" {
		query = query.Where("task_type = ?", taskType)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if assignedTo := filters["assigned_to"]; assignedTo != "" {
		query = query.Where("id IN (?)",
			r.db.Model(&entity.TaskAssignedUser{}).Select("task_board_id").Where("user_id = ?", assignedTo))
	}
	if search := filters["search"]; search != "" {
		query = query.Where("title ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("TaskLabels.Label").
		Preload("AssignedUsers.User").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}
