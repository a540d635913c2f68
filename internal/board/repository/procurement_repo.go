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
	"github.com/bitfantasy/nimo-scm/internal/board/registry"
)

// ProcurementRepository 采购单据仓库, 按阶段表通用读写.
// 所有写入都经过这里, 顺带登记审计快照.
type ProcurementRepository struct {
	db *gorm.DB
}

func NewProcurementRepository(db *gorm.DB) *ProcurementRepository {
	return &ProcurementRepository{db: db}
}

// FindByID 按ID查找单据
func (r *ProcurementRepository) FindByID(ctx context.Context, stage *registry.Stage, id string) (*entity.Procurement, error) {
	return r.findByID(ctx, r.db, stage, id, false)
}

// FindByIDForUpdate 按ID查找单据并加行锁, 必须在事务内调用
func (r *ProcurementRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, stage *registry.Stage, id string) (*entity.Procurement, error) {
	return r.findByID(ctx, tx, stage, id, true)
}

func (r *ProcurementRepository) findByID(ctx context.Context, db *gorm.DB, stage *registry.Stage, id string, lock bool) (*entity.Procurement, error) {
	query := db.WithContext(ctx).Table(stage.Table)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row entity.Procurement
	err := query.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindByTitle 按标题查找单据, 未找到返回nil（自动推进去重用）
func (r *ProcurementRepository) FindByTitle(ctx context.Context, db *gorm.DB, stage *registry.Stage, title string) (*entity.Procurement, error) {
	var row entity.Procurement
	err := db.WithContext(ctx).Table(stage.Table).Where("title = ?", title).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// FindByIDs 批量查找单据
func (r *ProcurementRepository) FindByIDs(ctx context.Context, stage *registry.Stage, ids []string) ([]entity.Procurement, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []entity.Procurement
	err := r.db.WithContext(ctx).Table(stage.Table).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

// Create 创建单据并登记审计
func (r *ProcurementRepository) Create(ctx context.Context, tx *gorm.DB, stage *registry.Stage, row *entity.Procurement) error {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	now := time.Now()
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := tx.WithContext(ctx).Table(stage.Table).Create(row).Error; err != nil {
		return err
	}
	audit.Capture(ctx, audit.OpCreate, stage.Table, row.ID, nil, row)
	return nil
}

// UpdateStatus 更新单据状态并登记审计
func (r *ProcurementRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, stage *registry.Stage, row *entity.Procurement, status string) error {
	prev := *row
	now := time.Now()
	err := tx.WithContext(ctx).Table(stage.Table).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{"status": status, "updated_at": now}).Error
	if err != nil {
		return err
	}
	row.Status = status
	row.UpdatedAt = now
	audit.Capture(ctx, audit.OpUpdate, stage.Table, row.ID, &prev, row)
	return nil
}

// UpdateFields 更新单据字段并登记审计
func (r *ProcurementRepository) UpdateFields(ctx context.Context, tx *gorm.DB, stage *registry.Stage, row *entity.Procurement, fields map[string]interface{}) error {
	prev := *row
	fields["updated_at"] = time.Now()
	err := tx.WithContext(ctx).Table(stage.Table).
		Where("id = ?", row.ID).
		Updates(fields).Error
	if err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Table(stage.Table).Where("id = ?", row.ID).First(row).Error; err != nil {
		return err
	}
	audit.Capture(ctx, audit.OpUpdate, stage.Table, row.ID, &prev, row)
	return nil
}
