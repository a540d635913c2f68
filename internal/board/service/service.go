package service

import (
	"gorm.io/gorm"

	"github.com/bitfantasy/nimo-scm/internal/board/repository"
)

// Services 看板服务集合
type Services struct {
	TaskBoard *TaskBoardService
	Label     *LabelService
}

// NewServices 创建看板服务集合
func NewServices(db *gorm.DB, repos *repository.Repositories) *Services {
	return &Services{
		TaskBoard: NewTaskBoardService(db, repos),
		Label:     NewLabelService(db, repos),
	}
}
