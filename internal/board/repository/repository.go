package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 看板仓库集合
type Repositories struct {
	TaskBoard    *TaskBoardRepository
	Procurement  *ProcurementRepository
	History      *HistoryRepository
	Label        *LabelRepository
	AssignedUser *AssignedUserRepository
	User         *UserRepository
}

// NewRepositories 创建看板仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		TaskBoard:    NewTaskBoardRepository(db),
		Procurement:  NewProcurementRepository(db),
		History:      NewHistoryRepository(db),
		Label:        NewLabelRepository(db),
		AssignedUser: NewAssignedUserRepository(db),
		User:         NewUserRepository(db),
	}
}
