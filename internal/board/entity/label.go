package entity

import "time"

// Label 任务标签
type Label struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Color     string    `json:"color" gorm:"size:20"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Label) TableName() string {
	return "labels"
}

// TaskLabel 任务与标签的关联
type TaskLabel struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	TaskBoardID string    `json:"task_board_id" gorm:"size:36;not null;uniqueIndex:idx_task_label"`
	LabelID     string    `json:"label_id" gorm:"size:36;not null;uniqueIndex:idx_task_label"`
	ChangedBy   string    `json:"changed_by" gorm:"size:100"`
	CreatedAt   time.Time `json:"created_at"`

	Label *Label `json:"label,omitempty" gorm:"foreignKey:LabelID"`
}

func (TaskLabel) TableName() string {
	return "task_labels"
}

// TaskAssignedUser 任务与负责人的关联
type TaskAssignedUser struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	TaskBoardID string    `json:"task_board_id" gorm:"size:36;not null;uniqueIndex:idx_task_user"`
	UserID      string    `json:"user_id" gorm:"size:36;not null;uniqueIndex:idx_task_user"`
	CreatedAt   time.Time `json:"created_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (TaskAssignedUser) TableName() string {
	return "task_assigned_users"
}
