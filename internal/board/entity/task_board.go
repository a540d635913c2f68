package entity

import (
	"time"

	"gorm.io/gorm"
)

// TaskBoard 看板任务卡片
// 每张卡片对应一条采购单据, 通过 TaskID + TaskType 定位具体表的行
type TaskBoard struct {
	ID           string         `json:"id" gorm:"primaryKey;size:36"`
	TaskID       string         `json:"task_id" gorm:"size:36;not null;index"`
	TaskType     string         `json:"task_type" gorm:"size:50;not null;index"`
	Title        string         `json:"title" gorm:"size:255;not null;index"`
	Description  string         `json:"description" gorm:"type:text"`
	Status       string         `json:"status" gorm:"size:50;default:pending;index"`
	CurrentState string         `json:"current_state" gorm:"size:50"`
	AssignedTo   StringArray    `json:"assigned_to" gorm:"type:jsonb"`
	StartDate    *time.Time     `json:"start_date"`
	EndDate      *time.Time     `json:"end_date"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	// 关联
	TaskLabels    []TaskLabel        `json:"task_labels,omitempty" gorm:"foreignKey:TaskBoardID"`
	AssignedUsers []TaskAssignedUser `json:"assigned_users,omitempty" gorm:"foreignKey:TaskBoardID"`
	History       []TaskStatusHistory `json:"history,omitempty" gorm:"foreignKey:TaskBoardID"`
}

func (TaskBoard) TableName() string {
	return "task_boards"
}

// 任务类型, 按采购流程先后排列
const (
	TaskTypeMaterialRequest   = "material_request"
	TaskTypePurchaseRequest   = "purchase_request"
	TaskTypePurchaseQuotes    = "purchase_quotes"
	TaskTypePurchaseOrder     = "purchase_order"
	TaskTypeProformaInvoice   = "proforma_invoice"
	TaskTypeContainer         = "container"
	TaskTypePackagingList     = "packaging_list"
	TaskTypeCommercialInvoice = "commercial_invoice"
)

// 卡片来源状态
const (
	TaskStateAutoCreated = "auto-created"
)

// TaskStatusHistory 任务状态流转记录, 只追加不修改
type TaskStatusHistory struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	TaskBoardID string    `json:"task_board_id" gorm:"size:36;not null;index"`
	OldStatus   string    `json:"old_status" gorm:"size:50"`
	Status      string    `json:"status" gorm:"size:50;not null"`
	OldState    string    `json:"old_state" gorm:"size:50"`
	NewState    string    `json:"new_state" gorm:"size:50"`
	ChangedBy   string    `json:"changed_by" gorm:"size:100"`
	CreatedAt   time.Time `json:"created_at"`
}

func (TaskStatusHistory) TableName() string {
	return "task_status_histories"
}
