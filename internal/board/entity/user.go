package entity

import (
	"time"

	"gorm.io/gorm"
)

// User 用户
type User struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	Name      string         `json:"name" gorm:"size:100;not null"`
	Email     string         `json:"email" gorm:"size:200;uniqueIndex;not null"`
	Password  string         `json:"-" gorm:"size:200"`
	Roles     StringArray    `json:"roles" gorm:"type:jsonb"`
	FCMToken  *string        `json:"fcm_token" gorm:"size:500"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
