package audit

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONB JSONB类型
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// TableFields 按表名分组的变更字段列表, 以JSONB存储
type TableFields map[string][]string

func (f TableFields) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

func (f *TableFields) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan TableFields: %v", value)
	}
	return json.Unmarshal(bytes, f)
}

// Log 审计日志行, 每个请求一行, 快照按表分组. 由后台工作协程异步写入.
type Log struct {
	ID            string      `json:"id" gorm:"primaryKey;size:36"`
	RequestID     string      `json:"request_id" gorm:"size:64;index"`
	UserID        string      `json:"user_id" gorm:"size:36;index"`
	Method        string      `json:"method" gorm:"size:10"`
	Path          string      `json:"path" gorm:"size:500"`
	StatusCode    int         `json:"status_code"`
	Success       bool        `json:"success"`
	DurationMs    int64       `json:"duration_ms"`
	PrevData      JSONB       `json:"prev_data" gorm:"type:jsonb"`
	UpdateData    JSONB       `json:"update_data" gorm:"type:jsonb"`
	UpdatedFields TableFields `json:"updated_fields" gorm:"type:jsonb"`
	CreatedAt     time.Time   `json:"created_at"`
}

func (Log) TableName() string {
	return "api_audit_logs"
}
