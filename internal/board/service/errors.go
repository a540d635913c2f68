package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTaskNotFound 任务不存在
	ErrTaskNotFound = errors.New("task not found")
)

// InvalidStatusError 状态不属于该任务类型的枚举
type InvalidStatusError struct {
	Status   string
	TaskType string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status '%s' for task type '%s'", e.Status, e.TaskType)
}

// WorkflowGateError 流程闸门不满足, Missing 列出缺失的状态
type WorkflowGateError struct {
	Message string
	Missing []string
}

func (e *WorkflowGateError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Missing, ", "))
	}
	return e.Message
}
