package audit

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Middleware 为每个请求注入收集器, 请求结束后把事件汇总为一条审计日志投递到队列.
// 投递失败只记日志, 不影响业务响应.
func Middleware(queue *Queue, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rec := NewRecorder()
		c.Request = c.Request.WithContext(WithRecorder(c.Request.Context(), rec))

		c.Next()

		events := rec.Events()
		if len(events) == 0 {
			return
		}

		entry := BuildLog(RequestInfo{
			RequestID:  c.GetString("request_id"),
			Method:     c.Request.Method,
			Path:       c.FullPath(),
			UserID:     c.GetString("user_id"),
			StatusCode: c.Writer.Status(),
			DurationMs: time.Since(start).Milliseconds(),
		}, events)
		if err := queue.Enqueue(c.Request.Context(), entry); err != nil {
			logger.Warn("enqueue audit log failed",
				zap.String("request_id", entry.RequestID),
				zap.String("path", entry.Path),
				zap.Error(err))
		}
	}
}

// RequestInfo 一次请求的审计上下文
type RequestInfo struct {
	RequestID  string
	Method     string
	Path       string
	UserID     string
	StatusCode int
	DurationMs int64
}

// BuildLog 把一个请求内的全部事件折叠为一条审计日志:
// 快照脱敏后按表分组, 变更字段取每张表的去重并集.
func BuildLog(info RequestInfo, events []Event) Log {
	prevByTable := make(map[string]interface{})
	nextByTable := make(map[string]interface{})
	fieldsByTable := make(TableFields)

	for _, ev := range events {
		prev := SanitizeRecord(ev.Prev)
		next := SanitizeRecord(ev.Next)

		if prev != nil {
			prevByTable[ev.Table] = append(tableRows(prevByTable, ev.Table), prev)
		}
		if next != nil {
			nextByTable[ev.Table] = append(tableRows(nextByTable, ev.Table), next)
		}
		if prev != nil && next != nil {
			fieldsByTable[ev.Table] = mergeFields(fieldsByTable[ev.Table], DiffChangedFields(prev, next))
		}
	}

	return Log{
		ID:            uuid.New().String(),
		RequestID:     info.RequestID,
		UserID:        info.UserID,
		Method:        info.Method,
		Path:          info.Path,
		StatusCode:    info.StatusCode,
		Success:       info.StatusCode < 400,
		DurationMs:    info.DurationMs,
		PrevData:      JSONB(prevByTable),
		UpdateData:    JSONB(nextByTable),
		UpdatedFields: fieldsByTable,
	}
}

func tableRows(byTable map[string]interface{}, table string) []map[string]interface{} {
	rows, _ := byTable[table].([]map[string]interface{})
	return rows
}

// mergeFields 合并变更字段, 保持首次出现的顺序并去重
func mergeFields(existing, changed []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, f := range existing {
		seen[f] = true
	}
	for _, f := range changed {
		if !seen[f] {
			existing = append(existing, f)
			seen[f] = true
		}
	}
	return existing
}
