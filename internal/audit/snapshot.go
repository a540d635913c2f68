package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Target 一组要快照的行: 表名 + 主键列表
type Target struct {
	Table string
	IDs   []string
}

// Collector 事务内的显式快照采集器, 与请求级 Recorder 相互独立.
// 调用方在事务开始后登记目标并取前置快照, 提交前取后置快照,
// 提交后把分组结果发到可重试队列, 审计落库与请求延迟解耦.
type Collector struct {
	tx    *gorm.DB
	queue *Queue
	info  RequestInfo

	targets []Target
	prev    map[string][]map[string]interface{}
	next    map[string][]map[string]interface{}
}

func NewCollector(tx *gorm.DB, queue *Queue, info RequestInfo) *Collector {
	return &Collector{
		tx:    tx,
		queue: queue,
		info:  info,
		prev:  make(map[string][]map[string]interface{}),
		next:  make(map[string][]map[string]interface{}),
	}
}

// SnapshotBefore 登记目标并取变更前快照, 在事务内任何写入之前调用
func (c *Collector) SnapshotBefore(ctx context.Context, targets []Target) error {
	c.targets = targets
	return c.capture(ctx, c.prev)
}

// SnapshotAfter 取变更后快照, 在事务提交前调用
func (c *Collector) SnapshotAfter(ctx context.Context) error {
	return c.capture(ctx, c.next)
}

// Emit 把分组快照投递到队列, 在事务提交后调用
func (c *Collector) Emit(ctx context.Context) error {
	prevByTable := make(map[string]interface{}, len(c.prev))
	nextByTable := make(map[string]interface{}, len(c.next))
	fieldsByTable := make(TableFields)

	for table, rows := range c.prev {
		prevByTable[table] = sanitizeRows(rows)
	}
	for table, rows := range c.next {
		nextByTable[table] = sanitizeRows(rows)
	}
	for table := range c.prev {
		fields := diffRowsByID(c.prev[table], c.next[table])
		if len(fields) > 0 {
			fieldsByTable[table] = fields
		}
	}

	entry := Log{
		ID:            uuid.New().String(),
		RequestID:     c.info.RequestID,
		UserID:        c.info.UserID,
		Method:        c.info.Method,
		Path:          c.info.Path,
		StatusCode:    c.info.StatusCode,
		Success:       c.info.StatusCode < 400,
		DurationMs:    c.info.DurationMs,
		PrevData:      JSONB(prevByTable),
		UpdateData:    JSONB(nextByTable),
		UpdatedFields: fieldsByTable,
	}
	return c.queue.Enqueue(ctx, entry)
}

func (c *Collector) capture(ctx context.Context, storage map[string][]map[string]interface{}) error {
	for _, target := range c.targets {
		if len(target.IDs) == 0 {
			continue
		}
		var rows []map[string]interface{}
		err := c.tx.WithContext(ctx).Table(target.Table).
			Where("id IN ?", target.IDs).
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", target.Table, err)
		}
		storage[target.Table] = append(storage[target.Table], rows...)
	}
	return nil
}

func sanitizeRows(rows []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		out[i] = SanitizeRecord(row)
	}
	return out
}

// diffRowsByID 按主键配对前后快照, 返回该表变更字段的去重并集
func diffRowsByID(prev, next []map[string]interface{}) []string {
	nextByID := make(map[interface{}]map[string]interface{}, len(next))
	for _, row := range next {
		if id, ok := row["id"]; ok {
			nextByID[id] = row
		}
	}

	var fields []string
	for _, row := range prev {
		id, ok := row["id"]
		if !ok {
			continue
		}
		after, ok := nextByID[id]
		if !ok {
			continue
		}
		fields = mergeFields(fields, DiffChangedFields(SanitizeRecord(row), SanitizeRecord(after)))
	}
	return fields
}
