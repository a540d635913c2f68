package audit

import (
	"context"
	"encoding/json"
)

// ToMap 把实体结构体按 JSON 字段转换为快照
func ToMap(v interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// Capture 仓储层写路径的统一入口: 取出上下文里的收集器并登记前后快照.
// 上下文没有收集器时(如后台任务)什么也不做.
func Capture(ctx context.Context, op, table, recordID string, prev, next interface{}) {
	rec := FromContext(ctx)
	if rec == nil {
		return
	}
	rec.Record(Event{
		Op:       op,
		Table:    table,
		RecordID: recordID,
		Prev:     ToMap(prev),
		Next:     ToMap(next),
	})
}
