// Package audit 请求级审计采集: 仓储层在写路径上登记前后快照,
// 中间件在请求结束时汇总为审计日志并投递到异步队列落库.
package audit

import (
	"context"
	"sync"
)

// 写操作类型
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Event 一次持久化写操作的前后快照
type Event struct {
	Op       string
	Table    string
	RecordID string
	Prev     map[string]interface{}
	Next     map[string]interface{}
}

// Recorder 单个请求内的审计事件收集器
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record 登记一次写操作, nil 接收者直接忽略
func (r *Recorder) Record(ev Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events 返回已登记事件的副本
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

type ctxKey struct{}

// WithRecorder 把收集器挂到上下文
func WithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// FromContext 取出上下文里的收集器, 没有时返回 nil
func FromContext(ctx context.Context) *Recorder {
	r, _ := ctx.Value(ctxKey{}).(*Recorder)
	return r
}
