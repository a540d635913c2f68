package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis队列键
const (
	QueueKey      = "audit:logs"
	DeadLetterKey = "audit:logs:dead"
)

// Payload 队列消息, 带重试计数
type Payload struct {
	Log      Log `json:"log"`
	Attempts int `json:"attempts"`
}

// Queue 审计日志的Redis队列
type Queue struct {
	rdb *redis.Client
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Enqueue 投递一条待落库的审计日志
func (q *Queue) Enqueue(ctx context.Context, entry Log) error {
	return q.push(ctx, QueueKey, Payload{Log: entry})
}

// Requeue 失败重试时重新入队
func (q *Queue) Requeue(ctx context.Context, payload Payload) error {
	return q.push(ctx, QueueKey, payload)
}

// DeadLetter 重试耗尽后转入死信队列
func (q *Queue) DeadLetter(ctx context.Context, payload Payload) error {
	return q.push(ctx, DeadLetterKey, payload)
}

func (q *Queue) push(ctx context.Context, key string, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	if err := q.rdb.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("push audit payload: %w", err)
	}
	return nil
}

// Dequeue 阻塞取出一条消息, 超时返回 (nil, nil)
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Payload, error) {
	res, err := q.rdb.BRPop(ctx, timeout, QueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop audit payload: %w", err)
	}
	// BRPop 返回 [key, value]
	var payload Payload
	if err := json.Unmarshal([]byte(res[1]), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal audit payload: %w", err)
	}
	return &payload, nil
}

// Len 当前队列长度
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, QueueKey).Result()
}
