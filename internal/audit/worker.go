package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 重试策略: 最多5次, 指数退避, 基础间隔2秒
const (
	MaxAttempts = 5
	BackoffBase = 2 * time.Second
)

// Worker 审计日志落库工作协程
type Worker struct {
	db     *gorm.DB
	queue  *Queue
	logger *zap.Logger
}

func NewWorker(db *gorm.DB, queue *Queue, logger *zap.Logger) *Worker {
	return &Worker{db: db, queue: queue, logger: logger}
}

// Run 循环消费队列直到上下文取消
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		payload, err := w.queue.Dequeue(ctx, time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("dequeue audit payload failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if payload == nil {
			continue
		}
		w.Process(ctx, *payload)
	}
}

// Process 写入一条审计日志, 失败按指数退避重试, 重试耗尽转死信
func (w *Worker) Process(ctx context.Context, payload Payload) {
	if err := w.db.WithContext(ctx).Create(&payload.Log).Error; err != nil {
		payload.Attempts++
		if payload.Attempts >= MaxAttempts {
			w.logger.Error("audit log write failed, moving to dead letter",
				zap.String("request_id", payload.Log.RequestID),
				zap.Int("attempts", payload.Attempts),
				zap.Error(err))
			if dlErr := w.queue.DeadLetter(ctx, payload); dlErr != nil {
				w.logger.Error("dead letter push failed", zap.Error(dlErr))
			}
			return
		}

		delay := BackoffBase << (payload.Attempts - 1)
		w.logger.Warn("audit log write failed, will retry",
			zap.String("request_id", payload.Log.RequestID),
			zap.Int("attempts", payload.Attempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		time.AfterFunc(delay, func() {
			if err := w.queue.Requeue(context.Background(), payload); err != nil {
				w.logger.Error("requeue audit payload failed", zap.Error(err))
			}
		})
	}
}
