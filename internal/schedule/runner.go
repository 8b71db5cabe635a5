package schedule

import (
	"context"
	"log/slog"
	"time"
)

// Runner 固定间隔执行任务, 启动时立即执行一次.
// 上一次没跑完不会重入, 超时的间隔直接跳过
type Runner struct {
	task     Task
	interval time.Duration
}

func NewRunner(task Task, interval time.Duration) *Runner {
	return &Runner{
		task:     task,
		interval: interval,
	}
}

// Start 阻塞直到 ctx 结束. 单次执行出错只记录日志
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("task scheduled", "task", r.task.Name(), "interval", r.interval)
	for {
		r.runOnce(ctx)
		select {
		case <-ctx.Done():
			slog.Info("task stopped", "task", r.task.Name())
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := r.task.Run(ctx); err != nil {
		slog.Error("task run failed", "task", r.task.Name(), "error", err, "elapsed", time.Since(start))
		return
	}
	slog.Debug("task run finished", "task", r.task.Name(), "elapsed", time.Since(start))
}
