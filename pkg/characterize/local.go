package characterize

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const DefaultBuffer = 256

// LocalQueue 是进程内的任务队列
// 缓冲区满时直接丢弃任务，不会阻塞上传路径
type LocalQueue struct {
	jobs    chan Job
	dropped atomic.Int64
	logger  *slog.Logger
}

func NewLocalQueue(buffer int, logger *slog.Logger) *LocalQueue {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalQueue{
		jobs:   make(chan Job, buffer),
		logger: logger.With("component", "characterize-queue"),
	}
}

func (q *LocalQueue) Dispatch(job Job) {
	select {
	case q.jobs <- job:
	default:
		q.dropped.Add(1)
		q.logger.Warn("queue full, dropping characterization job",
			"file_id", job.FileID, "sequence", job.Sequence)
	}
}

// Dropped 返回因为队列满而被丢弃的任务数
func (q *LocalQueue) Dropped() int64 {
	return q.dropped.Load()
}

// Run 启动 workers 个消费者，直到 ctx 结束
func (q *LocalQueue) Run(ctx context.Context, workers int, h Handler) error {
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case job := <-q.jobs:
					handle(ctx, q.logger, h, job)
				}
			}
		})
	}
	return g.Wait()
}

func handle(ctx context.Context, logger *slog.Logger, h Handler, job Job) {
	if err := h(ctx, job); err != nil {
		logger.Error("characterization failed",
			"file_id", job.FileID, "sequence", job.Sequence, "error", err)
	}
}
