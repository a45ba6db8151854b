package characterize

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"curationvault/pkg/core"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const DefaultQueueKey = "cv:characterize"

// RedisQueue 把任务 CBOR 编码后推进 Redis List
// 上传的 cv-server 和执行任务的 worker 可以是不同进程
type RedisQueue struct {
	client   *redis.Client
	key      string
	logger   *slog.Logger
	inflight sync.WaitGroup
}

func NewRedisQueue(client *redis.Client, key string, logger *slog.Logger) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisQueue{
		client: client,
		key:    key,
		logger: logger.With("component", "characterize-queue", "queue", key),
	}
}

// Dispatch 在后台 goroutine 里 LPUSH，调用方不等待结果
func (q *RedisQueue) Dispatch(job Job) {
	q.inflight.Add(1)
	go func() {
		defer q.inflight.Done()

		data, err := core.EncodeObject(job)
		if err != nil {
			q.logger.Error("failed to encode job", "file_id", job.FileID, "error", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
			q.logger.Warn("failed to enqueue characterization job",
				"file_id", job.FileID, "sequence", job.Sequence, "error", err)
		}
	}()
}

// Flush 等待所有已派发的 LPUSH 完成 (关闭前调用)
func (q *RedisQueue) Flush() {
	q.inflight.Wait()
}

// Run 启动 workers 个 BRPOP 消费者，直到 ctx 结束
func (q *RedisQueue) Run(ctx context.Context, workers int, h Handler) error {
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for ctx.Err() == nil {
				job, ok := q.pop(ctx)
				if !ok {
					continue
				}
				handle(ctx, q.logger, h, job)
			}
			return nil
		})
	}
	return g.Wait()
}

func (q *RedisQueue) pop(ctx context.Context) (Job, bool) {
	var job Job
	res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
	if errors.Is(err, redis.Nil) || ctx.Err() != nil {
		return job, false
	}
	if err != nil {
		q.logger.Warn("failed to pop job", "error", err)
		// Redis 暂时不可用，避免空转
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
		return job, false
	}

	// res = [key, value]
	if err := core.DecodeObject([]byte(res[1]), &job); err != nil {
		q.logger.Error("dropping undecodable job", "error", err)
		return job, false
	}
	return job, true
}
