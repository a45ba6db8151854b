package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"curationvault/pkg/types"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 只有持有者 (token 相同) 才能释放或续期
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// Redis 是跨进程的租约锁: SET key token NX PX ttl
// 多个 cv-server / worker 实例共享同一个 Redis 时使用
type Redis struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	ttl     time.Duration
	retry   time.Duration
	logger  *slog.Logger
}

// NewRedis 创建 Redis 锁。ttl 低于 MinTTL 时按 MinTTL 处理，logger 为 nil 时使用 slog.Default()
func NewRedis(client *redis.Client, cfg Config, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client:  client,
		prefix:  "cv:lock:",
		timeout: orDefault(cfg.Timeout, DefaultTimeout),
		ttl:     max(orDefault(cfg.TTL, DefaultTTL), MinTTL),
		retry:   orDefault(cfg.RetryInterval, DefaultRetryInterval),
		logger:  logger.With("component", "redis-lock"),
	}
}

func (r *Redis) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	k := r.prefix + key
	token := uuid.NewString()

	if err := r.acquire(ctx, k, token); err != nil {
		return err
	}

	// 操作比 ttl 长时续期，避免租约中途过期
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.keepAlive(k, token, stop)
	}()

	defer func() {
		close(stop)
		<-done
		// 调用方 ctx 被取消也必须放锁
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(relCtx, r.client, []string{k}, token).Err(); err != nil {
			r.logger.Warn("failed to release lock", "key", key, "error", err)
		}
	}()

	return fn(ctx)
}

func (r *Redis) acquire(ctx context.Context, k, token string) error {
	deadline := time.Now().Add(r.timeout)
	for {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", k, err)
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s not acquired within %s", types.ErrLockTimeout, k, r.timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retry):
		}
	}
}

func (r *Redis) keepAlive(k, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.ttl/3)
			err := extendScript.Run(ctx, r.client, []string{k}, token, r.ttl.Milliseconds()).Err()
			cancel()
			if err != nil {
				r.logger.Warn("failed to extend lock", "key", k, "error", err)
			}
		}
	}
}
