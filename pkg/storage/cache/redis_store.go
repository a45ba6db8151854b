package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"curationvault/pkg/core"
	"curationvault/pkg/storage"
	"curationvault/pkg/types"

	"github.com/redis/go-redis/v9"
)

// CachedStore 是一个装饰器，为底层的 storage.Store 添加 Redis 存在性缓存
type CachedStore struct {
	backend storage.Store // 被装饰的底层存储 (如 S3)
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
}

// NewCachedStore 复用 app 里已有的 Redis 客户端 (锁和队列可以共用同一个连接池)
func NewCachedStore(backend storage.Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{
		backend: backend,
		client:  client,
		ttl:     ttl,
		logger:  logger.With("component", "blob-cache"),
	}
}

// cacheKey 生成 Redis Key，添加前缀防止冲突
func (s *CachedStore) cacheKey(hash types.Hash) string {
	return "cv:blob:" + string(hash)
}

// Has 优先查 Redis
func (s *CachedStore) Has(ctx context.Context, hash types.Hash) (bool, error) {
	key := s.cacheKey(hash)

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		// Redis 故障时降级为无缓存模式，直接查底层
		s.logger.Warn("redis exists failed, falling back to backend", "err", err)
	} else if val > 0 {
		return true, nil
	}

	found, err := s.backend.Has(ctx, hash)
	if err != nil {
		return false, err
	}

	// 异步回填，不阻塞主流程
	// 使用 context.Background() 确保上层 ctx 取消后回填也能完成
	if found {
		go func() {
			fillCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.client.Set(fillCtx, key, "1", s.ttl)
		}()
	}

	return found, nil
}

// Put 上传对象。利用 Has 的缓存能力进行预检。
func (s *CachedStore) Put(ctx context.Context, obj core.Object) error {
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := s.backend.Put(ctx, obj); err != nil {
		return err
	}

	// 只有底层写入成功了才写 Redis，失败不影响主流程
	if err := s.client.Set(ctx, s.cacheKey(obj.ID()), "1", s.ttl).Err(); err != nil {
		s.logger.Warn("redis set failed", "hash", obj.ID(), "err", err)
	}
	return nil
}

// Get 透传。版本内容可能很大，Redis 只存存在性
func (s *CachedStore) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	return s.backend.Get(ctx, hash)
}

// Delete 先清缓存再删底层，最后再清一次防止并发 Has 回填。
// 缓存清不掉时不删底层：残留的存在性缓存会让后续 Put 误以为内容还在。
func (s *CachedStore) Delete(ctx context.Context, hash types.Hash) error {
	key := s.cacheKey(hash)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to evict %s from cache: %w", hash, err)
	}
	if err := s.backend.Delete(ctx, hash); err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("redis del failed after delete", "hash", hash, "err", err)
	}
	return nil
}
