package lock

import (
	"context"
	"time"
)

const (
	DefaultTimeout       = 5 * time.Second
	DefaultTTL           = 30 * time.Second
	DefaultRetryInterval = 50 * time.Millisecond

	// MinTTL 是 Redis 租约的下限，续期间隔为 ttl/3
	MinTTL = 100 * time.Millisecond
)

// Locker 提供按 key 的互斥执行
// 同一个 key 的调用方严格串行，不同 key 互不影响。
// fn 无论成功、失败还是 panic，锁都会被释放。
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Config 锁配置
type Config struct {
	Backend       string        `mapstructure:"backend" validate:"oneof=local redis"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
	TTL           time.Duration `mapstructure:"ttl" validate:"omitempty,min=100ms"`
	RetryInterval time.Duration `mapstructure:"retry_interval" validate:"gte=0"`
	RedisURL      string        `mapstructure:"redis_url" validate:"required_if=Backend redis"`
}

// BlobKey 串行化同一份内容的写入和回收
func BlobKey(hash string) string {
	return "blob:" + hash
}

// FileKey 是 FileObject 的锁 key，actor 和 characterization worker 共用
func FileKey(id string) string {
	return "file:" + id
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
