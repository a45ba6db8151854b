package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"curationvault/pkg/types"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, cfg Config) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, cfg, nil), mr
}

// 两种实现跑同一组行为测试
func lockers(t *testing.T, timeout time.Duration) map[string]Locker {
	r, _ := newRedisLocker(t, Config{Timeout: timeout, RetryInterval: 5 * time.Millisecond})
	return map[string]Locker{
		"local": NewLocal(timeout),
		"redis": r,
	}
}

func TestLocker_SerializesSameKey(t *testing.T) {
	for name, l := range lockers(t, 5*time.Second) {
		t.Run(name, func(t *testing.T) {
			var (
				active  int32
				maxSeen int32
				counter int64
				wg      sync.WaitGroup
			)

			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := l.WithLock(context.Background(), "file:a", func(ctx context.Context) error {
						n := atomic.AddInt32(&active, 1)
						for {
							m := atomic.LoadInt32(&maxSeen)
							if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
								break
							}
						}
						// 非原子的读-改-写，只有互斥才能保证结果正确
						c := atomic.LoadInt64(&counter)
						time.Sleep(time.Millisecond)
						atomic.StoreInt64(&counter, c+1)
						atomic.AddInt32(&active, -1)
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			assert.Equal(t, int64(20), atomic.LoadInt64(&counter))
			assert.Equal(t, int32(1), maxSeen, "同一时刻只能有一个持有者")
		})
	}
}

func TestLocker_DistinctKeysDoNotContend(t *testing.T) {
	for name, l := range lockers(t, 200*time.Millisecond) {
		t.Run(name, func(t *testing.T) {
			held := make(chan struct{})
			release := make(chan struct{})
			go func() {
				_ = l.WithLock(context.Background(), "file:a", func(ctx context.Context) error {
					close(held)
					<-release
					return nil
				})
			}()
			<-held
			defer close(release)

			// a 被占着，b 仍然可以立即拿到
			err := l.WithLock(context.Background(), "file:b", func(ctx context.Context) error { return nil })
			assert.NoError(t, err)
		})
	}
}

func TestLocker_Timeout(t *testing.T) {
	for name, l := range lockers(t, 50*time.Millisecond) {
		t.Run(name, func(t *testing.T) {
			held := make(chan struct{})
			release := make(chan struct{})
			finished := make(chan struct{})
			go func() {
				defer close(finished)
				_ = l.WithLock(context.Background(), "file:a", func(ctx context.Context) error {
					close(held)
					<-release
					return nil
				})
			}()
			<-held

			ran := false
			err := l.WithLock(context.Background(), "file:a", func(ctx context.Context) error {
				ran = true
				return nil
			})
			assert.ErrorIs(t, err, types.ErrLockTimeout)
			assert.False(t, ran, "超时后不能执行")

			close(release)
			<-finished

			// 释放之后可以重新获取
			assert.NoError(t, l.WithLock(context.Background(), "file:a", func(ctx context.Context) error { return nil }))
		})
	}
}

func TestLocker_ReleasesOnErrorAndPanic(t *testing.T) {
	for name, l := range lockers(t, 100*time.Millisecond) {
		t.Run(name, func(t *testing.T) {
			boom := errors.New("boom")
			err := l.WithLock(context.Background(), "file:a", func(ctx context.Context) error { return boom })
			assert.ErrorIs(t, err, boom)

			assert.Panics(t, func() {
				_ = l.WithLock(context.Background(), "file:a", func(ctx context.Context) error { panic("bad") })
			})

			assert.NoError(t, l.WithLock(context.Background(), "file:a", func(ctx context.Context) error { return nil }))
		})
	}
}

func TestLocal_EntriesAreReclaimed(t *testing.T) {
	l := NewLocal(time.Second)
	for i := 0; i < 10; i++ {
		require.NoError(t, l.WithLock(context.Background(), FileKey(types.NewID().String()), func(ctx context.Context) error {
			assert.Equal(t, 1, l.size())
			return nil
		}))
	}
	assert.Equal(t, 0, l.size())
}

func TestLocal_CallerCancellation(t *testing.T) {
	l := NewLocal(time.Minute)
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.WithLock(context.Background(), "k", func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.WithLock(ctx, "k", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, types.ErrLockTimeout)
}

func TestRedis_OnlyOwnerReleases(t *testing.T) {
	r, mr := newRedisLocker(t, Config{Timeout: time.Second})

	err := r.WithLock(context.Background(), "file:a", func(ctx context.Context) error {
		assert.True(t, mr.Exists("cv:lock:file:a"))
		// 模拟租约过期后被别人抢走
		mr.Set("cv:lock:file:a", "someone-else")
		return nil
	})
	require.NoError(t, err)

	got, err := mr.Get("cv:lock:file:a")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got, "不是自己的锁不能删")
}

func TestRedis_ReleaseRemovesKey(t *testing.T) {
	r, mr := newRedisLocker(t, Config{Timeout: time.Second, TTL: 10 * time.Second})

	require.NoError(t, r.WithLock(context.Background(), "file:a", func(ctx context.Context) error {
		ttl := mr.TTL("cv:lock:file:a")
		assert.Equal(t, 10*time.Second, ttl)
		return nil
	}))
	assert.False(t, mr.Exists("cv:lock:file:a"))
}

func TestRedis_TinyTTLIsClamped(t *testing.T) {
	r, mr := newRedisLocker(t, Config{Timeout: time.Second, TTL: 2 * time.Nanosecond})
	assert.Equal(t, MinTTL, r.ttl)

	// 续期 goroutine 以 ttl/3 为间隔，不能 panic
	err := r.WithLock(context.Background(), "file:a", func(ctx context.Context) error {
		assert.True(t, mr.Exists("cv:lock:file:a"))
		time.Sleep(2 * MinTTL / 3)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("cv:lock:file:a"))
}
