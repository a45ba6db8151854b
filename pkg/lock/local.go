package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"curationvault/pkg/types"

	"golang.org/x/sync/semaphore"
)

// Local 是进程内的按 key 互斥表
// 每个 key 对应一个权重为 1 的信号量，没有人用时条目被回收
type Local struct {
	mu      sync.Mutex
	entries map[string]*entry
	timeout time.Duration
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

func NewLocal(timeout time.Duration) *Local {
	return &Local{
		entries: make(map[string]*entry),
		timeout: orDefault(timeout, DefaultTimeout),
	}
}

func (l *Local) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	e := l.ref(key)
	defer l.unref(key, e)

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	err := e.sem.Acquire(waitCtx, 1)
	cancel()
	if err != nil {
		// 调用方自己取消的，原样返回
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s not acquired within %s", types.ErrLockTimeout, key, l.timeout)
	}
	defer e.sem.Release(1)

	return fn(ctx)
}

func (l *Local) ref(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Local) unref(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// size 返回当前活跃的 key 数量
func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
