package storage

import (
	"context"
	"fmt"
	"io"

	"curationvault/pkg/core"
	"curationvault/pkg/types"
)

var (
	ErrNotFound = fmt.Errorf("blob %w", types.ErrNotFound)
)

// Store 是版本内容的字节存储，按 SHA-256 寻址。
// 实现有本地磁盘、S3 和 Redis 缓存装饰器。
type Store interface {
	// Put 将一个对象持久化。Hash 已经在 core.Object 里了，重复写入是幂等的
	Put(ctx context.Context, obj core.Object) error

	// Get 根据 Hash 读取原始数据，调用方负责 Close
	Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error)

	// Has 检查对象是否存在 (用于去重逻辑)
	Has(ctx context.Context, hash types.Hash) (bool, error)

	// Delete 删除对象，不存在时不报错。
	// 调用方负责确认已经没有版本引用这份内容 (见 versioning.Store.Prune)
	Delete(ctx context.Context, hash types.Hash) error
}
