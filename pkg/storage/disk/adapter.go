package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"curationvault/pkg/core"
	"curationvault/pkg/storage"
	"curationvault/pkg/types"
)

// blobPerm: 版本内容不可变，落盘后只读
const blobPerm = 0o444

// Adapter 把 Blob 存成 root/<前两位>/<剩余> 的只读文件
type Adapter struct {
	root string // 比如: /var/lib/cv/objects
}

// NewAdapter 创建一个新的磁盘存储适配器
func NewAdapter(root string) (*Adapter, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create root storage dir: %w", err)
	}
	return &Adapter{root: root}, nil
}

// path: hash "aabbcc..." -> root/aa/bbcc...
func (s *Adapter) path(hash types.Hash) string {
	h := string(hash)
	if len(h) < 2 {
		return filepath.Join(s.root, h)
	}
	return filepath.Join(s.root, h[:2], h[2:])
}

// Put 先写临时文件再 Rename，读者要么看不到文件，要么看到完整内容。
// 已存在但大小不对的文件 (比如被人为截断) 会被重写。
func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	target := s.path(obj.ID())
	if info, err := os.Stat(target); err == nil && info.Size() == int64(len(obj.Bytes())) {
		return nil
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create shard %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(obj.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write blob %s: %w", obj.ID(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), blobPerm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func (s *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	f, err := os.Open(s.path(hash))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	return f, err
}

func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	_, err := os.Stat(s.path(hash))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Delete 删除 Blob，并顺手回收空掉的分片目录
func (s *Adapter) Delete(ctx context.Context, hash types.Hash) error {
	p := s.path(hash)
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob %s: %w", hash, err)
	}
	if dir := filepath.Dir(p); dir != s.root {
		// 目录非空时 Remove 会失败，忽略即可
		_ = os.Remove(dir)
	}
	return nil
}
