package versioning

import (
	"context"
	"fmt"
	"io"

	"curationvault/pkg/core"
	"curationvault/pkg/lock"
	"curationvault/pkg/meta"
	"curationvault/pkg/storage"
	"curationvault/pkg/types"
)

// ErrUnreadable 表示上传的字节流读取失败
var ErrUnreadable = fmt.Errorf("content stream %w", types.ErrIOFailure)

// DefaultMimeType 在调用方没有声明类型时使用
const DefaultMimeType = "application/octet-stream"

// Label 返回序号对应的版本标签: 1 -> "version1"
func Label(seq int) string {
	return fmt.Sprintf("version%d", seq)
}

// Content 是一次上传携带的内容
type Content struct {
	Reader   io.Reader
	Filename string
	MimeType string
}

// Upload 是已经完整读入内存、还没有落盘的一次上传
type Upload struct {
	blob     *core.Blob
	filename string
	mimeType string
}

// Read 读完整个流。读失败时什么都还没写。
func Read(c Content) (*Upload, error) {
	if c.Reader == nil {
		return nil, fmt.Errorf("%w: no content stream", types.ErrValidation)
	}
	data, err := io.ReadAll(c.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return &Upload{blob: core.NewBlob(data), filename: c.Filename, mimeType: c.MimeType}, nil
}

func (u *Upload) Hash() types.Hash { return u.blob.ID() }
func (u *Upload) Size() int64      { return u.blob.Size() }

// Store 是 FileObject 内容的只追加日志
// 字节进 Blob 存储 (内容寻址)，版本记录进 versions 表
type Store struct {
	blobs  storage.Store
	repo   *meta.Repository
	locker lock.Locker
}

// NewStore: locker 用于串行化同一份内容的写入 (Append) 和回收 (Prune)
func NewStore(blobs storage.Store, repo *meta.Repository, locker lock.Locker) *Store {
	return &Store{blobs: blobs, repo: repo, locker: locker}
}

// WithRepo 返回一个把版本记录写进 repo (通常是事务) 的 Store
func (s *Store) WithRepo(repo *meta.Repository) *Store {
	return &Store{blobs: s.blobs, repo: repo, locker: s.locker}
}

// Guard 持有内容 hash 的锁执行 fn。
// Append 所在的事务必须在 Guard 内提交，Prune 才不会删掉一份正在被引用的内容。
func (s *Store) Guard(ctx context.Context, hash types.Hash, fn func(ctx context.Context) error) error {
	return s.locker.WithLock(ctx, lock.BlobKey(hash.String()), fn)
}

// Append 写入 Blob，然后记录下一个序号的版本。
// 调用方必须持有该文件的锁，否则序号可能冲突 (会返回 meta.ErrVersionConflict)。
func (s *Store) Append(ctx context.Context, fileID types.ID, committer types.UserKey, u *Upload) (*meta.Version, error) {
	// 幂等，相同内容只存一份
	if err := s.blobs.Put(ctx, u.blob); err != nil {
		return nil, fmt.Errorf("failed to store content: %w", err)
	}
	return s.record(ctx, fileID, committer, u.Hash(), u.Size(), u.filename, u.mimeType)
}

// Reappend 用一个已有版本的内容追加新版本 (回滚)，字节不需要重新上传
func (s *Store) Reappend(ctx context.Context, fileID types.ID, committer types.UserKey, from *meta.Version) (*meta.Version, error) {
	ok, err := s.blobs.Has(ctx, from.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to check content %s: %w", from.ContentHash, err)
	}
	if !ok {
		return nil, fmt.Errorf("content of %s: %w", from.Label, storage.ErrNotFound)
	}
	return s.record(ctx, fileID, committer, from.ContentHash, from.Size, from.OriginalName, from.MimeType)
}

func (s *Store) record(ctx context.Context, fileID types.ID, committer types.UserKey, hash types.Hash, size int64, filename, mimeType string) (*meta.Version, error) {
	if mimeType == "" {
		mimeType = DefaultMimeType
	}

	seq, err := s.repo.NextSequence(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute next sequence: %w", err)
	}

	v := &meta.Version{
		FileID:       fileID,
		Sequence:     seq,
		Label:        Label(seq),
		Committer:    committer.String(),
		ContentHash:  hash,
		OriginalName: filename,
		MimeType:     mimeType,
		Size:         size,
	}
	if err := s.repo.CreateVersion(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Latest 返回最新版本；从未上传过内容时返回 meta.ErrVersionNotFound
func (s *Store) Latest(ctx context.Context, fileID types.ID) (*meta.Version, error) {
	return s.repo.LatestVersion(ctx, fileID)
}

// ByID 按主键查找版本，已删除时返回 meta.ErrVersionNotFound
func (s *Store) ByID(ctx context.Context, id uint) (*meta.Version, error) {
	return s.repo.GetVersion(ctx, id)
}

// Count 返回文件的版本数
func (s *Store) Count(ctx context.Context, fileID types.ID) (int64, error) {
	return s.repo.CountVersions(ctx, fileID)
}

func (s *Store) List(ctx context.Context, fileID types.ID) ([]meta.Version, error) {
	return s.repo.ListVersions(ctx, fileID)
}

// Get 按标签查找版本 ("version2")
func (s *Store) Get(ctx context.Context, fileID types.ID, label string) (*meta.Version, error) {
	return s.repo.GetVersionByLabel(ctx, fileID, label)
}

// ByCommitter 返回某个身份最近提交的版本
func (s *Store) ByCommitter(ctx context.Context, committer types.UserKey, limit int) ([]meta.Version, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.FindVersionsByCommitter(ctx, committer.String(), limit)
}

// Open 返回版本内容的字节流，调用方负责 Close
func (s *Store) Open(ctx context.Context, v *meta.Version) (io.ReadCloser, error) {
	rc, err := s.blobs.Get(ctx, v.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s of %s: %w", v.Label, v.FileID, err)
	}
	return rc, nil
}

// DeleteAll 删除文件的全部版本记录。Blob 由 Prune 在事务提交后回收。
func (s *Store) DeleteAll(ctx context.Context, fileID types.ID) (int64, error) {
	n, err := s.repo.DeleteVersions(ctx, fileID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete versions of %s: %w", fileID, err)
	}
	return n, nil
}

// Prune 删除已经没有任何版本引用的内容，返回实际删除的个数。
// 必须在删除版本的事务提交之后调用。
func (s *Store) Prune(ctx context.Context, hashes []types.Hash) (int, error) {
	seen := make(map[types.Hash]struct{}, len(hashes))
	pruned := 0
	for _, h := range hashes {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}

		err := s.Guard(ctx, h, func(ctx context.Context) error {
			refs, err := s.repo.CountContentRefs(ctx, h)
			if err != nil {
				return err
			}
			if refs > 0 {
				return nil
			}
			if err := s.blobs.Delete(ctx, h); err != nil {
				return err
			}
			pruned++
			return nil
		})
		if err != nil {
			return pruned, fmt.Errorf("failed to prune content %s: %w", h, err)
		}
	}
	return pruned, nil
}
