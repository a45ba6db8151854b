package actor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"curationvault/pkg/characterize"
	"curationvault/pkg/core"
	"curationvault/pkg/graph"
	"curationvault/pkg/lock"
	"curationvault/pkg/meta"
	"curationvault/pkg/types"
	"curationvault/pkg/versioning"
)

// ErrNoFile 对应上传表单里没有选择文件
var ErrNoFile = fmt.Errorf("%w: please select a file", types.ErrValidation)

// Deps 是 FileActor 的协作者，通常由 app.App 一次性组装好
type Deps struct {
	Repo     *meta.Repository
	Versions *versioning.Store
	Graph    *graph.Graph
	Locker   lock.Locker
	Trigger  characterize.Trigger

	// Now 返回当前时间，测试里可以固定
	Now    func() time.Time
	Logger *slog.Logger
}

// UploadedFile 是一次内容上传
type UploadedFile struct {
	Reader   io.Reader
	Filename string
	MimeType string
}

// MetadataUpdate 是 UpdateMetadata 的输入，零值字段保持不变
type MetadataUpdate struct {
	Title      []string `validate:"omitempty,dive,required"`
	Visibility string   `validate:"omitempty,oneof=restricted authenticated open public"`
}

// FileActor 代表某个身份对某个 FileObject 执行修改。
// 所有修改都在该文件的锁内、并在一个数据库事务里完成。
type FileActor struct {
	deps   Deps
	file   *meta.FileObject
	user   types.UserKey
	logger *slog.Logger

	// destroyed 之后任何操作都返回 NotFound
	destroyed bool
}

// New 创建 actor。file.ID 为空时分配一个新 ID。
func New(deps Deps, file *meta.FileObject, user types.UserKey) *FileActor {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Trigger == nil {
		deps.Trigger = characterize.Noop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if file.ID.IsZero() {
		file.ID = types.NewID()
	}
	return &FileActor{
		deps:   deps,
		file:   file,
		user:   user,
		logger: deps.Logger.With("file_id", file.ID, "user", user),
	}
}

// File 返回最近一次成功操作之后的 FileObject
func (a *FileActor) File() *meta.FileObject {
	return a.file
}

// CreateMetadata 写入 depositor、时间戳、可见性，并挂到 upload set / work 上。
// uploadSetID 和 workID 为空表示不关联。
func (a *FileActor) CreateMetadata(ctx context.Context, uploadSetID, workID types.ID) error {
	if err := a.checkUser(); err != nil {
		return err
	}
	// 时间只取一次，date_uploaded 和 date_modified 必须完全相等
	now := a.now()

	return a.mutate(ctx, func(ctx context.Context, tx *meta.Repository) (*meta.FileObject, error) {
		f, persisted, err := a.load(ctx, tx)
		if err != nil {
			return nil, err
		}

		// 1. 先解析所有引用，任何一个不存在都不写入
		var work *meta.Work
		if !workID.IsZero() {
			if work, err = tx.GetWork(ctx, workID); err != nil {
				return nil, err
			}
		}
		g := a.deps.Graph.WithRepo(tx)
		if !uploadSetID.IsZero() {
			if _, err := tx.GetUploadSet(ctx, uploadSetID); err != nil {
				return nil, err
			}
			if err := g.AttachUploadSet(f, uploadSetID); err != nil {
				return nil, err
			}
		}

		// 2. 元数据
		f.Depositor = a.user.String()
		f.Visibility = types.DefaultVisibility
		if work != nil {
			// 快照，不是实时继承
			f.Visibility = work.Visibility
		}
		f.EmbargoReleaseDate = nil
		f.LeaseExpirationDate = nil
		if f.DateUploaded == nil {
			f.DateUploaded = &now
		}
		f.DateModified = &now

		if err := a.save(ctx, tx, f, persisted); err != nil {
			return nil, err
		}

		// 3. 关联边 (文件必须先存在)
		if work != nil {
			if err := g.AttachWork(ctx, f.ID, work.ID); err != nil {
				return nil, err
			}
		}
		return f, nil
	})
}

// CreateContent 追加一个新版本。第一个版本决定 label，之后的上传不改名；
// title 为空时每次上传都用 [label] 补上。
// 版本落库后异步派发 characterization，不等待结果。
func (a *FileActor) CreateContent(ctx context.Context, upload UploadedFile) (*meta.Version, error) {
	if err := a.checkUser(); err != nil {
		return nil, err
	}
	if upload.Reader == nil {
		return nil, ErrNoFile
	}
	now := a.now()

	// 锁外读完上传流
	u, err := versioning.Read(versioning.Content{
		Reader:   upload.Reader,
		Filename: upload.Filename,
		MimeType: upload.MimeType,
	})
	if err != nil {
		return nil, err
	}

	// 内容锁要覆盖到事务提交，Prune 才看得到新版本
	guard := func(ctx context.Context, run func(ctx context.Context) error) error {
		return a.deps.Versions.Guard(ctx, u.Hash(), run)
	}

	var v *meta.Version
	err = a.mutateWith(ctx, guard, func(ctx context.Context, tx *meta.Repository) (*meta.FileObject, error) {
		f, persisted, err := a.load(ctx, tx)
		if err != nil {
			return nil, err
		}

		v, err = a.deps.Versions.WithRepo(tx).Append(ctx, f.ID, a.user, u)
		if err != nil {
			return nil, err
		}

		if v.Sequence == 1 {
			labelFromFilename(f, upload.Filename)
		}
		titleFromLabel(f)
		if f.Depositor == "" {
			f.Depositor = a.user.String()
		}
		f.DateModified = &now

		if err := a.save(ctx, tx, f, persisted); err != nil {
			return nil, err
		}
		return f, nil
	})
	if err != nil {
		return nil, err
	}

	// 锁已经释放
	a.characterize(v, now)
	return v, nil
}

// RevertContent 把 label 指定的旧版本内容作为一个新版本提交
func (a *FileActor) RevertContent(ctx context.Context, label string) (*meta.Version, error) {
	if err := a.checkUser(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(label) == "" {
		return nil, fmt.Errorf("%w: version label is required", types.ErrValidation)
	}
	now := a.now()

	var v *meta.Version
	err := a.mutate(ctx, func(ctx context.Context, tx *meta.Repository) (*meta.FileObject, error) {
		f, err := tx.GetFile(ctx, a.file.ID)
		if err != nil {
			return nil, err
		}

		versions := a.deps.Versions.WithRepo(tx)
		from, err := versions.Get(ctx, f.ID, label)
		if err != nil {
			return nil, err
		}
		if v, err = versions.Reappend(ctx, f.ID, a.user, from); err != nil {
			return nil, err
		}

		f.DateModified = &now
		if err := tx.UpdateFile(ctx, f); err != nil {
			return nil, err
		}
		return f, nil
	})
	if err != nil {
		return nil, err
	}

	a.characterize(v, now)
	return v, nil
}

// UpdateMetadata 修改描述性元数据
func (a *FileActor) UpdateMetadata(ctx context.Context, update MetadataUpdate) error {
	if err := a.checkUser(); err != nil {
		return err
	}
	if err := types.Validate(update); err != nil {
		return err
	}
	now := a.now()

	return a.mutate(ctx, func(ctx context.Context, tx *meta.Repository) (*meta.FileObject, error) {
		f, err := tx.GetFile(ctx, a.file.ID)
		if err != nil {
			return nil, err
		}
		if update.Title != nil {
			f.SetTitles(update.Title)
		}
		if update.Visibility != "" {
			vis, err := types.ParseVisibility(update.Visibility)
			if err != nil {
				return nil, err
			}
			f.Visibility = vis
		}
		f.DateModified = &now

		if err := tx.UpdateFile(ctx, f); err != nil {
			return nil, err
		}
		return f, nil
	})
}

// MakeRepresentative 把文件设为 work 的 representative。
// 持有文件锁，和 Destroy 互斥，不会指向一个正在被删除的文件。
func (a *FileActor) MakeRepresentative(ctx context.Context, workID types.ID) error {
	if err := a.checkUser(); err != nil {
		return err
	}
	if a.destroyed {
		return a.gone()
	}
	return a.deps.Locker.WithLock(ctx, lock.FileKey(a.file.ID.String()), func(ctx context.Context) error {
		return a.deps.Repo.Transaction(ctx, func(tx *meta.Repository) error {
			if _, err := tx.GetFile(ctx, a.file.ID); err != nil {
				return err
			}
			return a.deps.Graph.WithRepo(tx).SetRepresentative(ctx, workID, a.file.ID)
		})
	})
}

// Destroy 删除文件及其全部版本，清理所有指向它的 representative，并留下墓碑。
// 整个过程是一个事务：任何一步失败都不会留下删了一半的状态。
// 事务提交后再回收不再被引用的内容，回收失败只记日志。
func (a *FileActor) Destroy(ctx context.Context) error {
	if err := a.checkUser(); err != nil {
		return err
	}
	if a.destroyed {
		return a.gone()
	}
	now := a.now()

	var (
		cleared []types.ID
		hashes  []types.Hash
	)
	err := a.deps.Locker.WithLock(ctx, lock.FileKey(a.file.ID.String()), func(ctx context.Context) error {
		return a.deps.Repo.Transaction(ctx, func(tx *meta.Repository) error {
			f, err := tx.GetFile(ctx, a.file.ID)
			if err != nil {
				return err
			}

			if cleared, err = a.deps.Graph.WithRepo(tx).DetachAll(ctx, f); err != nil {
				return err
			}

			versions := a.deps.Versions.WithRepo(tx)
			all, err := versions.List(ctx, f.ID)
			if err != nil {
				return err
			}
			hashes = make([]types.Hash, 0, len(all))
			for _, v := range all {
				hashes = append(hashes, v.ContentHash)
			}
			if _, err := versions.DeleteAll(ctx, f.ID); err != nil {
				return err
			}
			if err := tx.DeleteFile(ctx, f.ID); err != nil {
				return err
			}
			return tx.CreateTombstone(ctx, f.ID, a.user.String(), now)
		})
	})
	if err != nil {
		return err
	}
	a.destroyed = true

	pruned, err := a.deps.Versions.Prune(ctx, hashes)
	if err != nil {
		a.logger.Warn("content cleanup incomplete", "error", err, "pruned", pruned)
	}
	a.logger.Debug("file destroyed", "cleared_representatives", len(cleared), "pruned", pruned)
	return nil
}

type mutation func(ctx context.Context, tx *meta.Repository) (*meta.FileObject, error)

// mutate 在文件锁 + 事务里执行 fn，成功后更新内存里的 FileObject
func (a *FileActor) mutate(ctx context.Context, fn mutation) error {
	return a.mutateWith(ctx, nil, fn)
}

// mutateWith: guard 非空时在文件锁内、事务外再包一层
func (a *FileActor) mutateWith(ctx context.Context, guard func(ctx context.Context, run func(ctx context.Context) error) error, fn mutation) error {
	if a.destroyed {
		return a.gone()
	}
	var updated *meta.FileObject
	run := func(ctx context.Context) error {
		return a.deps.Repo.Transaction(ctx, func(tx *meta.Repository) error {
			f, err := fn(ctx, tx)
			if err != nil {
				return err
			}
			updated = f
			return nil
		})
	}
	err := a.deps.Locker.WithLock(ctx, lock.FileKey(a.file.ID.String()), func(ctx context.Context) error {
		if guard != nil {
			return guard(ctx, run)
		}
		return run(ctx)
	})
	if err != nil {
		return err
	}
	a.file = updated
	return nil
}

// load 在锁内重新读取文件。还没持久化过的文件使用内存里的副本；
// 已销毁的 ID 不会再被创建出来。
func (a *FileActor) load(ctx context.Context, tx *meta.Repository) (*meta.FileObject, bool, error) {
	f, err := tx.GetFile(ctx, a.file.ID)
	if err == nil {
		return f, true, nil
	}
	if !errors.Is(err, meta.ErrFileNotFound) {
		return nil, false, err
	}
	destroyed, err := tx.IsDestroyed(ctx, a.file.ID)
	if err != nil {
		return nil, false, err
	}
	if destroyed {
		return nil, false, a.gone()
	}
	cp := *a.file
	return &cp, false, nil
}

func (a *FileActor) gone() error {
	return fmt.Errorf("%s was destroyed: %w", a.file.ID, meta.ErrFileNotFound)
}

func (a *FileActor) save(ctx context.Context, tx *meta.Repository, f *meta.FileObject, persisted bool) error {
	if persisted {
		return tx.UpdateFile(ctx, f)
	}
	return tx.CreateFile(ctx, f)
}

func (a *FileActor) characterize(v *meta.Version, now time.Time) {
	a.deps.Trigger.Dispatch(characterize.Job{
		FileID:     v.FileID,
		VersionID:  v.ID,
		Sequence:   v.Sequence,
		Content:    core.NewLink(v.ContentHash),
		EnqueuedAt: now,
	})
	a.logger.Debug("content created", "label", v.Label, "size", v.Size)
}

func (a *FileActor) checkUser() error {
	if a.user.IsZero() {
		return fmt.Errorf("%w: acting identity is required", types.ErrValidation)
	}
	return nil
}

// now 统一按 UTC 微秒精度，和数据库里读回来的值一致
func (a *FileActor) now() time.Time {
	return a.deps.Now().UTC().Truncate(time.Microsecond)
}

func labelFromFilename(f *meta.FileObject, filename string) {
	if f.Label == "" {
		f.Label = basename(filename)
	}
}

// titleFromLabel: title 为空时取 [label]
func titleFromLabel(f *meta.FileObject) {
	if len(f.Titles()) == 0 && f.Label != "" {
		f.SetTitles([]string{f.Label})
	}
}

// basename 同时兼容 Windows 浏览器上传的完整路径
func basename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
