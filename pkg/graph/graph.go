package graph

import (
	"context"
	"fmt"

	"curationvault/pkg/meta"
	"curationvault/pkg/types"
)

// ErrUploadSetReassigned 表示文件已经属于另一个 UploadSet
var ErrUploadSetReassigned = fmt.Errorf("%w: upload set is already assigned", types.ErrValidation)

// ErrNotMember 表示 representative 必须是 Work 的成员
var ErrNotMember = fmt.Errorf("%w: file is not a member of the work", types.ErrValidation)

// Graph 维护 FileObject、Work 和 UploadSet 之间的关联
// 所有删除操作都是幂等的：删不存在的边不报错。
type Graph struct {
	repo *meta.Repository
}

func New(repo *meta.Repository) *Graph {
	return &Graph{repo: repo}
}

// WithRepo 返回绑定到 repo (通常是事务) 的 Graph
func (g *Graph) WithRepo(repo *meta.Repository) *Graph {
	return &Graph{repo: repo}
}

// AttachWork 添加 file -> work 的边，已存在时什么都不做
func (g *Graph) AttachWork(ctx context.Context, fileID, workID types.ID) error {
	return g.repo.AddMember(ctx, workID, fileID)
}

// DetachWork 删除 file -> work 的边，同时清掉指向该文件的 representative
func (g *Graph) DetachWork(ctx context.Context, fileID, workID types.ID) error {
	if _, err := g.ClearRepresentativeIf(ctx, workID, fileID); err != nil {
		return err
	}
	return g.repo.RemoveMember(ctx, workID, fileID)
}

// AttachUploadSet 只修改内存里的 f，由调用方负责持久化。
// 同一个 set 重复 attach 是幂等的；已经属于别的 set 时拒绝 (分组一旦设置就不再改变)。
func (g *Graph) AttachUploadSet(f *meta.FileObject, setID types.ID) error {
	if setID.IsZero() || f.UploadSetID == setID {
		return nil
	}
	if !f.UploadSetID.IsZero() {
		return fmt.Errorf("%w: %s belongs to %s", ErrUploadSetReassigned, f.ID, f.UploadSetID)
	}
	f.UploadSetID = setID
	return nil
}

// ClearRepresentativeIf 只有 work 的 representative 仍然指向 fileID 时才清空
func (g *Graph) ClearRepresentativeIf(ctx context.Context, workID, fileID types.ID) (bool, error) {
	cleared, err := g.repo.ClearRepresentative(ctx, workID, fileID)
	if err != nil {
		return false, fmt.Errorf("failed to clear representative of %s: %w", workID, err)
	}
	return cleared, nil
}

// SetRepresentative 把 file 设为 work 的 representative，file 必须已经是成员
func (g *Graph) SetRepresentative(ctx context.Context, workID, fileID types.ID) error {
	ok, err := g.repo.IsMember(ctx, workID, fileID)
	if err != nil {
		return err
	}
	if !ok {
		// 区分 work 不存在和不是成员
		if _, err := g.repo.GetWork(ctx, workID); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s in %s", ErrNotMember, fileID, workID)
	}
	return g.repo.SetRepresentative(ctx, workID, fileID)
}

// DetachAll 清理文件的全部关联: 先清 representative，再删 work 边，最后解除 upload set。
// 返回被清掉 representative 的 Work。
func (g *Graph) DetachAll(ctx context.Context, f *meta.FileObject) ([]types.ID, error) {
	works, err := g.repo.WorksForFile(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list works of %s: %w", f.ID, err)
	}

	var cleared []types.ID
	for _, w := range works {
		ok, err := g.ClearRepresentativeIf(ctx, w.ID, f.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			cleared = append(cleared, w.ID)
		}
	}

	if _, err := g.repo.RemoveAllMembers(ctx, f.ID); err != nil {
		return nil, fmt.Errorf("failed to detach %s from works: %w", f.ID, err)
	}
	f.UploadSetID = ""
	return cleared, nil
}

// WorksFor 返回文件所属的 Work (generic_works)
func (g *Graph) WorksFor(ctx context.Context, fileID types.ID) ([]meta.Work, error) {
	return g.repo.WorksForFile(ctx, fileID)
}

// FilesIn 返回 Work 的成员文件 (generic_files)
func (g *Graph) FilesIn(ctx context.Context, workID types.ID) ([]meta.FileObject, error) {
	return g.repo.FilesInWork(ctx, workID)
}
