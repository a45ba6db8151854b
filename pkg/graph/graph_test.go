package graph

import (
	"context"
	"testing"

	"curationvault/pkg/meta"
	"curationvault/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGraph(t *testing.T) (*Graph, *meta.Repository) {
	t.Helper()
	db, err := meta.NewMemoryDB(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := meta.NewRepository(db)
	return New(repo), repo
}

func createFile(t *testing.T, repo *meta.Repository) *meta.FileObject {
	t.Helper()
	f := &meta.FileObject{ID: types.NewID(), Depositor: "alice"}
	require.NoError(t, repo.CreateFile(context.Background(), f))
	return f
}

func createWork(t *testing.T, repo *meta.Repository) *meta.Work {
	t.Helper()
	w := &meta.Work{ID: types.NewID(), Depositor: "alice", Visibility: types.VisibilityPublic}
	require.NoError(t, repo.CreateWork(context.Background(), w))
	return w
}

func TestGraph_AttachDetachWork(t *testing.T) {
	g, repo := setupGraph(t)
	ctx := context.Background()
	f := createFile(t, repo)
	w := createWork(t, repo)

	require.NoError(t, g.AttachWork(ctx, f.ID, w.ID))
	require.NoError(t, g.AttachWork(ctx, f.ID, w.ID), "attach 是幂等的")

	works, err := g.WorksFor(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, works, 1)
	assert.Equal(t, w.ID, works[0].ID)

	files, err := g.FilesIn(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, f.ID, files[0].ID)

	require.NoError(t, g.SetRepresentative(ctx, w.ID, f.ID))
	require.NoError(t, g.DetachWork(ctx, f.ID, w.ID))
	require.NoError(t, g.DetachWork(ctx, f.ID, w.ID), "重复 detach 不报错")

	got, err := repo.GetWork(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.RepresentativeID.IsZero(), "detach 后不能留下悬空的 representative")

	works, err = g.WorksFor(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, works)
}

func TestGraph_AttachUploadSet(t *testing.T) {
	g, _ := setupGraph(t)
	f := &meta.FileObject{ID: types.NewID()}
	set1, set2 := types.NewID(), types.NewID()

	require.NoError(t, g.AttachUploadSet(f, ""))
	assert.True(t, f.UploadSetID.IsZero(), "没有 set 时不能凭空创建关联")

	require.NoError(t, g.AttachUploadSet(f, set1))
	require.NoError(t, g.AttachUploadSet(f, set1))
	assert.Equal(t, set1, f.UploadSetID)

	err := g.AttachUploadSet(f, set2)
	assert.ErrorIs(t, err, ErrUploadSetReassigned)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, set1, f.UploadSetID)
}

func TestGraph_ClearRepresentativeIf(t *testing.T) {
	g, repo := setupGraph(t)
	ctx := context.Background()
	f := createFile(t, repo)
	other := createFile(t, repo)
	w := createWork(t, repo)

	require.NoError(t, g.AttachWork(ctx, f.ID, w.ID))
	require.NoError(t, g.AttachWork(ctx, other.ID, w.ID))
	require.NoError(t, g.SetRepresentative(ctx, w.ID, other.ID))

	cleared, err := g.ClearRepresentativeIf(ctx, w.ID, f.ID)
	require.NoError(t, err)
	assert.False(t, cleared, "指向别的文件时保持不变")

	got, err := repo.GetWork(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.RepresentativeID)

	cleared, err = g.ClearRepresentativeIf(ctx, types.NewID(), f.ID)
	require.NoError(t, err)
	assert.False(t, cleared, "不存在的 work 是 no-op")
}

func TestGraph_SetRepresentativeRequiresMembership(t *testing.T) {
	g, repo := setupGraph(t)
	ctx := context.Background()
	f := createFile(t, repo)
	w := createWork(t, repo)

	err := g.SetRepresentative(ctx, w.ID, f.ID)
	assert.ErrorIs(t, err, ErrNotMember)

	err = g.SetRepresentative(ctx, types.NewID(), f.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestGraph_DetachAll(t *testing.T) {
	g, repo := setupGraph(t)
	ctx := context.Background()
	f := createFile(t, repo)
	f.UploadSetID = types.NewID()
	w1 := createWork(t, repo)
	w2 := createWork(t, repo)

	require.NoError(t, g.AttachWork(ctx, f.ID, w1.ID))
	require.NoError(t, g.AttachWork(ctx, f.ID, w2.ID))
	require.NoError(t, g.SetRepresentative(ctx, w1.ID, f.ID))

	cleared, err := g.DetachAll(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{w1.ID}, cleared)
	assert.True(t, f.UploadSetID.IsZero())

	works, err := g.WorksFor(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, works)

	// 两个 Work 本身都还在
	_, err = repo.GetWork(ctx, w1.ID)
	assert.NoError(t, err)
	_, err = repo.GetWork(ctx, w2.ID)
	assert.NoError(t, err)
}
