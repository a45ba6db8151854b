package meta

import (
	"context"
	"errors"
	"testing"
	"time"

	"curationvault/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_FileLifecycle(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	f := mustCreateFile(t, repo)

	got, err := repo.GetFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Depositor)
	assert.Equal(t, types.VisibilityRestricted, got.Visibility, "数据库默认值应该是 restricted")
	assert.Nil(t, got.Titles())

	// 覆盖写
	got.Label = "world.png"
	got.SetTitles([]string{"world.png"})
	require.NoError(t, repo.UpdateFile(ctx, got))

	got, err = repo.GetFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "world.png", got.Label)
	assert.Equal(t, []string{"world.png"}, got.Titles())

	// 删除
	require.NoError(t, repo.DeleteFile(ctx, f.ID))
	_, err = repo.GetFile(ctx, f.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, err, types.ErrNotFound, "应该归入 NotFound 分类")

	// 二次删除
	assert.ErrorIs(t, repo.DeleteFile(ctx, f.ID), ErrFileNotFound)
}

func TestRepository_UpdateMissingFile(t *testing.T) {
	repo := setupTestRepo(t)
	err := repo.UpdateFile(context.Background(), &FileObject{ID: types.NewID()})
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestRepository_VersionSequence(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := mustCreateFile(t, repo)

	_, err := repo.LatestVersion(ctx, f.ID)
	assert.ErrorIs(t, err, ErrVersionNotFound, "没有内容时没有 latest")

	v1 := mustCreateVersion(t, repo, f.ID, "alice")
	v2 := mustCreateVersion(t, repo, f.ID, "bob")
	assert.Equal(t, 1, v1.Sequence)
	assert.Equal(t, "version2", v2.Label)

	latest, err := repo.LatestVersion(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, latest.ID)

	byLabel, err := repo.GetVersionByLabel(ctx, f.ID, "version1")
	require.NoError(t, err)
	assert.Equal(t, "alice", byLabel.Committer)

	all, err := repo.ListVersions(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []int{1, 2}, []int{all[0].Sequence, all[1].Sequence})

	// 同一个序号写两次必须被唯一约束拦下
	dup := &Version{FileID: f.ID, Sequence: 2, Label: "version2", Committer: "mallory", ContentHash: v2.ContentHash}
	assert.ErrorIs(t, repo.CreateVersion(ctx, dup), ErrVersionConflict)

	count, err := repo.CountVersions(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepository_NextSequenceNeverReuses(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := mustCreateFile(t, repo)

	mustCreateVersion(t, repo, f.ID, "alice")
	v2 := mustCreateVersion(t, repo, f.ID, "alice")

	// 手动删掉 version1，下一个序号仍然是 3
	require.NoError(t, repo.conn(ctx).Where("file_id = ? AND sequence = 1", f.ID).Delete(&Version{}).Error)

	next, err := repo.NextSequence(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.Sequence+1, next)
}

func TestRepository_FindVersionsByCommitter(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := mustCreateFile(t, repo)

	mustCreateVersion(t, repo, f.ID, "alice")
	mustCreateVersion(t, repo, f.ID, "bob")
	v3 := mustCreateVersion(t, repo, f.ID, "alice")

	results, err := repo.FindVersionsByCommitter(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, v3.ID, results[0].ID, "Newest version should be first")
}

func TestRepository_Members(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	f := mustCreateFile(t, repo)
	w1 := mustCreateWork(t, repo, types.VisibilityPublic)
	w2 := mustCreateWork(t, repo, types.VisibilityRestricted)

	require.NoError(t, repo.AddMember(ctx, w1.ID, f.ID))
	require.NoError(t, repo.AddMember(ctx, w1.ID, f.ID), "重复添加应该是幂等的")
	require.NoError(t, repo.AddMember(ctx, w2.ID, f.ID))

	works, err := repo.WorksForFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Len(t, works, 2)

	files, err := repo.FilesInWork(ctx, w1.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, f.ID, files[0].ID)

	ok, err := repo.IsMember(ctx, w2.ID, f.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.RemoveMember(ctx, w2.ID, f.ID))
	require.NoError(t, repo.RemoveMember(ctx, w2.ID, f.ID), "删除不存在的边不报错")

	n, err := repo.RemoveAllMembers(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	works, err = repo.WorksForFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, works)
}

func TestRepository_ClearRepresentative(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	f := mustCreateFile(t, repo)
	other := mustCreateFile(t, repo)
	w := mustCreateWork(t, repo, types.VisibilityRestricted)
	require.NoError(t, repo.SetRepresentative(ctx, w.ID, f.ID))

	// 指向别的文件时不动
	cleared, err := repo.ClearRepresentative(ctx, w.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, cleared)

	cleared, err = repo.ClearRepresentative(ctx, w.ID, f.ID)
	require.NoError(t, err)
	assert.True(t, cleared)

	got, err := repo.GetWork(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.RepresentativeID.IsZero())

	assert.ErrorIs(t, repo.SetRepresentative(ctx, types.NewID(), f.ID), ErrWorkNotFound)
}

func TestRepository_TransactionRollback(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := mustCreateFile(t, repo)

	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(tx *Repository) error {
		if _, err := tx.DeleteVersions(ctx, f.ID); err != nil {
			return err
		}
		if err := tx.DeleteFile(ctx, f.ID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// 回滚后文件仍然存在
	_, err = repo.GetFile(ctx, f.ID)
	assert.NoError(t, err)
}

func TestRepository_RecordCharacterization(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := mustCreateFile(t, repo)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tm := TechnicalMetadata{Sequence: 1, MimeType: "image/png", Size: 42, Checksum: "abc", At: at}
	require.NoError(t, repo.RecordCharacterization(ctx, f.ID, tm))

	got, err := repo.GetFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.MimeType)
	assert.Equal(t, int64(42), got.FileSize)
	assert.Equal(t, 1, got.CharacterizedVersion)
	require.NotNil(t, got.CharacterizedAt)
	assert.True(t, at.Equal(*got.CharacterizedAt))

	assert.ErrorIs(t, repo.RecordCharacterization(ctx, types.NewID(), tm), ErrFileNotFound)
}

func TestRepository_UploadSet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	s := &UploadSet{ID: types.NewID(), Depositor: "alice"}
	require.NoError(t, repo.CreateUploadSet(ctx, s))

	got, err := repo.GetUploadSet(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = repo.GetUploadSet(ctx, types.NewID())
	assert.ErrorIs(t, err, ErrUploadSetNotFound)
}

func TestRepository_Tombstone(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := mustCreateFile(t, repo)

	destroyed, err := repo.IsDestroyed(ctx, f.ID)
	require.NoError(t, err)
	assert.False(t, destroyed)

	err = repo.Transaction(ctx, func(tx *Repository) error {
		if err := tx.DeleteFile(ctx, f.ID); err != nil {
			return err
		}
		return tx.CreateTombstone(ctx, f.ID, "alice", time.Now())
	})
	require.NoError(t, err)

	destroyed, err = repo.IsDestroyed(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, destroyed)

	// 同一个 ID 只能销毁一次
	assert.Error(t, repo.CreateTombstone(ctx, f.ID, "bob", time.Now()))
}

func TestRepository_CountContentRefs(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	a := mustCreateFile(t, repo)
	b := mustCreateFile(t, repo)

	v := mustCreateVersion(t, repo, a.ID, "alice")
	shared := &Version{FileID: b.ID, Sequence: 1, Label: "version1", Committer: "bob", ContentHash: v.ContentHash}
	require.NoError(t, repo.CreateVersion(ctx, shared))

	refs, err := repo.CountContentRefs(ctx, v.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, int64(2), refs, "跨文件计数")

	_, err = repo.DeleteVersions(ctx, a.ID)
	require.NoError(t, err)
	refs, err = repo.CountContentRefs(ctx, v.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, int64(1), refs)
}
