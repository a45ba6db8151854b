package meta

import (
	"context"
	"fmt"
	"testing"

	"curationvault/pkg/core"
	"curationvault/pkg/types"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// 通用辅助函数 (Helpers)
// -----------------------------------------------------------------------------

// setupTestRepo 构建隔离的测试环境 (每个测试一个内存库)
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := NewMemoryDB(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(db)
}

// mustCreateFile 创建一个最简 FileObject，失败直接终止
func mustCreateFile(t *testing.T, repo *Repository, msgAndArgs ...any) *FileObject {
	t.Helper()
	f := &FileObject{ID: types.NewID(), Depositor: "alice"}
	require.NoError(t, repo.CreateFile(context.Background(), f), msgAndArgs...)
	return f
}

func mustCreateWork(t *testing.T, repo *Repository, visibility types.Visibility, msgAndArgs ...any) *Work {
	t.Helper()
	w := &Work{ID: types.NewID(), Depositor: "alice", Visibility: visibility}
	require.NoError(t, repo.CreateWork(context.Background(), w), msgAndArgs...)
	return w
}

func mustCreateVersion(t *testing.T, repo *Repository, fileID types.ID, committer string, msgAndArgs ...any) *Version {
	t.Helper()
	ctx := context.Background()
	seq, err := repo.NextSequence(ctx, fileID)
	require.NoError(t, err, msgAndArgs...)

	v := &Version{
		FileID:      fileID,
		Sequence:    seq,
		Label:       fmt.Sprintf("version%d", seq),
		Committer:   committer,
		ContentHash: core.CalculateBlobHash([]byte(fmt.Sprintf("%s-%d", fileID, seq))),
	}
	require.NoError(t, repo.CreateVersion(ctx, v), msgAndArgs...)
	return v
}
