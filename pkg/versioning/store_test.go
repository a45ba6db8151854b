package versioning

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"curationvault/pkg/lock"
	"curationvault/pkg/meta"
	"curationvault/pkg/storage"
	"curationvault/pkg/storage/disk"
	"curationvault/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, *meta.Repository, types.ID) {
	t.Helper()
	db, err := meta.NewMemoryDB(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs, err := disk.NewAdapter(t.TempDir())
	require.NoError(t, err)

	repo := meta.NewRepository(db)
	f := &meta.FileObject{ID: types.NewID(), Depositor: "alice"}
	require.NoError(t, repo.CreateFile(context.Background(), f))

	return NewStore(blobs, repo, lock.NewLocal(time.Second)), repo, f.ID
}

// put 读入内容并追加一个版本
func put(ctx context.Context, s *Store, fileID types.ID, committer types.UserKey, c Content) (*meta.Version, error) {
	u, err := Read(c)
	if err != nil {
		return nil, err
	}
	return put(ctx, s, fileID, committer, u)
}

// failingReader 模拟读到一半断开的上传
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestStore_AppendAndLatest(t *testing.T) {
	s, _, fileID := setupStore(t)
	ctx := context.Background()

	_, err := s.Latest(ctx, fileID)
	assert.ErrorIs(t, err, meta.ErrVersionNotFound)

	n, err := s.Count(ctx, fileID)
	require.NoError(t, err)
	assert.Zero(t, n)

	v1, err := put(ctx, s, fileID, "alice", Content{Reader: strings.NewReader("first"), Filename: "a.txt", MimeType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "version1", v1.Label)
	assert.Equal(t, "alice", v1.Committer)
	assert.Equal(t, int64(5), v1.Size)

	v2, err := put(ctx, s, fileID, "bob", Content{Reader: strings.NewReader("second"), Filename: "b.bin"})
	require.NoError(t, err)
	assert.Equal(t, "version2", v2.Label)
	assert.Equal(t, DefaultMimeType, v2.MimeType, "没有声明类型时使用通用二进制类型")

	latest, err := s.Latest(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, latest.ID)

	n, err = s.Count(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rc, err := s.Open(ctx, latest)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	got, err := s.Get(ctx, fileID, "version1")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.OriginalName)

	byBob, err := s.ByCommitter(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, byBob, 1)
	assert.Equal(t, v2.ID, byBob[0].ID)
}

func TestStore_UnreadableStreamRecordsNothing(t *testing.T) {
	s, _, fileID := setupStore(t)
	ctx := context.Background()

	_, err := Read(Content{Reader: failingReader{}, Filename: "x"})
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.ErrorIs(t, err, types.ErrIOFailure)

	versions, err := s.List(ctx, fileID)
	require.NoError(t, err)
	assert.Empty(t, versions)

	_, err = Read(Content{})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestStore_IdenticalContentSharesBlob(t *testing.T) {
	s, _, fileID := setupStore(t)
	ctx := context.Background()

	v1, err := put(ctx, s, fileID, "alice", Content{Reader: bytes.NewReader([]byte("same"))})
	require.NoError(t, err)
	v2, err := put(ctx, s, fileID, "alice", Content{Reader: bytes.NewReader([]byte("same"))})
	require.NoError(t, err)

	assert.Equal(t, v1.ContentHash, v2.ContentHash)
	assert.NotEqual(t, v1.Label, v2.Label, "相同内容仍然是新版本")
}

func TestStore_Reappend(t *testing.T) {
	s, _, fileID := setupStore(t)
	ctx := context.Background()

	v1, err := put(ctx, s, fileID, "alice", Content{Reader: strings.NewReader("original"), Filename: "a.txt", MimeType: "text/plain"})
	require.NoError(t, err)
	_, err = put(ctx, s, fileID, "alice", Content{Reader: strings.NewReader("oops")})
	require.NoError(t, err)

	v3, err := s.Reappend(ctx, fileID, "bob", v1)
	require.NoError(t, err)
	assert.Equal(t, 3, v3.Sequence)
	assert.Equal(t, v1.ContentHash, v3.ContentHash)
	assert.Equal(t, "a.txt", v3.OriginalName)
	assert.Equal(t, "bob", v3.Committer)

	missing := *v1
	missing.ContentHash = types.Hash(strings.Repeat("0", 64))
	_, err = s.Reappend(ctx, fileID, "bob", &missing)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_DeleteAllKeepsSequenceFreshForOtherFiles(t *testing.T) {
	s, repo, fileID := setupStore(t)
	ctx := context.Background()

	_, err := put(ctx, s, fileID, "alice", Content{Reader: strings.NewReader("x")})
	require.NoError(t, err)

	other := &meta.FileObject{ID: types.NewID()}
	require.NoError(t, repo.CreateFile(ctx, other))
	_, err = put(ctx, s, other.ID, "alice", Content{Reader: strings.NewReader("y")})
	require.NoError(t, err)

	n, err := s.DeleteAll(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Latest(ctx, fileID)
	assert.ErrorIs(t, err, meta.ErrVersionNotFound)

	latest, err := s.Latest(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "version1", latest.Label, "序号按文件独立计数")
}

func TestStore_WithRepoRollsBack(t *testing.T) {
	s, repo, fileID := setupStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(tx *meta.Repository) error {
		if _, err := put(ctx, s.WithRepo(tx), fileID, "alice", Content{Reader: strings.NewReader("x")}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	versions, err := s.List(ctx, fileID)
	require.NoError(t, err)
	assert.Empty(t, versions, "事务回滚后不应该留下版本")
}

func TestStore_PruneKeepsSharedContent(t *testing.T) {
	s, repo, fileID := setupStore(t)
	ctx := context.Background()

	shared, err := put(ctx, s, fileID, "alice", Content{Reader: strings.NewReader("shared")})
	require.NoError(t, err)
	only, err := put(ctx, s, fileID, "alice", Content{Reader: strings.NewReader("only here")})
	require.NoError(t, err)

	other := &meta.FileObject{ID: types.NewID()}
	require.NoError(t, repo.CreateFile(ctx, other))
	_, err = put(ctx, s, other.ID, "bob", Content{Reader: strings.NewReader("shared")})
	require.NoError(t, err)

	_, err = s.DeleteAll(ctx, fileID)
	require.NoError(t, err)

	pruned, err := s.Prune(ctx, []types.Hash{shared.ContentHash, only.ContentHash, only.ContentHash})
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	has, err := s.blobs.Has(ctx, shared.ContentHash)
	require.NoError(t, err)
	assert.True(t, has, "另一个文件还引用这份内容")

	has, err = s.blobs.Has(ctx, only.ContentHash)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStore_PruneWaitsForGuardedAppend(t *testing.T) {
	s, repo, fileID := setupStore(t)
	ctx := context.Background()

	u, err := Read(Content{Reader: strings.NewReader("racing")})
	require.NoError(t, err)

	// 内容锁内先落盘，Prune 只能在版本记录提交后拿到锁
	inside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Guard(ctx, u.Hash(), func(ctx context.Context) error {
			if err := s.blobs.Put(ctx, u.blob); err != nil {
				return err
			}
			close(inside)
			<-release
			return repo.CreateVersion(ctx, &meta.Version{
				FileID: fileID, Sequence: 1, Label: "version1", Committer: "alice",
				ContentHash: u.Hash(), Size: u.Size(), MimeType: DefaultMimeType,
			})
		})
	}()

	<-inside
	pruned := make(chan int, 1)
	go func() {
		n, _ := s.Prune(ctx, []types.Hash{u.Hash()})
		pruned <- n
	}()
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, 0, <-pruned)
	has, err := s.blobs.Has(ctx, u.Hash())
	require.NoError(t, err)
	assert.True(t, has)
}
