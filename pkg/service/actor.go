package service

import (
	"bytes"
	"context"
	"errors"
	"io"

	cvrpc "curationvault/pkg/api/cvrpc/v1"
	"curationvault/pkg/actor"
	"curationvault/pkg/app"
	"curationvault/pkg/meta"
	"curationvault/pkg/types"
)

// ActorService 把 FileActor 和关联管理暴露成 gRPC
type ActorService struct {
	cvrpc.UnimplementedActorServiceServer
	app *app.App
}

func NewActorService(application *app.App) *ActorService {
	return &ActorService{app: application}
}

func (s *ActorService) actorFor(fileID string, user string) *actor.FileActor {
	return s.app.Actor(&meta.FileObject{ID: types.ID(fileID)}, types.UserKey(user))
}

// CreateMetadata 处理文件创建请求
func (s *ActorService) CreateMetadata(ctx context.Context, req *cvrpc.CreateMetadataRequest) (*cvrpc.FileResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, toStatus(err)
	}

	a := s.actorFor(req.FileID, req.UserKey)
	if err := a.CreateMetadata(ctx, types.ID(req.UploadSetID), types.ID(req.WorkID)); err != nil {
		return nil, toStatus(err)
	}
	return s.fileResponse(ctx, a.File().ID)
}

// CreateContent 处理上传。没有内容等价于表单里没选文件。
func (s *ActorService) CreateContent(ctx context.Context, req *cvrpc.CreateContentRequest) (*cvrpc.VersionResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, toStatus(err)
	}

	var reader io.Reader
	if len(req.Content) > 0 {
		reader = bytes.NewReader(req.Content)
	}

	v, err := s.actorFor(req.FileID, req.UserKey).CreateContent(ctx, actor.UploadedFile{
		Reader:   reader,
		Filename: req.Filename,
		MimeType: req.MimeType,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &cvrpc.VersionResponse{Version: toVersion(v)}, nil
}

func (s *ActorService) RevertContent(ctx context.Context, req *cvrpc.RevertContentRequest) (*cvrpc.VersionResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, toStatus(err)
	}

	v, err := s.actorFor(req.FileID, req.UserKey).RevertContent(ctx, req.Label)
	if err != nil {
		return nil, toStatus(err)
	}
	return &cvrpc.VersionResponse{Version: toVersion(v)}, nil
}

func (s *ActorService) UpdateMetadata(ctx context.Context, req *cvrpc.UpdateMetadataRequest) (*cvrpc.FileResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, toStatus(err)
	}

	a := s.actorFor(req.FileID, req.UserKey)
	err := a.UpdateMetadata(ctx, actor.MetadataUpdate{Title: req.Title, Visibility: req.Visibility})
	if err != nil {
		return nil, toStatus(err)
	}
	return s.fileResponse(ctx, a.File().ID)
}

func (s *ActorService) Destroy(ctx context.Context, req *cvrpc.DestroyRequest) (*cvrpc.DestroyResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, toStatus(err)
	}

	if err := s.actorFor(req.FileID, req.UserKey).Destroy(ctx); err != nil {
		return nil, toStatus(err)
	}
	return &cvrpc.DestroyResponse{}, nil
}

func (s *ActorService) GetFile(ctx context.Context, req *cvrpc.GetFileRequest) (*cvrpc.FileResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, toStatus(err)
	}
	return s.fileResponse(ctx, types.ID(req.FileID))
}

// GetContent 返回某个版本的完整内容，label 为空时取最新版本
func (s *ActorService) GetContent(ctx context.Context, req *cvrpc.GetContentRequest) (*cvrpc.ContentResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, toStatus(err)
	}

	fileID := types.ID(req.FileID)
	var (
		v   *meta.Version
		err error
	)
	if req.Label == "" {
		v, err = s.app.Versions.Latest(ctx, fileID)
	} else {
		v, err = s.app.Versions.Get(ctx, fileID, req.Label)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	rc, err := s.app.Versions.Open(ctx, v)
	if err != nil {
		return nil, toStatus(err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, toStatus(errors.Join(types.ErrIOFailure, err))
	}
	return &cvrpc.ContentResponse{Version: toVersion(v), Content: data}, nil
}

func (s *ActorService) ListVersions(ctx context.Context, req *cvrpc.ListVersionsRequest) (*cvrpc.ListVersionsResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, toStatus(err)
	}

	fileID := types.ID(req.FileID)
	// 区分 "文件不存在" 和 "还没有内容"
	if _, err := s.app.Repo.GetFile(ctx, fileID); err != nil {
		return nil, toStatus(err)
	}
	versions, err := s.app.Versions.List(ctx, fileID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &cvrpc.ListVersionsResponse{Versions: toVersions(versions)}, nil
}

func (s *ActorService) VersionsByCommitter(ctx context.Context, req *cvrpc.VersionsByCommitterRequest) (*cvrpc.ListVersionsResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, toStatus(err)
	}

	versions, err := s.app.Versions.ByCommitter(ctx, types.UserKey(req.Committer), req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &cvrpc.ListVersionsResponse{Versions: toVersions(versions)}, nil
}

// CreateWork 创建父容器。Work 本身不经过 FileActor，直接写库
func (s *ActorService) CreateWork(ctx context.Context, req *cvrpc.CreateWorkRequest) (*cvrpc.WorkResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, toStatus(err)
	}
	vis, err := types.ParseVisibility(req.Visibility)
	if err != nil {
		return nil, toStatus(err)
	}

	w := &meta.Work{ID: types.NewID(), Depositor: req.UserKey, Visibility: vis}
	w.SetTitles(req.Title)
	if err := s.app.Repo.CreateWork(ctx, w); err != nil {
		return nil, toStatus(err)
	}
	return &cvrpc.WorkResponse{Work: toWork(w, nil)}, nil
}

func (s *ActorService) SetRepresentative(ctx context.Context, req *cvrpc.SetRepresentativeRequest) (*cvrpc.WorkResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, toStatus(err)
	}

	workID := types.ID(req.WorkID)
	if err := s.actorFor(req.FileID, req.UserKey).MakeRepresentative(ctx, workID); err != nil {
		return nil, toStatus(err)
	}
	return s.workResponse(ctx, workID)
}

func (s *ActorService) GetWork(ctx context.Context, req *cvrpc.GetWorkRequest) (*cvrpc.WorkResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, toStatus(err)
	}
	return s.workResponse(ctx, types.ID(req.WorkID))
}

func (s *ActorService) CreateUploadSet(ctx context.Context, req *cvrpc.CreateUploadSetRequest) (*cvrpc.UploadSetResponse, error) {
	if err := types.Validate(req); err != nil {
		return nil, toStatus(err)
	}

	set := &meta.UploadSet{ID: types.NewID(), Depositor: req.UserKey}
	if err := s.app.Repo.CreateUploadSet(ctx, set); err != nil {
		return nil, toStatus(err)
	}
	return &cvrpc.UploadSetResponse{ID: set.ID.String()}, nil
}

func (s *ActorService) fileResponse(ctx context.Context, id types.ID) (*cvrpc.FileResponse, error) {
	f, err := s.app.Repo.GetFile(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	works, err := s.app.Graph.WorksFor(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	latest, err := s.app.Versions.Latest(ctx, id)
	if err != nil && !errors.Is(err, meta.ErrVersionNotFound) {
		return nil, toStatus(err)
	}
	count, err := s.app.Versions.Count(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &cvrpc.FileResponse{File: toFile(f, works, latest, count)}, nil
}

func (s *ActorService) workResponse(ctx context.Context, id types.ID) (*cvrpc.WorkResponse, error) {
	w, err := s.app.Repo.GetWork(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	files, err := s.app.Graph.FilesIn(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &cvrpc.WorkResponse{Work: toWork(w, files)}, nil
}
