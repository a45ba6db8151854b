package cvrpc

import "time"

// -----------------------------------------------------------------------------
// 资源
// -----------------------------------------------------------------------------

type File struct {
	ID           string     `cbor:"id"`
	Title        []string   `cbor:"title,omitempty"`
	Label        string     `cbor:"label,omitempty"`
	Depositor    string     `cbor:"depositor,omitempty"`
	DateUploaded *time.Time `cbor:"date_uploaded,omitempty"`
	DateModified *time.Time `cbor:"date_modified,omitempty"`
	Visibility   string     `cbor:"visibility"`
	UploadSetID  string     `cbor:"upload_set_id,omitempty"`
	WorkIDs      []string   `cbor:"work_ids,omitempty"`

	// characterization 派生字段，尚未完成时为空
	MimeType             string     `cbor:"mime_type,omitempty"`
	FileSize             int64      `cbor:"file_size,omitempty"`
	Checksum             string     `cbor:"checksum,omitempty"`
	CharacterizedVersion int        `cbor:"characterized_version,omitempty"`
	CharacterizedAt      *time.Time `cbor:"characterized_at,omitempty"`

	LatestVersion string `cbor:"latest_version,omitempty"`
	VersionCount  int64  `cbor:"version_count"`
}

type Version struct {
	FileID       string    `cbor:"file_id"`
	Label        string    `cbor:"label"`
	Sequence     int       `cbor:"sequence"`
	Committer    string    `cbor:"committer"`
	ContentHash  string    `cbor:"content_hash"`
	OriginalName string    `cbor:"original_name,omitempty"`
	MimeType     string    `cbor:"mime_type"`
	Size         int64     `cbor:"size"`
	CreatedAt    time.Time `cbor:"created_at"`
}

type Work struct {
	ID               string   `cbor:"id"`
	Title            []string `cbor:"title,omitempty"`
	Depositor        string   `cbor:"depositor,omitempty"`
	Visibility       string   `cbor:"visibility"`
	RepresentativeID string   `cbor:"representative_id,omitempty"`
	FileIDs          []string `cbor:"file_ids,omitempty"`
}

// -----------------------------------------------------------------------------
// 请求 / 响应
// -----------------------------------------------------------------------------

type CreateMetadataRequest struct {
	UserKey     string `cbor:"user_key" validate:"required"`
	FileID      string `cbor:"file_id,omitempty"` // 为空时由服务端分配
	UploadSetID string `cbor:"upload_set_id,omitempty"`
	WorkID      string `cbor:"work_id,omitempty"`
}

type CreateContentRequest struct {
	UserKey  string `cbor:"user_key" validate:"required"`
	FileID   string `cbor:"file_id" validate:"required"`
	Filename string `cbor:"filename"`
	MimeType string `cbor:"mime_type,omitempty"`
	Content  []byte `cbor:"content"`
}

type RevertContentRequest struct {
	UserKey string `cbor:"user_key" validate:"required"`
	FileID  string `cbor:"file_id" validate:"required"`
	Label   string `cbor:"label" validate:"required"`
}

type UpdateMetadataRequest struct {
	UserKey    string   `cbor:"user_key" validate:"required"`
	FileID     string   `cbor:"file_id" validate:"required"`
	Title      []string `cbor:"title,omitempty"`
	Visibility string   `cbor:"visibility,omitempty"`
}

type DestroyRequest struct {
	UserKey string `cbor:"user_key" validate:"required"`
	FileID  string `cbor:"file_id" validate:"required"`
}

type DestroyResponse struct{}

type GetFileRequest struct {
	FileID string `cbor:"file_id" validate:"required"`
}

type FileResponse struct {
	File File `cbor:"file"`
}

type GetContentRequest struct {
	FileID string `cbor:"file_id" validate:"required"`
	Label  string `cbor:"label,omitempty"` // 为空取最新版本
}

type ContentResponse struct {
	Version Version `cbor:"version"`
	Content []byte  `cbor:"content"`
}

type ListVersionsRequest struct {
	FileID string `cbor:"file_id" validate:"required"`
}

type VersionsByCommitterRequest struct {
	Committer string `cbor:"committer" validate:"required"`
	Limit     int    `cbor:"limit,omitempty" validate:"gte=0,lte=1000"`
}

type ListVersionsResponse struct {
	Versions []Version `cbor:"versions"`
}

type VersionResponse struct {
	Version Version `cbor:"version"`
}

type CreateWorkRequest struct {
	UserKey    string   `cbor:"user_key" validate:"required"`
	Title      []string `cbor:"title,omitempty"`
	Visibility string   `cbor:"visibility,omitempty"`
}

type SetRepresentativeRequest struct {
	UserKey string `cbor:"user_key" validate:"required"`
	WorkID  string `cbor:"work_id" validate:"required"`
	FileID  string `cbor:"file_id" validate:"required"`
}

type GetWorkRequest struct {
	WorkID string `cbor:"work_id" validate:"required"`
}

type WorkResponse struct {
	Work Work `cbor:"work"`
}

type CreateUploadSetRequest struct {
	UserKey string `cbor:"user_key" validate:"required"`
}

type UploadSetResponse struct {
	ID string `cbor:"id"`
}

// -----------------------------------------------------------------------------
// Getters (nil-safe，和 protoc 生成代码的习惯一致)
// -----------------------------------------------------------------------------

func (r *CreateMetadataRequest) GetUserKey() string {
	if r == nil {
		return ""
	}
	return r.UserKey
}

func (r *CreateContentRequest) GetUserKey() string {
	if r == nil {
		return ""
	}
	return r.UserKey
}

func (r *RevertContentRequest) GetUserKey() string {
	if r == nil {
		return ""
	}
	return r.UserKey
}

func (r *UpdateMetadataRequest) GetUserKey() string {
	if r == nil {
		return ""
	}
	return r.UserKey
}

func (r *DestroyRequest) GetUserKey() string {
	if r == nil {
		return ""
	}
	return r.UserKey
}

func (r *CreateWorkRequest) GetUserKey() string {
	if r == nil {
		return ""
	}
	return r.UserKey
}

func (r *SetRepresentativeRequest) GetUserKey() string {
	if r == nil {
		return ""
	}
	return r.UserKey
}

func (r *CreateUploadSetRequest) GetUserKey() string {
	if r == nil {
		return ""
	}
	return r.UserKey
}
