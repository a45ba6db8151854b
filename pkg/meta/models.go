package meta

import (
	"encoding/json"
	"time"

	"curationvault/pkg/types"

	"gorm.io/datatypes"
)

// FileObject 是带版本内容的仓库实体
// 内容本身在 versions 表 + Blob 存储里，这里只有描述性和派生元数据
type FileObject struct {
	ID types.ID `gorm:"primaryKey;type:varchar(64)"`

	// Title 是有序字符串列表，用 JSON 数组存储
	Title datatypes.JSON

	// Label 按惯例取第一个版本的文件名
	Label     string `gorm:"type:varchar(1024)"`
	Depositor string `gorm:"index;type:varchar(255)"`

	// DateUploaded 只在第一次 create_metadata 时写入
	DateUploaded *time.Time
	DateModified *time.Time

	Visibility          types.Visibility `gorm:"type:varchar(32);not null;default:restricted"`
	EmbargoReleaseDate  *time.Time
	LeaseExpirationDate *time.Time

	// UploadSetID 为空表示没有分组
	UploadSetID types.ID `gorm:"index;type:varchar(64);not null;default:''"`

	// --- Characterization 派生的技术元数据 ---
	MimeType             string `gorm:"type:varchar(255)"`
	FileSize             int64
	Checksum             string `gorm:"type:varchar(64)"`
	CharacterizedVersion int
	CharacterizedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (FileObject) TableName() string {
	return "file_objects"
}

// Titles 解码 Title 列，空值返回 nil
func (f *FileObject) Titles() []string {
	return decodeTitles(f.Title)
}

func (f *FileObject) SetTitles(titles []string) {
	f.Title = encodeTitles(titles)
}

func (f *FileObject) AccessWindow() types.AccessWindow {
	return types.AccessWindow{
		EmbargoReleaseDate:  f.EmbargoReleaseDate,
		LeaseExpirationDate: f.LeaseExpirationDate,
	}
}

// Version 是某个 FileObject 内容的不可变快照
// (file_id, sequence) 唯一，数据库层面也保证同一个序号不会出现两次
type Version struct {
	ID     uint     `gorm:"primaryKey"`
	FileID types.ID `gorm:"uniqueIndex:idx_version_seq;type:varchar(64);not null"`

	// Sequence 从 1 开始单调递增，Label 形如 "version1"
	Sequence int    `gorm:"uniqueIndex:idx_version_seq;not null"`
	Label    string `gorm:"type:varchar(32);not null"`

	Committer    string     `gorm:"index;type:varchar(255);not null"`
	ContentHash  types.Hash `gorm:"index;type:char(64);not null"`
	OriginalName string     `gorm:"type:varchar(1024)"`
	MimeType     string     `gorm:"type:varchar(255)"`
	Size         int64

	CreatedAt time.Time
}

func (Version) TableName() string {
	return "versions"
}

// Tombstone 记录已销毁的 FileObject ID，ID 不会被复用
type Tombstone struct {
	FileID      types.ID `gorm:"primaryKey;type:varchar(64)"`
	DestroyedBy string   `gorm:"type:varchar(255)"`
	DestroyedAt time.Time
}

func (Tombstone) TableName() string {
	return "file_tombstones"
}

// Work 是父容器，最多指定一个 representative
type Work struct {
	ID        types.ID `gorm:"primaryKey;type:varchar(64)"`
	Title     datatypes.JSON
	Depositor string `gorm:"index;type:varchar(255)"`

	Visibility          types.Visibility `gorm:"type:varchar(32);not null;default:restricted"`
	EmbargoReleaseDate  *time.Time
	LeaseExpirationDate *time.Time

	// RepresentativeID 是弱引用：只存 ID，不拥有 FileObject
	RepresentativeID types.ID `gorm:"index;type:varchar(64);not null;default:''"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Work) TableName() string {
	return "works"
}

func (w *Work) Titles() []string {
	return decodeTitles(w.Title)
}

func (w *Work) SetTitles(titles []string) {
	w.Title = encodeTitles(titles)
}

func (w *Work) AccessWindow() types.AccessWindow {
	return types.AccessWindow{
		EmbargoReleaseDate:  w.EmbargoReleaseDate,
		LeaseExpirationDate: w.LeaseExpirationDate,
	}
}

// UploadSet 是创建时附加的可选分组
type UploadSet struct {
	ID        types.ID `gorm:"primaryKey;type:varchar(64)"`
	Depositor string   `gorm:"type:varchar(255)"`
	CreatedAt time.Time
}

func (UploadSet) TableName() string {
	return "upload_sets"
}

// WorkMember 是 Work <-> FileObject 的关联边
type WorkMember struct {
	WorkID    types.ID `gorm:"primaryKey;type:varchar(64)"`
	FileID    types.ID `gorm:"primaryKey;index;type:varchar(64)"`
	CreatedAt time.Time
}

func (WorkMember) TableName() string {
	return "work_members"
}

func decodeTitles(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var titles []string
	if err := json.Unmarshal(raw, &titles); err != nil {
		return nil
	}
	if len(titles) == 0 {
		return nil
	}
	return titles
}

func encodeTitles(titles []string) datatypes.JSON {
	if len(titles) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(titles)
	return datatypes.JSON(data)
}
