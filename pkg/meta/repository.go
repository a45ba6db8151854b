package meta

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"curationvault/pkg/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrFileNotFound      = fmt.Errorf("file object %w", types.ErrNotFound)
	ErrWorkNotFound      = fmt.Errorf("work %w", types.ErrNotFound)
	ErrUploadSetNotFound = fmt.Errorf("upload set %w", types.ErrNotFound)
	ErrVersionNotFound   = fmt.Errorf("version %w", types.ErrNotFound)

	// ErrVersionConflict 说明同一个序号被写了两次，只会在绕过锁时出现
	ErrVersionConflict = errors.New("version sequence already recorded")
)

// Repository 封装所有对 SQL 数据库的操作
// 在 Transaction 回调里拿到的 Repository 绑定在同一个事务上
type Repository struct {
	db *DB
	tx *gorm.DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	if r.tx != nil {
		return r.tx.WithContext(ctx)
	}
	return r.db.GetConn().WithContext(ctx)
}

// Transaction 在一个数据库事务里执行 fn。fn 返回错误则整体回滚。
// 已经在事务里时直接复用外层事务。
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	return r.db.GetConn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: r.db, tx: tx})
	})
}

// isDuplicateKey 兼容不同数据库(PG与SQLite)的唯一约束错误
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key value")
}

// -----------------------------------------------------------------------------
// 1. FileObject
// -----------------------------------------------------------------------------

func (r *Repository) GetFile(ctx context.Context, id types.ID) (*FileObject, error) {
	var f FileObject
	err := r.conn(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repository) CreateFile(ctx context.Context, f *FileObject) error {
	if err := r.conn(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("failed to create file object %s: %w", f.ID, err)
	}
	return nil
}

// UpdateFile 覆盖写全部字段
func (r *Repository) UpdateFile(ctx context.Context, f *FileObject) error {
	result := r.conn(ctx).Model(f).Select("*").Omit("created_at").Updates(f)
	if result.Error != nil {
		return fmt.Errorf("failed to update file object %s: %w", f.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *Repository) DeleteFile(ctx context.Context, id types.ID) error {
	result := r.conn(ctx).Where("id = ?", id).Delete(&FileObject{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete file object %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *Repository) CreateTombstone(ctx context.Context, id types.ID, by string, at time.Time) error {
	t := &Tombstone{FileID: id, DestroyedBy: by, DestroyedAt: at}
	if err := r.conn(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to record destruction of %s: %w", id, err)
	}
	return nil
}

// IsDestroyed 报告这个 ID 是否属于一个已销毁的 FileObject
func (r *Repository) IsDestroyed(ctx context.Context, id types.ID) (bool, error) {
	var count int64
	err := r.conn(ctx).Model(&Tombstone{}).Where("file_id = ?", id).Count(&count).Error
	return count > 0, err
}

// TechnicalMetadata 是 characterization 的产出
type TechnicalMetadata struct {
	Sequence int
	MimeType string
	Size     int64
	Checksum string
	At       time.Time
}

func (r *Repository) RecordCharacterization(ctx context.Context, id types.ID, tm TechnicalMetadata) error {
	result := r.conn(ctx).Model(&FileObject{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"mime_type":             tm.MimeType,
			"file_size":             tm.Size,
			"checksum":              tm.Checksum,
			"characterized_version": tm.Sequence,
			"characterized_at":      tm.At,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// 2. Work / UploadSet
// -----------------------------------------------------------------------------

func (r *Repository) GetWork(ctx context.Context, id types.ID) (*Work, error) {
	var w Work
	err := r.conn(ctx).Where("id = ?", id).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWorkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) CreateWork(ctx context.Context, w *Work) error {
	if err := r.conn(ctx).Create(w).Error; err != nil {
		return fmt.Errorf("failed to create work %s: %w", w.ID, err)
	}
	return nil
}

func (r *Repository) UpdateWork(ctx context.Context, w *Work) error {
	result := r.conn(ctx).Model(w).Select("*").Omit("created_at").Updates(w)
	if result.Error != nil {
		return fmt.Errorf("failed to update work %s: %w", w.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWorkNotFound
	}
	return nil
}

func (r *Repository) SetRepresentative(ctx context.Context, workID, fileID types.ID) error {
	result := r.conn(ctx).Model(&Work{}).
		Where("id = ?", workID).
		Update("representative_id", fileID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWorkNotFound
	}
	return nil
}

// ClearRepresentative 只在 representative 仍指向 fileID 时清空 (条件更新)
// 返回是否真的清掉了
func (r *Repository) ClearRepresentative(ctx context.Context, workID, fileID types.ID) (bool, error) {
	// SQL: UPDATE works SET representative_id = '' WHERE id = ? AND representative_id = ?
	result := r.conn(ctx).Model(&Work{}).
		Where("id = ? AND representative_id = ?", workID, fileID).
		Updates(map[string]any{
			"representative_id": types.ID(""),
			"updated_at":        time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) GetUploadSet(ctx context.Context, id types.ID) (*UploadSet, error) {
	var s UploadSet
	err := r.conn(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUploadSetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) CreateUploadSet(ctx context.Context, s *UploadSet) error {
	if err := r.conn(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("failed to create upload set %s: %w", s.ID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// 3. 关联边 (Work Members)
// -----------------------------------------------------------------------------

// AddMember 幂等写入：边已存在时什么都不做
func (r *Repository) AddMember(ctx context.Context, workID, fileID types.ID) error {
	err := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "work_id"}, {Name: "file_id"}},
			DoNothing: true,
		}).
		Create(&WorkMember{WorkID: workID, FileID: fileID}).Error
	if err != nil {
		return fmt.Errorf("failed to add %s to work %s: %w", fileID, workID, err)
	}
	return nil
}

func (r *Repository) RemoveMember(ctx context.Context, workID, fileID types.ID) error {
	return r.conn(ctx).
		Where("work_id = ? AND file_id = ?", workID, fileID).
		Delete(&WorkMember{}).Error
}

func (r *Repository) RemoveAllMembers(ctx context.Context, fileID types.ID) (int64, error) {
	result := r.conn(ctx).Where("file_id = ?", fileID).Delete(&WorkMember{})
	return result.RowsAffected, result.Error
}

func (r *Repository) IsMember(ctx context.Context, workID, fileID types.ID) (bool, error) {
	var count int64
	err := r.conn(ctx).Model(&WorkMember{}).
		Where("work_id = ? AND file_id = ?", workID, fileID).
		Count(&count).Error
	return count > 0, err
}

// WorksForFile 返回包含该文件的所有 Work (按关联创建时间排序)
func (r *Repository) WorksForFile(ctx context.Context, fileID types.ID) ([]Work, error) {
	var works []Work
	err := r.conn(ctx).
		Joins("JOIN work_members ON work_members.work_id = works.id").
		Where("work_members.file_id = ?", fileID).
		Order("work_members.created_at ASC").
		Find(&works).Error
	return works, err
}

// FilesInWork 返回 Work 的所有成员文件
func (r *Repository) FilesInWork(ctx context.Context, workID types.ID) ([]FileObject, error) {
	var files []FileObject
	err := r.conn(ctx).
		Joins("JOIN work_members ON work_members.file_id = file_objects.id").
		Where("work_members.work_id = ?", workID).
		Order("work_members.created_at ASC").
		Find(&files).Error
	return files, err
}

// -----------------------------------------------------------------------------
// 4. 版本 (Versions)
// -----------------------------------------------------------------------------

// NextSequence 返回下一个可用序号: MAX(sequence) + 1
// 用 MAX 而不是 COUNT，删除过的序号不会被复用
func (r *Repository) NextSequence(ctx context.Context, fileID types.ID) (int, error) {
	var maxSeq int
	err := r.conn(ctx).Model(&Version{}).
		Where("file_id = ?", fileID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return 0, err
	}
	return maxSeq + 1, nil
}

func (r *Repository) CreateVersion(ctx context.Context, v *Version) error {
	if err := r.conn(ctx).Create(v).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrVersionConflict
		}
		return fmt.Errorf("failed to record version: %w", err)
	}
	return nil
}

func (r *Repository) LatestVersion(ctx context.Context, fileID types.ID) (*Version, error) {
	var v Version
	err := r.conn(ctx).
		Where("file_id = ?", fileID).
		Order("sequence DESC").
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *Repository) GetVersion(ctx context.Context, id uint) (*Version, error) {
	var v Version
	err := r.conn(ctx).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *Repository) GetVersionByLabel(ctx context.Context, fileID types.ID, label string) (*Version, error) {
	var v Version
	err := r.conn(ctx).
		Where("file_id = ? AND label = ?", fileID, label).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVersions 按序号升序返回全部版本
func (r *Repository) ListVersions(ctx context.Context, fileID types.ID) ([]Version, error) {
	var versions []Version
	err := r.conn(ctx).
		Where("file_id = ?", fileID).
		Order("sequence ASC").
		Find(&versions).Error
	return versions, err
}

func (r *Repository) CountVersions(ctx context.Context, fileID types.ID) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&Version{}).Where("file_id = ?", fileID).Count(&count).Error
	return count, err
}

// CountContentRefs 返回引用某份内容的版本数 (跨文件)
func (r *Repository) CountContentRefs(ctx context.Context, hash types.Hash) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&Version{}).Where("content_hash = ?", hash).Count(&count).Error
	return count, err
}

func (r *Repository) DeleteVersions(ctx context.Context, fileID types.ID) (int64, error) {
	result := r.conn(ctx).Where("file_id = ?", fileID).Delete(&Version{})
	return result.RowsAffected, result.Error
}

// FindVersionsByCommitter 查询某个用户提交过的版本，最新的在前
func (r *Repository) FindVersionsByCommitter(ctx context.Context, committer string, limit int) ([]Version, error) {
	var versions []Version
	err := r.conn(ctx).
		Where("committer = ?", committer).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&versions).Error
	return versions, err
}
