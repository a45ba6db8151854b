package characterize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"curationvault/pkg/lock"
	"curationvault/pkg/meta"
	"curationvault/pkg/types"
	"curationvault/pkg/versioning"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen 是 MIME 探测读取的头部长度
const sniffLen = 3072

var ErrChecksumMismatch = fmt.Errorf("stored content checksum mismatch: %w", types.ErrIOFailure)

// Worker 执行 characterization：探测 MIME、计算大小和校验和，
// 然后把结果写回 FileObject
type Worker struct {
	repo     *meta.Repository
	versions *versioning.Store
	locker   lock.Locker
	now      func() time.Time
	logger   *slog.Logger
}

func NewWorker(repo *meta.Repository, versions *versioning.Store, locker lock.Locker, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		repo:     repo,
		versions: versions,
		locker:   locker,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		logger:   logger.With("component", "characterize-worker"),
	}
}

// Handle 实现 Handler
func (w *Worker) Handle(ctx context.Context, job Job) error {
	v, err := w.current(ctx, job)
	if err != nil || v == nil {
		return err
	}

	// 1. 读内容不需要持锁：版本是不可变的
	tm, err := w.inspect(ctx, v)
	if err != nil {
		return err
	}

	// 2. 写回时持锁，并重新确认这个版本仍然是最新的
	return w.locker.WithLock(ctx, lock.FileKey(job.FileID.String()), func(ctx context.Context) error {
		latest, err := w.current(ctx, job)
		if err != nil || latest == nil {
			return err
		}
		if err := w.repo.RecordCharacterization(ctx, job.FileID, tm); err != nil {
			if errors.Is(err, meta.ErrFileNotFound) {
				return nil
			}
			return err
		}
		w.logger.Debug("characterized",
			"file_id", job.FileID, "label", v.Label, "mime_type", tm.MimeType, "size", tm.Size)
		return nil
	})
}

// current 返回 job 指向的版本；版本已删除或已有更新的版本时返回 nil
func (w *Worker) current(ctx context.Context, job Job) (*meta.Version, error) {
	v, err := w.versions.ByID(ctx, job.VersionID)
	if errors.Is(err, meta.ErrVersionNotFound) {
		w.logger.Info("skipping job for deleted version", "file_id", job.FileID, "sequence", job.Sequence)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if v.FileID != job.FileID {
		return nil, fmt.Errorf("%w: version %d does not belong to %s", types.ErrValidation, v.ID, job.FileID)
	}

	latest, err := w.versions.Latest(ctx, job.FileID)
	if errors.Is(err, meta.ErrVersionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if latest.ID != v.ID {
		w.logger.Debug("skipping superseded version",
			"file_id", job.FileID, "sequence", v.Sequence, "latest", latest.Sequence)
		return nil, nil
	}
	return v, nil
}

func (w *Worker) inspect(ctx context.Context, v *meta.Version) (meta.TechnicalMetadata, error) {
	var tm meta.TechnicalMetadata

	rc, err := w.versions.Open(ctx, v)
	if err != nil {
		return tm, err
	}
	defer rc.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return tm, fmt.Errorf("%w: %v", types.ErrIOFailure, err)
	}
	head = head[:n]

	h := sha256.New()
	h.Write(head)
	rest, err := io.Copy(h, rc)
	if err != nil {
		return tm, fmt.Errorf("%w: %v", types.ErrIOFailure, err)
	}

	checksum := hex.EncodeToString(h.Sum(nil))
	if checksum != v.ContentHash.String() {
		return tm, fmt.Errorf("%s of %s: %w", v.Label, v.FileID, ErrChecksumMismatch)
	}

	detected := mimetype.Detect(head)
	if v.MimeType != "" && !detected.Is(v.MimeType) && v.MimeType != versioning.DefaultMimeType {
		w.logger.Debug("declared mime type differs from content",
			"file_id", v.FileID, "declared", v.MimeType, "detected", detected.String())
	}

	return meta.TechnicalMetadata{
		Sequence: v.Sequence,
		MimeType: detected.String(),
		Size:     int64(len(head)) + rest,
		Checksum: checksum,
		At:       w.now(),
	}, nil
}
