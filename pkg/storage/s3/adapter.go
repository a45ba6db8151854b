package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"curationvault/pkg/core"
	"curationvault/pkg/storage"
	"curationvault/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// 所有版本内容都放在这个前缀下，Bucket 可以和别的系统共用
const blobPrefix = "blobs/"

// Adapter 把 Blob 存成 bucket 里 blobs/<前两位>/<剩余> 的对象
type Adapter struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

// Config 对应配置里的 s3 段
type Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// NewAdapter 初始化 S3 客户端，并确保 bucket 存在
func NewAdapter(ctx context.Context, cfg Config, logger *slog.Logger) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// MinIO 必须使用 Path Style: http://host:9000/bucket/key
		o.UsePathStyle = true
	})

	a := &Adapter{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With("component", "s3-store", "bucket", cfg.Bucket),
	}
	a.ensureBucket(ctx)
	return a, nil
}

// ensureBucket 失败只告警：并发创建或权限不足时，真正的错误会在第一次 Put 时暴露
func (s *Adapter) ensureBucket(ctx context.Context) {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err == nil {
		return
	}
	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		s.logger.Warn("failed to ensure bucket exists", "err", err)
	}
}

// objectKey: "aabbcc..." -> "blobs/aa/bbcc..."
func objectKey(hash types.Hash) string {
	h := string(hash)
	if len(h) < 2 {
		return blobPrefix + h
	}
	return blobPrefix + h[:2] + "/" + h[2:]
}

// Put 已存在时跳过 (HEAD 比 PUT 便宜)
func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return fmt.Errorf("s3 put existence check failed: %w", err)
	}
	if exists {
		return nil
	}

	data := obj.Bytes()
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey(obj.ID())),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		// 真实的 MIME 类型记录在 Version 上，Blob 只是字节
		ContentType: aws.String("application/octet-stream"),
		// 让服务端再校验一次内容，Key 本身就是 SHA-256
		ChecksumAlgorithm: s3types.ChecksumAlgorithmSha256,
	})
	if err != nil {
		return fmt.Errorf("s3 put %s failed: %w", obj.ID(), err)
	}
	return nil
}

func (s *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(hash)),
	})
	if isNotFound(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("s3 get %s failed: %w", hash, err)
	}
	return resp.Body, nil
}

func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(hash)),
	})
	if isNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// Delete 对不存在的 key 也返回成功 (S3 语义本身就是幂等的)
func (s *Adapter) Delete(ctx context.Context, hash types.Hash) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(hash)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("s3 delete %s failed: %w", hash, err)
	}
	return nil
}

// isNotFound 识别 NoSuchKey / NotFound，以及某些 S3 实现只给的裸 404
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var noKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return true
	}
	var resp *smithyhttp.ResponseError
	return errors.As(err, &resp) && resp.HTTPStatusCode() == http.StatusNotFound
}
