package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
)

// ErrObjectExists 表示目标路径已有对象, 上传不会覆盖它。
var ErrObjectExists = errors.New("object already exists")

// NewClient 创建一个 MinIO 客户端。
func NewClient(cfg *config.MinIOConfig) (*minio.Client, error) {
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""), // 静态凭证。
		Secure: cfg.Secure,                                                // 是否使用 HTTPS。
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("无法创建 MinIO 客户端: %w", err)
	}
	return c, nil
}

// Store 将书籍原文保存在单个存储桶中。
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore 返回绑定到 bucket 的 Store, 存储桶不存在时自动创建。
func NewStore(ctx context.Context, c *minio.Client, bucket string) (*Store, error) {
	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶 %s 失败: %w", bucket, err)
	}
	if !exists {
		if err := c.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建存储桶 %s 失败: %w", bucket, err)
		}
		logrus.WithField("bucket", bucket).Info("已创建 MinIO 存储桶")
	}
	return &Store{client: c, bucket: bucket}, nil
}

// Put 上传一个对象。已存在的路径返回 ErrObjectExists, 不覆盖。
func (s *Store) Put(ctx context.Context, path string, content []byte, contentType string) error {
	_, err := s.client.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{})
	if err == nil {
		return fmt.Errorf("%s: %w", path, ErrObjectExists)
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("检查对象 %s 失败: %w", path, err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, path, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		return fmt.Errorf("上传对象 %s 失败: %w", path, err)
	}
	return nil
}

// Remove 删除一个对象。
func (s *Store) Remove(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", path, err)
	}
	return nil
}

// HealthCheck 检查存储桶是否可访问。
func (s *Store) HealthCheck(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("MinIO 健康检查失败: %w", err)
	}
	return nil
}
