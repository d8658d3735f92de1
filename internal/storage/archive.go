// Package storage 上传原件的对象存储归档
package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"resume-matcher/internal/config"
	"resume-matcher/internal/logger"
)

// ErrArchiveDisabled 未启用归档
var ErrArchiveDisabled = errors.New("对象存储归档未启用")

// Archive 原始简历归档接口
type Archive interface {
	// StoreOriginal 保存上传的原始文件，返回对象键和内容MD5
	StoreOriginal(ctx context.Context, resumeID, filename string, reader io.Reader, size int64) (objectKey, md5Hex string, err error)
	// FetchOriginal 读取已归档的原始文件
	FetchOriginal(ctx context.Context, objectKey string) ([]byte, error)
	// PresignedURL 生成下载链接
	PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

var _ Archive = (*MinIOArchive)(nil)

// MinIOArchive 基于MinIO的归档实现
type MinIOArchive struct {
	client *minio.Client
	bucket string
	logger *zerolog.Logger
}

// NewMinIOArchive 创建MinIO客户端并确保存储桶存在
func NewMinIOArchive(ctx context.Context, cfg config.MinIOConfig) (*MinIOArchive, error) {
	if !cfg.Enabled {
		return nil, ErrArchiveDisabled
	}
	if cfg.Endpoint == "" || cfg.BucketName == "" {
		return nil, fmt.Errorf("MinIO配置不完整: endpoint=%q bucket=%q", cfg.Endpoint, cfg.BucketName)
	}

	log := logger.Component("minio")
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	a := &MinIOArchive{client: client, bucket: cfg.BucketName, logger: log}
	if err := a.ensureBucketExists(ctx, cfg.Location); err != nil {
		return nil, err
	}
	log.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("MinIO归档已就绪")
	return a, nil
}

func (a *MinIOArchive) ensureBucketExists(ctx context.Context, location string) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", a.bucket, err)
	}
	a.logger.Info().Str("bucket", a.bucket).Msg("存储桶已创建")
	return nil
}

// StoreOriginal 流式上传原始文件并同时计算MD5
func (a *MinIOArchive) StoreOriginal(ctx context.Context, resumeID, filename string, reader io.Reader, size int64) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	objectKey := ObjectKey(resumeID, ext)

	md5Hash := md5.New()
	tee := io.TeeReader(reader, md5Hash)

	info, err := a.client.PutObject(ctx, a.bucket, objectKey, tee, size, minio.PutObjectOptions{
		ContentType: ContentType(ext),
		UserMetadata: map[string]string{
			"original-filename": filepath.Base(filename),
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("上传对象 %s/%s 失败: %w", a.bucket, objectKey, err)
	}

	md5Hex := hex.EncodeToString(md5Hash.Sum(nil))
	a.logger.Debug().
		Str("object", objectKey).
		Int64("size", info.Size).
		Str("md5", md5Hex).
		Msg("原始简历已归档")
	return objectKey, md5Hex, nil
}

// FetchOriginal 下载归档对象
func (a *MinIOArchive) FetchOriginal(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", a.bucket, objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", a.bucket, objectKey, err)
	}
	return data, nil
}

// PresignedURL 生成预签名下载链接
func (a *MinIOArchive) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := a.client.PresignedGetObject(ctx, a.bucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成MinIO预签名URL失败: %w", err)
	}
	return u.String(), nil
}

// ObjectKey 原始文件的对象键，例如 resume/<id>/original.pdf
func ObjectKey(resumeID, ext string) string {
	return fmt.Sprintf("resume/%s/original%s", resumeID, strings.ToLower(ext))
}

// ContentType 按扩展名推断内容类型
func ContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
