// Package storage архив голосовых предупреждений в S3-совместимом хранилище.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNotConfigured клиент S3 не создан
var ErrNotConfigured = errors.New("storage: s3 client not initialized")

const (
	audioContentType = "audio/mpeg"
	defaultRegion    = "us-east-1"
)

// Archive загружает аудиофайлы в бакет
type Archive struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewArchive создает клиента minio; endpoint без схемы, например localhost:9000
func NewArchive(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Archive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: defaultRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &Archive{
		client: client,
		bucket: bucket,
		logger: log.With().Str("component", "voice_archive").Logger(),
	}, nil
}

// EnsureBucket создает бакет, если его еще нет
func (a *Archive) EnsureBucket(ctx context.Context) error {
	if a == nil || a.client == nil {
		return ErrNotConfigured
	}
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("s3 bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("s3 make bucket: %w", err)
	}
	a.logger.Info().Str("bucket", a.bucket).Msg("Bucket created")
	return nil
}

// ObjectKey ключ объекта: станция/дата/имя файла
func ObjectKey(sourceID string, ts time.Time, fileName string) string {
	return path.Join(sourceID, ts.UTC().Format("2006-01-02"), path.Base(fileName))
}

// Upload кладет MP3 в бакет под ключом key
func (a *Archive) Upload(ctx context.Context, key string, audio []byte) error {
	if a == nil || a.client == nil {
		return ErrNotConfigured
	}

	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(audio), int64(len(audio)),
		minio.PutObjectOptions{ContentType: audioContentType})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}

	a.logger.Debug().Str("key", key).Int("bytes", len(audio)).Msg("Voice clip archived")
	return nil
}

// PresignedURL временная ссылка на объект
func (a *Archive) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if a == nil || a.client == nil {
		return "", ErrNotConfigured
	}

	u, err := a.client.PresignedGetObject(ctx, a.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presigned get object: %w", err)
	}
	return u.String(), nil
}
