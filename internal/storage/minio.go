// Package storage keeps processed avatars in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"wanderplan/internal/middleware"
	"wanderplan/internal/observability"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const serviceName = "minio"

// Config addresses the bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL prefixes object keys in returned URLs. Empty derives it
	// from Endpoint and Bucket.
	PublicURL string
}

// objectStore is the subset of *minio.Client used here.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// AvatarStore writes avatars as users/<id>/<unix-nanos>.webp.
type AvatarStore struct {
	client    objectStore
	bucket    string
	publicURL string
}

// NewMinio connects and makes sure the bucket exists.
func NewMinio(ctx context.Context, cfg Config) (*AvatarStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	s := newAvatarStore(client, cfg.Bucket, publicURL)
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newAvatarStore(client objectStore, bucket, publicURL string) *AvatarStore {
	return &AvatarStore{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *AvatarStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket %s: %w", s.bucket, err)
	}
	middleware.Logger.Info("created avatar bucket", slog.String("bucket", s.bucket))
	return nil
}

// PutAvatar uploads data and returns its public URL. Keys are unique per
// upload so cached URLs never serve a stale image.
func (s *AvatarStore) PutAvatar(ctx context.Context, userID uint, data []byte, contentType string) (_ string, err error) {
	ctx, span := observability.StartClientSpan(ctx, serviceName, "put_object")
	defer func() { observability.EndSpan(span, err) }()

	key := fmt.Sprintf("users/%d/%d.webp", userID, time.Now().UnixNano())
	start := time.Now()
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	observability.UpstreamLatency.WithLabelValues(serviceName).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.UpstreamRequests.WithLabelValues(serviceName, "error").Inc()
		return "", fmt.Errorf("put avatar: %w", err)
	}
	observability.UpstreamRequests.WithLabelValues(serviceName, "ok").Inc()
	return s.publicURL + "/" + key, nil
}
