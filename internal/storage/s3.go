package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the connection settings for the attachment bucket.
// Any S3-compatible endpoint works; MinIO is what runs alongside in dev.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func LoadS3ConfigFromEnv() (S3Config, error) {
	env := func(key string) string { return strings.TrimSpace(os.Getenv(key)) }

	cfg := S3Config{
		Endpoint:  env("S3_ENDPOINT"),
		Region:    env("S3_REGION"),
		Bucket:    env("S3_BUCKET"),
		AccessKey: env("S3_ACCESS_KEY"),
		SecretKey: env("S3_SECRET_KEY"),
	}
	if raw := env("S3_USE_SSL"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return S3Config{}, fmt.Errorf("invalid S3_USE_SSL %q: %w", raw, err)
		}
		cfg.UseSSL = b
	}

	var missing []string
	for _, kv := range []struct{ key, val string }{
		{"S3_ENDPOINT", cfg.Endpoint},
		{"S3_BUCKET", cfg.Bucket},
		{"S3_ACCESS_KEY", cfg.AccessKey},
		{"S3_SECRET_KEY", cfg.SecretKey},
	} {
		if kv.val == "" {
			missing = append(missing, kv.key)
		}
	}
	if len(missing) > 0 {
		return S3Config{}, fmt.Errorf("missing required S3 env: %s", strings.Join(missing, ", "))
	}
	// Region stays optional; MinIO ignores it.
	return cfg, nil
}

// S3Storage stores post attachments as opaque objects keyed by the service.
type S3Storage struct {
	client *minio.Client
	bucket string
}

// NewS3Storage connects and verifies the bucket exists, so a
// misconfigured bucket surfaces at startup instead of on first upload.
func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ok, err := cl.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("bucket check: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	return &S3Storage{client: cl, bucket: cfg.Bucket}, nil
}

// ObjectStat describes a stored attachment.
type ObjectStat struct {
	ETag         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

func (s *S3Storage) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (ObjectStat, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return ObjectStat{}, err
	}
	return ObjectStat{ETag: info.ETag, Size: info.Size, ContentType: contentType, LastModified: time.Now().UTC()}, nil
}

func (s *S3Storage) GetObject(ctx context.Context, key string) (io.ReadCloser, ObjectStat, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectStat{}, err
	}
	// GetObject is lazy; Stat forces the request and reports a missing key.
	st, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, ObjectStat{}, err
	}
	return obj, ObjectStat{ETag: st.ETag, Size: st.Size, ContentType: st.ContentType, LastModified: st.LastModified}, nil
}

func (s *S3Storage) RemoveObject(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
