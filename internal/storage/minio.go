package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions configures the MinIO driver
type MinioOptions struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// MinioStore implements BlobStore for MinIO deployments
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioStore connects to MinIO and ensures the bucket exists
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	baseURL := opts.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, opts.Endpoint, opts.Bucket)
	}

	return &MinioStore{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Upload puts an object and returns its name
func (m *MinioStore) Upload(ctx context.Context, bucket, name string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, objectKey(bucket, name), r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return name, nil
}

// PublicURL returns the publicly reachable URL of an object
func (m *MinioStore) PublicURL(bucket, name string) string {
	return m.baseURL + "/" + objectKey(bucket, name)
}

// NameFromURL reports the object name if url was produced by PublicURL
func (m *MinioStore) NameFromURL(bucket, url string) (string, bool) {
	return nameFromURL(m.baseURL, bucket, url)
}

// Remove deletes objects from a logical bucket
func (m *MinioStore) Remove(ctx context.Context, bucket string, names []string) error {
	var errs []error
	for _, name := range names {
		if err := m.client.RemoveObject(ctx, m.bucket, objectKey(bucket, name), minio.RemoveObjectOptions{}); err != nil {
			errs = append(errs, fmt.Errorf("delete object %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
