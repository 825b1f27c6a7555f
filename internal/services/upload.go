package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"church-site-backend/internal/storage"

	"github.com/rs/zerolog/log"
)

const bytesPerMB = 1024 * 1024

// ImageFile is an image submitted with a create or update
type ImageFile struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Options tunes load and upload behavior shared by every store
type Options struct {
	LoadTimeout   time.Duration
	UploadTimeout time.Duration
	MaxImageBytes int64
}

func (o Options) withDefaults() Options {
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = 3 * time.Second
	}
	if o.UploadTimeout <= 0 {
		o.UploadTimeout = 60 * time.Second
	}
	if o.MaxImageBytes <= 0 {
		o.MaxImageBytes = 5 * bytesPerMB
	}
	return o
}

// uploader runs the blob half of a create or update: size guard, upload
// under a deadline, public URL resolution
type uploader struct {
	blobs    storage.BlobStore
	maxBytes int64
	timeout  time.Duration
	now      func() time.Time
}

func newUploader(blobs storage.BlobStore, opts Options) *uploader {
	return &uploader{
		blobs:    blobs,
		maxBytes: opts.MaxImageBytes,
		timeout:  opts.UploadTimeout,
		now:      time.Now,
	}
}

// check rejects files before any network call
func (u *uploader) check(f *ImageFile) error {
	if f == nil || f.Reader == nil {
		return validationError("image file is required")
	}
	if f.Size > u.maxBytes {
		return validationError("File size exceeds %dMB. Please choose a smaller image.", u.maxBytes/bytesPerMB)
	}
	if f.ContentType != "" && !strings.HasPrefix(f.ContentType, "image/") {
		return validationError("file must be an image, got %s", f.ContentType)
	}
	return nil
}

// upload stores f in bucket and returns its public URL
func (u *uploader) upload(ctx context.Context, bucket string, f *ImageFile) (string, error) {
	if err := u.check(f); err != nil {
		return "", err
	}
	name := storage.ObjectName(f.Name, u.now())

	url, err := withDeadline(ctx, u.timeout, func(ctx context.Context) (string, error) {
		stored, err := u.blobs.Upload(ctx, bucket, name, f.Reader, f.Size, f.ContentType)
		if err != nil {
			return "", err
		}
		return u.blobs.PublicURL(bucket, stored), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	log.Debug().Str("bucket", bucket).Str("object", name).Msg("Image uploaded")
	return url, nil
}

// remove deletes the object behind url when it lives in bucket. Failures are
// logged only.
func (u *uploader) remove(ctx context.Context, bucket, url string) {
	name, ok := u.blobs.NameFromURL(bucket, url)
	if !ok {
		return
	}
	if err := u.blobs.Remove(ctx, bucket, []string{name}); err != nil {
		log.Warn().Err(err).Str("bucket", bucket).Str("object", name).Msg("Failed to remove image")
	}
}

// removeAll deletes every object among urls that lives in bucket
func (u *uploader) removeAll(ctx context.Context, bucket string, urls []string) {
	names := make([]string, 0, len(urls))
	for _, url := range urls {
		if name, ok := u.blobs.NameFromURL(bucket, url); ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return
	}
	if err := u.blobs.Remove(ctx, bucket, names); err != nil {
		log.Warn().Err(err).Str("bucket", bucket).Int("objects", len(names)).Msg("Failed to remove images")
	}
}
