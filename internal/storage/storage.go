// Package storage provides the blob side of the data gateway: uploading
// images into named logical buckets and resolving their public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlobStore stores objects under logical buckets. Logical buckets are key
// prefixes inside one physical bucket.
type BlobStore interface {
	Upload(ctx context.Context, bucket, name string, r io.Reader, size int64, contentType string) (string, error)
	PublicURL(bucket, name string) string
	Remove(ctx context.Context, bucket string, names []string) error
	NameFromURL(bucket, url string) (string, bool)
}

// ObjectName builds a collision-resistant object name from the upload time,
// a random suffix and the original file extension.
func ObjectName(original string, now time.Time) string {
	ext := strings.ToLower(path.Ext(original))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), suffix, ext)
}

// objectKey joins a logical bucket and an object name into a physical key
func objectKey(bucket, name string) string {
	return strings.Trim(bucket, "/") + "/" + strings.TrimLeft(name, "/")
}

// nameFromURL extracts the object name when url points into bucket under base
func nameFromURL(base, bucket, url string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/" + strings.Trim(bucket, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(url, prefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
