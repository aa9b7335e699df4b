package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"

	"streamgo/internal/domain"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 1 * time.Hour

var (
	// ErrNoParts indicates a finalize attempt on a session with zero recorded parts.
	ErrNoParts = errors.New("no parts found for the upload")
)

// PresignOptions override response headers on a presigned GET.
// Empty fields are omitted from the request.
type PresignOptions struct {
	Expires                    time.Duration
	ResponseContentType        string
	ResponseCacheControl       string
	ResponseContentDisposition string
}

// ObjectStorage defines the interface for object storage operations.
// The multipart methods operate on the service's own bucket; GetObject and
// PutObject accept an explicit bucket so the transcoder can read/write
// whatever bucket the source URL points at (empty bucket = default).
type ObjectStorage interface {
	// InitiateMultipartUpload opens a multipart session for the given key.
	InitiateMultipartUpload(ctx context.Context, objectKey, contentType string) (uploadID string, err error)

	// UploadPart stores one part of a multipart session. Parts are
	// commutative: they may be written concurrently and in any order.
	UploadPart(ctx context.Context, objectKey, uploadID string, partNumber int32, body io.Reader) (eTag string, err error)

	// ListParts returns every part the store has actually recorded for the
	// session. This, not the client's claimed count, is the source of truth
	// at finalize time.
	ListParts(ctx context.Context, objectKey, uploadID string) ([]domain.UploadPart, error)

	// CompleteMultipartUpload finalizes the object from the given parts and
	// returns its location URL. Finalization is atomic on the store side.
	CompleteMultipartUpload(ctx context.Context, objectKey, uploadID string, parts []domain.UploadPart) (location string, err error)

	// AbortMultipartUpload discards an in-flight session and its parts.
	AbortMultipartUpload(ctx context.Context, objectKey, uploadID string) error

	// GetObject streams an object's content.
	GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)

	// PutObject writes an object in one shot (manifests, segments, thumbnails).
	PutObject(ctx context.Context, bucket, objectKey, contentType string, body io.Reader) error

	// DeleteObject removes an object from the default bucket.
	DeleteObject(ctx context.Context, objectKey string) error

	// PresignGetObject creates a temporary GET URL with optional response
	// header overrides (content type, cache control, disposition).
	PresignGetObject(ctx context.Context, bucket, objectKey string, opts PresignOptions) (string, error)
}

// ParseObjectURL extracts the bucket and decoded key from a virtual-hosted
// style S3 URL (https://<bucket>.s3.<region>.amazonaws.com/<key>?...).
// Any query string is dropped.
func ParseObjectURL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	bucket = strings.Split(u.Hostname(), ".")[0]
	key = strings.TrimPrefix(u.Path, "/")
	if decoded, derr := url.PathUnescape(key); derr == nil {
		key = decoded
	}
	if bucket == "" || key == "" {
		return "", "", errors.New("invalid object URL: missing bucket or key")
	}
	return bucket, key, nil
}
