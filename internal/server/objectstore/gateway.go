// Package objectstore stores uploaded blobs in an S3-compatible bucket and
// issues presigned, time-limited download URLs for them.
//
// Two drivers are available: "s3" on aws-sdk-go-v2 and "minio" on minio-go.
// Both return common.ErrObjectMissing when a key has no object and wrap every
// other backend failure in common.ErrStorageUnavailable.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/dmitrijs2005/geocrypt/internal/server/models"
	"github.com/google/uuid"
)

// Gateway is the object store used by the file and download services.
type Gateway interface {
	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// IssueRetrievalCapability presigns a GET for key valid for expiry. The
	// download is served as an attachment named filenameHint.
	IssueRetrievalCapability(ctx context.Context, key string, expiry time.Duration, filenameHint string) (*models.RetrievalCapability, error)

	// Put streams size bytes from r into key. A negative size means unknown.
	// Put is bounded only by ctx since transfer time grows with size.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	Delete(ctx context.Context, key string) error
}

// Options configures a Gateway driver.
type Options struct {
	Driver       string
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	Timeout      time.Duration
	CreateBucket bool
}

// New builds the Gateway named by opts.Driver.
func New(ctx context.Context, opts Options) (Gateway, error) {
	switch opts.Driver {
	case "", "s3":
		return NewS3Gateway(ctx, opts)
	case "minio":
		return NewMinioGateway(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown object store driver %q", opts.Driver)
	}
}

// NewStorageKey returns a fresh, unguessable object key under the owner's
// prefix, e.g. users/<userID>/2025/3/14/<uuid>.
func NewStorageKey(userID string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("users/%s/%d/%d/%d/%v", userID, d.Year(), d.Month(), d.Day(), uuid.New())
}

// attachmentDisposition renders a Content-Disposition value that makes
// browsers save the download as filename.
func attachmentDisposition(filename string) string {
	if filename == "" {
		return "attachment"
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
