package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dmitrijs2005/geocrypt/internal/common"
	"github.com/dmitrijs2005/geocrypt/internal/server/models"
)

// MinioGateway implements Gateway with minio-go.
type MinioGateway struct {
	client  *minio.Client
	bucket  string
	timeout time.Duration
	now     func() time.Time
}

// splitEndpoint turns "http://host:9000/" into ("host:9000", false).
// A bare host:port is treated as plain HTTP.
func splitEndpoint(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), false, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}

// NewMinioGateway builds a minio-go client for opts.Endpoint. When
// opts.CreateBucket is set the bucket is created if it does not exist.
func NewMinioGateway(ctx context.Context, opts Options) (*MinioGateway, error) {
	host, secure, err := splitEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	g := &MinioGateway{client: client, bucket: opts.Bucket, timeout: opts.Timeout, now: time.Now}

	if opts.CreateBucket {
		if err := g.ensureBucket(ctx, opts.Region); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func (g *MinioGateway) ensureBucket(ctx context.Context, region string) error {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	exists, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if !exists {
		if err := g.client.MakeBucket(ctx, g.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func isMinioNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

func (g *MinioGateway) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	if _, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isMinioNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat object: %w", common.ErrStorageUnavailable, err)
	}
	return true, nil
}

func (g *MinioGateway) IssueRetrievalCapability(ctx context.Context, key string, expiry time.Duration, filenameHint string) (*models.RetrievalCapability, error) {
	ok, err := g.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrObjectMissing
	}

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("response-content-disposition", attachmentDisposition(filenameHint))

	issuedAt := g.now()
	u, err := g.client.PresignedGetObject(ctx, g.bucket, key, expiry, params)
	if err != nil {
		return nil, fmt.Errorf("%w: presign get: %w", common.ErrStorageUnavailable, err)
	}

	return &models.RetrievalCapability{
		URL:       u.String(),
		ObjectKey: key,
		ExpiresAt: issuedAt.Add(expiry),
		Filename:  filenameHint,
	}, nil
}

func (g *MinioGateway) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := g.client.PutObject(ctx, g.bucket, key, r, size, opts); err != nil {
		return fmt.Errorf("%w: put object: %w", common.ErrStorageUnavailable, err)
	}
	return nil
}

func (g *MinioGateway) Delete(ctx context.Context, key string) error {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.client.RemoveObject(ctx, g.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: delete object: %w", common.ErrStorageUnavailable, err)
	}
	return nil
}
