package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrijs2005/geocrypt/internal/common"
	"github.com/dmitrijs2005/geocrypt/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// s3API is the subset of *s3.Client used by S3Gateway.
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// s3Presigner is the subset of *s3.PresignClient used by S3Gateway.
type s3Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Gateway implements Gateway with aws-sdk-go-v2. Path-style addressing and
// a BaseEndpoint override make it work against MinIO as well as AWS.
type S3Gateway struct {
	client  s3API
	presign s3Presigner
	bucket  string
	timeout time.Duration
	now     func() time.Time
}

// NewS3Gateway loads an AWS config with static credentials from opts and
// builds the client and presigner once.
func NewS3Gateway(ctx context.Context, opts Options) (*S3Gateway, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	})

	g := newS3Gateway(client, s3.NewPresignClient(client), opts.Bucket, opts.Timeout)

	if opts.CreateBucket {
		if err := g.ensureBucket(ctx); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func newS3Gateway(client s3API, presign s3Presigner, bucket string, timeout time.Duration) *S3Gateway {
	return &S3Gateway{client: client, presign: presign, bucket: bucket, timeout: timeout, now: time.Now}
}

func (g *S3Gateway) ensureBucket(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	_, err := g.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(g.bucket)})
	if err == nil {
		return nil
	}
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	if errors.As(err, &owned) || errors.As(err, &exists) {
		return nil
	}
	return fmt.Errorf("create bucket %q: %w", g.bucket, err)
}

func isS3NotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func (g *S3Gateway) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: head object: %w", common.ErrStorageUnavailable, err)
	}
	return true, nil
}

func (g *S3Gateway) IssueRetrievalCapability(ctx context.Context, key string, expiry time.Duration, filenameHint string) (*models.RetrievalCapability, error) {
	ok, err := g.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrObjectMissing
	}

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	issuedAt := g.now()
	req, err := g.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(g.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(attachmentDisposition(filenameHint)),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return nil, fmt.Errorf("%w: presign get: %w", common.ErrStorageUnavailable, err)
	}

	return &models.RetrievalCapability{
		URL:       req.URL,
		ObjectKey: key,
		ExpiresAt: issuedAt.Add(expiry),
		Filename:  filenameHint,
	}, nil
}

func (g *S3Gateway) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := g.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("%w: put object: %w", common.ErrStorageUnavailable, err)
	}
	return nil
}

func (g *S3Gateway) Delete(ctx context.Context, key string) error {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: delete object: %w", common.ErrStorageUnavailable, err)
	}
	return nil
}
