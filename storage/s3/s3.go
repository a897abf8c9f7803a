// Package s3 implements storage.Verifier and storage.Presigner on Amazon S3
// or any S3-compatible endpoint.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/xraph/reel/storage"
)

// Compile-time interface checks.
var (
	_ storage.Verifier  = (*Store)(nil)
	_ storage.Presigner = (*Store)(nil)
)

// HeadAPI is the subset of the S3 client used for verification.
type HeadAPI interface {
	HeadObject(ctx context.Context, in *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
}

// PresignAPI is the subset of the S3 presign client used for uploads.
type PresignAPI interface {
	PresignPutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store talks to a single bucket.
type Store struct {
	bucket  string
	head    HeadAPI
	presign PresignAPI
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPresignAPI overrides the presign client.
func WithPresignAPI(p PresignAPI) Option {
	return func(s *Store) { s.presign = p }
}

// WithClock overrides the time source used for upload expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New wraps an existing S3 client.
func New(client *awss3.Client, bucket string, opts ...Option) *Store {
	s := &Store{
		bucket:  bucket,
		head:    client,
		presign: awss3.NewPresignClient(client),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewWithAPI builds a Store on explicit API implementations.
func NewWithAPI(head HeadAPI, presign PresignAPI, bucket string, opts ...Option) *Store {
	s := &Store{bucket: bucket, head: head, presign: presign, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClientConfig locates the bucket's endpoint.
type ClientConfig struct {
	Region string
	// Endpoint overrides the S3 endpoint for S3-compatible services.
	Endpoint string
	// PathStyle forces path-style addressing, needed by most local S3 servers.
	PathStyle bool
}

// NewClient loads the default AWS credential chain and returns an S3 client.
func NewClient(ctx context.Context, cc ClientConfig) (*awss3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cc.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cc.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	return awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if cc.Endpoint != "" {
			o.BaseEndpoint = aws.String(cc.Endpoint)
		}
		o.UsePathStyle = cc.PathStyle
	}), nil
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string { return s.bucket }

// Head implements storage.Verifier.
func (s *Store) Head(ctx context.Context, key string) (*storage.Object, error) {
	out, err := s.head.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return &storage.Object{Key: key, Exists: false}, nil
		}
		return nil, fmt.Errorf("s3: head %s: %w", key, err)
	}

	return &storage.Object{
		Key:         key,
		Exists:      true,
		SizeBytes:   aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}, nil
}

// PresignPut implements storage.Presigner.
func (s *Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*storage.Upload, error) {
	req, err := s.presign.PresignPutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, awss3.WithPresignExpires(ttl))
	if err != nil {
		return nil, fmt.Errorf("s3: presign put %s: %w", key, err)
	}

	return &storage.Upload{
		URL:         req.URL,
		Key:         key,
		ContentType: contentType,
		ExpiresAt:   s.now().Add(ttl).UTC(),
	}, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return true
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
