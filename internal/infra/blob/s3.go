// Package blob stores uploaded company documents in S3-compatible object
// storage (AWS S3, MinIO).
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/resilience"
	"github.com/boddenberg/client-portal-go/internal/port"
)

// objectAPI is the subset of *s3.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Options configures the S3 store.
type Options struct {
	Bucket         string
	Region         string
	Endpoint       string // set for MinIO or other S3-compatible servers
	AccessKey      string
	SecretKey      string
	MaxConcurrency int
	Resilience     resilience.Config
}

// S3 implements port.BlobStore.
type S3 struct {
	api      objectAPI
	bucket   string
	exec     *resilience.Executor
	bulkhead *resilience.Bulkhead
}

var _ port.BlobStore = (*S3)(nil)

// NewS3 loads the AWS configuration and builds the client. Static
// credentials are used when an access key is configured; otherwise the
// default provider chain applies.
func NewS3(ctx context.Context, opts Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3(client, opts), nil
}

func newS3(api objectAPI, opts Options) *S3 {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 8
	}
	return &S3{
		api:      api,
		bucket:   opts.Bucket,
		exec:     resilience.NewExecutor("s3", opts.Resilience),
		bulkhead: resilience.NewBulkhead(opts.MaxConcurrency),
	}
}

// Key builds the object key for a company document.
func Key(companyID, documentID string, at time.Time) string {
	return fmt.Sprintf("companies/%s/%d/%02d/%s", companyID, at.Year(), at.Month(), documentID)
}

// Put uploads data under key.
func (s *S3) Put(ctx context.Context, key, contentType string, data []byte) error {
	if err := s.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer s.bulkhead.Release()

	err := s.exec.Write(ctx, func(ctx context.Context) error {
		in := &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
		}
		if contentType != "" {
			in.ContentType = aws.String(contentType)
		}
		_, err := s.api.PutObject(ctx, in)
		return err
	})
	if err != nil {
		return &domain.ErrStorage{Op: "blob_put", Err: err}
	}
	return nil
}

// Get downloads the object stored under key.
func (s *S3) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.exec.Read(ctx, func(ctx context.Context) error {
		out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var missing *types.NoSuchKey
			if errors.As(err, &missing) {
				return resilience.Permanent(&domain.ErrResourceNotFound{Resource: "document", ID: key})
			}
			return err
		}
		defer out.Body.Close()
		data, err = io.ReadAll(out.Body)
		return err
	})
	if err != nil {
		var nf *domain.ErrResourceNotFound
		if errors.As(err, &nf) {
			return nil, err
		}
		return nil, &domain.ErrStorage{Op: "blob_get", Err: err}
	}
	return data, nil
}
