package sinks

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/presskit/presskit/internal/engine"
)

// S3Uploader is the subset of manager.Uploader used by the sink.
type S3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Options are shared by every s3:// destination a factory opens.
type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// S3Sink uploads finished archives to a bucket under an optional key prefix.
type S3Sink struct {
	bucket   string
	prefix   string
	uploader S3Uploader
}

var _ engine.Sink = (*S3Sink)(nil)

func NewS3Sink(ctx context.Context, bucket, prefix string, opts S3Options) (*S3Sink, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})

	return NewS3SinkWithUploader(bucket, prefix, manager.NewUploader(client)), nil
}

// NewS3SinkWithUploader builds a sink around an existing uploader.
func NewS3SinkWithUploader(bucket, prefix string, uploader S3Uploader) *S3Sink {
	return &S3Sink{
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		uploader: uploader,
	}
}

func (s *S3Sink) Name() string {
	return "s3://" + path.Join(s.bucket, s.prefix)
}

func (s *S3Sink) Kind() string {
	return "s3"
}

func (s *S3Sink) Key(objectPath string) string {
	if s.prefix == "" {
		return objectPath
	}
	return path.Join(s.prefix, objectPath)
}

func (s *S3Sink) Write(ctx context.Context, objectPath string, data io.Reader) error {
	key := s.Key(objectPath)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   data,
	}
	if contentType := ContentType(objectPath); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3Sink) Close(ctx context.Context) error {
	return nil
}

// ContentType maps archive extensions to media types. Unknown extensions
// return the empty string and are left to S3's default.
func ContentType(p string) string {
	switch path.Ext(p) {
	case ".zst":
		return "application/zstd"
	case ".gz":
		return "application/gzip"
	case ".xz":
		return "application/x-xz"
	case ".lz4":
		return "application/x-lz4"
	case ".7z":
		return "application/x-7z-compressed"
	case ".tar":
		return "application/x-tar"
	default:
		return ""
	}
}
