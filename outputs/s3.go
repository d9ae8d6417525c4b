package outputs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"digestbot/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the narrow slice of S3 the archive sink needs
type ObjectPutter interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType, cacheControl string) error
}

// S3Client wraps the AWS SDK for Go v2 S3 client
type S3Client struct {
	client *s3.Client
}

// NewS3Client uses the default AWS configuration chain with optional
// region, profile and path style overrides.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*S3Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Client{client: c}, nil
}

// Put uploads an object to bucket/key
func (s *S3Client) Put(ctx context.Context, bucket, key string, body io.Reader, contentType, cacheControl string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if cacheControl != "" {
		in.CacheControl = aws.String(cacheControl)
	}
	_, err := s.client.PutObject(ctx, in)
	return err
}

// S3Sink archives the snapshot and report under <prefix>digests/<date>/
type S3Sink struct {
	putter ObjectPutter
	bucket string
	prefix string
}

// NewS3Sink creates an archive sink. A nil putter means the sink is not
// configured.
func NewS3Sink(putter ObjectPutter, bucket, prefix string) *S3Sink {
	return &S3Sink{putter: putter, bucket: bucket, prefix: prefix}
}

func (s *S3Sink) Name() string { return "s3" }

// Keys returns the object keys used for d
func (s *S3Sink) Keys(d *Digest) (snapshot, markdown string) {
	dir := s.prefix + path.Join("digests", d.Date())
	return dir + "/raw.json", dir + "/digest.md"
}

func (s *S3Sink) Write(ctx context.Context, d *Digest) (string, error) {
	if s.putter == nil || s.bucket == "" {
		return "", fmt.Errorf("%w: S3_BUCKET missing", ErrNotConfigured)
	}

	raw, err := SnapshotJSON(d)
	if err != nil {
		return "", err
	}
	jsonKey, mdKey := s.Keys(d)

	if err := s.putter.Put(ctx, s.bucket, jsonKey, bytes.NewReader(raw), "application/json", "public, max-age=300"); err != nil {
		return "", fmt.Errorf("upload %s: %w", jsonKey, err)
	}
	md := []byte(RenderMarkdown(d))
	if err := s.putter.Put(ctx, s.bucket, mdKey, bytes.NewReader(md), "text/markdown; charset=utf-8", "public, max-age=300"); err != nil {
		return "", fmt.Errorf("upload %s: %w", mdKey, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, jsonKey), nil
}
