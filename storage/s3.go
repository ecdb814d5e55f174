package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 reads objects out of a single S3 (or S3-compatible) bucket. Locators
// passed to its methods are object keys, with any leading bucket name
// already stripped by ForLocator.
type S3 struct {
	bucket string
	region string

	client    *s3.Client
	connected atomic.Bool
}

// NewS3 creates an S3 backend for bucket. The AWS SDK's default
// credential chain (environment, shared config, instance role) supplies
// credentials; region defaults to "us-east-1" if empty.
func NewS3(bucket, region string) *S3 {
	if region == "" {
		region = "us-east-1"
	}
	return &S3{bucket: bucket, region: region}
}

func (s *S3) Connect(ctx context.Context) error {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(s.region))
	if err != nil {
		return fmt.Errorf("storage: load aws config: %w", err)
	}
	s.client = s3.NewFromConfig(cfg)
	s.connected.Store(true)
	return nil
}

func (s *S3) Disconnect(ctx context.Context) error {
	s.client = nil
	s.connected.Store(false)
	return nil
}

func (s *S3) Connected() bool {
	return s.connected.Load()
}

func (s *S3) ReadFile(ctx context.Context, key string) ([]byte, error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, fmt.Errorf("storage: read s3://%s/%s: %w", s.bucket, key, err)
	}
	return buf.Bytes(), nil
}

func (s *S3) FileExists(ctx context.Context, key string) (bool, error) {
	if !s.Connected() {
		return false, ErrNotConnected
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *S3) FileSize(ctx context.Context, key string) (int64, error) {
	if !s.Connected() {
		return 0, ErrNotConnected
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("storage: head s3://%s/%s: %w", s.bucket, key, err)
	}
	if out.ContentLength == nil {
		return 0, nil
	}
	return *out.ContentLength, nil
}

func (s *S3) ReadTextFile(ctx context.Context, key string) (string, error) {
	data, err := s.ReadFile(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *S3) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: list s3://%s/%s: %w", s.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

// splitS3Locator parses an "s3://bucket/key" locator into its bucket and
// key parts, mirroring createStorageForPath's bucket-prefix parsing.
func splitS3Locator(locator string) (bucket, key string) {
	trimmed := locator[len("s3://"):]
	idx := strings.IndexByte(trimmed, '/')
	if idx < 0 {
		return trimmed, ""
	}
	return trimmed[:idx], path.Clean(trimmed[idx+1:])
}
