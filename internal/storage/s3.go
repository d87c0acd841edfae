package storage

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Backend stores objects in an S3 bucket.
type S3Backend struct {
	client *s3.Client
	bucket string
}

// S3Config names the bucket and region for the S3 backend.
type S3Config struct {
	Bucket string
	Region string
}

// NewS3Backend loads AWS credentials from the default chain.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &S3Backend{client: s3.NewFromConfig(awsCfg), bucket: cfg.Bucket}, nil
}

func (sb *S3Backend) Store(ctx context.Context, userID uint64, kind, filename string, content io.Reader, contentType string) (string, error) {
	key := objectKey(userID, kind, filename)

	_, err := sb.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(sb.bucket),
		Key:         aws.String(key),
		Body:        content,
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"user-id":           strconv.FormatUint(userID, 10),
			"upload-kind":       kind,
			"original-filename": filename,
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload to S3: %w", err)
	}
	return key, nil
}

func (sb *S3Backend) Retrieve(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := sb.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("retrieve from S3: %w", err)
	}
	return result.Body, nil
}

func (sb *S3Backend) Delete(ctx context.Context, key string) error {
	_, err := sb.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete from S3: %w", err)
	}
	return nil
}

func (sb *S3Backend) URL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	presign := s3.NewPresignClient(sb.client)
	request, err := presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign URL: %w", err)
	}
	return request.URL, nil
}

func (sb *S3Backend) Metadata(ctx context.Context, key string) (ObjectInfo, error) {
	result, err := sb.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, fmt.Errorf("head object: %w", err)
	}

	info := ObjectInfo{ContentType: "application/octet-stream"}
	if result.ContentType != nil {
		info.ContentType = *result.ContentType
	}
	if result.ContentLength != nil {
		info.Size = *result.ContentLength
	}
	if result.LastModified != nil {
		info.LastModified = *result.LastModified
	}
	if result.ETag != nil {
		info.ETag = *result.ETag
	}
	return info, nil
}

func isS3NotFound(err error) bool {
	return strings.Contains(err.Error(), "NotFound") ||
		strings.Contains(err.Error(), "NoSuchKey") ||
		strings.Contains(err.Error(), "404")
}
