package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/clett-ai/clett/internal/config"
)

// ArchiveClient keeps the raw bytes of every upload in an S3-compatible
// bucket, keyed by data type and upload date. A nil client is valid and
// turns every operation into a no-op.
type ArchiveClient struct {
	client *s3.Client
	bucket string
}

// NewArchiveClient builds an S3 client for the configured archive. Returns
// nil (no error) when storage is not configured, so callers can treat the
// archive as optional.
func NewArchiveClient(cfg *config.S3Config) (*ArchiveClient, error) {
	if cfg == nil || cfg.Bucket == "" {
		return nil, nil
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	client := s3.NewFromConfig(aws.Config{
		Region:      region,
		Credentials: aws.NewCredentialsCache(creds),
	}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &ArchiveClient{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket if it does not exist (HeadBucket fails →
// CreateBucket).
func (c *ArchiveClient) EnsureBucket(ctx context.Context) error {
	if c == nil {
		return nil
	}
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}
	_, createErr := c.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)})
	if createErr != nil {
		var apiErr smithy.APIError
		if errors.As(createErr, &apiErr) {
			switch apiErr.ErrorCode() {
			case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
				return nil
			}
		}
		return createErr
	}
	return nil
}

// ArchiveKey builds the object key for one upload:
// {dataType}/{YYYY-MM-DD}/{uuid}{ext}.
func ArchiveKey(dataType, ext string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s%s", dataType, now.UTC().Format("2006-01-02"), uuid.New(), ext)
}

// PutUpload stores one raw upload and returns its key. No-op empty key when
// the archive is not configured.
func (c *ArchiveClient) PutUpload(ctx context.Context, dataType, ext, contentType string, body []byte) (string, error) {
	if c == nil {
		return "", nil
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := ArchiveKey(dataType, ext, time.Now())
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("archive upload: %w", err)
	}
	return key, nil
}

// ObjectInfo describes one archived object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ListUploads lists archived objects under prefix (e.g. "accounting/").
// Returns nil, nil when the archive is not configured.
func (c *ArchiveClient) ListUploads(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if c == nil {
		return nil, nil
	}
	out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, err
	}
	result := make([]ObjectInfo, 0, len(out.Contents))
	for _, o := range out.Contents {
		info := ObjectInfo{Key: aws.ToString(o.Key), Size: aws.ToInt64(o.Size)}
		if o.LastModified != nil {
			info.LastModified = *o.LastModified
		}
		result = append(result, info)
	}
	return result, nil
}
