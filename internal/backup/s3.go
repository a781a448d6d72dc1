// Package backup snapshots the cache database after mutations and
// restores the newest snapshot at boot. Snapshots always land in a local
// file; when configured they are also mirrored to an S3-compatible
// bucket.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"mailgate/internal/conf"
)

// SnapshotStore uploads and fetches database snapshots in one bucket
// under a fixed object key.
type SnapshotStore struct {
	client *s3.Client
	bucket string
	key    string
}

// NewSnapshotStore builds an S3 client from the backup configuration.
func NewSnapshotStore(cfg conf.BackupConfig) (*SnapshotStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("backup bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &SnapshotStore{
		client: client,
		bucket: cfg.Bucket,
		key:    cfg.Key,
	}, nil
}

// Upload pushes the snapshot file at path to the bucket.
func (s *SnapshotStore) Upload(ctx context.Context, path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %v", err)
	}
	defer func() { _ = f.Close() }()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot: %v", err)
	}

	return nil
}

// Download fetches the bucket's snapshot into path. It returns false
// without error when the bucket holds no snapshot yet.
func (s *SnapshotStore) Download(ctx context.Context, path string) (bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "NoSuchKey", "NotFound":
				return false, nil
			}
		}
		return false, fmt.Errorf("failed to fetch snapshot: %v", err)
	}
	defer func() { _ = out.Body.Close() }()

	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return false, fmt.Errorf("failed to create local snapshot: %v", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, out.Body); err != nil {
		return false, fmt.Errorf("failed to write local snapshot: %v", err)
	}

	return true, nil
}
