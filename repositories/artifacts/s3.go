// Package artifacts publishes run outputs (tables, sidecars and summaries)
// to an S3 compatible object store.
package artifacts

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/znavezz/ASD-ADAR-Correction/models"

	"github.com/cenkalti/backoff"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const uploadAttempts = 3

type Store interface {
	PutFile(ctx context.Context, runId string, localPath string) (string, error)
	List(ctx context.Context, runId string) ([]string, error)
	GetURL(ctx context.Context, runId string, name string) (string, error)
}

type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error
}

// NewS3Store returns nil, nil when no endpoint is configured.
func NewS3Store(cfg *models.Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.S3.Endpoint)
	if endpoint == "" {
		return nil, nil
	}
	access := strings.TrimSpace(cfg.S3.AccessKey)
	secret := strings.TrimSpace(cfg.S3.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.S3.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.S3.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.S3.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Store{
		client:     client,
		bucketName: bucket,
		region:     region,
	}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// PutFile uploads a local file under <runId>/<base name>, retrying transient
// failures with exponential backoff. It returns the object key.
func (s *S3Store) PutFile(ctx context.Context, runId string, localPath string) (string, error) {
	runId = strings.TrimSpace(runId)
	if runId == "" {
		return "", fmt.Errorf("run id is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	key := ObjectKey(runId, filepath.Base(localPath))
	upload := func() error {
		_, err := s.client.FPutObject(ctx, s.bucketName, key, localPath, minio.PutObjectOptions{
			ContentType: contentType(localPath),
		})
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(upload, backoff.WithContext(backoff.WithMaxRetries(b, uploadAttempts), ctx)); err != nil {
		return "", fmt.Errorf("uploading %s: %w", localPath, err)
	}
	return key, nil
}

func (s *S3Store) List(ctx context.Context, runId string) ([]string, error) {
	runId = strings.TrimSpace(runId)
	if runId == "" {
		return nil, fmt.Errorf("run id is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	prefix := strings.TrimSuffix(runId, "/") + "/"
	names := make([]string, 0, 8)
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key == "" {
			continue
		}
		names = append(names, strings.TrimPrefix(obj.Key, prefix))
	}
	sort.Strings(names)
	return names, nil
}

// GetURL presigns a download link valid for one hour.
func (s *S3Store) GetURL(ctx context.Context, runId string, name string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, ObjectKey(runId, name), time.Hour, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func ObjectKey(runId string, name string) string {
	normalized := strings.TrimLeft(strings.TrimSpace(name), "/")
	return strings.TrimSpace(runId) + "/" + normalized
}

func contentType(path string) string {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(path, ".yml"):
		return "application/yaml"
	case strings.HasSuffix(path, ".csv"):
		return "text/csv"
	case strings.HasSuffix(path, ".tsv"):
		return "text/tab-separated-values"
	default:
		return "application/octet-stream"
	}
}
