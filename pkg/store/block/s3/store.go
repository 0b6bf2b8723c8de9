// Package s3 provides an S3-backed block store.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/marmos91/dittowatch/pkg/store/block"
)

// Store keeps blocks as objects in a single bucket.
type Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string

	mu     sync.RWMutex
	closed bool
}

// New creates a store using an existing client.
func New(client *s3.Client, cfg block.S3Config) *Store {
	return &Store{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}
}

// NewFromConfig builds an S3 client from cfg and the SDK's default
// configuration sources.
func NewFromConfig(ctx context.Context, cfg block.S3Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 store: bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return New(client, cfg), nil
}

func (s *Store) fullKey(blockKey string) string {
	return s.keyPrefix + blockKey
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return block.ErrStoreClosed
	}
	return nil
}

// WriteBlock puts one object.
func (s *Store) WriteBlock(ctx context.Context, blockKey string, data []byte) error {
	if err := block.CheckSize(data); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.fullKey(blockKey)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

// ReadBlock gets one object.
func (s *Store) ReadBlock(ctx context.Context, blockKey string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(blockKey)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, block.ErrBlockNotFound
		}
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object body: %w", err)
	}
	return data, nil
}

// DeleteBlock deletes one object. S3 reports success for missing keys.
func (s *Store) DeleteBlock(ctx context.Context, blockKey string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(blockKey)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}

// ListByPrefix pages through ListObjectsV2 and strips the key prefix.
func (s *Store) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var keys []string
	err := s.eachPage(ctx, prefix, func(objects []types.Object) error {
		for _, obj := range objects {
			keys = append(keys, strings.TrimPrefix(aws.ToString(obj.Key), s.keyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// DeleteByPrefix batch-deletes matching objects, a page at a time.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	return s.eachPage(ctx, prefix, func(objects []types.Object) error {
		ids := make([]types.ObjectIdentifier, len(objects))
		for i, obj := range objects {
			ids[i] = types.ObjectIdentifier{Key: obj.Key}
		}
		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("s3 delete objects: %w", err)
		}
		return nil
	})
}

func (s *Store) eachPage(ctx context.Context, prefix string, fn func([]types.Object) error) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.fullKey(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3 list objects: %w", err)
		}
		if len(page.Contents) == 0 {
			continue
		}
		if err := fn(page.Contents); err != nil {
			return err
		}
	}
	return nil
}

// HealthCheck issues HeadBucket.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("S3 health check failed: %w", err)
	}
	return nil
}

// Type returns block.TypeS3.
func (s *Store) Type() string {
	return block.TypeS3
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// Close marks the store closed. The client holds no resources of its own.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// isNotFound reports whether err is a missing-object error.
func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var _ block.Store = (*Store)(nil)
