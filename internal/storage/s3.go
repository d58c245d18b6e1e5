package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

// S3API is the subset of the s3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store writes documents to an AWS bucket that textract can read from.
type S3Store struct {
	client S3API
	bucket string
	logger *slog.Logger
}

func NewS3Store(client S3API, bucket string, logger *slog.Logger) *S3Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Store{client: client, bucket: bucket, logger: logger}
}

func (s *S3Store) Bucket() string { return s.bucket }

func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) (entity.ObjectLocation, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return entity.ObjectLocation{}, fmt.Errorf("s3 put %s: %w", key, err)
	}
	s.logger.Debug("storage.put", "backend", "s3", "bucket", s.bucket, "key", key, "bytes", len(body))
	return entity.ObjectLocation{Bucket: s.bucket, Key: key}, nil
}

func (s *S3Store) Get(ctx context.Context, loc entity.ObjectLocation) ([]byte, error) {
	bucket := loc.Bucket
	if bucket == "" {
		bucket = s.bucket
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s: %w", bucket, loc.Key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
