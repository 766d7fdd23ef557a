// Package storage issues presigned S3 URLs for profile photos. Clients upload
// and download directly; photo bytes never pass through this service.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // set for MinIO and other S3-compatible stores
	AccessKey string
	SecretKey string
	URLTTL    time.Duration
}

type S3Storage struct {
	client *s3.S3
	bucket string
	ttl    time.Duration
}

var _ domain.ObjectStorage = (*S3Storage)(nil)

func NewS3Storage(cfg Config) (*S3Storage, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &S3Storage{client: s3.New(sess), bucket: cfg.Bucket, ttl: ttl}, nil
}

// PresignPut returns a URL the client can PUT the object to. The signature
// covers the content type, so the upload must send the same Content-Type.
func (s *S3Storage) PresignPut(_ context.Context, key, contentType string) (string, error) {
	req, _ := s.client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	url, err := req.Presign(s.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}
	return url, nil
}

func (s *S3Storage) PresignGet(_ context.Context, key string) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(s.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", key, err)
	}
	return url, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
