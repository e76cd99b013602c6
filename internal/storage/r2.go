package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"photogram/internal/config"
	"photogram/internal/model"
)

// R2Storage stores objects in a Cloudflare R2 bucket through the S3 API.
type R2Storage struct {
	s3Client *s3.Client
	bucket   string
}

// NewR2Storage constructs an S3-compatible client for Cloudflare R2.
func NewR2Storage(ctx context.Context, cfg *config.Config) (*R2Storage, error) {
	if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" {
		return nil, fmt.Errorf("missing Cloudflare R2 configuration")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Storage{s3Client: s3Client, bucket: cfg.R2BucketName}, nil
}

func (s *R2Storage) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	key := newObjectName(contentType)

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(model.UploadCacheControl),
	})
	if err != nil {
		log.Printf("[R2Storage] Store FAILED: key=%s err=%v", key, err)
		return "", storageErr("upload to r2", err)
	}

	log.Printf("[R2Storage] Store OK: key=%s bytes=%d", key, len(data))
	return "/" + key, nil
}

func (s *R2Storage) Delete(ctx context.Context, uri string) error {
	key, err := keyFromURI(uri)
	if err != nil {
		return err
	}

	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Printf("[R2Storage] Delete FAILED: key=%s err=%v", key, err)
		return storageErr("delete from r2", err)
	}

	log.Printf("[R2Storage] Delete OK: key=%s", key)
	return nil
}
