package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the part of *s3.Client the blob store calls.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3BlobStore keeps pictures in an S3 compatible bucket.
type S3BlobStore struct {
	client s3API
	bucket string
	urls   objectURLs
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3BlobStore builds a client from static credentials. A non-empty
// Endpoint switches to path-style addressing against that endpoint.
func NewS3BlobStore(ctx context.Context, cfg BlobConfig) (*S3BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(fmt.Sprintf("%s://%s", cfg.scheme(), cfg.Endpoint))
			o.UsePathStyle = true
		}
	})

	base := cfg.PublicURL
	switch {
	case base != "":
	case cfg.Endpoint != "":
		base = fmt.Sprintf("%s://%s/%s", cfg.scheme(), cfg.Endpoint, cfg.Bucket)
	default:
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}

	return newS3BlobStore(client, cfg.Bucket, base), nil
}

func newS3BlobStore(client s3API, bucket, base string) *S3BlobStore {
	return &S3BlobStore{client: client, bucket: bucket, urls: newObjectURLs(base)}
}

func (s *S3BlobStore) Upload(ctx context.Context, p Picture) (string, error) {
	key := pictureKey(p.Filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          p.Body,
		ContentType:   aws.String(p.ContentType),
		ContentLength: aws.Int64(p.Size),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.urls.url(key), nil
}

func (s *S3BlobStore) Delete(ctx context.Context, url string) error {
	key, ok := s.urls.key(url)
	if !ok {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
