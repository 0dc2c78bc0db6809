package files

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Storage grants presigned PUT slots into one bucket.
type S3Storage struct {
	presign *s3.PresignClient
	bucket  string
	region  string
	expiry  time.Duration
}

// NewS3Storage loads the default AWS config and builds a presigner.
func NewS3Storage(ctx context.Context, bucket, region string, expiry time.Duration) (*S3Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &S3Storage{
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		region:  region,
		expiry:  expiry,
	}, nil
}

func (s *S3Storage) PresignUpload(ctx context.Context, key, contentType string) (*Upload, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(o *s3.PresignOptions) { o.Expires = s.expiry })
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &Upload{
		UploadURL: req.URL,
		FileURL:   fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key),
		ExpiresIn: s.expiry,
	}, nil
}
