package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver copies snapshot files to an S3-compatible bucket so runs
// from different platforms land in one place for comparison.
type S3Archiver struct {
	bucket string
	prefix string
	client objectPutter
	logger *zap.Logger
}

// NewS3Archiver builds an archiver for an S3-compatible endpoint.
// endpoint may be empty for plain AWS S3.
func NewS3Archiver(endpoint, region, bucket, prefix, accessKey, secretKey string, logger *zap.Logger) (*S3Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &S3Archiver{bucket: bucket, prefix: prefix, client: client, logger: logger}, nil
}

// Archive uploads one local file under prefix/basename.
func (a *S3Archiver) Archive(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	key := filepath.Base(path)
	if a.prefix != "" {
		key = a.prefix + "/" + key
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("archive %s to s3://%s/%s: %w", path, a.bucket, key, err)
	}

	a.logger.Info("archived snapshot",
		zap.String("path", path),
		zap.String("bucket", a.bucket),
		zap.String("key", key))
	return nil
}
