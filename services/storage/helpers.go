package storage

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"

	"github.com/oneboxhq/onebox/config"
	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/services/storage/aws_client"
)

// NewS3StorageService creates a StorageService for AWS S3 or any
// S3-compatible endpoint.
func NewS3StorageService(cfg *config.StorageConfig) interfaces.StorageService {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "")
	}
	if cfg.AWSEndpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.AWSEndpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	s3Client := aws_client.NewS3Client(awsCfg)

	return NewStorageService(s3Client, StorageConfig{
		BucketName: cfg.EmailAttachmentBucket,
	})
}
