package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Store provisions tenant containers as buckets on the platform object
// store via its S3-compatible API.
type S3Store struct {
	logger   zerolog.Logger
	endpoint string
	key      string
	secret   string
}

func NewS3Store(logger zerolog.Logger, endpoint, key, secret string) *S3Store {
	return &S3Store{
		logger:   logger.With().Str("component", "s3-store").Logger(),
		endpoint: endpoint,
		key:      key,
		secret:   secret,
	}
}

func (s *S3Store) client() *s3.Client {
	return s3.New(s3.Options{
		BaseEndpoint: aws.String(s.endpoint),
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider(s.key, s.secret, ""),
		UsePathStyle: true,
	})
}

// CreateContainer creates the named bucket. An already-existing bucket is
// treated as success.
func (s *S3Store) CreateContainer(ctx context.Context, name string) error {
	s.logger.Info().Str("bucket", name).Msg("creating storage container")

	_, err := s.client().CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(name),
	})
	if err != nil {
		if strings.Contains(err.Error(), "BucketAlreadyExists") ||
			strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", name, err)
	}
	return nil
}
