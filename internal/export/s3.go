package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// ObjectPutter is the part of *s3.Client the sink needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads exports to a bucket under Prefix.
type S3Sink struct {
	Bucket string
	Prefix string

	client    ObjectPutter
	presigner *s3.PresignClient
	expiry    time.Duration
}

// NewS3Sink builds a sink from the default AWS credential chain. A positive
// presignExpiry makes Save return a pre-signed GET URL instead of an s3:// URI.
func NewS3Sink(ctx context.Context, bucket, prefix string, presignExpiry time.Duration) (*S3Sink, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)

	sink := NewS3SinkWithClient(client, bucket, prefix)
	if presignExpiry > 0 {
		sink.presigner = s3.NewPresignClient(client)
		sink.expiry = presignExpiry
	}
	return sink, nil
}

// NewS3SinkWithClient builds a sink on an existing client.
func NewS3SinkWithClient(client ObjectPutter, bucket, prefix string) *S3Sink {
	return &S3Sink{Bucket: bucket, Prefix: prefix, client: client}
}

// Key returns the object key for an export name.
func (s *S3Sink) Key(name string) string {
	prefix := strings.Trim(s.Prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Save uploads png with content type image/png.
func (s *S3Sink) Save(ctx context.Context, name string, png []byte) (string, error) {
	key := s.Key(name)

	log.Debug().
		Str("bucket", s.Bucket).
		Str("key", key).
		Int("bytes", len(png)).
		Msg("Uploading composite to S3")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(png),
		ContentType:   aws.String(ContentType),
		ContentLength: aws.Int64(int64(len(png))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload composite to S3: %w", err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.Bucket, key)
	log.Info().
		Str("location", location).
		Msg("Composite uploaded to S3")

	if s.presigner == nil {
		return location, nil
	}

	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket), Key: aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return result.URL, nil
}
