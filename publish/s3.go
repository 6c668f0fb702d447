package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configure the S3 sink.
type S3Options struct {
	Bucket string
	Prefix string // key prefix, e.g. "schedules/"
	Region string

	// Endpoint selects an S3-compatible service and enables path-style
	// addressing.
	Endpoint string

	// Static credentials; the default AWS chain is used when empty.
	AccessKeyID     string
	SecretAccessKey string
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads artifacts as objects.
type S3 struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3 creates an S3 sink.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 sink needs a bucket")
	}
	load := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		load = append(load, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, load...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if opts.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}
	return &S3{client: s3.NewFromConfig(cfg, s3opts...), bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// Key returns the object key an artifact is stored under.
func (s *S3) Key(a Artifact) string {
	return path.Join(s.prefix, path.Base(a.Name))
}

// Publish implements Sink.
func (s *S3) Publish(ctx context.Context, a Artifact) error {
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	meta := map[string]string{
		"meeting":    a.MeetingName,
		"run-id":     a.RunID,
		"sessions":   strconv.Itoa(a.Sessions),
		"unresolved": strconv.Itoa(a.Unresolved),
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(a)),
		Body:        bytes.NewReader(a.Data),
		ContentType: aws.String(contentType),
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}
