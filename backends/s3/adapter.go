// Package s3 stores assets as objects of an S3 bucket.
package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"go.uber.org/zap"

	"github.com/recommerce/asset/backends"
)

// DefaultRegion is used when Config.Region is empty.
const DefaultRegion = "us-east-1"

// Config holds the S3 adapter parameters.
type Config struct {
	Key    string `mapstructure:"key"`
	Secret string `mapstructure:"secret"`
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`

	// Endpoint targets an S3 compatible server; it enables path-style addressing
	Endpoint   string `mapstructure:"endpoint"`
	DisableSSL bool   `mapstructure:"disableSSL"`

	// IsPrivate uploads objects with the private ACL instead of public-read
	IsPrivate bool `mapstructure:"isPrivate"`
}

// Adapter implements backends.Adapter and backends.Mover on S3.
type Adapter struct {
	client    s3iface.S3API
	bucket    string
	isPrivate bool
	logger    *zap.Logger
}

// New creates an S3 adapter and checks that the bucket is reachable.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3 bucket name is required")
	}

	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	awsConfig := &aws.Config{
		Region:     aws.String(region),
		DisableSSL: aws.Bool(cfg.DisableSSL),
	}
	if cfg.Key != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.Key, cfg.Secret, "")
	}

	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	a := NewWithClient(s3.New(sess), cfg, logger)

	_, err = a.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access S3 bucket %s: %w", cfg.Bucket, err)
	}

	return a, nil
}

// NewWithClient creates an adapter on an existing S3 client.
func NewWithClient(client s3iface.S3API, cfg Config, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		client:    client,
		bucket:    cfg.Bucket,
		isPrivate: cfg.IsPrivate,
		logger:    logger,
	}
}

// Type implements backends.Adapter.
func (a *Adapter) Type() string {
	return backends.TypeS3
}

// Close implements backends.Adapter. The SDK client holds no session.
func (a *Adapter) Close() error {
	return nil
}

// acl returns the canned ACL applied to uploaded objects.
func (a *Adapter) acl() string {
	if a.isPrivate {
		return s3.ObjectCannedACLPrivate
	}
	return s3.ObjectCannedACLPublicRead
}

// isNotFound checks if an error indicates the object was not found
func isNotFound(err error) bool {
	var awsErr awserr.Error
	if !errors.As(err, &awsErr) {
		return false
	}
	switch awsErr.Code() {
	case s3.ErrCodeNoSuchKey, "NotFound":
		return true
	}
	return false
}

var (
	_ backends.Adapter = (*Adapter)(nil)
	_ backends.Mover   = (*Adapter)(nil)
)
