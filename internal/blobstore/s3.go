package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config represents the settings required to talk to S3 or an S3-compatible API.
// AccessKeyID and SecretAccessKey are optional; when empty the default AWS
// credential chain is used.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	PublicURL       string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Store wires an S3-backed store if the configuration is complete,
// otherwise a disabled store.
func NewS3Store(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return Disabled(), nil
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		loadOpts = append(loadOpts, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{
						URL:           endpoint,
						PartitionID:   "aws",
						SigningRegion: cfg.Region,
					}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			}),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws sdk config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = cfg.ForcePathStyle
		}
	})

	// Fallback so S3-compatible storage without PublicURL still works for reads.
	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" && cfg.Endpoint != "" && cfg.ForcePathStyle {
		publicURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
	}

	return &s3Store{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		baseURL: publicURL,
	}, nil
}

type s3Store struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
}

// Upload stores the incoming asset in the configured bucket and returns a public URL.
func (s *s3Store) Upload(ctx context.Context, input UploadInput) (Object, error) {
	if input.Body == nil {
		return Object{}, errors.New("upload body is required")
	}
	if input.UserID == "" {
		return Object{}, errors.New("user id is required")
	}

	key := objectPath(input.UserID, input.Subfolder, input.Ext)

	putInput := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   input.Body,
	}
	if input.ContentType != "" {
		putInput.ContentType = aws.String(input.ContentType)
	}
	if input.Size > 0 {
		putInput.ContentLength = aws.Int64(input.Size)
	}

	if _, err := s.client.PutObject(ctx, putInput); err != nil {
		return Object{}, fmt.Errorf("put object: %w", err)
	}

	return Object{
		URL:  s.objectURL(key),
		Path: key,
	}, nil
}

// Delete removes a previously uploaded object by its path.
func (s *s3Store) Delete(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("object path is required")
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *s3Store) objectURL(key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
