package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Config points at an S3-compatible bucket (Cloudflare R2, MinIO, ...).
type R2Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string

	// PublicBaseURL is the CDN domain objects are served from.
	PublicBaseURL string
}

type R2Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewR2Store(ctx context.Context, cfg R2Config) (*R2Store, error) {
	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			),
		),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &R2Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicBaseURL(cfg.PublicBaseURL),
	}, nil
}

// publicBaseURL accepts a bare CDN domain and defaults it to https.
func publicBaseURL(domain string) string {
	domain = strings.TrimRight(domain, "/")
	if domain != "" && !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	return domain
}

func (r *R2Store) URL(key string) string {
	return fmt.Sprintf("%s/%s", r.baseURL, key)
}

// Store uploads r as a JPEG. The body must be seekable for request signing,
// so callers pass a bytes.Reader or an *os.File.
func (r *R2Store) Store(ctx context.Context, key string, body io.Reader) (string, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return r.URL(key), nil
}

// Delete removes the object. S3 treats deleting a missing key as success.
func (r *R2Store) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
