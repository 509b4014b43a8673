// Package storage implements object storage for animal images on any
// S3-compatible backend (MinIO in development, S3 proper or a compatible
// gateway in production). Uploaded objects are publicly readable; the
// returned URL goes straight into the animal record's image field.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// Client wraps a MinIO client scoped to one bucket.
type Client struct {
	mc        *minio.Client
	bucket    string
	publicURL string
}

// Config carries the S3 connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the externally reachable base for object URLs; defaults
	// to the endpoint when empty.
	PublicURL string
}

// New connects to the S3 endpoint. It does not touch the bucket; call
// EnsureBucket once at startup.
func New(cfg Config) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object storage: %w", err)
	}

	public := cfg.PublicURL
	if public == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		public = scheme + "://" + cfg.Endpoint
	}
	return &Client{
		mc:        mc,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(public, "/"),
	}, nil
}

// EnsureBucket creates the bucket if absent and applies a public-read
// policy so image URLs work without signing.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", c.bucket, err)
	}
	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %q: %w", c.bucket, err)
		}
		log.Info().Str("bucket", c.bucket).Msg("object storage bucket created")
	}

	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"AWS": ["*"]},
			"Action": ["s3:GetObject"],
			"Resource": ["arn:aws:s3:::%s/*"]
		}]
	}`, c.bucket)
	if err := c.mc.SetBucketPolicy(ctx, c.bucket, policy); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	return nil
}

// UploadImage stores data under a random object name preserving the
// original extension and returns its public URL.
func (c *Client) UploadImage(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	object := fmt.Sprintf("animals/%d-%s%s", time.Now().UTC().Unix(), uuid.NewString(), ext)

	_, err := c.mc.PutObject(ctx, c.bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", object, err)
	}
	return c.publicURL + "/" + c.bucket + "/" + object, nil
}

// Remove deletes an object by its key.
func (c *Client) Remove(ctx context.Context, object string) error {
	return c.mc.RemoveObject(ctx, c.bucket, object, minio.RemoveObjectOptions{})
}
