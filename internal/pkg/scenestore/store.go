// Package scenestore persists generated scene images in S3-compatible
// object storage and hands back the public URL stored on the entry.
package scenestore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
)

// Store saves scene images and returns their public URL.
type Store interface {
	SaveScene(ctx context.Context, entryUUID string, data []byte, contentType string) (string, error)
}

// Client wraps the S3 client with scene-specific functionality
type Client struct {
	s3Client *s3.Client
	config   *Config
}

var _ Store = (*Client)(nil)

// NewClient creates a new scene storage client
func NewClient(cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("scene storage is disabled")
	}

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	client := &Client{
		s3Client: s3Client,
		config:   cfg,
	}

	log.Infof("[SceneStore] Initialized S3 client for bucket: %s", cfg.BucketName)
	return client, nil
}

// NewFromEnv builds a Store from the environment. When scene storage is
// disabled it returns a no-op store so text-only deployments still run.
func NewFromEnv() (Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.IsEnabled() {
		log.Warnf("[SceneStore] scene storage disabled, scene images will not be persisted")
		return disabledStore{}, nil
	}
	return NewClient(cfg)
}

// SaveScene uploads one generated scene image and returns its public URL.
func (c *Client) SaveScene(ctx context.Context, entryUUID string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("scene storage: empty image for entry %s", entryUUID)
	}
	if contentType == "" {
		contentType = "image/png"
	}

	now := time.Now().UTC()
	objectKey := c.config.ObjectKey(entryUUID, contentType, now.Year(), int(now.Month()))

	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.config.BucketName),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata: map[string]string{
			"entry-uuid":    entryUUID,
			"upload-source": "quillia-scenes",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload scene to S3: %w", err)
	}

	log.Infof("[SceneStore] Uploaded scene: s3://%s/%s (%d bytes)", c.config.BucketName, objectKey, len(data))
	return c.config.PublicURL(objectKey), nil
}

// disabledStore drops images. Entry creation still succeeds, only the
// scene URL stays empty.
type disabledStore struct{}

func (disabledStore) SaveScene(_ context.Context, entryUUID string, _ []byte, _ string) (string, error) {
	log.Warnf("[SceneStore] dropping scene image for entry %s, storage disabled", entryUUID)
	return "", nil
}
