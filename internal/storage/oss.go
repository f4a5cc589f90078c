package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dashvoice/dashvoice/internal/config"
)

// OSSStore uploads artifacts to an S3-compatible object store. URLs are
// either built from a public prefix or presigned with a bounded lifetime,
// selected by configuration.
type OSSStore struct {
	client       *minio.Client
	cfg          config.StorageConfig
	publicPrefix string
	logger       *slog.Logger
}

// NewOSSStore connects a client for the configured endpoint. The bucket is
// expected to exist.
func NewOSSStore(cfg config.StorageConfig, logger *slog.Logger) (*OSSStore, error) {
	client, err := minio.New(cfg.OSSEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.OSSAccessKey, cfg.OSSSecretKey, ""),
		Secure: cfg.OSSUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	publicPrefix := strings.TrimSuffix(cfg.OSSPublicPrefix, "/")
	if publicPrefix == "" {
		publicPrefix = strings.TrimSuffix(client.EndpointURL().String(), "/")
	}

	return &OSSStore{
		client:       client,
		cfg:          cfg,
		publicPrefix: publicPrefix,
		logger:       logger.With("component", "oss-store"),
	}, nil
}

// Save implements Store.
func (s *OSSStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.cfg.OSSBucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "audio/wav",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}

	s.logger.Debug("artifact uploaded", "bucket", s.cfg.OSSBucket, "object", name, "bytes", len(data))

	if s.cfg.OSSURLMode == "signed" {
		u, err := s.client.PresignedGetObject(ctx, s.cfg.OSSBucket, name, s.cfg.OSSSignedTTL(), nil)
		if err != nil {
			return "", fmt.Errorf("failed to presign artifact url: %w", err)
		}
		return u.String(), nil
	}

	return fmt.Sprintf("%s/%s/%s", s.publicPrefix, s.cfg.OSSBucket, name), nil
}
