// Package storage persists synthesized audio artifacts and returns
// retrievable URLs for them.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dashvoice/dashvoice/internal/config"
	"github.com/google/uuid"
)

// Store writes a complete artifact and returns a URL it can be fetched at.
type Store interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// New builds the store selected by configuration.
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "local":
		return NewLocalStore(cfg.OutputDir, cfg.PublicBaseURL, logger)
	case "oss":
		return NewOSSStore(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// ArtifactName generates a unique name for a WAV artifact.
func ArtifactName() string {
	return uuid.New().String() + ".wav"
}
