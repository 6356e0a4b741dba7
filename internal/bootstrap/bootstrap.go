// Package bootstrap provides dependency initialization for the API server.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/wanserve/wan22-api/internal/config"
	"github.com/wanserve/wan22-api/internal/engine"
	"github.com/wanserve/wan22-api/internal/generate"
	"github.com/wanserve/wan22-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	GenerateService *generate.Service
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize engine client
	engineClient, err := engine.NewClient(cfg.EngineURL)
	if err != nil {
		return nil, fmt.Errorf("create engine client: %w", err)
	}

	// Initialize generation service
	svc := generate.NewService(
		engineClient,
		store,
		logger,
		generate.WithModelPath(cfg.ModelPath),
		generate.WithDeviceID(cfg.DeviceID),
	)

	return &Dependencies{
		GenerateService: svc,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.OutputDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("output_dir", cfg.OutputDir),
	)
	return localStore, nil
}
