// Package main provides the checkpoint download command. It fetches the
// Wan 2.2 model weights for the configured task from the Hugging Face Hub
// into the local model directory.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sethvargo/go-envconfig"

	"github.com/wanserve/wan22-api/internal/download"
	"github.com/wanserve/wan22-api/internal/wan"
)

// downloadConfig holds the environment configuration for the download command.
type downloadConfig struct {
	ModelType string `env:"MODEL_TYPE, default=ti2v-5B"`
	ModelPath string `env:"MODEL_PATH, default=./models"`
	HFToken   string `env:"HF_TOKEN"`
	LogFormat string `env:"LOG_FORMAT, default=text"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &downloadConfig{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	task := wan.Task(cfg.ModelType)
	if !wan.IsValidTask(task) {
		return fmt.Errorf("unknown model type %q (expected one of %v)", cfg.ModelType, wan.TaskNames())
	}

	destDir := filepath.Join(cfg.ModelPath, task.CheckpointName())
	if _, err := os.Stat(destDir); err == nil {
		logger.Info("model already exists, nothing to do",
			slog.String("task", string(task)),
			slog.String("path", destDir),
		)
		return nil
	}

	repoID := download.RepoID(task)
	logger.Info("downloading model checkpoint",
		slog.String("task", string(task)),
		slog.String("repo", repoID),
		slog.String("dest", destDir),
	)

	client := download.NewClient(
		download.WithToken(cfg.HFToken),
		download.WithLogger(logger),
	)

	if err := client.Snapshot(ctx, repoID, destDir); err != nil {
		return fmt.Errorf("download %s: %w", repoID, err)
	}

	logger.Info("model download complete",
		slog.String("task", string(task)),
		slog.String("path", destDir),
	)
	return nil
}
