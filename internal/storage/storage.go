// Package storage provides persistence for generated video files.
// It defines the Storage interface (port) with a local-disk implementation
// and an S3-backed one that additionally publishes videos to a bucket.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for output video persistence.
// Generated videos are always written to the local output directory;
// implementations may additionally publish them to remote storage.
type Storage interface {
	// SaveVideo writes video data to the output directory under the given
	// file name and returns the absolute path.
	SaveVideo(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Open reads a previously saved video.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Publish uploads a saved video to remote storage and returns its URL.
	// Returns ErrS3NotConfigured if no remote storage is configured.
	Publish(ctx context.Context, key string, data io.Reader) (url string, err error)
}
