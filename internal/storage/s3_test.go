package storage

import (
	"bytes"
	"context"
	"testing"
)

func testS3Config() S3Config {
	return S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566", // LocalStack-like endpoint
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}
}

func TestNewS3Storage(t *testing.T) {
	cfg := testS3Config()

	storage, err := NewS3Storage(t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	if storage.bucket != cfg.Bucket {
		t.Errorf("bucket = %v, want %v", storage.bucket, cfg.Bucket)
	}
	if storage.region != cfg.Region {
		t.Errorf("region = %v, want %v", storage.region, cfg.Region)
	}
}

func TestS3Storage_InheritsLocalStorage(t *testing.T) {
	storage, err := NewS3Storage(t.TempDir(), testS3Config())
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	ctx := context.Background()

	// SaveVideo comes from the embedded LocalStorage
	path, err := storage.SaveVideo(ctx, "inherit-test.mp4", bytes.NewReader([]byte("video")))
	if err != nil {
		t.Fatalf("SaveVideo() error = %v", err)
	}
	if path == "" {
		t.Error("expected non-empty path")
	}
}
