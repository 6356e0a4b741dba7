// Package download fetches Wan 2.2 checkpoint snapshots from the
// Hugging Face Hub. It lists the repository tree and downloads each file
// with resume support, skipping files that are already complete locally.
package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wanserve/wan22-api/internal/wan"
)

// Static errors for download operations.
var (
	// ErrRepoNotFound is returned when the model repository does not exist.
	ErrRepoNotFound = errors.New("download: model repository not found")
	// ErrRequestFailed is returned when the hub returns an unexpected status.
	ErrRequestFailed = errors.New("download: request failed")
)

// DefaultHubURL is the Hugging Face Hub endpoint.
const DefaultHubURL = "https://huggingface.co"

// hubOwner is the organization publishing the Wan 2.2 checkpoints.
const hubOwner = "Alibaba-PAI"

// RepoID returns the Hugging Face repository ID for a task's checkpoint.
func RepoID(task wan.Task) string {
	return hubOwner + "/" + task.CheckpointName()
}

// Client downloads checkpoint snapshots from the Hugging Face Hub.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(dc *Client) {
		dc.httpClient = c
	}
}

// WithBaseURL sets a custom hub endpoint.
func WithBaseURL(url string) ClientOption {
	return func(dc *Client) {
		dc.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithToken sets the hub access token for gated repositories.
func WithToken(token string) ClientOption {
	return func(dc *Client) {
		dc.token = token
	}
}

// WithLogger sets the logger for download progress.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(dc *Client) {
		dc.logger = logger
	}
}

// NewClient creates a new hub download client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Minute},
		baseURL:    DefaultHubURL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// treeEntry is one node of the repository tree listing.
type treeEntry struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Snapshot downloads every file of a repository into destDir, preserving
// the repository's directory layout. Files already present with the
// expected size are skipped; interrupted downloads are resumed.
func (c *Client) Snapshot(ctx context.Context, repoID, destDir string) error {
	entries, err := c.listTree(ctx, repoID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fmt.Errorf("download: create destination: %w", err)
	}

	for _, entry := range entries {
		if entry.Type != "file" {
			continue
		}
		if err := c.downloadFile(ctx, repoID, entry, destDir); err != nil {
			return err
		}
	}

	return nil
}

// listTree lists all files of the repository's main revision.
func (c *Client) listTree(ctx context.Context, repoID string) ([]treeEntry, error) {
	url := fmt.Sprintf("%s/api/models/%s/tree/main?recursive=true", c.baseURL, repoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("download: create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: list tree: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrRepoNotFound, repoID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(body))
	}

	var entries []treeEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("download: decode tree listing: %w", err)
	}

	return entries, nil
}

// downloadFile fetches one repository file into destDir, resuming a
// partial download when one is found.
func (c *Client) downloadFile(ctx context.Context, repoID string, entry treeEntry, destDir string) error {
	destPath := filepath.Join(destDir, filepath.FromSlash(entry.Path))

	// Already complete
	if info, err := os.Stat(destPath); err == nil && info.Size() == entry.Size {
		c.logger.Debug("file already present",
			slog.String("path", entry.Path),
		)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return fmt.Errorf("download: create directory: %w", err)
	}

	partialPath := destPath + ".partial"
	var offset int64
	if info, err := os.Stat(partialPath); err == nil {
		offset = info.Size()
	}

	url := fmt.Sprintf("%s/%s/resolve/main/%s", c.baseURL, repoID, entry.Path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download: create request: %w", err)
	}
	c.authorize(req)
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download: fetch %s: %w", entry.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		// Server ignored the range; start over
		offset = 0
	case http.StatusPartialContent:
		// Resuming from offset
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s/%s", ErrRepoNotFound, repoID, entry.Path)
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(body))
	}

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(partialPath, flags, 0640) // #nosec G304 - path derived from repo listing under destDir
	if err != nil {
		return fmt.Errorf("download: open partial file: %w", err)
	}

	c.logger.Info("downloading file",
		slog.String("path", entry.Path),
		slog.Int64("size", entry.Size),
		slog.Int64("offset", offset),
	)

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("download: write %s: %w", entry.Path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("download: close %s: %w", entry.Path, err)
	}

	if err := os.Rename(partialPath, destPath); err != nil {
		return fmt.Errorf("download: finalize %s: %w", entry.Path, err)
	}

	return nil
}

// authorize attaches the hub token when configured.
func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
