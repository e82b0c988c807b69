package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go-candleprep/internal/util"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// Option configures a Fetcher.
type Option func(*Fetcher)

// Fetcher downloads a single file with one GET and stores it under dir.
// There is no retry and no checksum check.
type Fetcher struct {
	dir    string
	client *http.Client
	logger *util.Logger
}

func New(dir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		dir:    dir,
		client: http.DefaultClient,
		logger: util.NewLogger("fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// Fetch GETs rawURL and writes the body to <dir>/<last path segment>,
// overwriting any file of that name. Only 200 counts as success.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	name, err := util.FileNameFromURL(rawURL)
	if err != nil {
		return "", err
	}

	f.logger.Debug("Fetching file", "url", rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	f.logger.Debug("Fetch response", "url", rawURL, "status", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP request returned status code %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if err := util.EnsureDir(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	dst := filepath.Join(f.dir, name)
	if err := os.WriteFile(dst, body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	f.logger.Debug("File saved", "path", dst, "bytes", len(body))
	return dst, nil
}
