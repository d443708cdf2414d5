package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/recommerce/asset/core/log"
	"github.com/recommerce/asset/internal/pathutil"
)

// isRemote reports whether a Put source is an http(s) URL.
func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// stageRemote downloads sourceURL into TmpDir under the flattened asset name.
func (c *Client) stageRemote(ctx context.Context, sourceURL, assetFile string) (string, error) {
	tmpFile := filepath.Join(c.options.TmpDir, pathutil.Flatten(assetFile))

	if err := c.download(ctx, sourceURL, tmpFile); err != nil {
		return "", newError(ErrPut, assetFile, err,
			"unable to copy remote file '%s' to '%s'", sourceURL, tmpFile)
	}

	c.logger.Debug("Remote file staged",
		log.Path("source", sourceURL),
		log.Path("staged", tmpFile))

	return tmpFile, nil
}

func (c *Client) download(ctx context.Context, sourceURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.options.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch remote file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote file request failed with status %d", resp.StatusCode)
	}

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(dest)
		return fmt.Errorf("failed to write staging file: %w", err)
	}

	return file.Close()
}
