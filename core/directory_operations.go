package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/recommerce/asset/backends"
	"github.com/recommerce/asset/core/log"
	"github.com/recommerce/asset/internal/pathutil"
	"github.com/recommerce/asset/metrics"
)

// ListFiles lists dir, optionally keeping only entries that contain pattern
// (case-insensitive). Bare names returned by the backend are prefixed with
// dir. The backend order is preserved.
func (c *Client) ListFiles(ctx context.Context, dir, pattern string) ([]string, error) {
	dir = pathutil.TrimTrailingSeparator(dir)

	files, err := c.GetFiles(ctx, dir)
	if err != nil {
		return nil, err
	}

	lowerPattern := strings.ToLower(pattern)
	matching := make([]string, 0, len(files))

	for _, file := range files {
		if pattern != "" && !strings.Contains(strings.ToLower(file), lowerPattern) {
			continue
		}

		if !strings.HasPrefix(file, dir) {
			file = dir + pathutil.Separator + file
		}

		matching = append(matching, file)
	}

	return matching, nil
}

// GetFiles returns the raw, flat listing of dir. "." designates the root.
func (c *Client) GetFiles(ctx context.Context, dir string) (_ []string, err error) {
	defer func(start time.Time) {
		metrics.ObserveOperation(c.adapter.Type(), "list", start, err)
	}(time.Now())

	if dir == "." {
		dir = ""
	}

	files, err := c.adapter.List(ctx, dir)
	if err != nil {
		return nil, newError(ErrList, dir, err, "unable to list asset directory '%s'", dir)
	}

	c.logger.Debug("Asset directory listed",
		log.Path("dir", dir),
		zap.Int("count", len(files)))

	return files, nil
}

// Exists reports whether assetFile appears in the listing of its parent
// directory, spelled as in assetFile. Every call costs one directory listing. A missing parent
// directory means the asset does not exist.
func (c *Client) Exists(ctx context.Context, assetFile string) (bool, error) {
	files, err := c.GetFiles(ctx, pathutil.Parent(assetFile))
	if err != nil {
		if errors.Is(err, backends.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	for _, file := range files {
		if file == assetFile {
			return true, nil
		}
	}
	return false, nil
}
