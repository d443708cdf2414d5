package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/recommerce/asset/backends"
	"github.com/recommerce/asset/core/log"
	"github.com/recommerce/asset/internal/pathutil"
	"github.com/recommerce/asset/metrics"
)

// Get downloads an asset and returns the local file name.
// An empty localFile resolves to TmpDir/assetFile. Missing destination
// directories are created.
func (c *Client) Get(ctx context.Context, assetFile, localFile string) (_ string, err error) {
	defer func(start time.Time) {
		metrics.ObserveOperation(c.adapter.Type(), "get", start, err)
	}(time.Now())

	if localFile == "" {
		localFile = filepath.Join(c.options.TmpDir, filepath.FromSlash(assetFile))
	}

	destinationDir := filepath.Dir(localFile)
	if err := os.MkdirAll(destinationDir, 0755); err != nil {
		return "", newError(ErrGet, assetFile, err,
			"cannot create destination directory %s", destinationDir)
	}

	if err := c.adapter.Get(ctx, assetFile, localFile); err != nil {
		return "", newError(ErrGet, assetFile, err,
			"unable to get asset file %s to local file %s", assetFile, localFile)
	}

	c.logger.Debug("Asset downloaded",
		log.Path("asset", assetFile),
		log.Path("local", localFile))

	return localFile, nil
}

// Put uploads a local file, or an http(s) URL, to assetFile.
// HTTP sources are staged in TmpDir first and always deleted afterwards.
// With deleteAfter the local source is removed once the upload succeeded.
func (c *Client) Put(ctx context.Context, localFile, assetFile string, deleteAfter bool) (err error) {
	defer func(start time.Time) {
		metrics.ObserveOperation(c.adapter.Type(), "put", start, err)
	}(time.Now())

	if isRemote(localFile) {
		staged, err := c.stageRemote(ctx, localFile, assetFile)
		if err != nil {
			return err
		}
		localFile = staged
		deleteAfter = true
	}

	if err := c.adapter.Put(ctx, localFile, assetFile); err != nil {
		return newError(ErrPut, assetFile, err,
			"unable to put local file %s on asset %s", localFile, assetFile)
	}

	c.logger.Debug("Asset uploaded",
		log.Path("local", localFile),
		log.Path("asset", assetFile))

	if deleteAfter {
		if err := os.Remove(localFile); err != nil {
			c.logger.Warn("Failed to delete local file after upload",
				log.Path("local", localFile),
				zap.Error(err))
		}
	}

	return nil
}

// Move moves oldFile into destDir, keeping its base name, and returns the
// new asset path. The destination conflict policy is applied here for every
// adapter; adapters with a native rename only perform the final step.
func (c *Client) Move(ctx context.Context, oldFile, destDir string, policy OverwritePolicy) (_ string, err error) {
	defer func(start time.Time) {
		metrics.ObserveOperation(c.adapter.Type(), "move", start, err)
	}(time.Now())

	exists, err := c.Exists(ctx, oldFile)
	if err != nil {
		return "", newError(ErrMove, oldFile, err, "unable to check asset file '%s'", oldFile)
	}
	if !exists {
		return "", newError(ErrMove, oldFile, nil, "asset file '%s' does not exist", oldFile)
	}

	newFile := pathutil.Join(destDir, pathutil.Base(oldFile))

	exists, err = c.Exists(ctx, newFile)
	if err != nil {
		return "", newError(ErrMove, newFile, err, "unable to check destination file '%s'", newFile)
	}
	if exists {
		if policy == ThrowOnConflict {
			return "", newError(ErrMove, newFile, nil, "destination file '%s' already exists", newFile)
		}
		if err := c.Remove(ctx, newFile); err != nil {
			return "", newError(ErrMove, newFile, err, "unable to replace destination file '%s'", newFile)
		}
	}

	if mover, ok := c.adapter.(backends.Mover); ok {
		err = mover.Move(ctx, oldFile, newFile)
	} else {
		err = c.copyMove(ctx, oldFile, newFile)
	}
	if err != nil {
		return "", newError(ErrMove, oldFile, err, "unable to move '%s' to '%s'", oldFile, newFile)
	}

	c.logger.Debug("Asset moved",
		log.Path("from", oldFile),
		log.Path("to", newFile),
		zap.Stringer("policy", policy))

	return newFile, nil
}

// copyMove downloads, re-uploads then removes the source.
func (c *Client) copyMove(ctx context.Context, oldFile, newFile string) error {
	localFile, err := c.Get(ctx, oldFile, "")
	if err != nil {
		return err
	}

	if err := c.Put(ctx, localFile, newFile, true); err != nil {
		return err
	}

	return c.Remove(ctx, oldFile)
}

// Remove deletes an asset. Removing an asset that does not exist succeeds
// without calling the backend.
func (c *Client) Remove(ctx context.Context, assetFile string) (err error) {
	defer func(start time.Time) {
		metrics.ObserveOperation(c.adapter.Type(), "remove", start, err)
	}(time.Now())

	exists, err := c.Exists(ctx, assetFile)
	if err != nil {
		return newError(ErrRemove, assetFile, err, "unable to check asset file %s", assetFile)
	}
	if !exists {
		return nil
	}

	if err := c.adapter.Remove(ctx, assetFile); err != nil {
		return newError(ErrRemove, assetFile, err, "unable to remove %s", assetFile)
	}

	c.logger.Debug("Asset removed", log.Path("asset", assetFile))
	return nil
}

// RemoveFiles removes every asset independently. A failure never stops the
// batch; all failed paths are reported in a *RemoveFilesError.
func (c *Client) RemoveFiles(ctx context.Context, assetFiles []string) error {
	var failed []string
	var errs error

	for _, assetFile := range assetFiles {
		if err := c.Remove(ctx, assetFile); err != nil {
			failed = append(failed, assetFile)
			errs = multierr.Append(errs, err)
			metrics.RemoveFailuresTotal.WithLabelValues(c.adapter.Type()).Inc()
			c.logger.Warn("Unable to remove asset",
				log.Path("asset", assetFile),
				zap.Error(err))
		}
	}

	if len(failed) == 0 {
		return nil
	}

	return &RemoveFilesError{
		Failed: failed,
		Total:  len(assetFiles),
		Err:    errs,
	}
}

// FailedPaths returns the paths reported by a *RemoveFilesError in err.
func FailedPaths(err error) []string {
	var batchErr *RemoveFilesError
	if errors.As(err, &batchErr) {
		return batchErr.Failed
	}
	return nil
}
