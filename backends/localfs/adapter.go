// Package localfs stores assets in a repository directory on a go-billy
// filesystem.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"go.uber.org/zap"

	"github.com/recommerce/asset/backends"
	"github.com/recommerce/asset/core/log"
	"github.com/recommerce/asset/internal/pathutil"
)

// Config holds the filesystem adapter parameters.
type Config struct {
	// Repository is the root directory of the asset namespace
	Repository string `mapstructure:"repository"`
}

// Adapter implements backends.Adapter and backends.Mover on a billy
// filesystem.
type Adapter struct {
	fs     billy.Filesystem
	logger *zap.Logger
}

// New creates an adapter rooted at cfg.Repository, creating it if needed.
func New(cfg Config, logger *zap.Logger) (*Adapter, error) {
	if cfg.Repository == "" {
		return nil, errors.New("filesystem repository is required")
	}

	if err := os.MkdirAll(cfg.Repository, 0755); err != nil {
		return nil, fmt.Errorf("failed to create repository %s: %w", cfg.Repository, err)
	}

	if _, err := os.Stat(cfg.Repository); err != nil {
		return nil, fmt.Errorf("repository %s is not accessible: %w", cfg.Repository, err)
	}

	return NewWithFilesystem(osfs.New(cfg.Repository), logger), nil
}

// NewWithFilesystem creates an adapter on an existing billy filesystem.
func NewWithFilesystem(filesystem billy.Filesystem, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		fs:     filesystem,
		logger: logger,
	}
}

// Type implements backends.Adapter.
func (a *Adapter) Type() string {
	return backends.TypeFilesystem
}

// Put copies localFile into the repository, creating parent directories.
func (a *Adapter) Put(ctx context.Context, localFile, assetFile string) error {
	target, err := a.resolve(assetFile)
	if err != nil {
		return err
	}

	src, err := os.Open(localFile)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localFile, err)
	}
	defer src.Close()

	dst, err := a.fs.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create asset file %s: %w", assetFile, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		a.fs.Remove(target)
		return fmt.Errorf("failed to write asset file %s: %w", assetFile, err)
	}

	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close asset file %s: %w", assetFile, err)
	}

	a.logger.Debug("File copied to repository", log.Path("asset", assetFile))
	return nil
}

// Get copies an asset to localFile.
func (a *Adapter) Get(ctx context.Context, assetFile, localFile string) error {
	source, err := a.resolve(assetFile)
	if err != nil {
		return err
	}

	src, err := a.fs.Open(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("asset file %s: %w", assetFile, backends.ErrNotFound)
		}
		return fmt.Errorf("failed to open asset file %s: %w", assetFile, err)
	}
	defer src.Close()

	dst, err := os.Create(localFile)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localFile, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", assetFile, localFile, err)
	}

	return dst.Close()
}

// List returns every entry of dir as a full asset path. Entries keep the
// spelling of dir.
func (a *Adapter) List(ctx context.Context, dir string) ([]string, error) {
	cleaned, err := a.resolve(dir)
	if err != nil {
		return nil, err
	}

	target := cleaned
	if target == "" {
		target = pathutil.Separator
	}

	entries, err := a.fs.ReadDir(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("'%s' is not a directory: %w", dir, backends.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		files = append(files, pathutil.Entry(dir, entry.Name()))
	}

	return files, nil
}

// Remove deletes an asset file.
func (a *Adapter) Remove(ctx context.Context, assetFile string) error {
	target, err := a.resolve(assetFile)
	if err != nil {
		return err
	}

	if err := a.fs.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("asset file %s: %w", assetFile, backends.ErrNotFound)
		}
		return fmt.Errorf("failed to remove %s: %w", assetFile, err)
	}

	a.logger.Debug("File removed from repository", log.Path("asset", assetFile))
	return nil
}

// Move renames an asset within the repository.
func (a *Adapter) Move(ctx context.Context, oldFile, newFile string) error {
	from, err := a.resolve(oldFile)
	if err != nil {
		return err
	}
	to, err := a.resolve(newFile)
	if err != nil {
		return err
	}

	if dir := pathutil.Dir(to); dir != "." {
		if err := a.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := a.fs.Rename(from, to); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", oldFile, newFile, err)
	}
	return nil
}

// Close implements backends.Adapter. The filesystem holds no session.
func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) resolve(assetPath string) (string, error) {
	cleaned, err := pathutil.Clean(assetPath)
	if err != nil {
		return "", fmt.Errorf("invalid asset path %q: %w", assetPath, err)
	}
	return cleaned, nil
}

var (
	_ backends.Adapter = (*Adapter)(nil)
	_ backends.Mover   = (*Adapter)(nil)
)
