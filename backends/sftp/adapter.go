// Package sftp stores assets on an SSH server through the SFTP subsystem.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/recommerce/asset/backends"
	"github.com/recommerce/asset/core/log"
	"github.com/recommerce/asset/internal/pathutil"
	"github.com/recommerce/asset/internal/sshconn"
	"github.com/recommerce/asset/session"
)

// Config holds the SFTP adapter parameters.
type Config struct {
	sshconn.Config `mapstructure:",squash"`
	session.Policy `mapstructure:",squash"`
}

// conn is one SFTP session and the SSH connection carrying it.
type conn struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (c *conn) close() error {
	err := c.sftp.Close()
	if c.ssh != nil {
		if sshErr := c.ssh.Close(); err == nil {
			err = sshErr
		}
	}
	return err
}

type dialer struct {
	open func(ctx context.Context) (*conn, error)
}

func (d *dialer) Connect(ctx context.Context) (*conn, error) {
	return d.open(ctx)
}

func (d *dialer) Probe(ctx context.Context, c *conn) error {
	_, err := c.sftp.Getwd()
	return err
}

func (d *dialer) Disconnect(c *conn) error {
	return c.close()
}

// Adapter implements backends.Adapter and backends.Mover over SFTP.
type Adapter struct {
	manager *session.Manager[*conn]
	logger  *zap.Logger
}

// New creates a disconnected SFTP adapter.
func New(cfg Config, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("host", cfg.Address()))

	open := func(ctx context.Context) (*conn, error) {
		sshClient, err := sshconn.Dial(ctx, cfg.Config, logger)
		if err != nil {
			return nil, err
		}

		sftpClient, err := sftp.NewClient(sshClient)
		if err != nil {
			sshClient.Close()
			return nil, fmt.Errorf("failed to start SFTP subsystem: %w", err)
		}

		return &conn{ssh: sshClient, sftp: sftpClient}, nil
	}

	return newAdapter(cfg.Policy, open, logger)
}

func newAdapter(policy session.Policy, open func(context.Context) (*conn, error), logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		manager: session.NewManager[*conn](backends.TypeSFTP, &dialer{open: open}, policy, logger),
		logger:  logger,
	}
}

// Connect opens the session, retrying according to the policy.
func (a *Adapter) Connect(ctx context.Context) error {
	return a.manager.Connect(ctx)
}

// Type implements backends.Adapter.
func (a *Adapter) Type() string {
	return backends.TypeSFTP
}

// Connected implements backends.Connector.
func (a *Adapter) Connected() bool {
	return a.manager.Connected()
}

// Close ends the SFTP session and the SSH connection.
func (a *Adapter) Close() error {
	return a.manager.Close()
}

// Put uploads localFile, creating missing remote directories.
func (a *Adapter) Put(ctx context.Context, localFile, assetFile string) error {
	c, err := a.manager.Session(ctx)
	if err != nil {
		return err
	}

	src, err := os.Open(localFile)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localFile, err)
	}
	defer src.Close()

	if err := mkdirParent(c.sftp, assetFile); err != nil {
		return err
	}

	dst, err := c.sftp.Create(assetFile)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", assetFile, err)
	}

	if _, err := dst.ReadFrom(src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to upload %s: %w", assetFile, err)
	}

	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close remote file %s: %w", assetFile, err)
	}

	a.logger.Debug("File uploaded over SFTP", log.Path("asset", assetFile))
	return nil
}

// Get downloads assetFile into localFile.
func (a *Adapter) Get(ctx context.Context, assetFile, localFile string) error {
	c, err := a.manager.Session(ctx)
	if err != nil {
		return err
	}

	src, err := c.sftp.Open(assetFile)
	if err != nil {
		return fmt.Errorf("failed to open remote file %s: %w", assetFile, mapError(err))
	}
	defer src.Close()

	dst, err := os.Create(localFile)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localFile, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to download %s: %w", assetFile, err)
	}

	a.logger.Debug("File downloaded over SFTP", log.Path("asset", assetFile))
	return dst.Close()
}

// List returns the entries of dir as full asset paths.
func (a *Adapter) List(ctx context.Context, dir string) ([]string, error) {
	c, err := a.manager.Session(ctx)
	if err != nil {
		return nil, err
	}

	target := dir
	if target == "" {
		target = "."
	}

	entries, err := c.sftp.ReadDir(target)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", target, mapError(err))
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}
		files = append(files, pathutil.Entry(dir, name))
	}

	return files, nil
}

// Remove deletes assetFile.
func (a *Adapter) Remove(ctx context.Context, assetFile string) error {
	c, err := a.manager.Session(ctx)
	if err != nil {
		return err
	}

	if err := c.sftp.Remove(assetFile); err != nil {
		return fmt.Errorf("failed to remove %s: %w", assetFile, mapError(err))
	}

	a.logger.Debug("File removed over SFTP", log.Path("asset", assetFile))
	return nil
}

// Move renames oldFile to newFile, creating the destination directory.
func (a *Adapter) Move(ctx context.Context, oldFile, newFile string) error {
	c, err := a.manager.Session(ctx)
	if err != nil {
		return err
	}

	if err := mkdirParent(c.sftp, newFile); err != nil {
		return err
	}

	if err := c.sftp.Rename(oldFile, newFile); err != nil {
		return fmt.Errorf("unable to move '%s' to '%s': %w", oldFile, newFile, mapError(err))
	}
	return nil
}

func mkdirParent(client *sftp.Client, assetFile string) error {
	dir := pathutil.Dir(assetFile)
	switch dir {
	case "", ".", pathutil.Separator:
		return nil
	}

	if err := client.MkdirAll(dir); err != nil {
		return fmt.Errorf("failed to create remote directory %s: %w", dir, err)
	}
	return nil
}

func mapError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", backends.ErrNotFound, err)
	}
	return err
}

var (
	_ backends.Adapter   = (*Adapter)(nil)
	_ backends.Mover     = (*Adapter)(nil)
	_ backends.Connector = (*Adapter)(nil)
)
