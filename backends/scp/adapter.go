// Package scp stores assets on an SSH server without the SFTP subsystem.
//
// Files are transferred with SCP; listing, removal and rename run as remote
// shell commands.
package scp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alessio/shellescape"
	"go.uber.org/zap"

	"github.com/recommerce/asset/backends"
	"github.com/recommerce/asset/core/log"
	"github.com/recommerce/asset/internal/pathutil"
	"github.com/recommerce/asset/internal/sshconn"
	"github.com/recommerce/asset/session"
)

const filePermissions = "0644"

// Config holds the SCP adapter parameters.
type Config struct {
	sshconn.Config `mapstructure:",squash"`
	session.Policy `mapstructure:",squash"`
}

type dialer struct {
	open func(ctx context.Context) (remote, error)
}

func (d *dialer) Connect(ctx context.Context) (remote, error) {
	return d.open(ctx)
}

func (d *dialer) Probe(ctx context.Context, r remote) error {
	return r.KeepAlive()
}

func (d *dialer) Disconnect(r remote) error {
	return r.Close()
}

// Adapter implements backends.Adapter and backends.Mover over SCP.
type Adapter struct {
	manager *session.Manager[remote]
	logger  *zap.Logger
}

// New creates a disconnected SCP adapter.
func New(cfg Config, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("host", cfg.Address()))

	open := func(ctx context.Context) (remote, error) {
		client, err := sshconn.Dial(ctx, cfg.Config, logger)
		if err != nil {
			return nil, err
		}

		r, err := newSSHRemote(client)
		if err != nil {
			client.Close()
			return nil, err
		}
		return r, nil
	}

	return newAdapter(cfg.Policy, open, logger)
}

func newAdapter(policy session.Policy, open func(context.Context) (remote, error), logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		manager: session.NewManager[remote](backends.TypeSCP, &dialer{open: open}, policy, logger),
		logger:  logger,
	}
}

// Connect opens the session, retrying according to the policy.
func (a *Adapter) Connect(ctx context.Context) error {
	return a.manager.Connect(ctx)
}

// Type implements backends.Adapter.
func (a *Adapter) Type() string {
	return backends.TypeSCP
}

// Connected implements backends.Connector.
func (a *Adapter) Connected() bool {
	return a.manager.Connected()
}

// Close ends the SSH connection.
func (a *Adapter) Close() error {
	return a.manager.Close()
}

// Put sends localFile with mode 0644, creating missing remote directories.
func (a *Adapter) Put(ctx context.Context, localFile, assetFile string) error {
	r, err := a.manager.Session(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(localFile)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localFile, err)
	}
	defer file.Close()

	if err := a.mkdirParent(r, assetFile); err != nil {
		return err
	}

	if err := r.Upload(ctx, file, assetFile); err != nil {
		return fmt.Errorf("failed to send %s: %w", assetFile, err)
	}

	a.logger.Debug("File sent over SCP", log.Path("asset", assetFile))
	return nil
}

// Get receives assetFile into localFile.
func (a *Adapter) Get(ctx context.Context, assetFile, localFile string) error {
	r, err := a.manager.Session(ctx)
	if err != nil {
		return err
	}

	file, err := os.Create(localFile)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localFile, err)
	}

	if err := r.Download(ctx, assetFile, file); err != nil {
		file.Close()
		return fmt.Errorf("unable to get asset file %s on local filesystem %s: %w", assetFile, localFile, err)
	}

	a.logger.Debug("File received over SCP", log.Path("asset", assetFile))
	return file.Close()
}

// List runs ls on dir and returns its entries as full asset paths.
func (a *Adapter) List(ctx context.Context, dir string) ([]string, error) {
	r, err := a.manager.Session(ctx)
	if err != nil {
		return nil, err
	}

	target := dir
	if target == "" {
		target = "."
	}

	output, err := r.Run("ls -1A -- " + shellescape.Quote(target))
	if err != nil {
		return nil, commandError("list", target, output, err)
	}

	files := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		files = append(files, pathutil.Entry(dir, name))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse listing of %s: %w", target, err)
	}

	return files, nil
}

// Remove deletes assetFile with rm.
func (a *Adapter) Remove(ctx context.Context, assetFile string) error {
	r, err := a.manager.Session(ctx)
	if err != nil {
		return err
	}

	if output, err := r.Run("rm -- " + shellescape.Quote(assetFile)); err != nil {
		return commandError("remove", assetFile, output, err)
	}

	a.logger.Debug("File removed over SSH", log.Path("asset", assetFile))
	return nil
}

// Move renames oldFile to newFile with mv.
func (a *Adapter) Move(ctx context.Context, oldFile, newFile string) error {
	r, err := a.manager.Session(ctx)
	if err != nil {
		return err
	}

	if err := a.mkdirParent(r, newFile); err != nil {
		return err
	}

	cmd := "mv -- " + shellescape.QuoteCommand([]string{oldFile, newFile})
	if output, err := r.Run(cmd); err != nil {
		return commandError("move", oldFile, output, err)
	}
	return nil
}

func (a *Adapter) mkdirParent(r remote, assetFile string) error {
	dir := pathutil.Dir(assetFile)
	switch dir {
	case "", ".", pathutil.Separator:
		return nil
	}

	if output, err := r.Run("mkdir -p -- " + shellescape.Quote(dir)); err != nil {
		return commandError("create directory", dir, output, err)
	}
	return nil
}

// commandError wraps a failed remote command, mapping a missing path to
// backends.ErrNotFound.
func commandError(op, target string, output []byte, err error) error {
	msg := strings.TrimSpace(string(output))
	if strings.Contains(msg, "No such file or directory") {
		return fmt.Errorf("failed to %s %s: %w: %s", op, target, backends.ErrNotFound, msg)
	}
	if msg != "" {
		return fmt.Errorf("failed to %s %s: %w: %s", op, target, err, msg)
	}
	return fmt.Errorf("failed to %s %s: %w", op, target, err)
}

var (
	_ backends.Adapter   = (*Adapter)(nil)
	_ backends.Mover     = (*Adapter)(nil)
	_ backends.Connector = (*Adapter)(nil)
)
