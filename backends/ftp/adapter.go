// Package ftp stores assets on an FTP server.
//
// Transfers use binary mode over passive data connections. The control
// connection is owned by a session.Manager and re-established when a NOOP
// probe fails.
package ftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"

	"github.com/recommerce/asset/backends"
	"github.com/recommerce/asset/core/log"
	"github.com/recommerce/asset/internal/pathutil"
	"github.com/recommerce/asset/session"
)

const (
	// DefaultPort is the FTP control port
	DefaultPort = 21

	// DefaultTimeout bounds dialing and each control exchange
	DefaultTimeout = 30 * time.Second
)

// Config holds the FTP adapter parameters.
type Config struct {
	Hostname string        `mapstructure:"hostname"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Port     int           `mapstructure:"port"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// DisableEPSV falls back to PASV for servers that reject EPSV
	DisableEPSV bool `mapstructure:"disableEPSV"`

	session.Policy `mapstructure:",squash"`
}

func (c Config) address() string {
	port := c.Port
	if port <= 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Hostname, strconv.Itoa(port))
}

// conn is the part of an FTP control connection the adapter relies on.
type conn interface {
	Stor(path string, r io.Reader) error
	Download(path string, w io.Writer) error
	NameList(path string) ([]string, error)
	Delete(path string) error
	Rename(from, to string) error
	NoOp() error
	Quit() error
}

// serverConn adapts *ftp.ServerConn to conn.
type serverConn struct {
	*ftp.ServerConn
}

func (c serverConn) Download(path string, w io.Writer) error {
	resp, err := c.Retr(path)
	if err != nil {
		return err
	}
	defer resp.Close()

	_, err = io.Copy(w, resp)
	return err
}

// dialer opens authenticated control connections.
type dialer struct {
	cfg  Config
	open func(ctx context.Context, cfg Config) (conn, error)
}

func (d *dialer) Connect(ctx context.Context) (conn, error) {
	return d.open(ctx, d.cfg)
}

func (d *dialer) Probe(ctx context.Context, c conn) error {
	return c.NoOp()
}

func (d *dialer) Disconnect(c conn) error {
	return c.Quit()
}

func dial(ctx context.Context, cfg Config) (conn, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c, err := ftp.Dial(cfg.address(),
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(timeout),
		ftp.DialWithDisabledEPSV(cfg.DisableEPSV),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.address(), err)
	}

	if err := c.Login(cfg.Username, cfg.Password); err != nil {
		c.Quit()
		return nil, fmt.Errorf("failed to log in as %s: %w", cfg.Username, err)
	}

	return serverConn{c}, nil
}

// Adapter implements backends.Adapter and backends.Mover over FTP.
type Adapter struct {
	manager *session.Manager[conn]
	logger  *zap.Logger
}

// New creates a disconnected FTP adapter. The first operation, or Connect,
// opens the session.
func New(cfg Config, logger *zap.Logger) *Adapter {
	return newAdapter(cfg, dial, logger)
}

func newAdapter(cfg Config, open func(context.Context, Config) (conn, error), logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("host", cfg.address()))

	d := &dialer{cfg: cfg, open: open}
	return &Adapter{
		manager: session.NewManager[conn](backends.TypeFTP, d, cfg.Policy, logger),
		logger:  logger,
	}
}

// Connect opens the session, retrying according to the policy.
func (a *Adapter) Connect(ctx context.Context) error {
	return a.manager.Connect(ctx)
}

// Type implements backends.Adapter.
func (a *Adapter) Type() string {
	return backends.TypeFTP
}

// Connected implements backends.Connector.
func (a *Adapter) Connected() bool {
	return a.manager.Connected()
}

// Close quits the control connection.
func (a *Adapter) Close() error {
	return a.manager.Close()
}

// Put uploads localFile in binary mode.
func (a *Adapter) Put(ctx context.Context, localFile, assetFile string) error {
	c, err := a.manager.Session(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(localFile)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localFile, err)
	}
	defer file.Close()

	if err := c.Stor(assetFile, file); err != nil {
		return fmt.Errorf("failed to store %s: %w", assetFile, err)
	}

	a.logger.Debug("File stored on FTP server", log.Path("asset", assetFile))
	return nil
}

// Get downloads assetFile in binary mode.
func (a *Adapter) Get(ctx context.Context, assetFile, localFile string) error {
	c, err := a.manager.Session(ctx)
	if err != nil {
		return err
	}

	file, err := os.Create(localFile)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localFile, err)
	}

	if err := c.Download(assetFile, file); err != nil {
		file.Close()
		return fmt.Errorf("failed to retrieve %s: %w", assetFile, mapError(err))
	}

	a.logger.Debug("File retrieved from FTP server", log.Path("asset", assetFile))
	return file.Close()
}

// List returns the NLST entries of dir as full asset paths.
func (a *Adapter) List(ctx context.Context, dir string) ([]string, error) {
	c, err := a.manager.Session(ctx)
	if err != nil {
		return nil, err
	}

	target := dir
	if target == "" {
		target = "."
	}

	entries, err := c.NameList(target)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", target, mapError(err))
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimPrefix(entry, "./")
		if entry == "" || entry == "." || entry == ".." {
			continue
		}

		// Some servers answer NLST with bare names, others with full paths
		if !strings.Contains(entry, pathutil.Separator) {
			entry = pathutil.Entry(dir, entry)
		}
		files = append(files, entry)
	}

	return files, nil
}

// Remove deletes assetFile.
func (a *Adapter) Remove(ctx context.Context, assetFile string) error {
	c, err := a.manager.Session(ctx)
	if err != nil {
		return err
	}

	if err := c.Delete(assetFile); err != nil {
		return fmt.Errorf("failed to delete %s: %w", assetFile, mapError(err))
	}

	a.logger.Debug("File deleted from FTP server", log.Path("asset", assetFile))
	return nil
}

// Move renames oldFile to newFile on the server.
func (a *Adapter) Move(ctx context.Context, oldFile, newFile string) error {
	c, err := a.manager.Session(ctx)
	if err != nil {
		return err
	}

	if err := c.Rename(oldFile, newFile); err != nil {
		return fmt.Errorf("unable to move '%s' to '%s': %w", oldFile, newFile, err)
	}
	return nil
}

// mapError turns a 550 reply into backends.ErrNotFound.
func mapError(err error) error {
	var replyErr *textproto.Error
	if errors.As(err, &replyErr) && replyErr.Code == ftp.StatusFileUnavailable {
		return fmt.Errorf("%w: %s", backends.ErrNotFound, replyErr.Msg)
	}
	return err
}

var (
	_ backends.Adapter   = (*Adapter)(nil)
	_ backends.Mover     = (*Adapter)(nil)
	_ backends.Connector = (*Adapter)(nil)
)
