// Package sshconn builds authenticated SSH client connections shared by the
// SFTP and SCP adapters.
package sshconn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

const (
	// DefaultPort is the SSH port
	DefaultPort = 22

	// DefaultTimeout bounds the TCP dial and the SSH handshake
	DefaultTimeout = 30 * time.Second
)

// ErrHostKeyMismatch is returned when the server key does not match the
// configured fingerprint.
var ErrHostKeyMismatch = errors.New("ssh host key fingerprint mismatch")

// Config holds SSH connection parameters.
type Config struct {
	Hostname string `mapstructure:"hostname"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Port     int    `mapstructure:"port"`

	// PrivateKey is the path of a PEM private key, used alongside the password
	PrivateKey string `mapstructure:"privateKey"`
	Passphrase string `mapstructure:"passphrase"`

	// Fingerprint pins the server key, in "SHA256:..." form
	Fingerprint string `mapstructure:"fingerprint"`

	// Methods restricts negotiated algorithms; keys are kex, hostkey, crypt
	// and mac, values comma separated lists
	Methods map[string]string `mapstructure:"methods"`

	Timeout time.Duration `mapstructure:"timeout"`
}

// Address returns host:port, defaulting the port to 22.
func (c Config) Address() string {
	port := c.Port
	if port <= 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Hostname, strconv.Itoa(port))
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// ClientConfig converts c into an ssh.ClientConfig.
func (c Config) ClientConfig(logger *zap.Logger) (*ssh.ClientConfig, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var auth []ssh.AuthMethod

	if c.PrivateKey != "" {
		signer, err := loadSigner(c.PrivateKey, c.Passphrase)
		if err != nil {
			return nil, err
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	if c.Password != "" {
		auth = append(auth, ssh.Password(c.Password))
	}

	if len(auth) == 0 {
		return nil, errors.New("no SSH credentials configured")
	}

	cfg := &ssh.ClientConfig{
		User:            c.Username,
		Auth:            auth,
		HostKeyCallback: HostKeyCallback(c.Fingerprint, logger),
		Timeout:         c.timeout(),
	}

	for key, value := range c.Methods {
		algorithms := splitList(value)
		switch strings.ToLower(key) {
		case "kex":
			cfg.KeyExchanges = algorithms
		case "hostkey":
			cfg.HostKeyAlgorithms = algorithms
		case "crypt":
			cfg.Ciphers = algorithms
		case "mac":
			cfg.MACs = algorithms
		default:
			return nil, fmt.Errorf("unsupported SSH method %q", key)
		}
	}

	return cfg, nil
}

// HostKeyCallback pins the server key when a fingerprint is given and
// accepts any key otherwise.
func HostKeyCallback(fingerprint string, logger *zap.Logger) ssh.HostKeyCallback {
	if logger == nil {
		logger = zap.NewNop()
	}

	if fingerprint == "" {
		return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			logger.Warn("SSH host key not verified",
				zap.String("host", hostname),
				zap.String("fingerprint", ssh.FingerprintSHA256(key)))
			return nil
		}
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		actual := ssh.FingerprintSHA256(key)
		if actual != fingerprint {
			return fmt.Errorf("%w: host %s presented %s", ErrHostKeyMismatch, hostname, actual)
		}
		return nil
	}
}

// Dial opens an authenticated SSH connection.
func Dial(ctx context.Context, c Config, logger *zap.Logger) (*ssh.Client, error) {
	clientConfig, err := c.ClientConfig(logger)
	if err != nil {
		return nil, err
	}

	addr := c.Address()
	dialer := &net.Dialer{Timeout: c.timeout()}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake with %s failed: %w", addr, err)
	}

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// KeepAlive sends an OpenSSH keepalive request and waits for the reply.
func KeepAlive(client *ssh.Client) error {
	_, _, err := client.SendRequest("keepalive@openssh.com", true, nil)
	return err
}

func loadSigner(path, passphrase string) (ssh.Signer, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH private key: %w", err)
	}

	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH private key: %w", err)
	}
	return signer, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
