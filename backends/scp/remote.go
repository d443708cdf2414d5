package scp

import (
	"bytes"
	"context"
	"fmt"
	"os"

	goscp "github.com/bramvdbogaerde/go-scp"
	"golang.org/x/crypto/ssh"

	"github.com/recommerce/asset/internal/sshconn"
)

// remote is an SSH connection able to run commands and copy files.
type remote interface {
	// Run executes a shell command and returns its combined output
	Run(cmd string) ([]byte, error)
	Upload(ctx context.Context, local *os.File, remotePath string) error
	Download(ctx context.Context, remotePath string, local *os.File) error
	KeepAlive() error
	Close() error
}

// sshRemote implements remote on an SSH client.
type sshRemote struct {
	client *ssh.Client
	scp    goscp.Client
}

func newSSHRemote(client *ssh.Client) (*sshRemote, error) {
	scpClient, err := goscp.NewClientBySSH(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create SCP client: %w", err)
	}
	return &sshRemote{client: client, scp: scpClient}, nil
}

func (r *sshRemote) Run(cmd string) ([]byte, error) {
	session, err := r.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open SSH session: %w", err)
	}
	defer session.Close()

	var output bytes.Buffer
	session.Stdout = &output
	session.Stderr = &output

	err = session.Run(cmd)
	return output.Bytes(), err
}

func (r *sshRemote) Upload(ctx context.Context, local *os.File, remotePath string) error {
	return r.scp.CopyFromFile(ctx, *local, remotePath, filePermissions)
}

func (r *sshRemote) Download(ctx context.Context, remotePath string, local *os.File) error {
	return r.scp.CopyFromRemote(ctx, local, remotePath)
}

func (r *sshRemote) KeepAlive() error {
	return sshconn.KeepAlive(r.client)
}

func (r *sshRemote) Close() error {
	return r.client.Close()
}
