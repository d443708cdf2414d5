// Package backends defines the primitive transport contract implemented by
// every asset backend adapter.
// It includes implementations for local filesystem, FTP, SFTP, SCP and S3.
package backends

import (
	"context"
	"errors"
)

// Backend type identifiers
const (
	TypeFilesystem = "filesystem"
	TypeFTP        = "ftp"
	TypeSFTP       = "sftp"
	TypeSCP        = "scp"
	TypeS3         = "s3"
)

// ErrNotFound is returned when an asset or a listed directory does not exist.
var ErrNotFound = errors.New("asset not found")

// Adapter defines the primitive operations of one backend.
// Implementations are not safe for concurrent use; each adapter owns
// at most one live session.
type Adapter interface {
	// Put uploads the local file to the asset path
	Put(ctx context.Context, localFile, assetFile string) error

	// Get downloads the asset to the local file, which must be writable
	Get(ctx context.Context, assetFile, localFile string) error

	// List returns the flat listing of an asset directory, "" being the root
	List(ctx context.Context, dir string) ([]string, error)

	// Remove deletes one asset
	Remove(ctx context.Context, assetFile string) error

	// Type returns the backend type identifier
	Type() string

	// Close releases the session, if any
	Close() error
}

// Mover is implemented by adapters with a native rename.
type Mover interface {
	// Move renames oldFile to newFile, which must not exist
	Move(ctx context.Context, oldFile, newFile string) error
}

// Connector is implemented by session based adapters.
type Connector interface {
	// Connect establishes the session, retrying per the adapter's policy
	Connect(ctx context.Context) error

	// Connected reports whether a session is held, without probing it
	Connected() bool
}
