// Package core implements the backend independent asset client.
//
// A Client composes the four primitives of a backends.Adapter (put, get,
// list, remove) into the public operation set: overwrite policy, existence
// checks derived from listings, pattern filtered listing, HTTP source
// staging and move via copy when the adapter has no native rename.
package core

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/recommerce/asset/backends"
)

// DefaultTmpDir is the staging root used when Options.TmpDir is unset.
const DefaultTmpDir = "/tmp"

// OverwritePolicy governs Move when the destination already exists.
type OverwritePolicy int

const (
	// ThrowOnConflict fails the move
	ThrowOnConflict OverwritePolicy = iota
	// Overwrite removes the existing destination first
	Overwrite
)

func (p OverwritePolicy) String() string {
	if p == Overwrite {
		return "overwrite"
	}
	return "throw"
}

// Options configures a Client. It is copied on construction.
type Options struct {
	// TmpDir is the staging root for HTTP sources and default Get destinations
	TmpDir string `mapstructure:"tmpDir"`

	// RootURL is the base of the URLs returned by URL
	RootURL string `mapstructure:"rootUrl"`

	// HTTPClient downloads HTTP sources given to Put
	HTTPClient *http.Client `mapstructure:"-"`
}

func (o Options) withDefaults() Options {
	if o.TmpDir == "" {
		o.TmpDir = DefaultTmpDir
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return o
}

// Client is the asset orchestrator for one adapter.
// Like the adapter it wraps, it is not safe for concurrent use.
type Client struct {
	adapter backends.Adapter
	options Options
	logger  *zap.Logger
}

// NewClient creates a client on top of the given adapter.
func NewClient(adapter backends.Adapter, opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		adapter: adapter,
		options: opts.withDefaults(),
		logger:  logger.With(zap.String("backend", adapter.Type())),
	}
}

// Adapter returns the wrapped adapter.
func (c *Client) Adapter() backends.Adapter {
	return c.adapter
}

// Options returns the effective options.
func (c *Client) Options() Options {
	return c.options
}

// URL returns the public URL of an asset.
func (c *Client) URL(assetFile string) (string, error) {
	if c.options.RootURL == "" {
		return "", newError(ErrInvalidConfiguration, assetFile, nil,
			"asset root url is not configured")
	}
	return c.options.RootURL + "/" + assetFile, nil
}

// Connected reports whether the adapter holds a live session. Adapters
// without a session are always connected. The session is not probed, so the
// call is cheap and safe to make while another operation is running.
func (c *Client) Connected() bool {
	if connector, ok := c.adapter.(backends.Connector); ok {
		return connector.Connected()
	}
	return true
}

// Close releases the adapter session.
func (c *Client) Close() error {
	return c.adapter.Close()
}
