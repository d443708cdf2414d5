// Package handlers serves assets of a configured backend over HTTP.
package handlers

import (
	"context"
	"sync"
)

// Assets is the read-only part of core.Client the gateway needs.
type Assets interface {
	Get(ctx context.Context, assetFile, localFile string) (string, error)
	ListFiles(ctx context.Context, dir, pattern string) ([]string, error)
	Exists(ctx context.Context, assetFile string) (bool, error)
}

// ConnectionState is implemented by clients that can report their backend
// session without blocking.
type ConnectionState interface {
	Connected() bool
}

// Serialized guards an Assets value with a mutex. A client owns a single
// backend session and must not be used by concurrent requests.
type Serialized struct {
	mu     sync.Mutex
	assets Assets
}

// NewSerialized wraps assets so that one call runs at a time.
func NewSerialized(assets Assets) *Serialized {
	return &Serialized{assets: assets}
}

func (s *Serialized) Get(ctx context.Context, assetFile, localFile string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assets.Get(ctx, assetFile, localFile)
}

func (s *Serialized) ListFiles(ctx context.Context, dir, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assets.ListFiles(ctx, dir, pattern)
}

func (s *Serialized) Exists(ctx context.Context, assetFile string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assets.Exists(ctx, assetFile)
}

// Connected reports the session state of the wrapped client without taking
// the lock. Clients that cannot report it count as connected.
func (s *Serialized) Connected() bool {
	if state, ok := s.assets.(ConnectionState); ok {
		return state.Connected()
	}
	return true
}
