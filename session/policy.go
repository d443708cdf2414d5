// Package session provides the connection-resilience layer shared by the
// session based backends (FTP, SFTP, SCP).
//
// A Manager owns exactly one live session. Connection establishment retries
// up to Policy.MaxTry times with a fixed Policy.TryInterval between attempts;
// before every stateful call the session is probed and transparently
// re-established when the probe fails. There is no background keep-alive.
package session

import "time"

// Defaults applied to unset policy fields
const (
	DefaultMaxTry      = 5
	DefaultTryInterval = 60 * time.Second
)

// Policy controls connection establishment.
type Policy struct {
	// MaxTry is the number of connection attempts
	MaxTry int `mapstructure:"maxTry"`

	// TryInterval is the fixed delay between two attempts
	TryInterval time.Duration `mapstructure:"tryInterval"`
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxTry:      DefaultMaxTry,
		TryInterval: DefaultTryInterval,
	}
}

// WithDefaults replaces non-positive fields by their default value.
func (p Policy) WithDefaults() Policy {
	if p.MaxTry <= 0 {
		p.MaxTry = DefaultMaxTry
	}
	if p.TryInterval <= 0 {
		p.TryInterval = DefaultTryInterval
	}
	return p
}
