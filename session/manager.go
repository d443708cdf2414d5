package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/recommerce/asset/metrics"
)

// Dialer opens, probes and closes sessions of one backend.
type Dialer[S comparable] interface {
	// Connect opens and authenticates a new session
	Connect(ctx context.Context) (S, error)

	// Probe returns an error when the session is no longer usable
	Probe(ctx context.Context, session S) error

	// Disconnect closes the session
	Disconnect(session S) error
}

// Manager owns a single session and keeps it alive around every operation.
// It is not safe for concurrent use, except for Connected.
type Manager[S comparable] struct {
	backendType string
	dialer      Dialer[S]
	policy      Policy
	logger      *zap.Logger

	session   S
	connected atomic.Bool

	// sleep waits between two attempts; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewManager creates a disconnected manager.
func NewManager[S comparable](backendType string, dialer Dialer[S], policy Policy, logger *zap.Logger) *Manager[S] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager[S]{
		backendType: backendType,
		dialer:      dialer,
		policy:      policy.WithDefaults(),
		logger:      logger,
		sleep:       sleepContext,
	}
}

// Connected reports whether a session is currently held.
// It does not probe the session and may be called concurrently.
func (m *Manager[S]) Connected() bool {
	return m.connected.Load()
}

// Connect establishes a new session, retrying with a fixed delay, and
// replaces any session currently held.
func (m *Manager[S]) Connect(ctx context.Context) error {
	m.drop()

	session, err := m.connectWithRetry(ctx)
	if err != nil {
		return err
	}

	m.session = session
	m.connected.Store(true)
	return nil
}

// Session returns a live session, reconnecting first if there is none or
// if the current one fails its liveness probe.
func (m *Manager[S]) Session(ctx context.Context) (S, error) {
	if m.connected.Load() {
		err := m.dialer.Probe(ctx, m.session)
		if err == nil {
			return m.session, nil
		}

		m.logger.Info("Session lost, reconnecting",
			zap.String("backend", m.backendType),
			zap.Error(err))
		metrics.ReconnectsTotal.WithLabelValues(m.backendType).Inc()
	}

	if err := m.Connect(ctx); err != nil {
		var zero S
		return zero, err
	}
	return m.session, nil
}

// Close disconnects the current session, if any.
func (m *Manager[S]) Close() error {
	if !m.connected.Load() {
		return nil
	}

	session := m.session
	var zero S
	m.session = zero
	m.connected.Store(false)

	if err := m.dialer.Disconnect(session); err != nil {
		return fmt.Errorf("failed to disconnect %s session: %w", m.backendType, err)
	}
	return nil
}

// drop closes a stale session before it is replaced.
func (m *Manager[S]) drop() {
	if err := m.Close(); err != nil {
		m.logger.Debug("Failed to close stale session",
			zap.String("backend", m.backendType),
			zap.Error(err))
	}
}

func (m *Manager[S]) connectWithRetry(ctx context.Context) (S, error) {
	var zero S
	var lastErr error

	start := time.Now()
	attempt := 0

	for attempt < m.policy.MaxTry {
		attempt++

		session, err := m.dialer.Connect(ctx)
		if err == nil && session == zero {
			err = ErrNilSession
		}

		if err == nil {
			metrics.ConnectionAttemptsTotal.WithLabelValues(m.backendType, "success").Inc()
			m.logger.Info("Connected",
				zap.String("backend", m.backendType),
				zap.Int("attempt", attempt))
			return session, nil
		}

		lastErr = err
		metrics.ConnectionAttemptsTotal.WithLabelValues(m.backendType, "failure").Inc()
		m.logger.Warn("Connection attempt failed",
			zap.String("backend", m.backendType),
			zap.Int("attempt", attempt),
			zap.Int("max_try", m.policy.MaxTry),
			zap.Error(err))

		if attempt == m.policy.MaxTry {
			break
		}

		if err := m.sleep(ctx, m.policy.TryInterval); err != nil {
			lastErr = err
			break
		}
	}

	return zero, &ConnectionError{
		Backend:  m.backendType,
		Attempts: attempt,
		Start:    start,
		End:      time.Now(),
		Err:      lastErr,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
