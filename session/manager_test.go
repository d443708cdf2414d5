package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSession struct {
	id int
}

// fakeDialer is a function-field dialer recording every call.
type fakeDialer struct {
	ConnectFunc func(attempt int) (*fakeSession, error)
	ProbeFunc   func(s *fakeSession) error

	connects     int
	probes       int
	disconnected []*fakeSession
}

func (d *fakeDialer) Connect(ctx context.Context) (*fakeSession, error) {
	d.connects++
	if d.ConnectFunc != nil {
		return d.ConnectFunc(d.connects)
	}
	return &fakeSession{id: d.connects}, nil
}

func (d *fakeDialer) Probe(ctx context.Context, s *fakeSession) error {
	d.probes++
	if d.ProbeFunc != nil {
		return d.ProbeFunc(s)
	}
	return nil
}

func (d *fakeDialer) Disconnect(s *fakeSession) error {
	d.disconnected = append(d.disconnected, s)
	return nil
}

func newTestManager(d *fakeDialer, policy Policy) *Manager[*fakeSession] {
	return NewManager[*fakeSession]("fake", d, policy, zap.NewNop())
}

func TestPolicy_WithDefaults(t *testing.T) {
	p := Policy{}.WithDefaults()
	assert.Equal(t, DefaultMaxTry, p.MaxTry)
	assert.Equal(t, DefaultTryInterval, p.TryInterval)

	p = Policy{MaxTry: 2, TryInterval: time.Second}.WithDefaults()
	assert.Equal(t, 2, p.MaxTry)
	assert.Equal(t, time.Second, p.TryInterval)

	p = Policy{MaxTry: -1, TryInterval: -time.Second}.WithDefaults()
	assert.Equal(t, DefaultPolicy(), p)
}

func TestManager_ConnectFirstAttempt(t *testing.T) {
	d := &fakeDialer{}
	m := newTestManager(d, Policy{MaxTry: 3, TryInterval: time.Millisecond})

	require.NoError(t, m.Connect(context.Background()))
	assert.True(t, m.Connected())
	assert.Equal(t, 1, d.connects)
}

func TestManager_NilSessionIsRetried(t *testing.T) {
	d := &fakeDialer{
		ConnectFunc: func(attempt int) (*fakeSession, error) {
			if attempt < 3 {
				return nil, nil
			}
			return &fakeSession{id: attempt}, nil
		},
	}
	m := newTestManager(d, Policy{MaxTry: 5, TryInterval: time.Millisecond})

	s, err := m.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s.id)
	assert.Equal(t, 3, d.connects)
}

func TestManager_RetryExhaustion(t *testing.T) {
	cause := errors.New("connection refused")
	d := &fakeDialer{
		ConnectFunc: func(int) (*fakeSession, error) { return nil, cause },
	}
	interval := 20 * time.Millisecond
	m := newTestManager(d, Policy{MaxTry: 3, TryInterval: interval})

	start := time.Now()
	err := m.Connect(context.Background())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, cause)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, 3, connErr.Attempts)
	assert.Equal(t, 3, d.connects)
	assert.False(t, connErr.End.Before(connErr.Start))
	assert.GreaterOrEqual(t, elapsed, 2*interval)
	assert.Contains(t, err.Error(), "after 3 tries")
	assert.False(t, m.Connected())
}

func TestManager_NoSleepAfterLastAttempt(t *testing.T) {
	d := &fakeDialer{
		ConnectFunc: func(int) (*fakeSession, error) { return nil, errors.New("down") },
	}
	m := newTestManager(d, Policy{MaxTry: 4, TryInterval: time.Hour})

	var sleeps []time.Duration
	m.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	require.Error(t, m.Connect(context.Background()))
	assert.Equal(t, []time.Duration{time.Hour, time.Hour, time.Hour}, sleeps)
}

func TestManager_ContextCancelStopsRetry(t *testing.T) {
	d := &fakeDialer{
		ConnectFunc: func(int) (*fakeSession, error) { return nil, errors.New("down") },
	}
	m := newTestManager(d, Policy{MaxTry: 5, TryInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, d.connects)
}

func TestManager_SessionReusesLiveSession(t *testing.T) {
	d := &fakeDialer{}
	m := newTestManager(d, Policy{MaxTry: 1, TryInterval: time.Millisecond})
	ctx := context.Background()

	first, err := m.Session(ctx)
	require.NoError(t, err)
	second, err := m.Session(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, d.connects)
	assert.Equal(t, 1, d.probes)
}

func TestManager_SessionReconnectsWhenProbeFails(t *testing.T) {
	d := &fakeDialer{
		ProbeFunc: func(s *fakeSession) error {
			if s.id == 1 {
				return errors.New("broken pipe")
			}
			return nil
		},
	}
	m := newTestManager(d, Policy{MaxTry: 2, TryInterval: time.Millisecond})
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx))

	s, err := m.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.id)
	require.Len(t, d.disconnected, 1)
	assert.Equal(t, 1, d.disconnected[0].id)
}

func TestManager_ReconnectFailureIsReported(t *testing.T) {
	d := &fakeDialer{
		ConnectFunc: func(attempt int) (*fakeSession, error) {
			if attempt == 1 {
				return &fakeSession{id: 1}, nil
			}
			return nil, errors.New("host unreachable")
		},
		ProbeFunc: func(*fakeSession) error { return errors.New("closed") },
	}
	m := newTestManager(d, Policy{MaxTry: 2, TryInterval: time.Millisecond})
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx))

	_, err := m.Session(ctx)
	assert.ErrorIs(t, err, ErrConnection)
	assert.False(t, m.Connected())
}

func TestManager_Close(t *testing.T) {
	d := &fakeDialer{}
	m := newTestManager(d, Policy{MaxTry: 1, TryInterval: time.Millisecond})

	assert.NoError(t, m.Close())
	assert.Empty(t, d.disconnected)

	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.Close())
	assert.Len(t, d.disconnected, 1)
	assert.False(t, m.Connected())
}
