package session

import (
	"errors"
	"fmt"
	"time"
)

// ErrConnection is the kind shared by every connection failure.
var ErrConnection = errors.New("connection failed")

// ErrNilSession is recorded when a dialer returns neither a session nor an error.
var ErrNilSession = errors.New("dialer returned no session")

const timestampLayout = "2006-01-02 15:04:05"

// ConnectionError is returned once every connection attempt has failed.
type ConnectionError struct {
	Backend  string
	Attempts int
	Start    time.Time
	End      time.Time
	Err      error
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("unable to connect to %s host after %d tries between %s and %s",
		e.Backend, e.Attempts, e.Start.Format(timestampLayout), e.End.Format(timestampLayout))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes ErrConnection and the last attempt's cause.
func (e *ConnectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConnection}
	}
	return []error{ErrConnection, e.Err}
}
