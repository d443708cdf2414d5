package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is.
//
// Connection failures surface as *session.ConnectionError inside the chain
// and match session.ErrConnection.
var (
	ErrGet                  = errors.New("asset get failed")
	ErrPut                  = errors.New("asset put failed")
	ErrMove                 = errors.New("asset move failed")
	ErrRemove               = errors.New("asset remove failed")
	ErrList                 = errors.New("asset list failed")
	ErrInvalidConfiguration = errors.New("invalid asset configuration")
)

// Error is returned by every Client operation.
type Error struct {
	Kind error
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the underlying failure.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, path string, err error, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Path: path,
		Msg:  fmt.Sprintf(format, args...),
		Err:  err,
	}
}

// RemoveFilesError lists the assets RemoveFiles could not delete.
type RemoveFilesError struct {
	Failed []string
	Total  int
	Err    error
}

func (e *RemoveFilesError) Error() string {
	return fmt.Sprintf("unable to remove %d of %d assets (%s): %v",
		len(e.Failed), e.Total, strings.Join(e.Failed, ", "), e.Err)
}

// Unwrap exposes ErrRemove and the combined individual failures.
func (e *RemoveFilesError) Unwrap() []error {
	return []error{ErrRemove, e.Err}
}
