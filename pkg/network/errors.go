package network

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected      = errors.New("not connected")
	ErrClosed            = errors.New("client closed")
	ErrReconnecting      = errors.New("reconnect in progress")
	ErrDuplicateSequence = errors.New("sequence already pending")
)

// ConnectionError faults a request whose connection closed or broke
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// CancellationError ends a request whose caller cancelled or whose deadline
// passed. Err is context.Canceled or context.DeadlineExceeded.
type CancellationError struct {
	Sequence uint32
	Err      error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("request seq=%d cancelled: %v", e.Sequence, e.Err)
}

func (e *CancellationError) Unwrap() error {
	return e.Err
}
