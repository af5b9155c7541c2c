package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFrame      = errors.New("invalid frame")
	ErrFrameTooLarge     = errors.New("frame exceeds maximum size")
	ErrInflatedTooLarge  = errors.New("decompressed body exceeds maximum size")
	ErrMissingSessionKey = errors.New("session key required but not present")
)

// ProtocolError reports a malformed frame or missing key material
type ProtocolError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol: %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol: %s: %s", e.Op, e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ServiceError is a non-zero return code from the server for one command.
// Interpreting the code is left to the caller.
type ServiceError struct {
	Command string
	Code    int32
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("service %s failed with code %d: %s", e.Command, e.Code, e.Message)
	}
	return fmt.Sprintf("service %s failed with code %d", e.Command, e.Code)
}
