package session

import (
	"errors"
	"fmt"
)

// Error classes. Each fatal condition is assigned one class and its
// error wraps only that one, so callers can tell them apart with errors.Is.
var (
	// ErrConnection means the compositor cannot be reached or the
	// connection failed while reading events.
	ErrConnection = errors.New("connection error")
	// ErrProtocolViolation means a required global is missing, a global
	// was announced twice, or a handshake step arrived out of order.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrResourceAllocation means the shared memory region could not be
	// created, mapped or filled.
	ErrResourceAllocation = errors.New("resource allocation error")
)

// ProtocolError describes a protocol violation or a failed request.
type ProtocolError struct {
	Op        string // what the session was doing, e.g. "bind" or "configure"
	Interface string // interface involved, may be empty
	Err       error  // one of the Err* classes, possibly wrapping a cause
}

func (e *ProtocolError) Error() string {
	if e.Interface != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Interface, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func violation(op, iface, format string, args ...interface{}) error {
	return &ProtocolError{
		Op:        op,
		Interface: iface,
		Err:       fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, args...)),
	}
}

// requestFailed wraps an error returned while sending a request. The
// transport only fails when the socket does, so it counts as a
// connection error.
func requestFailed(op, iface string, err error) error {
	return &ProtocolError{
		Op:        op,
		Interface: iface,
		Err:       fmt.Errorf("%w: %w", ErrConnection, err),
	}
}
