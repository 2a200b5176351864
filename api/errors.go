// File: api/errors.go
//
// Status taxonomy shared by every layer of the client. Codes are stable
// negative identifiers: the session layer maps them to user-facing messages
// and they must never be renumbered.

package api

import (
	"errors"
	"fmt"
)

// Status is a fixed negative status code. A Status is an identifier, not a
// transient object: no allocation, no lifecycle.
type Status int

const (
	// StatusOK is the zero value; it never travels inside an Error.
	StatusOK Status = 0

	// StatusSend: a send loop hit a terminal error. The connection is
	// presumed dead and must be destroyed.
	StatusSend Status = -1

	// StatusRecv: a receive loop hit a terminal error or the peer closed
	// the connection before delivering the requested byte count.
	StatusRecv Status = -2

	// StatusOutOfMemory: resource allocation failed during transport
	// construction.
	StatusOutOfMemory Status = -3

	// StatusNetwork: socket creation, connect, or option tuning failed.
	StatusNetwork Status = -4

	// StatusTLS: TLS context setup, handshake, peer verification, or
	// record-layer transfer failed.
	StatusTLS Status = -5

	// StatusUnimplemented: the operation does not exist on this platform.
	StatusUnimplemented Status = -6
)

// String returns the stable name of the code.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSend:
		return "send failed"
	case StatusRecv:
		return "receive failed"
	case StatusOutOfMemory:
		return "out of memory"
	case StatusNetwork:
		return "network failure"
	case StatusTLS:
		return "tls failure"
	case StatusUnimplemented:
		return "not implemented on this platform"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Error attaches a Status to a failing operation without losing the cause.
// It propagates unchanged through the Transport interface to the session
// layer.
type Error struct {
	Status Status
	Op     string
	Err    error
}

// NewError builds an Error. err may be nil when the platform has no native
// cause to report.
func NewError(status Status, op string, err error) *Error {
	return &Error{Status: status, Op: op, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Status, e.Err)
}

// Unwrap exposes the platform-level cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Err }

// StatusOf extracts the Status carried by err. A nil err is StatusOK; an
// error from outside this taxonomy reports StatusNetwork, the most general
// terminal code.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return StatusNetwork
}
