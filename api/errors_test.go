package api

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

// Codes are part of the wire-facing contract; renumbering one breaks every
// caller that switches on them.
func TestStatusCodesAreStable(t *testing.T) {
	want := map[Status]int{
		StatusOK:            0,
		StatusSend:          -1,
		StatusRecv:          -2,
		StatusOutOfMemory:   -3,
		StatusNetwork:       -4,
		StatusTLS:           -5,
		StatusUnimplemented: -6,
	}
	for s, n := range want {
		if int(s) != n {
			t.Fatalf("%s = %d, want %d", s, int(s), n)
		}
	}
}

func TestStatusStringNamesEveryCode(t *testing.T) {
	for _, s := range []Status{
		StatusOK, StatusSend, StatusRecv, StatusOutOfMemory,
		StatusNetwork, StatusTLS, StatusUnimplemented,
	} {
		if got := s.String(); got == "" || got == fmt.Sprintf("status(%d)", int(s)) {
			t.Fatalf("status %d has no stable name", int(s))
		}
	}
	if got := Status(-42).String(); got != "status(-42)" {
		t.Fatalf("unknown status = %q", got)
	}
}

func TestErrorCarriesCause(t *testing.T) {
	err := NewError(StatusRecv, "receive", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("cause not reachable through Unwrap: %v", err)
	}
	if got := err.Error(); got != "receive: receive failed: unexpected EOF" {
		t.Fatalf("message = %q", got)
	}
}

func TestErrorWithoutCause(t *testing.T) {
	err := NewError(StatusUnimplemented, "poll", nil)
	if got := err.Error(); got != "poll: not implemented on this platform" {
		t.Fatalf("message = %q", got)
	}
	if errors.Unwrap(err) != nil {
		t.Fatal("nil cause unwrapped to something")
	}
}

func TestStatusOf(t *testing.T) {
	if got := StatusOf(nil); got != StatusOK {
		t.Fatalf("StatusOf(nil) = %v", got)
	}

	inner := NewError(StatusTLS, "handshake", errors.New("bad record"))
	wrapped := fmt.Errorf("dial 127.0.0.1:9042: %w", inner)
	if got := StatusOf(wrapped); got != StatusTLS {
		t.Fatalf("StatusOf(wrapped) = %v, want %v", got, StatusTLS)
	}

	// Errors from outside the taxonomy collapse to the most general
	// terminal code.
	if got := StatusOf(errors.New("socket: too many open files")); got != StatusNetwork {
		t.Fatalf("StatusOf(foreign) = %v, want %v", got, StatusNetwork)
	}
}
