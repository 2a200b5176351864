// File: internal/sock/sock_stub.go
//
// Stub backend for platforms without a native shim. Every operation reports
// StatusUnimplemented; cooperative hosts supply their own readiness polling
// above this layer.

//go:build !linux && !darwin && !windows

package sock

import (
	"net"

	"github.com/calyxdb/calyx-wire/api"
)

// Desc is an owned socket descriptor.
type Desc = int

// InvalidDesc is the descriptor value carried by failed Create calls.
const InvalidDesc Desc = -1

// Poll event masks, values matching the Unix backend.
const (
	EventReadable int16 = 0x0001
	EventWritable int16 = 0x0004
)

func unimplemented(op string) error {
	return api.NewError(api.StatusUnimplemented, op, nil)
}

func Startup() error { return nil }
func Cleanup() error { return nil }

func Create(ipv6 bool) (Desc, error) {
	return InvalidDesc, unimplemented("socket")
}

func Connect(d Desc, addr *net.TCPAddr) error         { return unimplemented("connect") }
func ConnectNonblock(d Desc, addr *net.TCPAddr) error { return unimplemented("connect nonblock") }
func ConnError(d Desc) error                          { return unimplemented("getsockopt SO_ERROR") }
func SetOptions(d Desc) error                         { return unimplemented("setsockopt") }
func SetNonblock(d Desc, nonblocking bool) error      { return unimplemented("set nonblock") }

func Send(d Desc, p []byte) (int, error) { return -1, unimplemented("send") }
func Recv(d Desc, p []byte) (int, error) { return -1, unimplemented("recv") }

func Poll(d Desc, events int16, timeoutMs int) (int, error) {
	return 0, unimplemented("poll")
}

func WouldBlock(err error) bool { return false }

func Close(d Desc) error { return unimplemented("close") }

func ErrString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
