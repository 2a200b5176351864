// File: internal/sock/sock_unix.go
//
// Unix backend of the socket shim (Linux, macOS).

//go:build linux || darwin

package sock

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/calyxdb/calyx-wire/api"
)

// Desc is an owned socket descriptor.
type Desc = int

// InvalidDesc is the descriptor value carried by failed Create calls.
const InvalidDesc Desc = -1

// Poll event masks, re-exported so callers never import the syscall package.
const (
	EventReadable int16 = unix.POLLIN
	EventWritable int16 = unix.POLLOUT
)

// Keep-alive tuning applied to every connection. A failure to apply any of
// these is a hard connection failure: running without them silently changes
// failure-detection latency.
const (
	keepAliveIdleSec     = 20
	keepAliveIntervalSec = 15
	keepAliveProbes      = 4
)

// Startup performs process-wide networking setup. Nothing is required on
// Unix; the call exists so programs bracket socket usage identically on
// every platform. Paired with Cleanup.
func Startup() error { return nil }

// Cleanup is the teardown half of Startup.
func Cleanup() error { return nil }

// Create opens a TCP stream socket for the given address family.
func Create(ipv6 bool) (Desc, error) {
	family := unix.AF_INET
	if ipv6 {
		family = unix.AF_INET6
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return InvalidDesc, api.NewError(api.StatusNetwork, "socket", err)
	}
	return fd, nil
}

// Connect establishes a blocking connection to addr. A signal delivered
// mid-connect leaves the attempt running in the kernel, so the shim waits
// for writability and reads the final verdict instead of reissuing.
func Connect(d Desc, addr *net.TCPAddr) error {
	sa, err := sockaddr(addr)
	if err != nil {
		return err
	}
	switch err := unix.Connect(d, sa); err {
	case nil:
		return nil
	case unix.EINTR, unix.EINPROGRESS:
		if _, perr := Poll(d, EventWritable, -1); perr != nil {
			return perr
		}
		return ConnError(d)
	default:
		return api.NewError(api.StatusNetwork, "connect", err)
	}
}

// ConnectNonblock starts a connection on a non-blocking descriptor and
// returns once the attempt is in progress. The socket is not usable for
// writes until a subsequent writability wait confirms it, then ConnError
// reports the outcome.
func ConnectNonblock(d Desc, addr *net.TCPAddr) error {
	sa, err := sockaddr(addr)
	if err != nil {
		return err
	}
	switch err := unix.Connect(d, sa); err {
	case nil, unix.EINPROGRESS, unix.EINTR:
		return nil
	default:
		return api.NewError(api.StatusNetwork, "connect", err)
	}
}

// ConnError reads the pending connect outcome from SO_ERROR.
func ConnError(d Desc) error {
	v, err := unix.GetsockoptInt(d, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return api.NewError(api.StatusNetwork, "getsockopt SO_ERROR", err)
	}
	if v != 0 {
		return api.NewError(api.StatusNetwork, "connect", unix.Errno(v))
	}
	return nil
}

// SetOptions applies the connection tuning every transport requires:
// Nagle's algorithm off, keep-alive on with a 20 second idle threshold,
// 15 second probe interval, and a 4-probe failure budget.
func SetOptions(d Desc) error {
	type sockopt struct {
		level, name, value int
		label              string
	}
	opts := []sockopt{
		{unix.IPPROTO_TCP, unix.TCP_NODELAY, 1, "TCP_NODELAY"},
		{unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1, "SO_KEEPALIVE"},
		{unix.IPPROTO_TCP, keepAliveIdleOpt, keepAliveIdleSec, "keep-alive idle"},
		{unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, keepAliveIntervalSec, "TCP_KEEPINTVL"},
		{unix.IPPROTO_TCP, unix.TCP_KEEPCNT, keepAliveProbes, "TCP_KEEPCNT"},
	}
	for _, o := range opts {
		if err := unix.SetsockoptInt(d, o.level, o.name, o.value); err != nil {
			return api.NewError(api.StatusNetwork, "setsockopt "+o.label, err)
		}
	}
	return nil
}

// SetNonblock switches the descriptor's blocking mode.
func SetNonblock(d Desc, nonblocking bool) error {
	if err := unix.SetNonblock(d, nonblocking); err != nil {
		return api.NewError(api.StatusNetwork, "set nonblock", err)
	}
	return nil
}

// Send writes up to len(p) bytes, retrying transparently when a delivered
// signal interrupts the syscall. A signal interruption is never surfaced to
// the caller. Short writes and EAGAIN are returned as-is for the transport
// loop above to handle.
func Send(d Desc, p []byte) (int, error) {
	for {
		n, err := unix.Write(d, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// Recv reads up to len(p) bytes with the same EINTR absorption as Send.
// A zero return with a nil error is the peer's orderly close.
func Recv(d Desc, p []byte) (int, error) {
	for {
		n, err := unix.Read(d, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// Poll waits until the descriptor reports any of the requested events or the
// timeout elapses. timeoutMs < 0 waits indefinitely. poll(2) is never
// restarted by SA_RESTART, so EINTR is absorbed here by retrying.
func Poll(d Desc, events int16, timeoutMs int) (int, error) {
	fds := []unix.PollFd{{Fd: int32(d), Events: events}}
	for {
		n, err := unix.Poll(fds, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, api.NewError(api.StatusNetwork, "poll", err)
		}
		if n > 0 && fds[0].Revents&unix.POLLNVAL != 0 {
			return 0, api.NewError(api.StatusNetwork, "poll",
				fmt.Errorf("invalid descriptor %d", d))
		}
		return n, nil
	}
}

// WouldBlock reports whether err is the non-blocking "not ready yet" signal.
func WouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

// Close releases the descriptor. The caller treats a failure here as a
// defect, not a recoverable error: a leaked descriptor corrupts every later
// connection's accounting.
func Close(d Desc) error {
	if err := unix.Close(d); err != nil {
		return api.NewError(api.StatusNetwork, "close", err)
	}
	return nil
}

// ErrString returns the platform-native message for a failure.
func ErrString(err error) string {
	var errno unix.Errno
	if errors.As(err, &errno) {
		if name := unix.ErrnoName(errno); name != "" {
			return fmt.Sprintf("%s (%s)", errno.Error(), name)
		}
		return errno.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// sockaddr converts a resolved TCP address into the kernel representation.
func sockaddr(addr *net.TCPAddr) (unix.Sockaddr, error) {
	if addr == nil {
		return nil, api.NewError(api.StatusNetwork, "connect", errors.New("nil address"))
	}
	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return sa, nil
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	return sa, nil
}
