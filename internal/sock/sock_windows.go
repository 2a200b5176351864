// File: internal/sock/sock_windows.go
//
// Windows backend of the socket shim over Winsock 2.

//go:build windows

package sock

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/calyxdb/calyx-wire/api"
)

// Desc is an owned socket handle.
type Desc = windows.Handle

// InvalidDesc is the handle value carried by failed Create calls.
const InvalidDesc Desc = windows.InvalidHandle

// Poll event masks. The blocking backend never polls (suspension happens in
// the syscall itself); the values exist so shared code compiles.
const (
	EventReadable int16 = 0x0100 // POLLRDNORM
	EventWritable int16 = 0x0010 // POLLWRNORM
)

const (
	keepAliveIdleSec     = 20
	keepAliveIntervalSec = 15
)

// Startup initializes Winsock 2.2. A failure here is unrecoverable: no
// socket call can ever succeed afterwards, so the process aborts rather
// than limp on.
func Startup() error {
	var data windows.WSAData
	if err := windows.WSAStartup(uint32(0x0202), &data); err != nil {
		panic(fmt.Sprintf("sock: WSAStartup: %v", err))
	}
	return nil
}

// Cleanup is the teardown half of Startup.
func Cleanup() error {
	return windows.WSACleanup()
}

// Create opens a TCP stream socket for the given address family.
func Create(ipv6 bool) (Desc, error) {
	var (
		h   windows.Handle
		err error
	)
	if ipv6 {
		h, err = windows.Socket(windows.AF_INET6, windows.SOCK_STREAM, windows.IPPROTO_TCP)
	} else {
		h, err = windows.Socket(windows.AF_INET, windows.SOCK_STREAM, windows.IPPROTO_TCP)
	}
	if err != nil {
		return InvalidDesc, api.NewError(api.StatusNetwork, "socket", err)
	}
	return h, nil
}

// Connect establishes a blocking connection to addr.
func Connect(d Desc, addr *net.TCPAddr) error {
	sa, err := sockaddr(addr)
	if err != nil {
		return err
	}
	if err := windows.Connect(d, sa); err != nil {
		return api.NewError(api.StatusNetwork, "connect", err)
	}
	return nil
}

// ConnectNonblock is the cooperative-model connect. The cooperative backend
// targets sandboxed runtimes, not Windows.
func ConnectNonblock(d Desc, addr *net.TCPAddr) error {
	return api.NewError(api.StatusUnimplemented, "connect nonblock", nil)
}

// ConnError reads the pending connect outcome from SO_ERROR.
func ConnError(d Desc) error {
	v, err := windows.GetsockoptInt(d, windows.SOL_SOCKET, windows.SO_ERROR)
	if err != nil {
		return api.NewError(api.StatusNetwork, "getsockopt SO_ERROR", err)
	}
	if v != 0 {
		return api.NewError(api.StatusNetwork, "connect", syscall.Errno(v))
	}
	return nil
}

// SetOptions applies the connection tuning every transport requires:
// Nagle's algorithm off and keep-alive with a 20 second idle threshold and
// 15 second probe interval via SIO_KEEPALIVE_VALS. Winsock fixes the probe
// count at the system default, so only idle and interval are tunable here.
func SetOptions(d Desc) error {
	if err := windows.SetsockoptInt(d, windows.IPPROTO_TCP, windows.TCP_NODELAY, 1); err != nil {
		return api.NewError(api.StatusNetwork, "setsockopt TCP_NODELAY", err)
	}
	ka := windows.TCPKeepalive{
		OnOff:    1,
		Time:     keepAliveIdleSec * 1000,
		Interval: keepAliveIntervalSec * 1000,
	}
	var ret uint32
	err := windows.WSAIoctl(d, windows.SIO_KEEPALIVE_VALS,
		(*byte)(unsafe.Pointer(&ka)), uint32(unsafe.Sizeof(ka)),
		nil, 0, &ret, nil, 0)
	if err != nil {
		return api.NewError(api.StatusNetwork, "WSAIoctl SIO_KEEPALIVE_VALS", err)
	}
	return nil
}

// SetNonblock is unused on Windows; the blocking model is the only
// supported scheduling model on this platform.
func SetNonblock(d Desc, nonblocking bool) error {
	return api.NewError(api.StatusUnimplemented, "set nonblock", nil)
}

// Send writes up to len(p) bytes. Winsock has no EINTR; a blocking send
// either completes a positive count or fails.
func Send(d Desc, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf := windows.WSABuf{Len: uint32(len(p)), Buf: &p[0]}
	var sent uint32
	if err := windows.WSASend(d, &buf, 1, &sent, 0, nil, nil); err != nil {
		return -1, err
	}
	return int(sent), nil
}

// Recv reads up to len(p) bytes. A zero return with a nil error is the
// peer's orderly close.
func Recv(d Desc, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf := windows.WSABuf{Len: uint32(len(p)), Buf: &p[0]}
	var (
		got   uint32
		flags uint32
	)
	if err := windows.WSARecv(d, &buf, 1, &got, &flags, nil, nil); err != nil {
		return -1, err
	}
	return int(got), nil
}

// Poll is only required by backends that stall on readiness (TLS want-read
// over a non-blocking descriptor); the Windows backend always blocks in the
// transfer syscall itself.
func Poll(d Desc, events int16, timeoutMs int) (int, error) {
	return 0, api.NewError(api.StatusUnimplemented, "poll", nil)
}

// WouldBlock reports whether err is the non-blocking "not ready yet" signal.
func WouldBlock(err error) bool {
	return err == windows.WSAEWOULDBLOCK
}

// Close releases the socket handle.
func Close(d Desc) error {
	if err := windows.Closesocket(d); err != nil {
		return api.NewError(api.StatusNetwork, "closesocket", err)
	}
	return nil
}

// ErrString returns the platform-native message for a failure.
func ErrString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// sockaddr converts a resolved TCP address into the kernel representation.
func sockaddr(addr *net.TCPAddr) (windows.Sockaddr, error) {
	if addr == nil {
		return nil, api.NewError(api.StatusNetwork, "connect", errors.New("nil address"))
	}
	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := &windows.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return sa, nil
	}
	sa := &windows.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	return sa, nil
}
