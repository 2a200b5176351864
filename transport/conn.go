// File: transport/conn.go
//
// fdConn adapts an owned shim descriptor to net.Conn so the TLS record
// layer can run over it. The shim absorbs signal interruptions underneath;
// fdConn absorbs readiness stalls through its waiter. A stall therefore
// reaches callers only as latency, never as an error.

package transport

import (
	"io"
	"net"
	"time"

	"github.com/calyxdb/calyx-wire/api"
	"github.com/calyxdb/calyx-wire/internal/sock"
)

type fdConn struct {
	d      sock.Desc
	waiter api.Waiter
	local  net.Addr
	remote net.Addr
}

// Read fills p with at least one byte or reports EOF on the peer's orderly
// close. A would-block result waits for readability and retries; during TLS
// operations this is exactly the want-read stall resolved by polling.
func (c *fdConn) Read(p []byte) (int, error) {
	for {
		n, err := sock.Recv(c.d, p)
		if err == nil {
			if n == 0 && len(p) > 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		if sock.WouldBlock(err) {
			if werr := c.waiter.WaitReadable(sock.Raw(c.d)); werr != nil {
				return 0, werr
			}
			continue
		}
		return 0, err
	}
}

// Write flushes all of p; net.Conn forbids short writes without an error.
func (c *fdConn) Write(p []byte) (int, error) {
	sent := 0
	for sent < len(p) {
		n, err := sock.Send(c.d, p[sent:])
		if err != nil {
			if sock.WouldBlock(err) {
				if werr := c.waiter.WaitWritable(sock.Raw(c.d)); werr != nil {
					return sent, werr
				}
				continue
			}
			return sent, err
		}
		sent += n
	}
	return sent, nil
}

// Close releases the descriptor.
func (c *fdConn) Close() error { return sock.Close(c.d) }

func (c *fdConn) LocalAddr() net.Addr  { return c.local }
func (c *fdConn) RemoteAddr() net.Addr { return c.remote }

// Deadlines are a session-layer concern: the transport contract is
// deliberately deadline-free, so the adapter refuses rather than pretends.
func (c *fdConn) SetDeadline(time.Time) error {
	return api.NewError(api.StatusUnimplemented, "set deadline", nil)
}

func (c *fdConn) SetReadDeadline(time.Time) error {
	return api.NewError(api.StatusUnimplemented, "set read deadline", nil)
}

func (c *fdConn) SetWriteDeadline(time.Time) error {
	return api.NewError(api.StatusUnimplemented, "set write deadline", nil)
}
