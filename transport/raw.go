// File: transport/raw.go
//
// Raw transport: an unencrypted, byte-exact pipe over one owned socket
// descriptor. No internal buffering; one Send maps to however many syscalls
// it takes to flush the whole input, and no short transfer ever leaks to
// the protocol layer above.

package transport

import (
	"io"

	"go.uber.org/zap"

	"github.com/calyxdb/calyx-wire/api"
	"github.com/calyxdb/calyx-wire/internal/sock"
)

// Raw is the unencrypted Transport variant.
type Raw struct {
	d         sock.Desc
	waiter    api.Waiter
	log       *zap.Logger
	destroyed bool
}

// NewRaw takes ownership of a connected descriptor.
func NewRaw(d sock.Desc, opts ...Option) *Raw {
	o := newOptions(opts)
	return &Raw{d: d, waiter: o.waiter, log: o.log}
}

// Send transfers exactly len(p) bytes or reports StatusSend. After a
// failure the connection is presumed dead.
func (r *Raw) Send(p []byte) error {
	for sent := 0; sent < len(p); {
		n, err := sock.Send(r.d, p[sent:])
		if err != nil {
			if sock.WouldBlock(err) {
				if werr := r.waiter.WaitWritable(sock.Raw(r.d)); werr != nil {
					return api.NewError(api.StatusSend, "send", werr)
				}
				continue
			}
			return api.NewError(api.StatusSend, "send", err)
		}
		sent += n
	}
	return nil
}

// Receive fills p completely or reports StatusRecv. An orderly remote close
// before len(p) bytes arrive is a failure: the caller asked for a count and
// no more data is coming.
func (r *Raw) Receive(p []byte) error {
	for got := 0; got < len(p); {
		n, err := sock.Recv(r.d, p[got:])
		if err != nil {
			if sock.WouldBlock(err) {
				if werr := r.waiter.WaitReadable(sock.Raw(r.d)); werr != nil {
					return api.NewError(api.StatusRecv, "receive", werr)
				}
				continue
			}
			return api.NewError(api.StatusRecv, "receive", err)
		}
		if n == 0 {
			return api.NewError(api.StatusRecv, "receive", io.ErrUnexpectedEOF)
		}
		got += n
	}
	return nil
}

// Destroy closes the descriptor exactly once. A second Destroy, or a close
// that fails, means descriptor accounting is already corrupt; neither is
// recoverable.
func (r *Raw) Destroy() {
	if r.destroyed {
		panic("transport: Raw destroyed twice")
	}
	r.destroyed = true
	if err := sock.Close(r.d); err != nil {
		panic("transport: descriptor close failed: " + err.Error())
	}
	r.log.Debug("raw transport destroyed")
}

// SuspendUntilReadable parks the caller until the socket is readable.
func (r *Raw) SuspendUntilReadable() error {
	return r.waiter.WaitReadable(sock.Raw(r.d))
}

// SuspendUntilWritable parks the caller until the socket is writable.
func (r *Raw) SuspendUntilWritable() error {
	return r.waiter.WaitWritable(sock.Raw(r.d))
}
