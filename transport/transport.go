// Package transport implements the reliable-I/O layer beneath the CalyxDB
// wire protocol: byte-exact transfer over an unreliable, possibly encrypted,
// possibly non-blocking channel, behind one uniform contract.
//
// Two variants exist. Raw moves plaintext bytes over an owned socket
// descriptor; Secure wraps the descriptor in a TLS session and captures the
// peer's public-key fingerprint for trust verification. The session layer
// above sees only the api.Transport contract and never learns which variant
// is underneath.
package transport

import (
	"net"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calyxdb/calyx-wire/api"
	"github.com/calyxdb/calyx-wire/internal/sock"
)

// Compile-time contract checks.
var (
	_ api.Transport = (*Raw)(nil)
	_ api.Transport = (*Secure)(nil)
	_ net.Conn      = (*fdConn)(nil)
	_ api.Waiter    = blockWaiter{}
)

// Startup performs the process-wide socket initialization. It pairs with
// exactly one Cleanup and is never called implicitly: programs bracket all
// transport usage between the two. On most platforms it is a no-op; on
// Windows an initialization failure is fatal.
func Startup() error { return sock.Startup() }

// Cleanup tears down what Startup initialized.
func Cleanup() error { return sock.Cleanup() }

// Config describes one outbound connection.
type Config struct {
	// TLS selects the secure variant when non-nil.
	TLS *ClientTLS

	// Waiter overrides the readiness waiter. Nil selects the platform
	// default: thread-blocking poll on native targets, the cooperative
	// poll-yield loop on cooperative targets.
	Waiter api.Waiter

	// Nonblocking drives the cooperative connect path: the socket is put
	// into non-blocking mode and every readiness stall goes through the
	// Waiter instead of parking a kernel thread.
	Nonblocking bool

	// Logger receives connection lifecycle events. Nil keeps the library
	// silent.
	Logger *zap.Logger
}

// Option tunes a transport constructor.
type Option func(*options)

type options struct {
	waiter api.Waiter
	log    *zap.Logger
}

// WithWaiter sets the readiness waiter used for stalls.
func WithWaiter(w api.Waiter) Option {
	return func(o *options) { o.waiter = w }
}

// WithLogger sets the lifecycle logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

func newOptions(opts []Option) options {
	o := options{waiter: DefaultWaiter(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Dial connects to address ("host:port") and returns the transport variant
// the config selects. On any failure no descriptor leaks: ownership either
// transfers into the returned transport or the socket is closed before
// returning.
func Dial(address string, cfg Config) (api.Transport, error) {
	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, api.NewError(api.StatusNetwork, "resolve", err)
	}

	waiter := cfg.Waiter
	if waiter == nil {
		waiter = DefaultWaiter()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(
		zap.String("conn_id", uuid.NewString()),
		zap.String("addr", addr.String()),
	)

	d, err := sock.Create(addr.IP.To4() == nil)
	if err != nil {
		return nil, err
	}

	// From here on the descriptor is released on every failure path.
	if err := sock.SetOptions(d); err != nil {
		_ = sock.Close(d)
		return nil, err
	}
	if err := connect(d, addr, waiter, cfg.Nonblocking); err != nil {
		_ = sock.Close(d)
		return nil, err
	}
	log.Debug("connected")

	if cfg.TLS != nil {
		st, err := NewSecure(d, *cfg.TLS, WithWaiter(waiter), WithLogger(log))
		if err != nil {
			// Construction failed before ownership transfer; the
			// descriptor is still ours to release.
			_ = sock.Close(d)
			return nil, err
		}
		return st, nil
	}
	return NewRaw(d, WithWaiter(waiter), WithLogger(log)), nil
}

// connect runs either the blocking connect or the cooperative
// connect-then-wait-writable sequence.
func connect(d sock.Desc, addr *net.TCPAddr, waiter api.Waiter, nonblocking bool) error {
	if !nonblocking {
		return sock.Connect(d, addr)
	}
	if err := sock.SetNonblock(d, true); err != nil {
		return err
	}
	if err := sock.ConnectNonblock(d, addr); err != nil {
		return err
	}
	// The syscall only started the connection; the socket is unusable for
	// writes until writability confirms the attempt finished.
	if err := waiter.WaitWritable(sock.Raw(d)); err != nil {
		return api.NewError(api.StatusNetwork, "connect wait", err)
	}
	return sock.ConnError(d)
}
