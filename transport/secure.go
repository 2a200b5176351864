// File: transport/secure.go
//
// Secure transport: the TLS-wrapped byte pipe. Construction is a four-step,
// all-or-nothing state machine: context setup, handshake, peer identity
// capture, and only then ownership transfer of the socket descriptor. Any
// earlier failure leaves the descriptor with the caller, so a
// partially-initialized transport can never be observed and the descriptor
// is never closed twice.

package transport

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/calyxdb/calyx-wire/api"
	"github.com/calyxdb/calyx-wire/internal/sock"
)

// ClientTLS is the caller-supplied material for the TLS client context.
type ClientTLS struct {
	// ServerName is the expected server name for certificate verification
	// and SNI.
	ServerName string

	// RootCAs is the pool of trusted CA certificates; nil falls back to
	// the system pool.
	RootCAs *x509.CertPool

	// Certificates optionally presents a client identity to the server.
	Certificates []tls.Certificate

	// InsecureSkipVerify disables chain verification. Fingerprint-pinning
	// deployments set this and verify through VerifyPeer instead; setting
	// it without a VerifyPeer callback is refused.
	InsecureSkipVerify bool

	// VerifyPeer runs after identity capture, before ownership transfer.
	// Returning an error aborts construction with StatusTLS; the typical
	// implementation compares Identity.Fingerprint against a pinned value.
	VerifyPeer func(api.Identity) error
}

// Secure is the TLS Transport variant. It owns a TLS session that itself
// owns the socket descriptor.
type Secure struct {
	conn      *tls.Conn
	fd        *fdConn
	identity  api.Identity
	log       *zap.Logger
	destroyed bool
}

// NewSecure drives the construction state machine over an already-connected
// descriptor. On any error the returned transport is nil and descriptor
// ownership remains with the caller, who retains the responsibility (and
// the ability) to close it.
func NewSecure(d sock.Desc, cfg ClientTLS, opts ...Option) (*Secure, error) {
	o := newOptions(opts)

	// Step 1: context setup. Nothing has touched the socket yet.
	tcfg, err := clientConfig(cfg)
	if err != nil {
		return nil, api.NewError(api.StatusTLS, "tls context", err)
	}

	// Step 2: handshake. Stalled handshake reads resolve inside fdConn by
	// waiting for readability and retrying; only a protocol or
	// negotiation failure surfaces here.
	fc := &fdConn{d: d, waiter: o.waiter}
	conn := tls.Client(fc, tcfg)
	if err := conn.Handshake(); err != nil {
		return nil, api.NewError(api.StatusTLS, "handshake", err)
	}

	// Step 3: peer identity capture. The protocol requires a server
	// certificate; its absence after a successful handshake is a defect,
	// not a recoverable condition.
	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		panic("transport: handshake succeeded without a peer certificate")
	}
	leaf := state.PeerCertificates[0]
	sum := sha256.Sum256(leaf.RawSubjectPublicKeyInfo)
	identity := api.Identity{
		Algorithm:   leaf.PublicKeyAlgorithm.String(),
		Fingerprint: hex.EncodeToString(sum[:]),
	}
	if cfg.VerifyPeer != nil {
		if err := cfg.VerifyPeer(identity); err != nil {
			return nil, api.NewError(api.StatusTLS, "verify peer", err)
		}
	}

	// Step 4: ownership transfer.
	s := &Secure{conn: conn, fd: fc, identity: identity, log: o.log}
	o.log.Debug("secure transport established",
		zap.String("algorithm", identity.Algorithm),
		zap.String("fingerprint", identity.Fingerprint),
	)
	return s, nil
}

// clientConfig builds the tls.Config for step 1.
func clientConfig(cfg ClientTLS) (*tls.Config, error) {
	if cfg.InsecureSkipVerify && cfg.VerifyPeer == nil {
		return nil, errors.New("no peer verification: InsecureSkipVerify set without a VerifyPeer callback")
	}
	if !cfg.InsecureSkipVerify && cfg.ServerName == "" {
		return nil, errors.New("server name required for certificate verification")
	}
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         cfg.ServerName,
		RootCAs:            cfg.RootCAs,
		Certificates:       cfg.Certificates,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}, nil
}

// PeerIdentity returns the identity captured at construction: the peer's
// public-key algorithm name and the hex SHA-256 digest of its
// SubjectPublicKeyInfo. Both are immutable.
func (s *Secure) PeerIdentity() api.Identity { return s.identity }

// Send transfers exactly len(p) bytes through the record layer or reports
// StatusTLS. Want-read stalls are absorbed beneath; any error here is
// terminal.
func (s *Secure) Send(p []byte) error {
	if _, err := s.conn.Write(p); err != nil {
		return api.NewError(api.StatusTLS, "tls send", err)
	}
	return nil
}

// Receive fills p completely or reports StatusTLS.
func (s *Secure) Receive(p []byte) error {
	if _, err := io.ReadFull(s.conn, p); err != nil {
		return api.NewError(api.StatusTLS, "tls receive", err)
	}
	return nil
}

// Destroy releases the TLS session, which owns and closes the descriptor;
// the socket is never closed twice. A failure to flush the close_notify
// alert to an already-dead peer is not an accounting defect and is only
// logged.
func (s *Secure) Destroy() {
	if s.destroyed {
		panic("transport: Secure destroyed twice")
	}
	s.destroyed = true
	if err := s.conn.Close(); err != nil {
		s.log.Debug("tls close", zap.Error(err))
	}
	s.log.Debug("secure transport destroyed")
}

// SuspendUntilReadable parks the caller until the socket is readable.
func (s *Secure) SuspendUntilReadable() error {
	return s.fd.waiter.WaitReadable(sock.Raw(s.fd.d))
}

// SuspendUntilWritable parks the caller until the socket is writable.
func (s *Secure) SuspendUntilWritable() error {
	return s.fd.waiter.WaitWritable(sock.Raw(s.fd.d))
}
