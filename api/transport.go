// File: api/transport.go
//
// The polymorphic transport contract consumed by the session layer. Exactly
// two implementations exist (raw and TLS); both move exact byte counts or
// fail definitively, never exposing a short transfer.

package api

// Transport moves raw bytes between client and server, independent of
// protocol semantics. One Transport owns one socket descriptor for its
// entire lifetime; it is used from a single owning thread (or a single
// cooperative task) and is never shared.
type Transport interface {
	// Send transfers exactly len(p) bytes or reports a terminal failure.
	// After a failure the connection is presumed dead and the caller must
	// Destroy the transport.
	Send(p []byte) error

	// Receive fills p completely or reports a terminal failure. An orderly
	// remote close before len(p) bytes arrive is a failure, not a short
	// success.
	Receive(p []byte) error

	// Destroy releases the transport and closes its descriptor exactly
	// once. Calling Destroy twice is a programming defect.
	Destroy()

	// SuspendUntilReadable parks the caller until the underlying channel
	// is readable. On backends where blocking I/O already suspends
	// naturally this returns as soon as the readiness wait does.
	SuspendUntilReadable() error

	// SuspendUntilWritable is the write-side counterpart of
	// SuspendUntilReadable.
	SuspendUntilWritable() error
}

// Waiter converts "wait for socket readiness" into whatever suspension the
// execution model supports: parking the thread in poll(2), or yielding to a
// cooperative scheduler and re-polling.
type Waiter interface {
	WaitReadable(fd uintptr) error
	WaitWritable(fd uintptr) error
}

// Identity is the peer identity captured by a secure transport after a
// successful handshake. Both fields are immutable and exposed read-only for
// out-of-band trust verification (fingerprint pinning).
type Identity struct {
	// Algorithm is the peer public-key algorithm name, e.g. "ECDSA".
	Algorithm string

	// Fingerprint is the hex-encoded SHA-256 digest of the peer's
	// SubjectPublicKeyInfo.
	Fingerprint string
}
