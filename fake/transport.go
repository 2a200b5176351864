// File: fake/transport.go
//
// Scripted api.Transport for tests of the layers above the transport:
// queued receive bytes, captured sends, injectable failures, destroy
// accounting.

// Package fake provides controllable test doubles for the transport
// contracts.
package fake

import (
	"sync"

	"github.com/calyxdb/calyx-wire/api"
)

// Transport is a scripted in-memory api.Transport.
type Transport struct {
	mu        sync.Mutex
	sent      [][]byte
	pending   []byte
	sendErr   error
	recvErr   error
	waitErr   error
	destroyed bool
}

var _ api.Transport = (*Transport)(nil)

// NewTransport returns an empty fake with nothing queued.
func NewTransport() *Transport {
	return &Transport{}
}

// QueueReceive appends bytes to the stream future Receive calls drain.
func (t *Transport) QueueReceive(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, p...)
}

// FailSend makes every following Send return err.
func (t *Transport) FailSend(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendErr = err
}

// FailReceive makes every following Receive return err.
func (t *Transport) FailReceive(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recvErr = err
}

// FailWait makes every following suspension return err.
func (t *Transport) FailWait(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.waitErr = err
}

// Sent returns every payload passed to Send, in order.
func (t *Transport) Sent() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.sent))
	copy(out, t.sent)
	return out
}

// Destroyed reports whether Destroy has run.
func (t *Transport) Destroyed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.destroyed
}

// Send records a copy of p.
func (t *Transport) Send(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		panic("fake: Send after Destroy")
	}
	if t.sendErr != nil {
		return t.sendErr
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	t.sent = append(t.sent, cp)
	return nil
}

// Receive fills p from the queued stream. Draining past the queue reports
// StatusRecv, the same way a real transport reports a peer that closed
// before delivering the requested count.
func (t *Transport) Receive(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		panic("fake: Receive after Destroy")
	}
	if t.recvErr != nil {
		return t.recvErr
	}
	if len(t.pending) < len(p) {
		return api.NewError(api.StatusRecv, "receive", nil)
	}
	copy(p, t.pending[:len(p)])
	t.pending = t.pending[len(p):]
	return nil
}

// Destroy marks the transport dead; a second call panics like the real
// variants do.
func (t *Transport) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		panic("fake: Transport destroyed twice")
	}
	t.destroyed = true
}

// SuspendUntilReadable returns immediately; the fake is always ready.
func (t *Transport) SuspendUntilReadable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waitErr
}

// SuspendUntilWritable returns immediately; the fake is always ready.
func (t *Transport) SuspendUntilWritable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waitErr
}
