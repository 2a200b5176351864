package transport

import (
	"bytes"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/calyxdb/calyx-wire/internal/coop"
	"github.com/calyxdb/calyx-wire/internal/sock"
)

// dialPair connects a shim descriptor to an in-process TCP peer and returns
// both ends.
func dialPair(t *testing.T) (sock.Desc, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()

	addr := ln.Addr().(*net.TCPAddr)
	d, err := sock.Create(false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := sock.Connect(d, addr); err != nil {
		t.Fatalf("connect: %v", err)
	}
	peer, ok := <-accepted
	if !ok {
		t.Fatal("accept failed")
	}
	t.Cleanup(func() { peer.Close() })
	return d, peer
}

func TestFdConnReadWriteRoundTrip(t *testing.T) {
	d, peer := dialPair(t)
	fc := &fdConn{d: d, waiter: blockWaiter{}}
	defer fc.Close()

	payload := []byte("over the shim and back")
	go func() {
		buf := make([]byte, len(payload))
		if _, err := io.ReadFull(peer, buf); err != nil {
			return
		}
		peer.Write(buf)
	}()

	if _, err := fc.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := make([]byte, len(payload))
	if _, err := io.ReadFull(fc, got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload corrupted through fdConn")
	}
}

func TestFdConnReadReportsEOF(t *testing.T) {
	d, peer := dialPair(t)
	fc := &fdConn{d: d, waiter: blockWaiter{}}
	defer fc.Close()

	peer.Close()
	if _, err := fc.Read(make([]byte, 8)); err != io.EOF {
		t.Fatalf("read after peer close = %v, want io.EOF", err)
	}
}

// A non-blocking descriptor with no data pending must stall in the waiter,
// not error: the cooperative waiter re-polls until the peer finally writes.
func TestFdConnNonblockingReadRetries(t *testing.T) {
	d, peer := dialPair(t)
	if err := sock.SetNonblock(d, true); err != nil {
		t.Fatalf("set nonblock: %v", err)
	}

	var yields atomic.Int64
	w := coop.NewWaiter(nonblockPoll,
		coop.WithYield(func() { yields.Add(1) }),
		coop.WithInterval(time.Millisecond),
	)
	fc := &fdConn{d: d, waiter: w}
	defer fc.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		peer.Write([]byte("late"))
	}()

	got := make([]byte, 4)
	if _, err := io.ReadFull(fc, got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "late" {
		t.Fatalf("read %q, want %q", got, "late")
	}
	if yields.Load() == 0 {
		t.Fatal("read completed without a single poll-yield cycle")
	}
}

func TestFdConnDeadlinesUnimplemented(t *testing.T) {
	fc := &fdConn{}
	for _, err := range []error{
		fc.SetDeadline(time.Time{}),
		fc.SetReadDeadline(time.Time{}),
		fc.SetWriteDeadline(time.Time{}),
	} {
		if err == nil {
			t.Fatal("deadline accepted on a deadline-free transport")
		}
	}
}
