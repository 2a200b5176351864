package transport_test

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/calyxdb/calyx-wire/api"
	"github.com/calyxdb/calyx-wire/transport"
)

// startEcho runs a TCP server that echoes every connection byte-for-byte.
func startEcho(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				io.Copy(c, c)
			}()
		}
	}()
	return ln.Addr().String()
}

func TestRawRoundTrip(t *testing.T) {
	addr := startEcho(t)
	tr, err := transport.Dial(addr, transport.Config{})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Destroy()

	for _, size := range []int{1, 2, 17, 4096, 64 << 10} {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i * 31)
		}
		if err := tr.Send(payload); err != nil {
			t.Fatalf("send %d bytes: %v", size, err)
		}
		got := make([]byte, size)
		if err := tr.Receive(got); err != nil {
			t.Fatalf("receive %d bytes: %v", size, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("round trip of %d bytes corrupted the payload", size)
		}
	}
}

// A slow peer that dribbles the payload out in 3-byte socket fragments must
// still satisfy a single full-length Receive.
func TestRawReceiveAssemblesFragments(t *testing.T) {
	payload := make([]byte, 10_000)
	for i := range payload {
		payload[i] = byte(i)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		for off := 0; off < len(payload); off += 3 {
			end := off + 3
			if end > len(payload) {
				end = len(payload)
			}
			if _, err := c.Write(payload[off:end]); err != nil {
				return
			}
			if off%999 == 0 {
				time.Sleep(time.Millisecond)
			}
		}
	}()

	tr, err := transport.Dial(ln.Addr().String(), transport.Config{})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Destroy()

	got := make([]byte, len(payload))
	if err := tr.Receive(got); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("fragmented payload arrived corrupted")
	}
}

// A peer that closes before delivering the requested count is a failure,
// never a silent short success.
func TestRawReceiveReportsEarlyClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		c.Write(make([]byte, 100))
		c.Close()
	}()

	tr, err := transport.Dial(ln.Addr().String(), transport.Config{})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Destroy()

	err = tr.Receive(make([]byte, 200))
	if err == nil {
		t.Fatal("early close reported as success")
	}
	if api.StatusOf(err) != api.StatusRecv {
		t.Fatalf("status = %v, want %v", api.StatusOf(err), api.StatusRecv)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("cause = %v, want %v", err, io.ErrUnexpectedEOF)
	}
}

func TestRawDoubleDestroyPanics(t *testing.T) {
	addr := startEcho(t)
	tr, err := transport.Dial(addr, transport.Config{})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	tr.Destroy()

	defer func() {
		if recover() == nil {
			t.Fatal("second Destroy did not panic")
		}
	}()
	tr.Destroy()
}

func TestDialConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	tr, err := transport.Dial(addr, transport.Config{})
	if err == nil {
		tr.Destroy()
		t.Fatal("dial to a closed port succeeded")
	}
	if api.StatusOf(err) != api.StatusNetwork {
		t.Fatalf("status = %v, want %v", api.StatusOf(err), api.StatusNetwork)
	}
}

func TestDialBadAddress(t *testing.T) {
	_, err := transport.Dial("not-an-address", transport.Config{})
	if err == nil {
		t.Fatal("dial with a malformed address succeeded")
	}
	if api.StatusOf(err) != api.StatusNetwork {
		t.Fatalf("status = %v, want %v", api.StatusOf(err), api.StatusNetwork)
	}
}

// The cooperative dial path: non-blocking connect, writability confirmed by
// the poll-yield waiter, then normal byte-exact traffic.
func TestDialNonblockingRoundTrip(t *testing.T) {
	addr := startEcho(t)
	tr, err := transport.Dial(addr, transport.Config{
		Nonblocking: true,
		Waiter:      transport.NewCoopWaiter(),
	})
	if err != nil {
		t.Fatalf("dial nonblocking: %v", err)
	}
	defer tr.Destroy()

	payload := bytes.Repeat([]byte("calyx"), 2000)
	if err := tr.Send(payload); err != nil {
		t.Fatalf("send: %v", err)
	}
	got := make([]byte, len(payload))
	if err := tr.Receive(got); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("round trip over the cooperative path corrupted the payload")
	}
}
