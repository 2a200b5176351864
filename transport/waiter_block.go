//go:build !windows

package transport

import "github.com/calyxdb/calyx-wire/internal/sock"

// The wait parks the calling thread in poll(2) and returns as soon as the
// descriptor is ready, so suspension is effectively a no-op whenever I/O
// could proceed anyway.

func (blockWaiter) WaitReadable(fd uintptr) error {
	_, err := sock.Poll(sock.Desc(fd), sock.EventReadable, -1)
	return err
}

func (blockWaiter) WaitWritable(fd uintptr) error {
	_, err := sock.Poll(sock.Desc(fd), sock.EventWritable, -1)
	return err
}
