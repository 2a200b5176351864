// File: transport/waiter.go
//
// Readiness waiters: the thread-blocking variant parks the caller in
// poll(2); the cooperative variant re-polls with zero timeout and yields
// between attempts.

package transport

import (
	"github.com/calyxdb/calyx-wire/api"
	"github.com/calyxdb/calyx-wire/internal/coop"
	"github.com/calyxdb/calyx-wire/internal/sock"
)

// blockWaiter is the waiter for backends whose I/O syscalls block. Its
// per-platform methods either park the thread in the shim's poll or, where
// the transfer syscall itself suspends, return immediately.
type blockWaiter struct{}

// nonblockPoll adapts the shim's zero-timeout poll to the cooperative
// waiter's probe contract.
func nonblockPoll(fd uintptr, write bool) (bool, error) {
	ev := sock.EventReadable
	if write {
		ev = sock.EventWritable
	}
	n, err := sock.Poll(sock.Desc(fd), ev, 0)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NewCoopWaiter builds the poll-yield-repoll waiter over the shim. Pass
// coop.WithYield with a task's Yield to park the current cooperative task
// between polls.
func NewCoopWaiter(opts ...coop.Option) api.Waiter {
	return coop.NewWaiter(nonblockPoll, opts...)
}
