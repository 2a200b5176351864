//go:build js || wasip1

package transport

import "github.com/calyxdb/calyx-wire/api"

// DefaultWaiter returns the cooperative waiter: these targets have no
// blocking syscalls, so a readiness wait is a poll-yield-repoll loop driven
// by the host scheduler.
func DefaultWaiter() api.Waiter { return NewCoopWaiter() }
