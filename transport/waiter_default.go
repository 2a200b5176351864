//go:build !js && !wasip1

package transport

import "github.com/calyxdb/calyx-wire/api"

// DefaultWaiter returns the thread-blocking waiter: on native targets a
// readiness wait parks the calling thread in the kernel.
func DefaultWaiter() api.Waiter { return blockWaiter{} }
