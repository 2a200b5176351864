//go:build darwin

package sock

import "golang.org/x/sys/unix"

// Darwin names the keep-alive idle threshold TCP_KEEPALIVE.
const keepAliveIdleOpt = unix.TCP_KEEPALIVE
