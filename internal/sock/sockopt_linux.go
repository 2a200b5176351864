//go:build linux

package sock

import "golang.org/x/sys/unix"

// Linux names the keep-alive idle threshold TCP_KEEPIDLE.
const keepAliveIdleOpt = unix.TCP_KEEPIDLE
