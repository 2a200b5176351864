package transport

// The Winsock backend has no poll wrapper and never needs one: every
// transfer syscall blocks until it can proceed, so an explicit readiness
// wait has nothing to add and returns immediately.

func (blockWaiter) WaitReadable(fd uintptr) error { return nil }

func (blockWaiter) WaitWritable(fd uintptr) error { return nil }
