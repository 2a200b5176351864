// Package sock is the per-platform socket shim beneath the transport layer.
//
// Every networking syscall the client needs is concentrated behind one small
// contract: process-wide Startup/Cleanup, Create, Connect, SetOptions, Send,
// Recv, Poll, Close, and ErrString. The layers above are written once against
// this contract and stay fully portable; every EINTR and error-code
// translation difference lives here and nowhere else.
//
// A Desc is a scarce, singularly owned resource. It moves by hand from
// "created" to "connected" to "owned by a transport"; each transition either
// succeeds completely or the descriptor is released and the failure reported.
// Descriptors are never shared and never reference-counted.
//
// Startup and Cleanup follow a strict init-once/teardown-once pairing with no
// reference counting. They are never called implicitly by constructors; the
// program brackets all socket usage with them explicitly.
package sock

// Raw exposes the descriptor as an opaque uintptr for readiness waiters.
func Raw(d Desc) uintptr { return uintptr(d) }
