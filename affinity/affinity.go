// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral API for CPU affinity. Platform-specific
// implementations live in affinity_linux.go and affinity_stub.go behind
// build tags. Event loops call Pin from their own goroutine after
// locking it to an OS thread.

package affinity

// Pin binds the calling OS thread to the given logical CPU on supported
// platforms. On unsupported platforms it returns an error; callers treat
// pinning as best-effort.
func Pin(cpuID int) error {
	return pinPlatform(cpuID)
}
