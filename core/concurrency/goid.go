// File: core/concurrency/goid.go
// Package concurrency extracts the current goroutine id.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The runtime offers no public goroutine identity, so the id is parsed
// from the first line of the stack header ("goroutine 123 [running]:").
// The loop uses it only for the InLoop affinity check; correctness never
// depends on the id beyond equality.

package concurrency

import (
	"bytes"
	"runtime"
	"strconv"
)

var goroutinePrefix = []byte("goroutine ")

// GoroutineID returns the id of the calling goroutine.
func GoroutineID() int64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, goroutinePrefix)
	i := bytes.IndexByte(buf, ' ')
	if i < 0 {
		return -1
	}
	id, err := strconv.ParseInt(string(buf[:i]), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
