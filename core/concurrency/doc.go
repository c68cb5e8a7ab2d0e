// File: core/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package concurrency provides the asynchronous building blocks shared
// by the event loop and bootstrap layers: single-assignment promises,
// the loop task queue, and goroutine identification for loop-affinity
// checks.
package concurrency
