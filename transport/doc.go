// File: transport/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package transport provides the in-memory reference implementation of
// the api.Transport collaborator: connected pipe ends with an
// address-registry rendezvous, and a listener that produces accepted
// child channels for server bootstraps.
//
// Delivery follows edge-triggered read semantics: BeginRead arms the
// end for exactly one batch; the pipeline's auto-read machinery re-arms
// it after each read-complete. That makes accept throttling and read
// backpressure observable without a real socket.
package transport
