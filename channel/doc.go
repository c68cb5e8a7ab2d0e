// File: channel/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package channel implements the concrete channel, its pipeline of
// handler contexts, the typed option/attribute registries and the
// per-channel configuration store.
//
// A channel owns exactly one pipeline. The pipeline is a doubly-linked
// chain of contexts between two sentinels: head, nearest the transport,
// satisfies outbound operations by calling into the channel's transport;
// tail, nearest the application, logs and drops inbound events nobody
// consumed. Propagation is an iterative walk over the links, so long
// chains cost no call-stack depth.
package channel
