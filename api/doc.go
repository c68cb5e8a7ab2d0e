// File: api/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package api defines the pure contracts of the hioload-net framework:
// channels, pipelines, handler capability sets, event loops, futures and
// the narrow collaborator interfaces (transport, resolver).
//
// Implementation packages (channel, eventloop, bootstrap, transport)
// depend on api; api depends only on core/constant and the standard
// library, so contracts can be consumed without pulling in any runtime.
package api
