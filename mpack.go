// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mpack provides a streaming MessagePack codec over arbitrary
// byte-oriented endpoints.
//
// Semantics and design:
//   - Wire format: bit-exact MessagePack. All multi-byte integers and
//     IEEE-754 floats are big-endian. The writer always selects the
//     smallest legal encoding; the reader dispatches on the format byte
//     and fails with typed errors on mismatch.
//   - Buffered endpoints: a Reader owns a read buffer pulled from a
//     SourceProvider; a Writer owns a write buffer pushed to a
//     SinkProvider. Bulk payloads bypass the buffers through the
//     transfer paths (ReadPayloadTo / WritePayloadFrom), engaging
//     sendfile-style fast paths where the endpoints support them.
//   - Blocking only: endpoints must block until bytes are available.
//     A non-blocking endpoint surfacing iox.ErrWouldBlock (or returning
//     zero bytes on a non-empty buffer) fails with
//     ErrNonBlockingEndpoint.
//   - Buffer allocation: read/write buffers and string scratch space
//     come from a BufferAllocator. The pooled variant reuses released
//     buffers through lock-free size-class buckets and may be shared
//     across readers, writers and goroutines.
//
// A Reader and a Writer are each single-threaded: the caller owns the
// call stack, and no I/O happens on background goroutines. Within one
// writer, emitted bytes appear on the endpoint in call order; writers
// sharing an endpoint must serialize externally.
//
// Errors surface to the caller; nothing is recovered locally. After a
// decode error the wire position is undefined: close and discard both
// sides of a corrupted stream.
package mpack

import "code.hybscloud.com/iox"

// These are provided as package-level aliases so callers can recognize
// the semantic control-flow errors of non-blocking transports without
// importing iox directly. mpack itself supports only blocking
// endpoints: either signal is folded into ErrNonBlockingEndpoint.
var (
	// ErrWouldBlock means “no further progress without waiting”.
	ErrWouldBlock = iox.ErrWouldBlock

	// ErrMore means “this completion is usable and more completions will
	// follow”.
	ErrMore = iox.ErrMore
)
