// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

// Package client implements the typed session layer of the SSH agent
// protocol: one method per agent operation over one exclusively owned
// byte stream.
//
// A [Client] wraps any io.ReadWriteCloser — a socket from package
// transport, or an in-memory pipe in tests — together with the wire
// codec from package proto. Every operation follows the same strict
// half-duplex discipline: encode and write one request, then read
// until exactly one response decodes, then check the response against
// the shapes valid for that operation. An internal mutex held across
// the whole exchange means concurrent callers serialize; there is
// never more than one request outstanding on the stream.
//
// Errors are classified, never logged or retried. Failures before a
// response ([ErrDisconnected], write errors, [*ProtocolError]) mean
// the stream's framing can no longer be trusted and the Client should
// be closed and discarded. A [*UnexpectedResponseError] means the
// agent answered this call with the wrong message; the stream itself
// is still framed correctly and the Client remains usable.
//
// Cancellation: when the stream supports SetDeadline (net.Conn does),
// a ctx deadline is applied to the exchange. A call that fails by
// deadline or cancellation may leave a partial request or an unread
// response on the stream; the Client must then be discarded — there
// is no resynchronization.
package client
