// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport establishes the byte channel between a client and
// an SSH authentication agent.
//
// A [Descriptor] names exactly one of the three transports the agent
// ecosystem uses: a Unix domain socket, a TCP socket, or a Windows
// named pipe. The set is closed by protocol definition, so Descriptor
// is a tagged value dispatched once at connect time rather than a
// plugin interface. [Parse] resolves address strings ("unix://",
// "tcp://", "npipe://", bare socket paths, \\.\pipe\ paths) and
// [FromEnvironment] reads SSH_AUTH_SOCK.
//
// [Dialer.Connect] turns a Descriptor into one open duplex stream.
// Unix and TCP transports get a single connect attempt. Named pipes
// get the transport's standard cooperative busy retry: a pipe server
// accepting one client at a time answers ERROR_PIPE_BUSY to everyone
// else, so the dialer sleeps 50ms and tries again without bound; the
// caller imposes any overall deadline through ctx. On non-Windows
// targets a named-pipe descriptor fails fast with
// [ErrUnsupportedTransport] before any I/O.
package transport
