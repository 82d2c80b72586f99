// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

// Package proto defines the SSH agent protocol message taxonomy and its
// wire codec.
//
// Messages follow draft-miller-ssh-agent: each frame on the byte stream
// is a big-endian uint32 length followed by a one-byte message number
// and an SSH-wire-encoded body. [Request] and [Response] are closed
// tagged unions with one struct per protocol message; the session layer
// in package client constructs Requests and classifies Responses but
// never touches bytes.
//
// [WireCodec] implements both directions of the protocol. The client
// side uses EncodeRequest and DecodeResponse; DecodeRequest and
// EncodeResponse serve the agent side, primarily the fake peers used
// in tests. Decoding is incremental: DecodeResponse and DecodeRequest
// report "need more bytes" by consuming nothing, so callers can feed
// partial reads straight from a socket.
package proto
