// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"

	"github.com/latchkey-foundation/latchkey/proto"
)

// ErrDisconnected is returned when the agent closes the stream before
// sending a response. The Client is unusable afterwards. Check with
// errors.Is.
var ErrDisconnected = errors.New("agent disconnected before sending a response")

// ProtocolError reports a response that could not be decoded: a
// malformed frame, an unknown message number, or a stream that closed
// mid-frame. The stream's framing state is unknown afterwards and the
// Client must be discarded. Check with errors.As.
type ProtocolError struct {
	// Operation is the operation whose response failed to decode.
	Operation string

	// Err is the underlying codec error.
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: malformed agent response: %v", e.Operation, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// UnexpectedResponseError reports a structurally valid response that is
// not among the shapes valid for the operation issued — the agent
// violated the protocol contract for this request type, or explicitly
// refused it. The stream framing is intact, so the Client may still be
// used for further calls. Check with errors.As.
type UnexpectedResponseError struct {
	// Operation is the operation that was issued.
	Operation string

	// Response is the decoded response the agent sent instead.
	Response proto.Response
}

func (e *UnexpectedResponseError) Error() string {
	if e.AgentFailure() {
		return fmt.Sprintf("%s: agent refused the request", e.Operation)
	}
	return fmt.Sprintf("%s: unexpected agent response %T", e.Operation, e.Response)
}

// AgentFailure reports whether the agent answered with an explicit
// failure message (locked agent, unknown key, refused extension)
// rather than a mismatched success shape.
func (e *UnexpectedResponseError) AgentFailure() bool {
	switch e.Response.(type) {
	case proto.Failure, proto.ExtensionFailure:
		return true
	}
	return false
}
