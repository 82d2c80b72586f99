// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/latchkey-foundation/latchkey/lib/clock"
)

// ErrUnsupportedTransport is returned when a descriptor names a
// transport the running platform cannot connect to (a named pipe on a
// non-Windows target). Check with errors.Is.
var ErrUnsupportedTransport = errors.New("transport kind not supported on this platform")

// pipeBusyRetryDelay is the fixed wait between named-pipe connect
// attempts after the server answers "pipe busy". The server typically
// finishes accepting its current client well within this window, so
// the very next attempt succeeds. No jitter, no backoff, no attempt
// limit — busy is a transient cooperative condition, not a failure.
const pipeBusyRetryDelay = 50 * time.Millisecond

// Dialer connects agent descriptors. The zero value is ready to use:
// no standalone timeout, real clock.
type Dialer struct {
	// Timeout bounds the socket connect attempt for Unix and TCP
	// transports. Zero means only the context deadline applies. It
	// does not bound the named-pipe busy retry loop, which by design
	// runs until the pipe accepts or ctx is done.
	Timeout time.Duration

	// Clock is the time source for the named-pipe retry delay. Nil
	// means the real clock; tests inject clock.Fake to step through
	// retries deterministically.
	Clock clock.Clock
}

// Connect establishes the duplex byte stream the descriptor names.
// Exactly one OS connection resource is held on success and none on
// failure. The returned stream is exclusively the caller's: the
// session layer assumes sole ownership.
func (d *Dialer) Connect(ctx context.Context, descriptor Descriptor) (io.ReadWriteCloser, error) {
	switch descriptor.kind {
	case kindUnix:
		return d.dialSocket(ctx, "unix", descriptor.address)
	case kindTCP:
		return d.dialSocket(ctx, "tcp", descriptor.address)
	case kindNamedPipe:
		return connectNamedPipe(ctx, d.clock(), descriptor.address)
	default:
		return nil, fmt.Errorf("connect: zero transport descriptor")
	}
}

// Connect establishes the stream for descriptor using a zero Dialer.
func Connect(ctx context.Context, descriptor Descriptor) (io.ReadWriteCloser, error) {
	return (&Dialer{}).Connect(ctx, descriptor)
}

func (d *Dialer) dialSocket(ctx context.Context, network, address string) (io.ReadWriteCloser, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s %s: %w", network, address, err)
	}
	return conn, nil
}

func (d *Dialer) clock() clock.Clock {
	if d.Clock != nil {
		return d.Clock
	}
	return clock.Real()
}
