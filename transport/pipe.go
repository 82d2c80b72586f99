// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"io"

	"github.com/latchkey-foundation/latchkey/lib/clock"
)

// dialWithBusyRetry runs open until it stops reporting the transient
// busy condition. Busy attempts are separated by pipeBusyRetryDelay on
// clk; any other error aborts immediately with no retry. The loop is
// unbounded by design — ctx is the only way to impose a deadline.
//
// The loop is platform-independent so the retry protocol is testable
// everywhere; the Windows pipe code supplies open and busy.
func dialWithBusyRetry(ctx context.Context, clk clock.Clock, open func() (io.ReadWriteCloser, error), busy func(error) bool) (io.ReadWriteCloser, error) {
	for {
		stream, err := open()
		if err == nil {
			return stream, nil
		}
		if !busy(err) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-clk.After(pipeBusyRetryDelay):
		}
	}
}
