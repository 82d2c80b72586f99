// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/latchkey-foundation/latchkey/lib/clock"
)

// connectNamedPipe fails fast: named pipes exist only on Windows, so
// the descriptor is structurally unsupported here and no I/O is
// attempted.
func connectNamedPipe(_ context.Context, _ clock.Clock, path string) (io.ReadWriteCloser, error) {
	return nil, fmt.Errorf("named pipe %s: %w", path, ErrUnsupportedTransport)
}
