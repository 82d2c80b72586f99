// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

//go:build windows

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/windows"

	"github.com/latchkey-foundation/latchkey/lib/clock"
)

// connectNamedPipe opens the named pipe at path, retrying while the
// pipe server reports ERROR_PIPE_BUSY (it accepts one client at a
// time; busy clears as soon as it finishes the previous accept).
func connectNamedPipe(ctx context.Context, clk clock.Clock, path string) (io.ReadWriteCloser, error) {
	open := func() (io.ReadWriteCloser, error) {
		return openNamedPipe(path)
	}
	stream, err := dialWithBusyRetry(ctx, clk, open, isPipeBusy)
	if err != nil {
		return nil, fmt.Errorf("connecting to named pipe %s: %w", path, err)
	}
	return stream, nil
}

// openNamedPipe performs a single synchronous CreateFile open of the
// pipe. The resulting *os.File carries the duplex pipe handle.
func openNamedPipe(path string) (io.ReadWriteCloser, error) {
	pathPointer, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	handle, err := windows.CreateFile(
		pathPointer,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,   // no sharing: the stream is exclusively ours
		nil, // default security attributes
		windows.OPEN_EXISTING,
		0, // synchronous I/O
		0,
	)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(handle), path), nil
}

// isPipeBusy reports whether err is the transient "all pipe instances
// are busy" condition that the retry loop waits out.
func isPipeBusy(err error) bool {
	return errors.Is(err, windows.ERROR_PIPE_BUSY)
}
