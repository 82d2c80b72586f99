// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock parameter instead of calling time.Now,
// time.After, or time.Sleep directly. Real() provides standard library
// behavior; Fake() provides a deterministic clock that advances only
// when Advance is called, so tests of retry loops never wait on wall
// time.
package clock

import "time"

// Clock abstracts the time operations latchkey uses. The transport
// dialer's named-pipe retry loop is the main consumer: it sleeps on the
// injected clock so tests can step through retries deterministically.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after
	// duration d elapses. Equivalent to time.After. If d <= 0, the
	// channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// Sleep pauses the current goroutine for at least duration d.
	// Equivalent to time.Sleep.
	Sleep(d time.Duration)
}
