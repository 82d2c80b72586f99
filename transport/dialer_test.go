// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/latchkey-foundation/latchkey/lib/testutil"
)

// acceptAndGreet accepts one connection on listener and writes greeting
// to it, so connect tests can verify the stream is live end to end.
func acceptAndGreet(t *testing.T, listener net.Listener, greeting string) {
	t.Helper()
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte(greeting))
	}()
}

func readGreeting(t *testing.T, stream interface{ Read([]byte) (int, error) }, length int) string {
	t.Helper()
	buffer := make([]byte, length)
	for read := 0; read < length; {
		n, err := stream.Read(buffer[read:])
		if err != nil {
			t.Fatalf("reading greeting: %v", err)
		}
		read += n
	}
	return string(buffer)
}

func TestConnectUnix(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "agent.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listening on %s: %v", socketPath, err)
	}
	defer listener.Close()
	acceptAndGreet(t, listener, "hello")

	stream, err := Connect(context.Background(), Unix(socketPath))
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer stream.Close()

	if got := readGreeting(t, stream, 5); got != "hello" {
		t.Errorf("read %q, want hello", got)
	}
}

func TestConnectTCP(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	defer listener.Close()
	acceptAndGreet(t, listener, "hello")

	stream, err := Connect(context.Background(), TCP(listener.Addr().String()))
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer stream.Close()

	if got := readGreeting(t, stream, 5); got != "hello" {
		t.Errorf("read %q, want hello", got)
	}
}

func TestConnectMissingSocket(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "nobody-home.sock")
	if _, err := Connect(context.Background(), Unix(socketPath)); err == nil {
		t.Fatal("connecting to a missing socket succeeded")
	}
}

func TestConnectZeroDescriptor(t *testing.T) {
	var zero Descriptor
	if _, err := Connect(context.Background(), zero); err == nil {
		t.Fatal("connecting a zero descriptor succeeded")
	}
}

func TestConnectNamedPipeUnsupportedOffWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("named pipes are supported on windows")
	}
	_, err := Connect(context.Background(), NamedPipe(`\\.\pipe\openssh-ssh-agent`))
	if !errors.Is(err, ErrUnsupportedTransport) {
		t.Fatalf("error %v, want ErrUnsupportedTransport", err)
	}
}

func TestConnectHonorsDialTimeout(t *testing.T) {
	// A dialer timeout on a routable but unresponsive address must
	// surface as a connect error rather than hanging. 192.0.2.0/24 is
	// TEST-NET-1, guaranteed unroutable.
	dialer := &Dialer{Timeout: 50 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := dialer.Connect(ctx, TCP("192.0.2.1:22")); err == nil {
		t.Fatal("connecting to TEST-NET-1 succeeded")
	}
}
