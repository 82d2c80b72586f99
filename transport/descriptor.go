// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"os"
	"strings"
)

// kind discriminates the three transport variants. The zero value is
// reserved so that a zero Descriptor is recognizably invalid.
type kind int

const (
	kindUnix kind = iota + 1
	kindTCP
	kindNamedPipe
)

// Descriptor identifies one agent endpoint on exactly one transport.
// Construct one with [Unix], [TCP], [NamedPipe], [Parse], or
// [FromEnvironment]. The zero Descriptor is invalid and fails Connect.
type Descriptor struct {
	kind    kind
	address string
}

// Unix describes an agent listening on a Unix domain socket at path.
func Unix(path string) Descriptor {
	return Descriptor{kind: kindUnix, address: path}
}

// TCP describes an agent listening on a TCP socket at address
// (host:port).
func TCP(address string) Descriptor {
	return Descriptor{kind: kindTCP, address: address}
}

// NamedPipe describes an agent listening on a Windows named pipe at
// path (e.g. `\\.\pipe\openssh-ssh-agent`).
func NamedPipe(path string) Descriptor {
	return Descriptor{kind: kindNamedPipe, address: path}
}

// String renders the descriptor as a parseable address.
func (d Descriptor) String() string {
	switch d.kind {
	case kindUnix:
		return "unix://" + d.address
	case kindTCP:
		return "tcp://" + d.address
	case kindNamedPipe:
		return "npipe://" + d.address
	}
	return "<invalid descriptor>"
}

// Parse resolves an address string to a Descriptor. Accepted forms:
//
//	unix:///run/user/1000/agent.sock
//	tcp://127.0.0.1:2222
//	npipe://\\.\pipe\openssh-ssh-agent
//	/run/user/1000/agent.sock      (bare paths mean a Unix socket)
//	\\.\pipe\openssh-ssh-agent     (pipe paths mean a named pipe)
func Parse(address string) (Descriptor, error) {
	switch {
	case address == "":
		return Descriptor{}, fmt.Errorf("empty agent address")
	case strings.HasPrefix(address, "unix://"):
		path := strings.TrimPrefix(address, "unix://")
		if path == "" {
			return Descriptor{}, fmt.Errorf("unix address %q has no socket path", address)
		}
		return Unix(path), nil
	case strings.HasPrefix(address, "tcp://"):
		hostPort := strings.TrimPrefix(address, "tcp://")
		if hostPort == "" {
			return Descriptor{}, fmt.Errorf("tcp address %q has no host:port", address)
		}
		return TCP(hostPort), nil
	case strings.HasPrefix(address, "npipe://"):
		path := strings.TrimPrefix(address, "npipe://")
		if path == "" {
			return Descriptor{}, fmt.Errorf("npipe address %q has no pipe path", address)
		}
		return NamedPipe(path), nil
	case strings.HasPrefix(address, `\\.\pipe\`):
		return NamedPipe(address), nil
	default:
		return Unix(address), nil
	}
}

// FromEnvironment resolves the agent endpoint from SSH_AUTH_SOCK, the
// conventional variable agents publish their socket in.
func FromEnvironment() (Descriptor, error) {
	address := os.Getenv("SSH_AUTH_SOCK")
	if address == "" {
		return Descriptor{}, fmt.Errorf("SSH_AUTH_SOCK is not set")
	}
	return Parse(address)
}
