// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		address string
		want    Descriptor
	}{
		{"unix scheme", "unix:///run/user/1000/agent.sock", Unix("/run/user/1000/agent.sock")},
		{"tcp scheme", "tcp://127.0.0.1:2222", TCP("127.0.0.1:2222")},
		{"npipe scheme", `npipe://\\.\pipe\openssh-ssh-agent`, NamedPipe(`\\.\pipe\openssh-ssh-agent`)},
		{"bare path is unix", "/tmp/agent.sock", Unix("/tmp/agent.sock")},
		{"relative path is unix", "agent.sock", Unix("agent.sock")},
		{"pipe path is a named pipe", `\\.\pipe\openssh-ssh-agent`, NamedPipe(`\\.\pipe\openssh-ssh-agent`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.address)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.address, err)
			}
			if got != tc.want {
				t.Errorf("Parse(%q) = %v, want %v", tc.address, got, tc.want)
			}
		})
	}
}

func TestParseRejectsEmptyAddresses(t *testing.T) {
	for _, address := range []string{"", "unix://", "tcp://", "npipe://"} {
		if _, err := Parse(address); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", address)
		}
	}
}

func TestParseRoundTripsThroughString(t *testing.T) {
	for _, descriptor := range []Descriptor{
		Unix("/tmp/agent.sock"),
		TCP("localhost:22"),
		NamedPipe(`\\.\pipe\agent`),
	} {
		parsed, err := Parse(descriptor.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", descriptor.String(), err)
		}
		if parsed != descriptor {
			t.Errorf("Parse(%q) = %v, want %v", descriptor.String(), parsed, descriptor)
		}
	}
}

func TestZeroDescriptorString(t *testing.T) {
	var zero Descriptor
	if got := zero.String(); got != "<invalid descriptor>" {
		t.Errorf("zero descriptor renders as %q", got)
	}
}

func TestFromEnvironment(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "/run/user/1000/agent.sock")
	descriptor, err := FromEnvironment()
	if err != nil {
		t.Fatalf("FromEnvironment: %v", err)
	}
	if descriptor != Unix("/run/user/1000/agent.sock") {
		t.Errorf("FromEnvironment = %v", descriptor)
	}
}

func TestFromEnvironmentUnset(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	if _, err := FromEnvironment(); err == nil {
		t.Fatal("FromEnvironment succeeded with SSH_AUTH_SOCK unset")
	}
}
