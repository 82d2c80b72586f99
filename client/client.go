// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/latchkey-foundation/latchkey/proto"
	"github.com/latchkey-foundation/latchkey/transport"
)

// readChunkSize is the per-read buffer for response bytes. Most agent
// responses fit in one read; identities answers for large keyrings
// take a few.
const readChunkSize = 4096

// Client is a session with an SSH authentication agent. It owns its
// stream exclusively for its lifetime and issues at most one request
// at a time; concurrent method calls serialize on an internal mutex.
// Close invalidates the Client.
type Client struct {
	mu      sync.Mutex
	channel io.ReadWriteCloser
	codec   proto.Codec
	buffer  []byte
}

// New wraps an open duplex stream as an agent Client using the
// standard wire codec. No I/O happens until the first operation call.
// The Client takes ownership of the stream.
func New(channel io.ReadWriteCloser) *Client {
	return NewWithCodec(channel, proto.WireCodec{})
}

// NewWithCodec is New with a caller-supplied codec.
func NewWithCodec(channel io.ReadWriteCloser, codec proto.Codec) *Client {
	return &Client{channel: channel, codec: codec}
}

// Dial connects the transport the descriptor names and wraps the
// resulting stream as a Client.
func Dial(ctx context.Context, descriptor transport.Descriptor) (*Client, error) {
	channel, err := transport.Connect(ctx, descriptor)
	if err != nil {
		return nil, err
	}
	return New(channel), nil
}

// Close closes the underlying stream. The Client is unusable
// afterwards.
func (c *Client) Close() error {
	return c.channel.Close()
}

// RequestIdentities lists the identities the agent is willing to sign
// with, in the order the agent supplies them.
func (c *Client) RequestIdentities(ctx context.Context) ([]proto.Identity, error) {
	response, err := c.call(ctx, "request-identities", proto.RequestIdentities{})
	if err != nil {
		return nil, err
	}
	answer, ok := response.(proto.IdentitiesAnswer)
	if !ok {
		return nil, &UnexpectedResponseError{Operation: "request-identities", Response: response}
	}
	return answer.Identities, nil
}

// Sign asks the agent to sign the request's data with the key its
// public key blob identifies.
func (c *Client) Sign(ctx context.Context, request proto.SignRequest) (proto.Signature, error) {
	response, err := c.call(ctx, "sign", request)
	if err != nil {
		return proto.Signature{}, err
	}
	answer, ok := response.(proto.SignResponse)
	if !ok {
		return proto.Signature{}, &UnexpectedResponseError{Operation: "sign", Response: response}
	}
	return answer.Signature, nil
}

// AddIdentity hands a private key to the agent.
func (c *Client) AddIdentity(ctx context.Context, identity proto.AddIdentity) error {
	return c.callExpectSuccess(ctx, "add-identity", identity)
}

// AddIdentityConstrained hands a private key to the agent along with
// usage constraints the agent must enforce.
func (c *Client) AddIdentityConstrained(ctx context.Context, identity proto.AddIdentity, constraints proto.Constraints) error {
	return c.callExpectSuccess(ctx, "add-identity-constrained", proto.AddIdentityConstrained{
		Identity:    identity,
		Constraints: constraints,
	})
}

// RemoveIdentity asks the agent to forget the key identified by the
// wire-encoded public key blob.
func (c *Client) RemoveIdentity(ctx context.Context, publicKey []byte) error {
	return c.callExpectSuccess(ctx, "remove-identity", proto.RemoveIdentity{PublicKey: publicKey})
}

// RemoveAllIdentities asks the agent to forget every loaded key.
func (c *Client) RemoveAllIdentities(ctx context.Context) error {
	return c.callExpectSuccess(ctx, "remove-all-identities", proto.RemoveAllIdentities{})
}

// AddSmartcardKey asks the agent to make a smartcard's keys available.
func (c *Client) AddSmartcardKey(ctx context.Context, key proto.SmartcardKey) error {
	return c.callExpectSuccess(ctx, "add-smartcard-key", proto.AddSmartcardKey{Key: key})
}

// AddSmartcardKeyConstrained is AddSmartcardKey with usage constraints.
func (c *Client) AddSmartcardKeyConstrained(ctx context.Context, key proto.SmartcardKey, constraints proto.Constraints) error {
	return c.callExpectSuccess(ctx, "add-smartcard-key-constrained", proto.AddSmartcardKeyConstrained{
		Key:         key,
		Constraints: constraints,
	})
}

// RemoveSmartcardKey asks the agent to stop using a smartcard's keys.
func (c *Client) RemoveSmartcardKey(ctx context.Context, key proto.SmartcardKey) error {
	return c.callExpectSuccess(ctx, "remove-smartcard-key", proto.RemoveSmartcardKey{Key: key})
}

// Lock locks the agent with a passphrase. A locked agent refuses
// everything except Unlock.
func (c *Client) Lock(ctx context.Context, passphrase []byte) error {
	return c.callExpectSuccess(ctx, "lock", proto.Lock{Passphrase: passphrase})
}

// Unlock unlocks the agent with the passphrase given to Lock.
func (c *Client) Unlock(ctx context.Context, passphrase []byte) error {
	return c.callExpectSuccess(ctx, "unlock", proto.Unlock{Passphrase: passphrase})
}

// Extension sends a vendor-defined request. Both reply shapes the
// protocol allows are successes: a bare Success returns (nil, nil), an
// extension response returns its payload.
func (c *Client) Extension(ctx context.Context, request proto.Extension) (*proto.ExtensionResponse, error) {
	response, err := c.call(ctx, "extension", request)
	if err != nil {
		return nil, err
	}
	switch r := response.(type) {
	case proto.Success:
		return nil, nil
	case proto.ExtensionResponse:
		return &r, nil
	default:
		return nil, &UnexpectedResponseError{Operation: "extension", Response: response}
	}
}

// callExpectSuccess issues a request whose only valid reply is the
// generic Success message — the shape shared by all nine mutating
// operations.
func (c *Client) callExpectSuccess(ctx context.Context, operation string, request proto.Request) error {
	response, err := c.call(ctx, operation, request)
	if err != nil {
		return err
	}
	if _, ok := response.(proto.Success); !ok {
		return &UnexpectedResponseError{Operation: operation, Response: response}
	}
	return nil
}

// deadlineSetter is the optional stream capability used to honor ctx
// deadlines. net.Conn implements it; plain pipes do not.
type deadlineSetter interface {
	SetDeadline(time.Time) error
}

// call is the single request/response primitive every operation goes
// through: write one encoded request, read exactly one response.
// Holding the mutex across the whole exchange is what enforces the
// one-outstanding-request invariant.
func (c *Client) call(ctx context.Context, operation string, request proto.Request) (proto.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if setter, ok := c.channel.(deadlineSetter); ok {
			if err := setter.SetDeadline(deadline); err != nil {
				return nil, fmt.Errorf("%s: setting deadline: %w", operation, err)
			}
			defer setter.SetDeadline(time.Time{})
		}
	}

	frame, err := c.codec.EncodeRequest(nil, request)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding request: %w", operation, err)
	}
	if _, err := c.channel.Write(frame); err != nil {
		return nil, fmt.Errorf("%s: writing request: %w", operation, err)
	}

	return c.readResponse(operation)
}

// readResponse reads from the stream until the codec yields one
// complete response. Must be called with c.mu held.
func (c *Client) readResponse(operation string) (proto.Response, error) {
	chunk := make([]byte, readChunkSize)
	for {
		response, consumed, err := c.codec.DecodeResponse(c.buffer)
		if err != nil {
			return nil, &ProtocolError{Operation: operation, Err: err}
		}
		if consumed > 0 {
			c.buffer = c.buffer[consumed:]
			if len(c.buffer) == 0 {
				c.buffer = nil
			}
			return response, nil
		}

		n, err := c.channel.Read(chunk)
		if n > 0 {
			c.buffer = append(c.buffer, chunk[:n]...)
			continue
		}
		if errors.Is(err, io.EOF) {
			if len(c.buffer) == 0 {
				return nil, fmt.Errorf("%s: %w", operation, ErrDisconnected)
			}
			return nil, &ProtocolError{
				Operation: operation,
				Err:       fmt.Errorf("stream closed with a %d-byte partial frame", len(c.buffer)),
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s: reading response: %w", operation, err)
		}
	}
}
