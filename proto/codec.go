// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// maxMessageSize is the largest frame either side may send. Matches
// OpenSSH's MAX_AGENT_REPLY_LEN; an identities answer for a large
// keyring fits comfortably.
const maxMessageSize = 256 * 1024

// Codec converts between typed protocol messages and bytes on a
// stream, from the client's point of view. Implementations frame
// messages themselves; callers treat the stream as opaque bytes.
//
// DecodeResponse is incremental: when data does not yet hold one
// complete response it returns (nil, 0, nil) and the caller supplies
// more bytes. A non-nil error means the stream is malformed and no
// further decoding is possible.
type Codec interface {
	// EncodeRequest appends the complete wire frame for request to buf
	// and returns the extended slice.
	EncodeRequest(buf []byte, request Request) ([]byte, error)

	// DecodeResponse decodes at most one response from the front of
	// data, returning the response and the number of bytes consumed.
	DecodeResponse(data []byte) (Response, int, error)
}

// WireCodec is the production agent protocol codec. The zero value is
// ready to use. It implements both directions: a client uses
// EncodeRequest/DecodeResponse, an agent (or a test fake) uses
// DecodeRequest/EncodeResponse.
type WireCodec struct{}

var _ Codec = WireCodec{}

// EncodeRequest appends the wire frame for request to buf.
func (WireCodec) EncodeRequest(buf []byte, request Request) ([]byte, error) {
	body, err := marshalRequestBody(request)
	if err != nil {
		return nil, err
	}
	if len(body) > maxMessageSize {
		return nil, fmt.Errorf("request message of %d bytes exceeds maximum %d", len(body), maxMessageSize)
	}
	return appendString(buf, body), nil
}

// DecodeResponse decodes at most one response from the front of data.
func (WireCodec) DecodeResponse(data []byte) (Response, int, error) {
	body, consumed, err := decodeFrame(data)
	if err != nil || consumed == 0 {
		return nil, 0, err
	}
	response, err := unmarshalResponseBody(body)
	if err != nil {
		return nil, 0, err
	}
	return response, consumed, nil
}

// EncodeResponse appends the wire frame for response to buf. This is
// the agent-side direction; clients never call it.
func (WireCodec) EncodeResponse(buf []byte, response Response) ([]byte, error) {
	body, err := marshalResponseBody(response)
	if err != nil {
		return nil, err
	}
	if len(body) > maxMessageSize {
		return nil, fmt.Errorf("response message of %d bytes exceeds maximum %d", len(body), maxMessageSize)
	}
	return appendString(buf, body), nil
}

// DecodeRequest decodes at most one request from the front of data.
// This is the agent-side direction; clients never call it.
func (WireCodec) DecodeRequest(data []byte) (Request, int, error) {
	body, consumed, err := decodeFrame(data)
	if err != nil || consumed == 0 {
		return nil, 0, err
	}
	request, err := unmarshalRequestBody(body)
	if err != nil {
		return nil, 0, err
	}
	return request, consumed, nil
}

// decodeFrame extracts one length-prefixed frame from the front of
// data. Returns (nil, 0, nil) when data is incomplete. The returned
// body is a copy, so callers may trim or reuse data afterwards.
func decodeFrame(data []byte) ([]byte, int, error) {
	if len(data) < 4 {
		return nil, 0, nil
	}
	length, _, _ := readUint32(data)
	if length == 0 {
		return nil, 0, fmt.Errorf("zero-length frame")
	}
	if length > maxMessageSize {
		return nil, 0, fmt.Errorf("frame length %d exceeds maximum %d", length, maxMessageSize)
	}
	total := 4 + int(length)
	if len(data) < total {
		return nil, 0, nil
	}
	return bytes.Clone(data[4:total]), total, nil
}

// --- Request bodies ---

func marshalRequestBody(request Request) ([]byte, error) {
	switch r := request.(type) {
	case RequestIdentities:
		return []byte{msgNumRequestIdentities}, nil
	case SignRequest:
		body := []byte{msgNumSignRequest}
		return append(body, ssh.Marshal(signRequestWire{
			PublicKey: r.PublicKey,
			Data:      r.Data,
			Flags:     uint32(r.Flags),
		})...), nil
	case AddIdentity:
		return marshalAddIdentity(msgNumAddIdentity, r, Constraints{}), nil
	case AddIdentityConstrained:
		return marshalAddIdentity(msgNumAddIDConstrained, r.Identity, r.Constraints), nil
	case RemoveIdentity:
		body := []byte{msgNumRemoveIdentity}
		return appendString(body, r.PublicKey), nil
	case RemoveAllIdentities:
		return []byte{msgNumRemoveAllIdentities}, nil
	case AddSmartcardKey:
		return marshalSmartcardKey(msgNumAddSmartcardKey, r.Key, Constraints{}), nil
	case AddSmartcardKeyConstrained:
		return marshalSmartcardKey(msgNumAddSmartcardKeyConstrained, r.Key, r.Constraints), nil
	case RemoveSmartcardKey:
		return marshalSmartcardKey(msgNumRemoveSmartcardKey, r.Key, Constraints{}), nil
	case Lock:
		body := []byte{msgNumLock}
		return appendString(body, r.Passphrase), nil
	case Unlock:
		body := []byte{msgNumUnlock}
		return appendString(body, r.Passphrase), nil
	case Extension:
		body := []byte{msgNumExtension}
		body = appendString(body, []byte(r.Name))
		return append(body, r.Payload...), nil
	default:
		return nil, fmt.Errorf("unknown request type %T", request)
	}
}

// signRequestWire is the SSH-wire shape of a sign request body.
type signRequestWire struct {
	PublicKey []byte
	Data      []byte
	Flags     uint32
}

// signatureWire is the SSH-wire shape of the signature blob inside a
// sign response.
type signatureWire struct {
	Format string
	Blob   []byte
}

func marshalAddIdentity(code byte, identity AddIdentity, constraints Constraints) []byte {
	body := []byte{code}
	body = append(body, identity.KeyData...)
	body = appendString(body, []byte(identity.Comment))
	return appendConstraints(body, constraints)
}

func marshalSmartcardKey(code byte, key SmartcardKey, constraints Constraints) []byte {
	body := []byte{code}
	body = appendString(body, []byte(key.ID))
	body = appendString(body, []byte(key.PIN))
	return appendConstraints(body, constraints)
}

func unmarshalRequestBody(body []byte) (Request, error) {
	code, payload := body[0], body[1:]
	switch code {
	case msgNumRequestIdentities:
		if err := expectEmpty("request-identities", payload); err != nil {
			return nil, err
		}
		return RequestIdentities{}, nil

	case msgNumSignRequest:
		var wire signRequestWire
		if err := ssh.Unmarshal(payload, &wire); err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
		return SignRequest{
			PublicKey: wire.PublicKey,
			Data:      wire.Data,
			Flags:     SignatureFlags(wire.Flags),
		}, nil

	case msgNumAddIdentity:
		identity, rest, err := splitAddIdentity(payload)
		if err != nil {
			return nil, err
		}
		if err := expectEmpty("add identity", rest); err != nil {
			return nil, err
		}
		return identity, nil

	case msgNumAddIDConstrained:
		identity, rest, err := splitAddIdentity(payload)
		if err != nil {
			return nil, err
		}
		constraints, err := decodeConstraints(rest)
		if err != nil {
			return nil, fmt.Errorf("add identity: %w", err)
		}
		return AddIdentityConstrained{Identity: identity, Constraints: constraints}, nil

	case msgNumRemoveIdentity:
		blob, rest, err := readString(payload)
		if err != nil {
			return nil, fmt.Errorf("remove identity: %w", err)
		}
		if err := expectEmpty("remove identity", rest); err != nil {
			return nil, err
		}
		return RemoveIdentity{PublicKey: blob}, nil

	case msgNumRemoveAllIdentities:
		if err := expectEmpty("remove-all-identities", payload); err != nil {
			return nil, err
		}
		return RemoveAllIdentities{}, nil

	case msgNumAddSmartcardKey:
		key, rest, err := splitSmartcardKey(payload)
		if err != nil {
			return nil, err
		}
		if err := expectEmpty("add smartcard key", rest); err != nil {
			return nil, err
		}
		return AddSmartcardKey{Key: key}, nil

	case msgNumAddSmartcardKeyConstrained:
		key, rest, err := splitSmartcardKey(payload)
		if err != nil {
			return nil, err
		}
		constraints, err := decodeConstraints(rest)
		if err != nil {
			return nil, fmt.Errorf("add smartcard key: %w", err)
		}
		return AddSmartcardKeyConstrained{Key: key, Constraints: constraints}, nil

	case msgNumRemoveSmartcardKey:
		key, rest, err := splitSmartcardKey(payload)
		if err != nil {
			return nil, err
		}
		if err := expectEmpty("remove smartcard key", rest); err != nil {
			return nil, err
		}
		return RemoveSmartcardKey{Key: key}, nil

	case msgNumLock:
		passphrase, rest, err := readString(payload)
		if err != nil {
			return nil, fmt.Errorf("lock: %w", err)
		}
		if err := expectEmpty("lock", rest); err != nil {
			return nil, err
		}
		return Lock{Passphrase: passphrase}, nil

	case msgNumUnlock:
		passphrase, rest, err := readString(payload)
		if err != nil {
			return nil, fmt.Errorf("unlock: %w", err)
		}
		if err := expectEmpty("unlock", rest); err != nil {
			return nil, err
		}
		return Unlock{Passphrase: passphrase}, nil

	case msgNumExtension:
		name, rest, err := readString(payload)
		if err != nil {
			return nil, fmt.Errorf("extension: %w", err)
		}
		return Extension{Name: string(name), Payload: rest}, nil

	default:
		return nil, fmt.Errorf("unknown request message number %d", code)
	}
}

// splitAddIdentity separates the algorithm-specific key data and the
// comment from an add-identity body, returning any trailing bytes
// (constraints, for the constrained variant).
func splitAddIdentity(payload []byte) (AddIdentity, []byte, error) {
	keyData, rest, err := splitPrivateKey(payload)
	if err != nil {
		return AddIdentity{}, nil, fmt.Errorf("add identity: %w", err)
	}
	comment, rest, err := readString(rest)
	if err != nil {
		return AddIdentity{}, nil, fmt.Errorf("add identity comment: %w", err)
	}
	return AddIdentity{KeyData: keyData, Comment: string(comment)}, rest, nil
}

func splitSmartcardKey(payload []byte) (SmartcardKey, []byte, error) {
	id, rest, err := readString(payload)
	if err != nil {
		return SmartcardKey{}, nil, fmt.Errorf("smartcard key id: %w", err)
	}
	pin, rest, err := readString(rest)
	if err != nil {
		return SmartcardKey{}, nil, fmt.Errorf("smartcard key pin: %w", err)
	}
	return SmartcardKey{ID: string(id), PIN: string(pin)}, rest, nil
}

// --- Response bodies ---

func marshalResponseBody(response Response) ([]byte, error) {
	switch r := response.(type) {
	case Failure:
		return []byte{msgNumFailure}, nil
	case Success:
		return []byte{msgNumSuccess}, nil
	case IdentitiesAnswer:
		body := []byte{msgNumIdentitiesAnswer}
		body = appendUint32(body, uint32(len(r.Identities)))
		for _, identity := range r.Identities {
			body = appendString(body, identity.PublicKey)
			body = appendString(body, []byte(identity.Comment))
		}
		return body, nil
	case SignResponse:
		body := []byte{msgNumSignResponse}
		return appendString(body, ssh.Marshal(signatureWire{
			Format: r.Signature.Format,
			Blob:   r.Signature.Blob,
		})), nil
	case ExtensionFailure:
		return []byte{msgNumExtensionFailure}, nil
	case ExtensionResponse:
		return append([]byte{msgNumExtensionResponse}, r.Payload...), nil
	default:
		return nil, fmt.Errorf("unknown response type %T", response)
	}
}

func unmarshalResponseBody(body []byte) (Response, error) {
	code, payload := body[0], body[1:]
	switch code {
	case msgNumFailure:
		if err := expectEmpty("failure", payload); err != nil {
			return nil, err
		}
		return Failure{}, nil

	case msgNumSuccess:
		if err := expectEmpty("success", payload); err != nil {
			return nil, err
		}
		return Success{}, nil

	case msgNumIdentitiesAnswer:
		return unmarshalIdentitiesAnswer(payload)

	case msgNumSignResponse:
		blob, rest, err := readString(payload)
		if err != nil {
			return nil, fmt.Errorf("sign response: %w", err)
		}
		if err := expectEmpty("sign response", rest); err != nil {
			return nil, err
		}
		var wire signatureWire
		if err := ssh.Unmarshal(blob, &wire); err != nil {
			return nil, fmt.Errorf("sign response signature: %w", err)
		}
		return SignResponse{Signature: Signature{Format: wire.Format, Blob: wire.Blob}}, nil

	case msgNumExtensionFailure:
		if err := expectEmpty("extension failure", payload); err != nil {
			return nil, err
		}
		return ExtensionFailure{}, nil

	case msgNumExtensionResponse:
		return ExtensionResponse{Payload: payload}, nil

	default:
		return nil, fmt.Errorf("unknown response message number %d", code)
	}
}

func unmarshalIdentitiesAnswer(payload []byte) (Response, error) {
	count, rest, err := readUint32(payload)
	if err != nil {
		return nil, fmt.Errorf("identities answer: %w", err)
	}
	// Each entry needs at least two length prefixes; a count larger
	// than that is a lie about the payload.
	if uint64(count) > uint64(len(rest))/8 {
		return nil, fmt.Errorf("identities answer: count %d exceeds payload", count)
	}
	identities := make([]Identity, 0, count)
	for range count {
		var blob, comment []byte
		blob, rest, err = readString(rest)
		if err != nil {
			return nil, fmt.Errorf("identities answer key blob: %w", err)
		}
		comment, rest, err = readString(rest)
		if err != nil {
			return nil, fmt.Errorf("identities answer comment: %w", err)
		}
		identities = append(identities, Identity{PublicKey: blob, Comment: string(comment)})
	}
	if err := expectEmpty("identities answer", rest); err != nil {
		return nil, err
	}
	return IdentitiesAnswer{Identities: identities}, nil
}

// --- Constraints ---

func appendConstraints(buf []byte, constraints Constraints) []byte {
	if constraints.LifetimeSecs != 0 {
		buf = append(buf, constrainLifetime)
		buf = appendUint32(buf, constraints.LifetimeSecs)
	}
	if constraints.ConfirmBeforeUse {
		buf = append(buf, constrainConfirm)
	}
	for _, extension := range constraints.Extensions {
		buf = append(buf, constrainExtension)
		buf = appendString(buf, []byte(extension.Name))
		buf = append(buf, extension.Details...)
	}
	return buf
}

func decodeConstraints(data []byte) (Constraints, error) {
	var constraints Constraints
	for len(data) > 0 {
		constraintType := data[0]
		data = data[1:]
		switch constraintType {
		case constrainLifetime:
			var err error
			constraints.LifetimeSecs, data, err = readUint32(data)
			if err != nil {
				return Constraints{}, fmt.Errorf("lifetime constraint: %w", err)
			}
		case constrainConfirm:
			constraints.ConfirmBeforeUse = true
		case constrainExtension:
			name, rest, err := readString(data)
			if err != nil {
				return Constraints{}, fmt.Errorf("constraint extension name: %w", err)
			}
			// Details have no length prefix; they are the raw tail, so
			// an extension constraint is necessarily the last one.
			constraints.Extensions = append(constraints.Extensions, ConstraintExtension{
				Name:    string(name),
				Details: rest,
			})
			data = nil
		default:
			return Constraints{}, fmt.Errorf("unknown constraint type %d", constraintType)
		}
	}
	return constraints, nil
}

func expectEmpty(message string, rest []byte) error {
	if len(rest) != 0 {
		return fmt.Errorf("%s: %d trailing bytes after message", message, len(rest))
	}
	return nil
}
