// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// Low-level SSH wire primitives (RFC 4251 §5). ssh.Marshal handles
// struct-shaped bodies; these helpers cover the places the agent
// protocol is not struct-shaped: counted lists, raw trailing payloads,
// and mpints in private key blobs.

// appendUint32 appends a big-endian uint32.
func appendUint32(buf []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(buf, v)
}

// appendString appends a uint32-length-prefixed byte string.
func appendString(buf, s []byte) []byte {
	buf = appendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// appendBigInt appends an mpint: the minimal two's-complement big-endian
// encoding, with a leading zero byte when the high bit of a positive
// value is set. Zero encodes as the empty string.
func appendBigInt(buf []byte, v *big.Int) []byte {
	if v.Sign() == 0 {
		return appendUint32(buf, 0)
	}
	bytes := v.Bytes()
	if bytes[0]&0x80 != 0 {
		buf = appendUint32(buf, uint32(len(bytes)+1))
		buf = append(buf, 0)
		return append(buf, bytes...)
	}
	return appendString(buf, bytes)
}

// readUint32 consumes a big-endian uint32.
func readUint32(data []byte) (uint32, []byte, error) {
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("truncated uint32: %d bytes remain", len(data))
	}
	return binary.BigEndian.Uint32(data[:4]), data[4:], nil
}

// readString consumes a uint32-length-prefixed byte string. The
// returned slice aliases data.
func readString(data []byte) ([]byte, []byte, error) {
	length, rest, err := readUint32(data)
	if err != nil {
		return nil, nil, err
	}
	if uint64(length) > uint64(len(rest)) {
		return nil, nil, fmt.Errorf("string length %d exceeds %d remaining bytes", length, len(rest))
	}
	return rest[:length], rest[length:], nil
}
