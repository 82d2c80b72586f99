// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
	"math/big"
	"strings"
)

// PrivateKeyBlob encodes a private key as the algorithm-specific
// KeyData for an [AddIdentity] request (draft-miller-ssh-agent §3.2).
// Supported key types: ed25519.PrivateKey, *rsa.PrivateKey, and
// *ecdsa.PrivateKey on the NIST curves.
func PrivateKeyBlob(key crypto.PrivateKey) ([]byte, error) {
	switch k := key.(type) {
	case ed25519.PrivateKey:
		publicKey := k.Public().(ed25519.PublicKey)
		blob := appendString(nil, []byte("ssh-ed25519"))
		blob = appendString(blob, publicKey)
		// The agent format carries the full 64-byte private key
		// (seed followed by public half).
		return appendString(blob, k), nil

	case *rsa.PrivateKey:
		if len(k.Primes) != 2 {
			return nil, fmt.Errorf("rsa key with %d primes not supported by the agent format", len(k.Primes))
		}
		k.Precompute()
		blob := appendString(nil, []byte("ssh-rsa"))
		blob = appendBigInt(blob, k.N)
		blob = appendBigInt(blob, big.NewInt(int64(k.E)))
		blob = appendBigInt(blob, k.D)
		blob = appendBigInt(blob, k.Precomputed.Qinv)
		blob = appendBigInt(blob, k.Primes[0])
		return appendBigInt(blob, k.Primes[1]), nil

	case *ecdsa.PrivateKey:
		curveName, err := ecdsaCurveName(k.Curve)
		if err != nil {
			return nil, err
		}
		keyType := "ecdsa-sha2-" + curveName
		blob := appendString(nil, []byte(keyType))
		blob = appendString(blob, []byte(curveName))
		blob = appendString(blob, elliptic.Marshal(k.Curve, k.X, k.Y))
		return appendBigInt(blob, k.D), nil

	default:
		return nil, fmt.Errorf("unsupported private key type %T", key)
	}
}

// privateKeyFieldCount returns the number of wire fields following the
// key type string in an agent private key encoding. The agent protocol
// gives key data no overall length, so decoding an add-identity request
// requires knowing each algorithm's shape.
func privateKeyFieldCount(keyType string) (int, bool) {
	switch {
	case keyType == "ssh-ed25519":
		return 2, true // public key, private key
	case keyType == "ssh-rsa":
		return 6, true // n, e, d, iqmp, p, q
	case strings.HasPrefix(keyType, "ecdsa-sha2-"):
		return 3, true // curve name, public point, d
	}
	return 0, false
}

// splitPrivateKey consumes one algorithm-specific private key encoding
// from the front of payload, returning the key data and the remainder.
func splitPrivateKey(payload []byte) ([]byte, []byte, error) {
	keyTypeBytes, rest, err := readString(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("key type: %w", err)
	}
	keyType := string(keyTypeBytes)
	fieldCount, ok := privateKeyFieldCount(keyType)
	if !ok {
		return nil, nil, fmt.Errorf("unsupported key type %q", keyType)
	}
	for field := range fieldCount {
		if _, rest, err = readString(rest); err != nil {
			return nil, nil, fmt.Errorf("%s key field %d: %w", keyType, field, err)
		}
	}
	return payload[:len(payload)-len(rest)], rest, nil
}

func ecdsaCurveName(curve elliptic.Curve) (string, error) {
	switch curve {
	case elliptic.P256():
		return "nistp256", nil
	case elliptic.P384():
		return "nistp384", nil
	case elliptic.P521():
		return "nistp521", nil
	}
	return "", fmt.Errorf("unsupported ECDSA curve %q", curve.Params().Name)
}
