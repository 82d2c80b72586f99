// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"
)

// readStringOrFail is readString with test plumbing.
func readStringOrFail(t *testing.T, data []byte, what string) ([]byte, []byte) {
	t.Helper()
	value, rest, err := readString(data)
	if err != nil {
		t.Fatalf("reading %s: %v", what, err)
	}
	return value, rest
}

func TestPrivateKeyBlobEd25519(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, ed25519.SeedSize)
	key := ed25519.NewKeyFromSeed(seed)

	blob, err := PrivateKeyBlob(key)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}

	keyType, rest := readStringOrFail(t, blob, "key type")
	if string(keyType) != "ssh-ed25519" {
		t.Errorf("key type %q, want ssh-ed25519", keyType)
	}
	publicKey, rest := readStringOrFail(t, rest, "public key")
	if !bytes.Equal(publicKey, key.Public().(ed25519.PublicKey)) {
		t.Errorf("public key field does not match the key's public half")
	}
	privateKey, rest := readStringOrFail(t, rest, "private key")
	if !bytes.Equal(privateKey, key) {
		t.Errorf("private key field does not carry the full 64-byte key")
	}
	if len(rest) != 0 {
		t.Errorf("%d trailing bytes after the key fields", len(rest))
	}
}

func TestPrivateKeyBlobRSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	blob, err := PrivateKeyBlob(key)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}

	keyType, rest := readStringOrFail(t, blob, "key type")
	if string(keyType) != "ssh-rsa" {
		t.Errorf("key type %q, want ssh-rsa", keyType)
	}
	n, rest := readStringOrFail(t, rest, "modulus")
	if new(big.Int).SetBytes(n).Cmp(key.N) != 0 {
		t.Errorf("modulus field does not match the key")
	}
	e, _ := readStringOrFail(t, rest, "exponent")
	if new(big.Int).SetBytes(e).Int64() != int64(key.E) {
		t.Errorf("exponent field %v, want %d", e, key.E)
	}

	// The full blob is one well-formed key encoding and nothing else.
	keyData, trailing, err := splitPrivateKey(blob)
	if err != nil {
		t.Fatalf("splitting: %v", err)
	}
	if !bytes.Equal(keyData, blob) || len(trailing) != 0 {
		t.Errorf("split consumed %d of %d bytes", len(keyData), len(blob))
	}
}

func TestPrivateKeyBlobECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	blob, err := PrivateKeyBlob(key)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}

	keyType, rest := readStringOrFail(t, blob, "key type")
	if string(keyType) != "ecdsa-sha2-nistp256" {
		t.Errorf("key type %q, want ecdsa-sha2-nistp256", keyType)
	}
	curve, _ := readStringOrFail(t, rest, "curve name")
	if string(curve) != "nistp256" {
		t.Errorf("curve name %q, want nistp256", curve)
	}

	keyData, trailing, err := splitPrivateKey(blob)
	if err != nil {
		t.Fatalf("splitting: %v", err)
	}
	if !bytes.Equal(keyData, blob) || len(trailing) != 0 {
		t.Errorf("split consumed %d of %d bytes", len(keyData), len(blob))
	}
}

func TestPrivateKeyBlobUnsupportedType(t *testing.T) {
	if _, err := PrivateKeyBlob("not a key"); err == nil {
		t.Fatal("unsupported key type encoded without error")
	}
}

func TestSplitPrivateKeyTrailingData(t *testing.T) {
	seed := bytes.Repeat([]byte{9}, ed25519.SeedSize)
	blob, err := PrivateKeyBlob(ed25519.NewKeyFromSeed(seed))
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}
	payload := appendString(append([]byte(nil), blob...), []byte("comment"))

	keyData, rest, err := splitPrivateKey(payload)
	if err != nil {
		t.Fatalf("splitting: %v", err)
	}
	if !bytes.Equal(keyData, blob) {
		t.Errorf("split returned %d bytes of key data, want %d", len(keyData), len(blob))
	}
	comment, rest, err := readString(rest)
	if err != nil {
		t.Fatalf("reading comment after key data: %v", err)
	}
	if string(comment) != "comment" || len(rest) != 0 {
		t.Errorf("comment %q with %d trailing bytes", comment, len(rest))
	}
}

func TestSplitPrivateKeyUnsupportedType(t *testing.T) {
	payload := appendString(nil, []byte("ssh-dss"))
	if _, _, err := splitPrivateKey(payload); err == nil {
		t.Fatal("unsupported key type split without error")
	}
}

func TestAppendBigInt(t *testing.T) {
	cases := []struct {
		name  string
		value int64
		want  []byte
	}{
		{"zero", 0, []byte{0, 0, 0, 0}},
		{"small", 127, []byte{0, 0, 0, 1, 127}},
		{"high bit needs padding", 128, []byte{0, 0, 0, 2, 0, 128}},
		{"rsa exponent", 65537, []byte{0, 0, 0, 3, 1, 0, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := appendBigInt(nil, big.NewInt(tc.value))
			if !bytes.Equal(got, tc.want) {
				t.Errorf("encoded % x, want % x", got, tc.want)
			}
		})
	}
}
