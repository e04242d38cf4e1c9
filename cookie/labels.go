/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

// Package cookie implements the MAC1/MAC2 handshake tags and the
// encrypted-cookie challenge/response pair that let a responder defend
// itself against computational denial of service without keeping any
// per-source state until it chooses to.
package cookie

import (
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/chacha20poly1305"
)

// Label inputs to the key derivation in labelKey. Both are exactly
// eight ASCII bytes, as required by the wire format.
const (
	labelMAC1   = "mac1----"
	labelCookie = "cookie--"
)

// Fixed sizes, all in bytes.
const (
	MACSize        = blake2s.Size128 // 16
	KeySize        = blake2s.Size    // 32
	CookieSize     = blake2s.Size128 // 16
	NonceSize      = chacha20poly1305.NonceSizeX // 24
	SecretSize     = blake2s.Size    // 32
	InputSize      = blake2s.Size    // 32
	EncryptedSize  = CookieSize + poly1305TagSize // 32
)

// poly1305TagSize is the Poly1305 authentication tag length appended
// by the AEAD; it equals chacha20poly1305.Overhead.
const poly1305TagSize = 16

// labelKey derives K = BLAKE2s-256(label || input), the single
// construction used for both mac1_key and cookie_key.
func labelKey(dst *[KeySize]byte, label string, input []byte) {
	hash, err := blake2s.New256(nil)
	if err != nil {
		panic(err)
	}
	hash.Write([]byte(label))
	hash.Write(input)
	hash.Sum(dst[:0])
}
