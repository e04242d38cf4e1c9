/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package cookie

import "golang.org/x/crypto/blake2s"

// MACs is the MAC1/MAC2 pair carried at the tail of every handshake
// message.
type MACs struct {
	MAC1 [MACSize]byte
	MAC2 [MACSize]byte
}

// computeMAC1 is keyed-BLAKE2s(key=mac1Key, out=16, data=buf).
func computeMAC1(dst *[MACSize]byte, mac1Key *[KeySize]byte, buf []byte) {
	mac, err := blake2s.New128(mac1Key[:])
	if err != nil {
		panic(err)
	}
	mac.Write(buf)
	mac.Sum(dst[:0])
}

// computeMAC2 is keyed-BLAKE2s(key=cookie, out=16, data=buf||mac1).
// mac1 must already have been written; it is appended to the hash
// input, never omitted or reordered.
func computeMAC2(dst *[MACSize]byte, cookieKey *[CookieSize]byte, buf []byte, mac1 *[MACSize]byte) {
	mac, err := blake2s.New128(cookieKey[:])
	if err != nil {
		panic(err)
	}
	mac.Write(buf)
	mac.Write(mac1[:])
	mac.Sum(dst[:0])
}
