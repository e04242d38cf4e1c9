/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package ratelimiter

// SipHash-1-3 (one compression round, three finalization rounds), the
// reduced-round variant the reference cookie/rate-limiter design uses
// for its hash-table lookup key. No package in the
// retrieval pack implements this: the closest, dchest/siphash-style
// libraries, hard-code SipHash-2-4 and don't expose the round counts,
// so wiring one in would silently change the algorithm. The
// full-width, keyed structure is small and stable enough (it is the
// same handful of lines the Linux kernel and OpenBSD carry inline in
// C) that hand-rolling it here, in its own file exactly like the
// blake2s/chacha20poly1305 call sites get their own file, is a better
// fit than bending an off-the-shelf SipHash-2-4 package to a shape it
// doesn't support.

const (
	sipRounds1 = 1
	sipRounds3 = 3
)

func sipRound(v0, v1, v2, v3 *uint64) {
	*v0 += *v1
	*v1 = rotl64(*v1, 13)
	*v1 ^= *v0
	*v0 = rotl64(*v0, 32)
	*v2 += *v3
	*v3 = rotl64(*v3, 16)
	*v3 ^= *v2
	*v0 += *v3
	*v3 = rotl64(*v3, 21)
	*v3 ^= *v0
	*v2 += *v1
	*v1 = rotl64(*v1, 17)
	*v1 ^= *v2
	*v2 = rotl64(*v2, 32)
}

func rotl64(x uint64, b uint) uint64 {
	return (x << b) | (x >> (64 - b))
}

// sipHash13 computes SipHash-1-3 of data keyed by the 16-byte key
// (k0, k1), returning a 64-bit digest.
func sipHash13(k0, k1 uint64, data []byte) uint64 {
	v0 := k0 ^ 0x736f6d6570736575
	v1 := k1 ^ 0x646f72616e646f6d
	v2 := k0 ^ 0x6c7967656e657261
	v3 := k1 ^ 0x7465646279746573

	length := len(data)
	end := length - (length % 8)

	for i := 0; i < end; i += 8 {
		m := leUint64(data[i : i+8])
		v3 ^= m
		for r := 0; r < sipRounds1; r++ {
			sipRound(&v0, &v1, &v2, &v3)
		}
		v0 ^= m
	}

	var last uint64 = uint64(length) << 56
	tail := data[end:]
	for i, b := range tail {
		last |= uint64(b) << (8 * uint(i))
	}
	v3 ^= last
	for r := 0; r < sipRounds1; r++ {
		sipRound(&v0, &v1, &v2, &v3)
	}
	v0 ^= last

	v2 ^= 0xff
	for r := 0; r < sipRounds3; r++ {
		sipRound(&v0, &v1, &v2, &v3)
	}

	return v0 ^ v1 ^ v2 ^ v3
}

func leUint64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
