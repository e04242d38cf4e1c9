/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package ratelimiter

import "errors"

var (
	// ErrRefused is returned by CheckAllow when the source has
	// exhausted its tokens, the table is full, or the entry pool is
	// exhausted.
	ErrRefused = errors.New("ratelimiter: refused")

	// ErrUnsupportedFamily is returned by CheckAllow for an address
	// that does not belong to the Limiter's own family (for example an
	// IPv6 address on an IPv4 Limiter).
	ErrUnsupportedFamily = errors.New("ratelimiter: unsupported address family")
)
