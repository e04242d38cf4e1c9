/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package cookie

import "errors"

// Sentinel errors returned by Checker and Maker, one per outcome; no
// error wraps another.
var (
	// ErrInvalidMAC is returned when MAC1 fails to verify, or when a
	// cookie-reply's AEAD tag fails to verify. The caller drops the
	// packet silently.
	ErrInvalidMAC = errors.New("cookie: mac mismatch")

	// ErrStaleCookieReply is returned by ConsumePayload when the maker
	// has no outstanding MAC1 to bind the reply to.
	ErrStaleCookieReply = errors.New("cookie: no mac1 pending")

	// ErrCookieRequired is returned by ValidateMACs when MAC2 fails
	// under load: the caller must reply with an encrypted cookie.
	ErrCookieRequired = errors.New("cookie: cookie required")

	// ErrRefused is returned when the rate limiter refuses a source
	// under load.
	ErrRefused = errors.New("cookie: refused")

	// ErrUnsupportedFamily is returned by ValidateMACs when a source
	// address is neither IPv4 nor IPv6 and its MAC2 has verified. In
	// practice such sources get ErrCookieRequired instead: makeCookie
	// fills their cookie with random bytes, so their MAC2 does not
	// verify.
	ErrUnsupportedFamily = errors.New("cookie: unsupported address family")
)
