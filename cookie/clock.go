/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package cookie

import (
	"time"

	"golang.zx2c4.com/wireguard-cookiewall/internal/clock"
)

// SecretMaxAge is how long a checker's cookie secret may be used
// before it must be rotated.
const SecretMaxAge = 120 * time.Second

// SecretLatency is subtracted from SecretMaxAge to get the age at
// which a maker stops trusting its cached cookie: the maker
// must stop trusting a cookie 5s before the checker would rotate the
// secret backing it, so an in-flight packet never straddles a
// rotation.
const SecretLatency = 5 * time.Second

// Clock is re-exported so callers of this package don't need to
// import internal/clock directly.
type Clock = clock.Clock

// SystemClock is the default Clock, backed by time.Now.
type SystemClock = clock.System
