/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

// Package clock is the monotonic-clock seam shared by cookie and
// ratelimiter, generalized from an ad hoc `timeNow func() time.Time`
// field into one named type both packages depend on, so tests can
// drive both with the same fake.
package clock

import "time"

// Clock is the monotonic sub-second clock both cookie and ratelimiter
// treat as an injectable external dependency, so tests can drive them
// deterministically instead of sleeping.
type Clock interface {
	Now() time.Time
}

// System is the default Clock, backed by time.Now.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time { return time.Now() }
