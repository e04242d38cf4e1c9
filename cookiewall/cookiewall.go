/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

// Package cookiewall wires cookie.Checker and the two per-family
// ratelimiter.Limiter instances into a single context object, in place
// of what would otherwise be a pair of process-wide singletons. It
// corresponds to a global init/deinit pair.
package cookiewall

import (
	"golang.zx2c4.com/wireguard-cookiewall/cookie"
	"golang.zx2c4.com/wireguard-cookiewall/internal/clock"
	"golang.zx2c4.com/wireguard-cookiewall/ratelimiter"
)

// Guard is a responder's full cookie defense: MAC1/MAC2 validation
// plus rate limiting, for one local static identity.
type Guard struct {
	Checker *cookie.Checker
	v4      *ratelimiter.Limiter
	v6      *ratelimiter.Limiter
	log     Logger
}

// New allocates the entry pool (inside each Limiter) and the v4/v6
// limiters, and derives the checker's keys from the local static
// identity input. Pass a nil Logger to run silently.
func New(input [cookie.InputSize]byte, log Logger) *Guard {
	if log == nil {
		log = nopLogger{}
	}
	c := clock.System{}
	g := &Guard{
		Checker: cookie.NewChecker(input, c),
		v4:      ratelimiter.NewV4(c),
		v6:      ratelimiter.NewV6(c),
		log:     log,
	}
	g.Checker.SetLimiters(g.v4, g.v6)
	log.Verbosef("cookiewall: initialized")
	return g
}

// Deinit tears down both limiters, stopping their GC callouts and
// releasing their tables and pools.
func (g *Guard) Deinit() {
	g.v4.Close()
	g.v6.Close()
	g.log.Verbosef("cookiewall: deinitialized")
}

// NewMaker builds the initiator-side counterpart for a remote peer's
// static identity input. It does not belong to a
// Guard: makers are peer-scoped state held by the initiator, unrelated
// to the local responder's checker/limiters.
func NewMaker(peerInput [cookie.InputSize]byte) *cookie.Maker {
	return cookie.NewMaker(peerInput, clock.System{})
}

// EntryCounts reports the live rate-limiter entry count for each
// family, for metrics and introspection.
func (g *Guard) EntryCounts() (v4, v6 int) {
	return g.v4.EntryCount(), g.v6.EntryCount()
}
