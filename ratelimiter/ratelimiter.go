/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

// Package ratelimiter implements the token-bucket, per-source-prefix
// admission controller a cookie.Checker consults under load. One
// Limiter handles a single address family; a responder keeps one for
// IPv4 and one for IPv6.
package ratelimiter

import (
	"crypto/rand"
	"net/netip"
	"sync"
	"time"

	"golang.zx2c4.com/wireguard-cookiewall/internal/clock"
)

// Tunables for the admission controller. Tokens are counted in
// nanoseconds so that accrual is pure elapsed wall-clock time.
const (
	InitiationsPerSecond = 20
	InitiationsBurstable = 5

	initiationCost = int64(time.Second) / InitiationsPerSecond
	tokenMax       = initiationCost * InitiationsBurstable

	elementTimeout = int64(time.Second)

	// tableSize is the bucket count; must be a power of two so the
	// bucket index can be a mask instead of a modulo.
	tableSize    = 8192
	tableSizeMax = 65536

	// entryPoolCapacity bounds the pool allocator: allocation is
	// non-blocking, and failure is observable as a refusal. It matches
	// tableSizeMax since every live entry holds exactly one pool slot.
	entryPoolCapacity = tableSizeMax
)

// Limiter is a sharded hash table of token-bucket entries for one
// address family, guarded by a single lock.
type Limiter struct {
	clock  clock.Clock
	family familyKind

	// k0/k1 are the two halves of the SipHash-1-3 key used for the
	// table's lookup hash, randomized once at construction.
	k0, k1 uint64

	mu       sync.Mutex
	table    [tableSize]*entry
	tableNum uint32
	pool     *entryPool
	timer    *gcTimer
}

// newLimiter allocates a Limiter for the given address family and
// creates its garbage-collection callout, disarmed until the first
// entry is inserted. NewV4/NewV6 are the constructors callers
// actually use.
//
// The SipHash-1-3 key is 16 bytes (two uint64 halves), distinct from
// the 32-byte BLAKE2s cookie secret used elsewhere in this module:
// SipHash's native keying material is 128 bits.
func newLimiter(family familyKind, c clock.Clock) *Limiter {
	if c == nil {
		c = clock.System{}
	}
	l := &Limiter{
		clock:  c,
		family: family,
		pool:   newEntryPool(entryPoolCapacity),
	}
	var key [16]byte
	if _, err := rand.Read(key[:]); err != nil {
		panic(err)
	}
	l.k0 = leUint64(key[0:8])
	l.k1 = leUint64(key[8:16])
	l.timer = newGCTimer(l)
	return l
}

// NewV4 allocates a Limiter for IPv4 sources.
func NewV4(c clock.Clock) *Limiter { return newLimiter(familyV4, c) }

// NewV6 allocates a Limiter for IPv6 sources.
func NewV6(c clock.Clock) *Limiter { return newLimiter(familyV6, c) }

// Close stops the GC callout, forces a final collection, and releases
// the table, all under the write lock.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.timer.stop()
	l.gcLocked(true)
	l.table = [tableSize]*entry{}
}

// EntryCount reports the number of live entries, for metrics and
// introspection.
func (l *Limiter) EntryCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(l.tableNum)
}

func (l *Limiter) prefixOf(addr netip.Addr) (prefix [8]byte, prefixLen int, ok bool) {
	addr = addr.Unmap()
	switch {
	case l.family == familyV4 && addr.Is4():
		a := addr.As4()
		copy(prefix[:], a[:])
		return prefix, 4, true
	case l.family == familyV6 && addr.Is6():
		a := addr.As16()
		copy(prefix[:], a[:8])
		return prefix, 8, true
	default:
		return prefix, 0, false
	}
}

func (l *Limiter) bucketKey(prefix [8]byte, prefixLen int) uint32 {
	h := sipHash13(l.k0, l.k1, prefix[:prefixLen])
	return uint32(h) & (tableSize - 1)
}

// CheckAllow admits or refuses addr. It returns nil when the source is admitted, ErrUnsupportedFamily when
// addr does not belong to this Limiter's family, or ErrRefused when
// the source is rate-limited or a resource is exhausted.
func (l *Limiter) CheckAllow(addr netip.Addr) error {
	prefix, prefixLen, ok := l.prefixOf(addr)
	if !ok {
		return ErrUnsupportedFamily
	}

	bucket := l.bucketKey(prefix, prefixLen)
	now := l.clock.Now().UnixNano()

	l.mu.Lock()
	defer l.mu.Unlock()

	for e := l.table[bucket]; e != nil; e = e.next {
		if !e.matches(l.family, prefix, prefixLen) {
			continue
		}
		delta := now - e.lastTime
		e.lastTime = now
		e.tokens += delta
		if e.tokens > tokenMax {
			e.tokens = tokenMax
		}
		if e.tokens >= initiationCost {
			e.tokens -= initiationCost
			return nil
		}
		return ErrRefused
	}

	if l.tableNum >= tableSizeMax {
		return ErrRefused
	}
	e, ok := l.pool.tryGet()
	if !ok {
		return ErrRefused
	}
	e.family = l.family
	e.prefix = prefix
	e.prefixLen = prefixLen
	e.lastTime = now
	e.tokens = tokenMax - initiationCost

	e.next = l.table[bucket]
	l.table[bucket] = e
	l.tableNum++
	l.timer.scheduleLocked()
	return nil
}

// Allow is CheckAllow reduced to a bool, satisfying cookie.Limiter.
func (l *Limiter) Allow(addr netip.Addr) bool {
	return l.CheckAllow(addr) == nil
}

// gcLocked evicts entries idle for longer than elementTimeout, or all
// entries when force is true. Must be called with mu held.
func (l *Limiter) gcLocked(force bool) {
	now := l.clock.Now().UnixNano()
	for bucket := range l.table {
		prev := &l.table[bucket]
		for e := *prev; e != nil; {
			next := e.next
			if force || now-e.lastTime > elementTimeout {
				*prev = next
				l.tableNum--
				l.pool.put(e)
			} else {
				prev = &e.next
			}
			e = next
		}
	}
}
