/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package ratelimiter

import "sync"

// entryPool is a bounded allocator for rate-limit entries, adapted
// from device/pools.go's WaitPool: a sync.Pool with a hard cap on
// outstanding allocations. WaitPool blocks callers with
// cond.Wait until a slot frees; allocation failure here must be
// observable as "refused" rather than a stall, so tryGet reports
// exhaustion instead of blocking.
type entryPool struct {
	pool sync.Pool

	mu    sync.Mutex
	count uint32
	max   uint32
}

func newEntryPool(max uint32) *entryPool {
	return &entryPool{
		pool: sync.Pool{New: func() any { return new(entry) }},
		max:  max,
	}
}

// tryGet returns a zeroed entry, or ok=false if the pool is at
// capacity.
func (p *entryPool) tryGet() (e *entry, ok bool) {
	p.mu.Lock()
	if p.count >= p.max {
		p.mu.Unlock()
		return nil, false
	}
	p.count++
	p.mu.Unlock()

	e = p.pool.Get().(*entry)
	*e = entry{}
	return e, true
}

// put returns an entry to the pool.
func (p *entryPool) put(e *entry) {
	p.pool.Put(e)
	p.mu.Lock()
	p.count--
	p.mu.Unlock()
}
