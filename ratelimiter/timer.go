/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 *
 * gcTimer generalizes the peer-scoped Timer wrapper found in
 * culionbear-wireguard-go's device/timers.go (itself modeled on the
 * kernel's struct timer_list) from "one per Peer" to "one per
 * Limiter": a rearmable, cancellable callout that re-enters the table
 * lock itself, since the garbage collector must take the same lock as
 * Allow.
 */

package ratelimiter

import (
	"sync"
	"time"
)

type gcTimer struct {
	timer *time.Timer

	mu      sync.Mutex
	pending bool
	stopped bool
}

func newGCTimer(l *Limiter) *gcTimer {
	t := &gcTimer{}
	t.timer = time.AfterFunc(time.Duration(elementTimeout), func() {
		t.mu.Lock()
		if t.stopped || !t.pending {
			t.mu.Unlock()
			return
		}
		t.pending = false
		t.mu.Unlock()

		l.mu.Lock()
		l.gcLocked(false)
		empty := l.tableNum == 0
		l.mu.Unlock()

		if !empty {
			t.scheduleLocked()
		}
	})
	t.timer.Stop()
	return t
}

// scheduleLocked arms the timer for elementTimeout from now if it
// isn't already pending. The name reflects that callers hold the
// Limiter's table lock when this runs from Allow; the fire callback
// above takes that lock itself rather than requiring it, since the
// timer package cannot be made to fire with a caller-held lock.
func (t *gcTimer) scheduleLocked() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.pending {
		return
	}
	t.pending = true
	t.timer.Reset(time.Duration(elementTimeout))
}

func (t *gcTimer) stop() {
	t.mu.Lock()
	t.stopped = true
	t.pending = false
	t.mu.Unlock()
	t.timer.Stop()
}
