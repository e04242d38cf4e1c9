/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package cookie

import (
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// Maker is per-peer state held by an initiator: it computes outgoing
// MAC1/MAC2 and consumes encrypted cookie replies. The zero value is
// not usable; call NewMaker.
type Maker struct {
	clock Clock

	mac1Key   [KeySize]byte
	cookieKey [KeySize]byte

	// mu guards the cached cookie, mirroring the reference C
	// implementation's single reader/writer lock: Mac reads it
	// under RLock, ConsumePayload replaces it under Lock.
	mu             sync.RWMutex
	cookie         [CookieSize]byte
	cookieSet      bool
	cookieBirthday timeStamp

	// lastMu guards mac1Valid/mac1Last separately from mu. The
	// reference C implementation updates these two fields while only
	// holding cp_lock for reading (cookie_maker_mac), which is a benign
	// race in C but not one the Go memory model allows for concurrent
	// readers/writers of the same bytes; a dedicated mutex keeps Mac's
	// hot path lock-free with respect to cookie state while still
	// making the mac1Last handoff to ConsumePayload race-free. Two Mac
	// calls racing one ConsumePayload still leave only one MAC1
	// surviving: whichever Mac call takes lastMu second simply
	// overwrites the other's mac1Last.
	lastMu    sync.Mutex
	mac1Valid bool
	mac1Last  [MACSize]byte
}

// NewMaker derives mac1Key/cookieKey from the peer's static identity
// input.
func NewMaker(input [InputSize]byte, clock Clock) *Maker {
	m := &Maker{clock: clock}
	labelKey(&m.mac1Key, labelMAC1, input[:])
	labelKey(&m.cookieKey, labelCookie, input[:])
	return m
}

// Mac computes MAC1 over buf, records it for the next ConsumePayload,
// and writes MAC2 using the cached cookie if it is still fresh enough
// to trust. MAC2 is left zero when there is no usable cookie.
func (m *Maker) Mac(buf []byte) MACs {
	var out MACs
	computeMAC1(&out.MAC1, &m.mac1Key, buf)

	m.lastMu.Lock()
	m.mac1Last = out.MAC1
	m.mac1Valid = true
	m.lastMu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cookieSet {
		age := m.clock.Now().UnixNano() - m.cookieBirthday
		if age <= (SecretMaxAge - SecretLatency).Nanoseconds() {
			cookie := m.cookie
			computeMAC2(&out.MAC2, &cookie, buf, &out.MAC1)
		}
	}
	return out
}

// ConsumePayload decrypts a cookie-reply payload and, on success,
// caches the cookie for future Mac calls. It fails with
// ErrStaleCookieReply if no MAC1 is outstanding, or ErrInvalidMAC if
// the AEAD tag does not verify.
func (m *Maker) ConsumePayload(nonce [NonceSize]byte, encrypted [EncryptedSize]byte) error {
	m.lastMu.Lock()
	if !m.mac1Valid {
		m.lastMu.Unlock()
		return ErrStaleCookieReply
	}
	lastMAC1 := m.mac1Last
	m.lastMu.Unlock()

	aead, err := chacha20poly1305.NewX(m.cookieKey[:])
	if err != nil {
		return err
	}

	var plain [CookieSize]byte
	if _, err := aead.Open(plain[:0], nonce[:], encrypted[:], lastMAC1[:]); err != nil {
		zero(plain[:])
		return ErrInvalidMAC
	}

	m.mu.Lock()
	m.cookie = plain
	m.cookieSet = true
	m.cookieBirthday = m.clock.Now().UnixNano()
	m.mu.Unlock()
	zero(plain[:])

	// A cookie is consumed at most once per emission; clear
	// mac1Valid only after a successful decrypt so a failed attempt
	// does not burn the pending MAC1.
	m.lastMu.Lock()
	m.mac1Valid = false
	m.lastMu.Unlock()
	return nil
}
