/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package cookie

import (
	"crypto/hmac"
	"crypto/rand"
	"net/netip"
	"sync"

	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/chacha20poly1305"
)

// Limiter is the subset of ratelimiter.Limiter that Checker needs to
// consult in ValidateMACs when busy. It is satisfied by
// *ratelimiter.Limiter without cookie importing ratelimiter; the
// cookiewall package owns both and wires them together instead of
// either package importing the other.
type Limiter interface {
	Allow(addr netip.Addr) bool
}

// Checker is per-responder state: it validates incoming MAC1/MAC2 and
// manufactures cookies and cookie-reply payloads. The zero value is
// not usable; call NewChecker.
type Checker struct {
	clock Clock

	keyMu     sync.RWMutex // guards mac1Key/cookieKey
	mac1Key   [KeySize]byte
	cookieKey [KeySize]byte

	secretMu       sync.RWMutex // guards secret/secretSet, separate from keyMu
	secret         [SecretSize]byte
	secretSet      bool
	secretBirthday timeStamp

	// v4Limiter/v6Limiter are consulted by ValidateMACs once a source
	// is found busy and cookie-valid. Set once via
	// SetLimiters; unset limiters refuse everything of that family.
	v4Limiter Limiter
	v6Limiter Limiter
}

// timeStamp avoids importing "time" into every field declaration; see
// clock.go, which defines Clock in terms of time.Time.
type timeStamp = int64

// NewChecker allocates a Checker and derives mac1Key/cookieKey from
// the local static identity input. Equivalent to CookieChecker.Init,
// generalized to accept a Clock.
func NewChecker(input [InputSize]byte, clock Clock) *Checker {
	c := &Checker{clock: clock}
	c.Update(&input)
	return c
}

// Update (re-)derives mac1Key/cookieKey from input, or zeros both when
// input is nil, used when the local static identity changes or the
// interface is torn down.
func (c *Checker) Update(input *[InputSize]byte) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()

	if input == nil {
		c.mac1Key = [KeySize]byte{}
		c.cookieKey = [KeySize]byte{}
		return
	}
	labelKey(&c.mac1Key, labelMAC1, input[:])
	labelKey(&c.cookieKey, labelCookie, input[:])
}

// makeCookie derives the 16-byte cookie bound to src. It rotates the
// secret first if it has aged past SecretMaxAge, then releases the
// write lock before absorbing address bytes, so the lock is held only
// across the secret's own state transition, not the hashing itself.
func (c *Checker) makeCookie(dst *[CookieSize]byte, src netip.AddrPort) {
	now := c.clock.Now().UnixNano()

	c.secretMu.RLock()
	age := now - c.secretBirthday
	stale := !c.secretSet || age > SecretMaxAge.Nanoseconds()
	c.secretMu.RUnlock()

	if stale {
		c.secretMu.Lock()
		// Re-check: another writer may have rotated while we waited.
		if !c.secretSet || now-c.secretBirthday > SecretMaxAge.Nanoseconds() {
			if _, err := rand.Read(c.secret[:]); err != nil {
				// crypto/rand is documented never to fail on supported
				// platforms; treat failure as unrecoverable rather than
				// silently mint a predictable secret.
				panic(err)
			}
			c.secretSet = true
			c.secretBirthday = now
		}
		c.secretMu.Unlock()
	}

	var secret [SecretSize]byte
	c.secretMu.RLock()
	secret = c.secret
	c.secretMu.RUnlock()
	defer zero(secret[:])

	addr := src.Addr().Unmap()
	mac, err := blake2s.New128(secret[:])
	if err != nil {
		panic(err)
	}
	switch {
	case addr.Is4():
		a := addr.As4()
		mac.Write(a[:])
	case addr.Is6():
		a := addr.As16()
		mac.Write(a[:])
	default:
		// Unknown family: fill with random bytes so the cookie is
		// unverifiable by the peer, gracefully rejecting the request
		// without leaking checker state.
		if _, err := rand.Read(dst[:]); err != nil {
			panic(err)
		}
		return
	}
	var port [2]byte
	port[0] = byte(src.Port() >> 8)
	port[1] = byte(src.Port())
	mac.Write(port[:])
	mac.Sum(dst[:0])
}

// CreatePayload builds the encrypted cookie sent in a cookie-reply
// message: plaintext is a fresh cookie for src, additional
// data is the peer's MAC1, key is cookieKey. Returns the 24-byte
// nonce and the 32-byte ciphertext-plus-tag.
func (c *Checker) CreatePayload(mac1 *[MACSize]byte, src netip.AddrPort) (nonce [NonceSize]byte, encrypted [EncryptedSize]byte, err error) {
	var plainCookie [CookieSize]byte
	c.makeCookie(&plainCookie, src)
	defer zero(plainCookie[:])

	if _, err = rand.Read(nonce[:]); err != nil {
		return nonce, encrypted, err
	}

	c.keyMu.RLock()
	cookieKey := c.cookieKey
	c.keyMu.RUnlock()

	aead, err := chacha20poly1305.NewX(cookieKey[:])
	if err != nil {
		return nonce, encrypted, err
	}
	aead.Seal(encrypted[:0], nonce[:], plainCookie[:], mac1[:])
	return nonce, encrypted, nil
}

// SetLimiters wires the per-address-family rate limiters that
// ValidateMACs consults under load. Either may be nil,
// in which case that family is always refused once busy.
func (c *Checker) SetLimiters(v4, v6 Limiter) {
	c.v4Limiter = v4
	c.v6Limiter = v6
}

// ValidateMACs checks a handshake message's MAC1, and its MAC2 when
// busy is true. buf is the handshake message with the bytes preceding
// MAC1/MAC2 to be re-hashed; macs carries the values as received on
// the wire. busy is supplied by the caller. A nil error means the
// packet is allowed; any non-nil error is one of the sentinels in
// errors.go and callers should switch on it with errors.Is to decide
// how to respond (drop, send a cookie reply, etc.).
func (c *Checker) ValidateMACs(buf []byte, macs *MACs, busy bool, src netip.AddrPort) error {
	c.keyMu.RLock()
	mac1Key := c.mac1Key
	c.keyMu.RUnlock()

	var expectedMAC1 [MACSize]byte
	computeMAC1(&expectedMAC1, &mac1Key, buf)
	if !hmac.Equal(expectedMAC1[:], macs.MAC1[:]) {
		return ErrInvalidMAC
	}

	if !busy {
		return nil
	}

	var cookie [CookieSize]byte
	c.makeCookie(&cookie, src)
	defer zero(cookie[:])

	var expectedMAC2 [MACSize]byte
	computeMAC2(&expectedMAC2, &cookie, buf, &macs.MAC1)
	if !hmac.Equal(expectedMAC2[:], macs.MAC2[:]) {
		return ErrCookieRequired
	}

	addr := src.Addr().Unmap()
	var limiter Limiter
	switch {
	case addr.Is4():
		limiter = c.v4Limiter
	case addr.Is6():
		limiter = c.v6Limiter
	default:
		return ErrUnsupportedFamily
	}
	if limiter == nil || !limiter.Allow(addr) {
		return ErrRefused
	}
	return nil
}

// zero overwrites b with zero bytes. Used on every stack copy of
// secret material before it goes out of scope.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
