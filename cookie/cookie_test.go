/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package cookie

import (
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/blake2s"
)

// fakeClock lets tests advance time deterministically instead of
// sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// alwaysAllow satisfies Limiter for tests that don't care about rate
// limiting.
type alwaysAllow struct{}

func (alwaysAllow) Allow(netip.Addr) bool { return true }

type neverAllow struct{}

func (neverAllow) Allow(netip.Addr) bool { return false }

func testInput() [InputSize]byte {
	var in [InputSize]byte
	for i := range in {
		in[i] = byte(i + 1)
	}
	return in
}

var testAddr = netip.MustParseAddrPort("127.0.0.1:51820")

func newPair(t *testing.T, clock Clock) (*Checker, *Maker) {
	t.Helper()
	in := testInput()
	c := NewChecker(in, clock)
	c.SetLimiters(alwaysAllow{}, alwaysAllow{})
	m := NewMaker(in, clock)
	return c, m
}

func TestHappyHandshakeNotBusy(t *testing.T) {
	clock := newFakeClock()
	c, m := newPair(t, clock)

	buf := []byte("handshake initiation payload")
	macs := m.Mac(buf)

	if macs.MAC2 != ([MACSize]byte{}) {
		t.Fatalf("expected zero MAC2 before any cookie, got %x", macs.MAC2)
	}

	if err := c.ValidateMACs(buf, &macs, false, testAddr); err != nil {
		t.Fatalf("ValidateMACs(busy=false) = %v, want nil", err)
	}
}

func TestCookieChallengeThenAllowed(t *testing.T) {
	clock := newFakeClock()
	c, m := newPair(t, clock)

	buf := []byte("a second handshake message, different bytes")
	macs := m.Mac(buf)

	err := c.ValidateMACs(buf, &macs, true, testAddr)
	if !errors.Is(err, ErrCookieRequired) {
		t.Fatalf("ValidateMACs(busy=true, no cookie) = %v, want ErrCookieRequired", err)
	}

	nonce, enc, err := c.CreatePayload(&macs.MAC1, testAddr)
	if err != nil {
		t.Fatalf("CreatePayload: %v", err)
	}

	if err := m.ConsumePayload(nonce, enc); err != nil {
		t.Fatalf("ConsumePayload: %v", err)
	}

	buf2 := []byte("a third handshake message")
	macs2 := m.Mac(buf2)
	if macs2.MAC2 == ([MACSize]byte{}) {
		t.Fatalf("expected non-zero MAC2 after consuming cookie reply")
	}

	if err := c.ValidateMACs(buf2, &macs2, true, testAddr); err != nil {
		t.Fatalf("ValidateMACs(busy=true, with cookie) = %v, want nil", err)
	}
}

func TestTamperedCookieReplyIsInvalid(t *testing.T) {
	clock := newFakeClock()
	c, m := newPair(t, clock)

	buf := []byte("handshake message for tamper test")
	macs := m.Mac(buf)

	nonce, enc, err := c.CreatePayload(&macs.MAC1, testAddr)
	if err != nil {
		t.Fatalf("CreatePayload: %v", err)
	}
	enc[len(enc)-1] ^= 0xff

	err = m.ConsumePayload(nonce, enc)
	if !errors.Is(err, ErrInvalidMAC) {
		t.Fatalf("ConsumePayload(tampered) = %v, want ErrInvalidMAC", err)
	}
}

func TestConsumePayloadWithoutPendingMAC1IsStale(t *testing.T) {
	clock := newFakeClock()
	in := testInput()
	m := NewMaker(in, clock)

	var nonce [NonceSize]byte
	var enc [EncryptedSize]byte
	err := m.ConsumePayload(nonce, enc)
	if !errors.Is(err, ErrStaleCookieReply) {
		t.Fatalf("ConsumePayload(no prior Mac) = %v, want ErrStaleCookieReply", err)
	}
}

func TestMAC1MismatchIsInvalid(t *testing.T) {
	clock := newFakeClock()
	c, m := newPair(t, clock)

	buf := []byte("original buffer contents")
	macs := m.Mac(buf)

	tampered := append([]byte(nil), buf...)
	tampered[0] ^= 0x01

	err := c.ValidateMACs(tampered, &macs, false, testAddr)
	if !errors.Is(err, ErrInvalidMAC) {
		t.Fatalf("ValidateMACs(tampered buf) = %v, want ErrInvalidMAC", err)
	}
}

func TestMAC2DependsOnOrderAndOnMAC1(t *testing.T) {
	var key [CookieSize]byte
	for i := range key {
		key[i] = byte(i)
	}
	buf := []byte("some handshake bytes")
	var mac1 [MACSize]byte
	for i := range mac1 {
		mac1[i] = byte(0xA0 + i)
	}

	var direct, swapped, omitted [MACSize]byte
	computeMAC2(&direct, &key, buf, &mac1)

	// Swap the order: hash mac1 first, then buf, with blake2s directly
	// rather than computeMAC2, since computeMAC2 always appends mac1
	// last. Must differ from the buf||mac1 construction above.
	hash, err := blake2s.New128(key[:])
	if err != nil {
		t.Fatal(err)
	}
	hash.Write(mac1[:])
	hash.Write(buf)
	hash.Sum(swapped[:0])

	if direct == swapped {
		t.Fatalf("MAC2 did not depend on operand order")
	}

	computeMAC2(&omitted, &key, buf, &[MACSize]byte{})
	if direct == omitted {
		t.Fatalf("MAC2 did not depend on mac1 contents")
	}
}

func TestSecretRotationChangesCookie(t *testing.T) {
	clock := newFakeClock()
	in := testInput()
	c := NewChecker(in, clock)

	// makeCookie is deterministic given a fixed secret and source
	// address, so two calls before any rotation must agree, and a call
	// after rotation must disagree — isolating the rotation's effect
	// from CreatePayload's independently-randomized nonce.
	var before, beforeAgain, after [CookieSize]byte
	c.makeCookie(&before, testAddr)
	c.makeCookie(&beforeAgain, testAddr)
	if before != beforeAgain {
		t.Fatalf("makeCookie was not deterministic before rotation")
	}

	clock.Advance(121 * time.Second)
	c.makeCookie(&after, testAddr)

	if before == after {
		t.Fatalf("expected cookie to change after secret rotation")
	}
}

func TestMakerStopsUsingCookieNearSecretRotation(t *testing.T) {
	clock := newFakeClock()
	c, m := newPair(t, clock)

	buf := []byte("handshake buffer")
	macs := m.Mac(buf)
	nonce, enc, err := c.CreatePayload(&macs.MAC1, testAddr)
	if err != nil {
		t.Fatalf("CreatePayload: %v", err)
	}
	if err := m.ConsumePayload(nonce, enc); err != nil {
		t.Fatalf("ConsumePayload: %v", err)
	}

	clock.Advance(116 * time.Second) // past SecretMaxAge-SecretLatency (115s)

	buf2 := []byte("later handshake buffer")
	macs2 := m.Mac(buf2)
	if macs2.MAC2 != ([MACSize]byte{}) {
		t.Fatalf("expected maker to downgrade to zero MAC2 once cookie is too old to trust")
	}
}

func TestUpdateWithNilZeroesKeys(t *testing.T) {
	clock := newFakeClock()
	in := testInput()
	c := NewChecker(in, clock)
	c.Update(nil)

	if c.mac1Key != ([KeySize]byte{}) || c.cookieKey != ([KeySize]byte{}) {
		t.Fatalf("Update(nil) did not zero keys")
	}
}

func TestValidateMACsRefusedWhenLimiterDenies(t *testing.T) {
	clock := newFakeClock()
	in := testInput()
	c := NewChecker(in, clock)
	c.SetLimiters(neverAllow{}, neverAllow{})
	m := NewMaker(in, clock)

	buf := []byte("handshake buffer for refusal test")
	macs := m.Mac(buf)
	nonce, enc, err := c.CreatePayload(&macs.MAC1, testAddr)
	if err != nil {
		t.Fatalf("CreatePayload: %v", err)
	}
	if err := m.ConsumePayload(nonce, enc); err != nil {
		t.Fatalf("ConsumePayload: %v", err)
	}

	buf2 := []byte("next handshake buffer")
	macs2 := m.Mac(buf2)
	err = c.ValidateMACs(buf2, &macs2, true, testAddr)
	if !errors.Is(err, ErrRefused) {
		t.Fatalf("ValidateMACs with denying limiter = %v, want ErrRefused", err)
	}
}

func TestUnsupportedFamilyFillsRandomCookie(t *testing.T) {
	clock := newFakeClock()
	in := testInput()
	c := NewChecker(in, clock)

	// An AddrPort built from an invalid Addr has neither Is4 nor Is6.
	var zeroAddr netip.Addr
	src := netip.AddrPortFrom(zeroAddr, 1)

	var c1, c2 [CookieSize]byte
	c.makeCookie(&c1, src)
	c.makeCookie(&c2, src)

	if c1 == c2 {
		t.Fatalf("expected random, non-repeating cookie for unsupported family")
	}
}
