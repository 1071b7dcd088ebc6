package engine

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Stream is a deterministic uniform random stream driven by a 32-bit
// mix-based generator. Two streams built from the same seed always produce
// the same sequence, which is what makes spins replayable.
type Stream struct {
	seed  uint32
	state uint32
}

// NewStream creates a stream seeded verbatim with the given value.
func NewStream(seed uint32) *Stream {
	return &Stream{seed: seed, state: seed}
}

// Seed returns the seed this stream was created with.
func (s *Stream) Seed() uint32 {
	return s.seed
}

// NextUint32 advances the stream and returns the next 32-bit value.
// Weyl sequence increment followed by a murmur-style finalizer.
func (s *Stream) NextUint32() uint32 {
	s.state += 0x9E3779B9
	z := s.state
	z ^= z >> 16
	z *= 0x85EBCA6B
	z ^= z >> 13
	z *= 0xC2B2AE35
	z ^= z >> 16
	return z
}

// NextFloat returns the next value in [0, 1).
func (s *Stream) NextFloat() float64 {
	return float64(s.NextUint32()) / (1 << 32)
}

// IntBetween returns a uniform integer in [min, max] inclusive.
func (s *Stream) IntBetween(min, max int) int {
	if min >= max {
		return min
	}
	span := uint32(max - min + 1)
	return min + int(s.NextUint32()%span)
}

// NewSeed draws a seed from the operating system's secure source. Used when
// the caller does not care about replaying the result.
func NewSeed() (uint32, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("failed to draw seed: %w", err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// RoundSeed derives a stream seed from a server/client seed pair and a round
// nonce using HMAC-SHA256. Hosted deployments use this to prove after the
// fact that a spin was fixed by the seed pair, not steered per round.
func RoundSeed(serverSeed, clientSeed string, nonce uint64) uint32 {
	h := hmac.New(sha256.New, []byte(serverSeed))
	fmt.Fprintf(h, "%s:%d", clientSeed, nonce)
	sum := h.Sum(nil)
	return binary.BigEndian.Uint32(sum[:4])
}
