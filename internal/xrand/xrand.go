// Package xrand seeds a math/rand/v2 ChaCha8 source from a single
// uint64, so every Device constructor and test in this repository
// gets a reproducible, explicitly-passed generator rather than
// reaching for math/rand's global state — the same discipline
// go-highway's numeric code and the teacher's per-call init RNGs
// follow.
package xrand

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// New returns a *rand.Rand backed by ChaCha8, deterministically
// expanded from seed. A zero seed draws a fresh seed from the OS's
// cryptographically secure random source instead, mirroring
// primitiv::CPUDevice's std::random_device default.
func New(seed uint64) *rand.Rand {
	if seed == 0 {
		var buf [8]byte
		if _, err := crand.Read(buf[:]); err == nil {
			seed = binary.BigEndian.Uint64(buf[:])
		} else {
			seed = 0x9E3779B97F4A7C15
		}
	}
	return rand.New(rand.NewChaCha8(expand(seed)))
}

// expand stretches a single uint64 seed into the 32-byte key
// ChaCha8 requires, via a splitmix64 stream — the standard
// technique for deriving multiple independent-looking seeds from one
// small seed without pulling in a hashing dependency.
func expand(seed uint64) [32]byte {
	var out [32]byte
	s := seed
	for i := 0; i < 4; i++ {
		s += 0x9E3779B97F4A7C15
		z := s
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		z = z ^ (z >> 31)
		binary.LittleEndian.PutUint64(out[i*8:], z)
	}
	return out
}
