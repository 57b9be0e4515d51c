// Package randutil builds deterministic, seed-derived random sources for
// reproducible hand dealing in tests and replayable simulations.
package randutil

import "math/rand"

const goldenRatio64 = 0x9e3779b97f4a7c15

// mix scrambles a raw seed so that nearby seeds (0, 1, 2, ...) still produce
// decorrelated streams instead of near-identical shuffles.
func mix(seed int64) int64 {
	z := uint64(seed) + goldenRatio64
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z = z ^ (z >> 31)
	return int64(z)
}

// New returns a *rand.Rand seeded deterministically from seed. Equal seeds
// always produce equal shuffles; this is the source the game package's
// tests use wherever they need a reproducible deck.
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(mix(seed)))
}
