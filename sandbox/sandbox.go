// Package sandbox implements the bounded would-be-prefetch recorder each
// heuristic uses to simulate what it would have prefetched without
// actually touching the real cache.
//
// A Sandbox is a value type: copying one copies its backing array, which
// is exactly what the selector's period-boundary snapshot rotation
// requires (see the selector package).
package sandbox

import "math/rand/v2"

// Capacity is the largest backing array any Sandbox needs. Degrees are
// compile-time constants (see the heuristic package), so this is sized
// generously rather than computed per-instance.
const Capacity = 4096

// Sandbox records prefetch addresses a single heuristic would have issued,
// and answers membership queries with a randomized false-negative rate
// (see Test).
type Sandbox struct {
	data [Capacity]uint64

	// Size is the number of valid entries in data[0:Size].
	Size int
	// MaxSize is this sandbox's capacity for the current evaluation
	// period. Insert treats reaching it as a fatal condition.
	MaxSize int
	// FalsePositive is an integer in 0..1000; see Test.
	FalsePositive int

	rng *rand.Rand
}

// New returns a Sandbox with the given capacity and false-positive rate,
// seeded from seed so its Test draws are reproducible.
func New(maxSize, falsePositive int, seed uint64) Sandbox {
	return Sandbox{
		MaxSize:       maxSize,
		FalsePositive: falsePositive,
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Insert appends addr to the sandbox and reports whether the sandbox is
// still within capacity. A false return is a fatal invariant violation to
// the caller (see spec.md §4.1/§7): the capacity is sized so this should
// never trigger within a single evaluation period under the configured
// degrees.
func (s *Sandbox) Insert(addr uint64) (ok bool) {
	s.data[s.Size] = addr
	s.Size++
	return s.Size != s.MaxSize
}

// Test reports whether addr was recorded in the sandbox. If addr is
// absent, Test always returns false (pure false positives are not
// modeled, matching the source prefetcher this is ported from). If addr
// is present, Test draws a single uniform sample r in [0, 1000) from the
// sandbox's own PRNG and returns r > FalsePositive, i.e. true with
// probability (999 - FalsePositive)/1000.
func (s *Sandbox) Test(addr uint64) bool {
	found := false
	for i := 0; i < s.Size; i++ {
		if s.data[i] == addr {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	r := s.rng.IntN(1000)
	return r > s.FalsePositive
}

// Reset clears the sandbox's contents without reallocating its backing
// array.
func (s *Sandbox) Reset() {
	s.Size = 0
}

// Snapshot returns a deep copy of s suitable for use as the selector's
// frozen prior-period sandbox: independent backing array, same rng state
// reference so continued Test calls against the snapshot keep advancing
// the same deterministic sequence the source's single process-global PRNG
// would have produced.
func (s *Sandbox) Snapshot() Sandbox {
	cp := *s
	return cp
}
