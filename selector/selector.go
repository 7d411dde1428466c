// Package selector implements the evaluation-period state machine that
// arbitrates between the four prefetching heuristics: every access is
// scored against a frozen snapshot of each heuristic's sandbox from the
// previous period, and at each period boundary the highest-scoring
// heuristic is promoted to active (spec.md §4.6).
package selector

import (
	"fmt"

	"github.com/ramyadhadidi/DPC2/heuristic"
	"github.com/ramyadhadidi/DPC2/host"
	"github.com/ramyadhadidi/DPC2/sandbox"
)

// Period is the number of L2 accesses in one evaluation period (spec.md
// §6 PERIOD).
const Period = 256

// SandboxSizeEach is the per-degree-unit sandbox capacity a heuristic's
// max size is derived from (spec.md §6 SANDBOX_SIZE_EACH).
const SandboxSizeEach = 256

// FalsePositive is the default sandbox false-positive rate, out of 1000
// (spec.md §6 FALSE_POSITIVE).
const FalsePositive = 10

// ErrUnknownActive is returned by Operate if the active heuristic id ever
// falls outside 0..heuristic.NSandbox-1. This can only happen from a
// programming error (e.g. a corrupted Selector). engine.Operate treats it
// like ErrSandboxFull, as a fatal invariant violation (spec.md §4.6/§7).
type ErrUnknownActive struct {
	ID int
}

func (e ErrUnknownActive) Error() string {
	return fmt.Sprintf("unknown active heuristic id %d", e.ID)
}

// Selector holds the per-heuristic sandboxes, scores, and the evaluation
// period state machine. It does not own the heuristics themselves —
// Operate is handed the heuristic set each time by the engine, which is
// what actually instantiates and keeps them (see the engine package).
type Selector struct {
	current  [heuristic.NSandbox]sandbox.Sandbox
	snapshot [heuristic.NSandbox]sandbox.Sandbox

	scores [heuristic.NSandbox]int
	period int

	active heuristic.ID

	// bestIndex/bestScore persist across periods and are only updated on
	// a strict new maximum (spec.md §4.6 "Edge case: argmax state
	// persistence" / §9 first open question) — preserved verbatim from
	// the source's process-global index_max/max_score.
	bestIndex heuristic.ID
	bestScore int
}

// New initializes a Selector: all four sandboxes sized per their
// heuristic's degree (spec.md §4.6 Initialization), scores zeroed, and
// the active heuristic set to pickActive(heuristic.NSandbox). rngSeed
// seeds each sandbox's own false-positive PRNG (deterministically
// derived per-heuristic so the sandboxes are reproducible from one
// seed).
func New(rngSeed uint64, pickActive func(n int) int) *Selector {
	s := &Selector{}
	for i := 0; i < heuristic.NSandbox; i++ {
		id := heuristic.ID(i)
		maxSize := SandboxSizeEach*heuristic.SandboxFactor(id) + 1
		s.current[i] = sandbox.New(maxSize, FalsePositive, rngSeed+uint64(i)*2654435761)
	}
	s.active = heuristic.ID(pickActive(heuristic.NSandbox))
	return s
}

// Active returns the heuristic currently emitting real prefetches.
func (s *Selector) Active() heuristic.ID { return s.active }

// PeriodCount returns the current position within the evaluation period
// (0..selector.Period-1), for instrumentation/the dashboard.
func (s *Selector) PeriodCount() int { return s.period }

// Scores returns a copy of the current per-heuristic scores, for
// instrumentation/the dashboard.
func (s *Selector) Scores() [heuristic.NSandbox]int { return s.scores }

// Sandbox returns the in-progress sandbox for heuristic id, for
// instrumentation/the dashboard. Mutating it is the caller's
// responsibility to avoid.
func (s *Selector) Sandbox(id heuristic.ID) *sandbox.Sandbox { return &s.current[id] }

// Operate drives one L2 access through the selector: the active
// heuristic runs for real, every sandbox is scored against its
// prior-period snapshot, the remaining heuristics run in evaluation
// mode, and — every Period accesses — the next active heuristic is
// promoted and snapshots rotate (spec.md §4.6).
//
// heuristics must be indexed by heuristic.ID (heuristics[id].ID() == id
// for all four ids); the engine owns and passes this set so Selector
// itself stays state-machine-only.
func (s *Selector) Operate(cpuNum int32, addr, ip, now uint64, heuristics [heuristic.NSandbox]heuristic.Heuristic, h host.Host) error {
	if int(s.active) < 0 || int(s.active) >= heuristic.NSandbox {
		return ErrUnknownActive{ID: int(s.active)}
	}

	// 1. Dispatch the active heuristic for real.
	heuristics[s.active].Observe(cpuNum, addr, ip, now, &s.current[s.active], false, h)

	// 2. Score every heuristic against last period's frozen snapshot.
	// This must happen before this period's own sandboxes start
	// contributing to their own score (spec.md §4.6 "Order invariant").
	for j := 0; j < heuristic.NSandbox; j++ {
		if s.snapshot[j].Test(addr) {
			s.scores[j]++
		}
	}

	// 3. Dispatch every other heuristic in evaluation mode: state and
	// sandbox update, no real prefetch.
	for j := 0; j < heuristic.NSandbox; j++ {
		if heuristic.ID(j) == s.active {
			continue
		}
		heuristics[j].Observe(cpuNum, addr, ip, now, &s.current[j], true, h)
	}

	// 4. Period bookkeeping.
	s.period++
	if s.period == Period {
		s.rotate()
	}

	return nil
}

// rotate performs the period-boundary work of spec.md §4.6 step 4:
// promote the argmax-scoring heuristic (preserving the prior winner if
// no new high score is observed), snapshot the current sandboxes,
// decay scores, reset current sandboxes and the period counter.
func (s *Selector) rotate() {
	for j := 0; j < heuristic.NSandbox; j++ {
		if s.scores[j] > s.bestScore {
			s.bestIndex = heuristic.ID(j)
			s.bestScore = s.scores[j]
		}
	}
	s.active = s.bestIndex

	for j := 0; j < heuristic.NSandbox; j++ {
		s.snapshot[j] = s.current[j].Snapshot()
		s.current[j].Reset()
		s.scores[j] /= 3
	}

	s.period = 0
}
