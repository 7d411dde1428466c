// Package engine wires the sandbox, heuristic, and selector packages
// together behind the three entry points a simulator host drives:
// Initialize, Operate, and CacheFill (spec.md §6).
package engine

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ramyadhadidi/DPC2/heuristic"
	"github.com/ramyadhadidi/DPC2/host"
	"github.com/ramyadhadidi/DPC2/selector"
)

// ErrInvariantViolation wraps a fatal invariant broken deep inside a
// heuristic or the selector (sandbox overflow, an out-of-range active
// heuristic id). Operate recovers the panic that carries a sandbox
// overflow, or receives the error Selector.Operate returns for a bad
// active id, and returns this instead of calling os.Exit itself — see
// SPEC_FULL.md §7.
// The CLI layer (cmd/dpc2replay) is where the process actually exits.
type ErrInvariantViolation struct {
	Cause error
}

func (e ErrInvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %v", e.Cause)
}

func (e ErrInvariantViolation) Unwrap() error { return e.Cause }

// Engine owns one selector and one instance of each heuristic, per CPU.
// A single Engine may serve multiple cpuNum values the way the source's
// per-CPU static-array design does, indexed by a small map keyed on
// cpuNum rather than a fixed C array, since the number of simulated CPUs
// is not a compile-time constant in this port.
type Engine struct {
	seed   uint64
	logger zerolog.Logger

	perCPU map[int32]*cpuState
}

type cpuState struct {
	sel        *selector.Selector
	heuristics [heuristic.NSandbox]heuristic.Heuristic
}

// New constructs an Engine with an explicit PRNG seed (so runs are
// reproducible, per spec.md §9) and a structured logger used for the
// initialization banner and fatal-invariant reporting.
func New(seed uint64, logger zerolog.Logger) *Engine {
	return &Engine{
		seed:   seed,
		logger: logger,
		perCPU: make(map[int32]*cpuState),
	}
}

// pickActive chooses an engine-seeded pseudo-random starting heuristic
// for a freshly initialized CPU, using the same seed family as the
// per-heuristic sandboxes so the whole Engine is reproducible from one
// seed (spec.md §9).
func (e *Engine) pickActive(cpuNum int32) func(n int) int {
	return func(n int) int {
		// A fixed xor-shift/multiply hash of seed and cpuNum keeps this
		// independent of
		// math/rand/v2's internal state advancement so picking the
		// active heuristic never perturbs any sandbox's own sequence.
		x := e.seed ^ (uint64(cpuNum+1) * 0x9e3779b97f4a7c15)
		x ^= x >> 33
		x *= 0xff51afd7ed558ccd
		x ^= x >> 33
		return int(x % uint64(n))
	}
}

// Initialize prepares cpuNum's selector and heuristic set and logs the
// startup banner (knob triple), mirroring l2_prefetcher_initialize's
// printf of ScrambleLoads/SmallLLC/LowBandwidth.
func (e *Engine) Initialize(cpuNum int32, h host.Host) {
	cs := &cpuState{
		sel: selector.New(e.seed+uint64(cpuNum)*0x2545F4914F6CDD1D, e.pickActive(cpuNum)),
		heuristics: [heuristic.NSandbox]heuristic.Heuristic{
			heuristic.IDNextLine: &heuristic.NextLine{},
			heuristic.IDIPStride: heuristic.NewIPStride(),
			heuristic.IDStream:   heuristic.NewStream(),
			heuristic.IDAMPM:     heuristic.NewAMPM(),
		},
	}
	e.perCPU[cpuNum] = cs

	k := h.Knobs()
	e.logger.Info().
		Int32("cpu", cpuNum).
		Bool("scramble_loads", k.ScrambleLoads).
		Bool("small_llc", k.SmallLLC).
		Bool("low_bandwidth", k.LowBandwidth).
		Str("active", cs.sel.Active().String()).
		Msg("prefetcher initialized")
}

// Operate drives one L2 access through cpuNum's selector. A panic
// carrying heuristic.ErrSandboxFull or selector.ErrUnknownActive —
// whether raised directly or returned as an error from Selector.Operate
// — is turned into ErrInvariantViolation here, at the single seam the
// rest of this package treats as the fatal-error boundary (SPEC_FULL.md
// §7).
func (e *Engine) Operate(cpuNum int32, addr, ip uint64, cacheHit bool, h host.Host) (err error) {
	cs, ok := e.perCPU[cpuNum]
	if !ok {
		return ErrInvariantViolation{Cause: fmt.Errorf("cpu %d never initialized", cpuNum)}
	}

	if cacheHit {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			e.logger.Error().Int32("cpu", cpuNum).Err(cause).Msg("fatal invariant violation")
			err = ErrInvariantViolation{Cause: cause}
		}
	}()

	now := h.CurrentCycle(cpuNum)
	if selErr := cs.sel.Operate(cpuNum, addr, ip, now, cs.heuristics, h); selErr != nil {
		e.logger.Error().Int32("cpu", cpuNum).Err(selErr).Msg("fatal invariant violation")
		return ErrInvariantViolation{Cause: selErr}
	}
	return nil
}

// CacheFill is a no-op hook in this port: spec.md §6 lists it as part of
// the host-facing surface for simulators that want fill-path
// bookkeeping (e.g. updating replacement state on an evicted line), but
// none of the four heuristics read fill/eviction state, matching
// mix1_prefetcher.c's own l2_prefetcher_cache_fill, which is present but
// empty.
func (e *Engine) CacheFill(cpuNum int32, addr uint64, set, way int32, prefetch bool, evictedAddr uint64) {
}

// Active reports the currently active heuristic for cpuNum, for
// instrumentation/the dashboard.
func (e *Engine) Active(cpuNum int32) heuristic.ID {
	cs, ok := e.perCPU[cpuNum]
	if !ok {
		return heuristic.IDNextLine
	}
	return cs.sel.Active()
}

// Scores reports cpuNum's current per-heuristic scores, for
// instrumentation/the dashboard.
func (e *Engine) Scores(cpuNum int32) [heuristic.NSandbox]int {
	cs, ok := e.perCPU[cpuNum]
	if !ok {
		return [heuristic.NSandbox]int{}
	}
	return cs.sel.Scores()
}
