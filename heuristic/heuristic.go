// Package heuristic implements the four prefetching heuristics the
// selector chooses between: next-line, IP-stride, stream, and AMPM.
//
// Each heuristic is a self-contained state machine exposing one Observe
// call. The selector drives every heuristic on every access — the active
// one for real, everyone else in evaluation mode — so all four
// implementations accept the same signature and are addressed uniformly
// through the Heuristic interface (spec.md §9: "a single dispatch enum
// with a tagged update function is cleaner than dynamic dispatch" — here
// realized as a small fixed-size interface value per heuristic rather
// than a tagged union, which is the idiomatic Go equivalent).
package heuristic

import (
	"fmt"

	"github.com/ramyadhadidi/DPC2/host"
	"github.com/ramyadhadidi/DPC2/sandbox"
)

// ID identifies one of the four heuristics. Selector uses these as array
// indices into its per-heuristic sandboxes and scores, so they must stay
// 0..NSandbox-1 and contiguous.
type ID int

const (
	IDNextLine ID = iota
	IDIPStride
	IDStream
	IDAMPM

	// NSandbox is the number of heuristics the selector arbitrates
	// between (spec.md §6 tunable N_SANDBOX).
	NSandbox = 4
)

func (id ID) String() string {
	switch id {
	case IDNextLine:
		return "next-line"
	case IDIPStride:
		return "ip-stride"
	case IDStream:
		return "stream"
	case IDAMPM:
		return "ampm"
	default:
		return "unknown"
	}
}

// Degree per heuristic (spec.md §6). AMPM's degree applies independently
// to its positive and negative scans, so it may emit up to 2*AmpmDegree
// prefetches per access.
const (
	NextDegree   = 1
	IPDegree     = 2
	StreamDegree = 2
	AmpmDegree   = 2

	// StreamWindow bounds how far an access may be from a detector's
	// pf_index and still train it (spec.md §6 STREAM_WINDOW).
	StreamWindow = 16

	// IPTrackerCount and StreamDetectorCount/AmpmPageCount size the fixed
	// per-heuristic tables (spec.md §6).
	IPTrackerCount      = 1024
	StreamDetectorCount = 64
	AmpmPageCount       = 64
)

// SandboxFactor gives, per heuristic, the multiplier on
// selector.SandboxSizeEach used to size that heuristic's sandbox capacity
// (spec.md §4.6: "+1 because of last cycle"; AMPM needs room for both its
// positive and negative scans, hence *2 relative to its own degree).
func SandboxFactor(id ID) int {
	switch id {
	case IDNextLine:
		return 1
	case IDIPStride:
		return IPDegree
	case IDStream:
		return StreamDegree
	case IDAMPM:
		return AmpmDegree * 2
	default:
		return 1
	}
}

// Heuristic is one prefetching state machine. Observe is called once per
// L2 access for every heuristic, every access: the active heuristic is
// called with evaluation=false (it may issue real prefetches); every
// other heuristic is called with evaluation=true (it updates its
// internal state and its sandbox, but must not touch Host.PrefetchLine).
type Heuristic interface {
	ID() ID

	// Observe updates the heuristic's internal state for the access at
	// (addr, ip), recording any candidate prefetch addresses into sb. If
	// evaluation is false, real prefetches are also issued through h.
	// now is the host's current cycle, used for LRU bookkeeping.
	Observe(cpuNum int32, addr, ip uint64, now uint64, sb *sandbox.Sandbox, evaluation bool, h host.Host)
}

// ErrSandboxFull is panicked when a heuristic's Insert call would
// overflow its sandbox. This is a capacity-miscalculation bug, not a
// routine condition (spec.md §4.1/§7): engine.Operate recovers it at the
// top of the call stack and turns it into engine.ErrInvariantViolation,
// the same way the source prefetcher's sandbox_insert treats overflow as
// fatal and exits, except the exit policy belongs to the host boundary
// (see SPEC_FULL.md §7), not to library code.
type ErrSandboxFull struct {
	Heuristic ID
}

func (e ErrSandboxFull) Error() string {
	return fmt.Sprintf("sandbox full for heuristic %s", e.Heuristic)
}
