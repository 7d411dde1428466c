// Package refhost provides an in-memory host.Host implementation for
// tests, the dashboard, and the replay CLI: a bounded MSHR counter, a
// monotonic per-CPU clock, and a record of every issued prefetch plus
// enough bookkeeping to report prefetch accuracy (SPEC_FULL.md, the
// "Host interface adapters" component of spec.md §2, generalized from
// the teacher's FakeRam in mem/bus.go).
package refhost

import (
	"github.com/ramyadhadidi/DPC2/host"
)

// Fill records one prefetch issued through PrefetchLine.
type Fill struct {
	CPU   int32
	Base  uint64
	Addr  uint64
	Level host.FillLevel
	Cycle uint64
}

// Host is a bounded, in-memory simulator-side collaborator: it tracks
// MSHR occupancy per CPU (capped at MSHRCapacity, freed on Retire), a
// monotonic clock, and every fill issued through it, the way the
// teacher's mem.Bus stands in for real memory during tests and the
// debugger.
type Host struct {
	MSHRCapacity int32

	knobs host.Knobs

	mshr  map[int32]int32
	clock map[int32]uint64
	fills []Fill

	demandSet map[uint64]bool
	usefulSet map[uint64]bool
}

// New returns a Host with the given MSHR capacity and knob triple
// (spec.md §6's ScrambleLoads/SmallLLC/LowBandwidth, logged but never
// branched on by any heuristic).
func New(mshrCapacity int32, knobs host.Knobs) *Host {
	return &Host{
		MSHRCapacity: mshrCapacity,
		knobs:        knobs,
		mshr:         make(map[int32]int32),
		clock:        make(map[int32]uint64),
		demandSet:    make(map[uint64]bool),
		usefulSet:    make(map[uint64]bool),
	}
}

var _ host.Host = (*Host)(nil)

// PrefetchLine implements host.Host: records the fill and increments
// cpuNum's MSHR occupancy (capped at MSHRCapacity — additional issues
// beyond capacity are still recorded for the dashboard/stats but do not
// push occupancy past the cap, matching the fact that a real MSHR never
// reports an occupancy above its own size).
func (h *Host) PrefetchLine(cpuNum int32, baseAddr, pfAddr uint64, fillLevel host.FillLevel) {
	h.fills = append(h.fills, Fill{CPU: cpuNum, Base: baseAddr, Addr: pfAddr, Level: fillLevel, Cycle: h.clock[cpuNum]})
	if h.mshr[cpuNum] < h.MSHRCapacity {
		h.mshr[cpuNum]++
	}
}

// Retire frees n MSHR entries for cpuNum, simulating fills completing.
func (h *Host) Retire(cpuNum int32, n int32) {
	h.mshr[cpuNum] -= n
	if h.mshr[cpuNum] < 0 {
		h.mshr[cpuNum] = 0
	}
}

// MSHROccupancy implements host.Host.
func (h *Host) MSHROccupancy(cpuNum int32) int32 { return h.mshr[cpuNum] }

// CurrentCycle implements host.Host: each call advances cpuNum's clock
// by one, matching the once-per-access tick the engine drives it with.
func (h *Host) CurrentCycle(cpuNum int32) uint64 {
	h.clock[cpuNum]++
	return h.clock[cpuNum]
}

// Knobs implements host.Host.
func (h *Host) Knobs() host.Knobs { return h.knobs }

// RecordDemand marks addr as having been demand-accessed. If a prior
// prefetch fill targeted the same address, it counts as useful for
// Accuracy.
func (h *Host) RecordDemand(addr uint64) {
	h.demandSet[addr] = true
	for _, f := range h.fills {
		if f.Addr == addr {
			h.usefulSet[addr] = true
			break
		}
	}
}

// Fills returns every fill issued through this Host so far, for the
// dashboard and replay summary.
func (h *Host) Fills() []Fill {
	cp := make([]Fill, len(h.fills))
	copy(cp, h.fills)
	return cp
}

// Accuracy returns the fraction of issued prefetches that were
// subsequently touched by a demand access (RecordDemand), a simple
// replay-time usefulness metric. Returns 0 if no prefetches were issued.
func (h *Host) Accuracy() float64 {
	if len(h.fills) == 0 {
		return 0
	}
	return float64(len(h.usefulSet)) / float64(len(h.fills))
}
