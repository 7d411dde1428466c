// Package host defines the boundary between the prefetcher engine and the
// cache simulator that embeds it. Everything here is a narrow interface
// or plain data type; no implementation lives in this package — see
// refhost for the in-memory reference implementation used by tests and
// the CLI.
//
// This is the generalized analogue of a CPU's memory bus: where a CPU
// reaches out through one bus to read and write bytes, the prefetcher
// engine reaches out through Host to issue prefetches and read simulator
// state it does not own.
package host

// FillLevel selects which level of the cache hierarchy a prefetch should
// be filled into.
type FillLevel int

const (
	// FillL2 requests the prefetched line be filled into the L2 cache.
	FillL2 FillLevel = iota
	// FillLLC requests the prefetched line be filled into the last-level
	// cache instead, typically because the L2's MSHRs are under pressure.
	FillLLC
)

func (f FillLevel) String() string {
	switch f {
	case FillL2:
		return "L2"
	case FillLLC:
		return "LLC"
	default:
		return "unknown"
	}
}

// Knobs are read-only simulator configuration bits visible to the
// prefetcher. The core never branches on these; they exist so
// Initialize can log them, matching the source prefetcher's banner.
type Knobs struct {
	ScrambleLoads bool
	SmallLLC      bool
	LowBandwidth  bool
}

// Host is everything the engine needs from the cache simulator that
// embeds it. Implementations must be infallible: the engine does not
// handle errors returned from Host, because the simulator is assumed to
// be authoritative about its own state (see spec.md §7).
type Host interface {
	// PrefetchLine issues a real prefetch for pfAddr, caused by the
	// demand access at baseAddr, to be filled at the given level.
	PrefetchLine(cpuNum int32, baseAddr, pfAddr uint64, fillLevel FillLevel)

	// MSHROccupancy reports the number of in-flight L2 miss-status
	// holding registers for cpuNum, used by heuristics to decide between
	// FillL2 and FillLLC.
	MSHROccupancy(cpuNum int32) int32

	// CurrentCycle reports the simulator's monotonic cycle counter for
	// cpuNum, used as the LRU timestamp for tracker/detector/page tables.
	CurrentCycle(cpuNum int32) uint64

	// Knobs reports the simulator's read-only configuration.
	Knobs() Knobs
}
