package heuristic

import (
	"github.com/ramyadhadidi/DPC2/addrspace"
	"github.com/ramyadhadidi/DPC2/host"
	"github.com/ramyadhadidi/DPC2/sandbox"
)

// ipTracker is one entry of the IP-stride heuristic's fixed tracker
// table: the instruction pointer it watches, the last address and stride
// it observed from that IP, and an LRU timestamp for eviction. The zero
// value (ip=0, lastAddr=0, lastStride=0, lruCycle=0) is the documented
// initial state of every slot (spec.md §3) — there is deliberately no
// separate "valid" flag, matching the source tracker table exactly.
type ipTracker struct {
	ip         uint64
	lastAddr   uint64
	lastStride int64
	lruCycle   uint64
}

// IPStride detects per-instruction-pointer stride patterns and prefetches
// ahead along the detected stride, staying within the current page.
//
// The tracker table has IPTrackerCount entries and is never resized;
// eviction is strict LRU on lruCycle, matching spec.md §3/§4.3.
type IPStride struct {
	trackers [IPTrackerCount]ipTracker
}

var _ Heuristic = (*IPStride)(nil)

// NewIPStride returns a freshly zeroed IP-stride heuristic. The zero
// value of IPStride is already usable; NewIPStride documents that as the
// supported construction path.
func NewIPStride() *IPStride { return &IPStride{} }

func (*IPStride) ID() ID { return IDIPStride }

// Observe implements the per-access algorithm of spec.md §4.3: find (or
// allocate, LRU) the tracker for ip, compute the signed stride since its
// last access, and — once the same stride has been seen twice in a row —
// prefetch IPDegree lines ahead, stopping at the page boundary.
func (s *IPStride) Observe(cpuNum int32, addr, ip uint64, now uint64, sb *sandbox.Sandbox, evaluation bool, h host.Host) {
	idx := -1
	for i := range s.trackers {
		if s.trackers[i].ip == ip {
			s.trackers[i].lruCycle = now
			idx = i
			break
		}
	}

	if idx == -1 {
		// New IP: allocate the least-recently-used slot, reset it, and
		// return without prefetching — there is no prior stride yet.
		lruIdx := 0
		lruCycle := s.trackers[0].lruCycle
		for i := range s.trackers {
			if s.trackers[i].lruCycle < lruCycle {
				lruIdx = i
				lruCycle = s.trackers[i].lruCycle
			}
		}
		s.trackers[lruIdx] = ipTracker{
			ip:         ip,
			lastAddr:   addr,
			lastStride: 0,
			lruCycle:   now,
		}
		return
	}

	t := &s.trackers[idx]

	var stride int64
	if addr > t.lastAddr {
		stride = int64(addr - t.lastAddr)
	} else {
		stride = -int64(t.lastAddr - addr)
	}

	if stride == 0 {
		return
	}

	if stride == t.lastStride {
		for i := 1; i <= IPDegree; i++ {
			pf := uint64(int64(addr) + stride*int64(i))

			if !addrspace.SamePage(pf, addr) {
				break
			}

			if !sb.Insert(pf) {
				panic(ErrSandboxFull{Heuristic: IDIPStride})
			}

			if !evaluation {
				if h.MSHROccupancy(cpuNum) < 8 {
					h.PrefetchLine(cpuNum, addr, pf, host.FillL2)
				} else {
					h.PrefetchLine(cpuNum, addr, pf, host.FillLLC)
				}
			}
		}
	}

	t.lastAddr = addr
	t.lastStride = stride
}
