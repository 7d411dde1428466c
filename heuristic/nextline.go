package heuristic

import (
	"github.com/ramyadhadidi/DPC2/addrspace"
	"github.com/ramyadhadidi/DPC2/host"
	"github.com/ramyadhadidi/DPC2/sandbox"
)

// NextLine prefetches the cache line following the current demand
// access. It carries no state and performs no page-boundary check — both
// intentional, matching the source prefetcher (spec.md §4.2/§9).
type NextLine struct{}

var _ Heuristic = (*NextLine)(nil)

func (*NextLine) ID() ID { return IDNextLine }

// Observe computes pf = ((addr>>6)+1)<<6 and issues NextDegree prefetches
// starting there, each one line further than the last.
func (*NextLine) Observe(cpuNum int32, addr, ip uint64, now uint64, sb *sandbox.Sandbox, evaluation bool, h host.Host) {
	pf := addrspace.NextLine(addr)
	for i := 0; i < NextDegree; i++ {
		if !sb.Insert(pf) {
			panic(ErrSandboxFull{Heuristic: IDNextLine})
		}
		if !evaluation {
			h.PrefetchLine(cpuNum, addr, pf, host.FillL2)
		}
		pf = addrspace.NextLine(pf)
	}
}
