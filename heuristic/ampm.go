package heuristic

import (
	"github.com/ramyadhadidi/DPC2/addrspace"
	"github.com/ramyadhadidi/DPC2/host"
	"github.com/ramyadhadidi/DPC2/sandbox"
)

// ampmScanWidth bounds the symmetric stride-detection scan: strides of
// magnitude 1..16 are considered (spec.md §4.5).
const ampmScanWidth = 16

// ampmPage is one entry of the AMPM heuristic's fixed page table: the
// page it tracks, its 64-bit access and prefetched-line bitmaps (kept as
// bool arrays rather than a literal bitset, the idiomatic Go
// equivalent), and an LRU timestamp.
type ampmPage struct {
	page      uint64
	accessMap [addrspace.LinesPerPage]bool
	pfMap     [addrspace.LinesPerPage]bool
	lru       uint64
}

// AMPM is a simplified Access-Map Pattern Matching prefetcher scoped to
// single 4 KiB pages: it looks for a stride repeated twice within the
// page's access history and prefetches the next occurrence of that
// stride, scanning both forward and backward from the current offset.
type AMPM struct {
	pages [AmpmPageCount]ampmPage
}

var _ Heuristic = (*AMPM)(nil)

// NewAMPM returns a freshly zeroed AMPM heuristic.
func NewAMPM() *AMPM { return &AMPM{} }

func (*AMPM) ID() ID { return IDAMPM }

// Observe implements the per-access algorithm of spec.md §4.5: locate (or
// LRU-allocate) the page, mark the access bit, then run the positive and
// negative stride scans, each capped at AmpmDegree prefetches.
func (a *AMPM) Observe(cpuNum int32, addr, ip uint64, now uint64, sb *sandbox.Sandbox, evaluation bool, h host.Host) {
	page := addrspace.PageAddr(addr)
	offset := addrspace.PageOffset(addr)

	idx := -1
	for i := range a.pages {
		if a.pages[i].page == page {
			idx = i
			break
		}
	}

	if idx == -1 {
		lruIdx := 0
		lruCycle := a.pages[0].lru
		for i := range a.pages {
			if a.pages[i].lru < lruCycle {
				lruIdx = i
				lruCycle = a.pages[i].lru
			}
		}
		idx = lruIdx
		a.pages[idx] = ampmPage{page: page}
	}

	p := &a.pages[idx]
	p.lru = now
	p.accessMap[offset] = true

	a.scanPositive(p, page, offset, addr, sb, evaluation, cpuNum, h)
	a.scanNegative(p, page, offset, addr, sb, evaluation, cpuNum, h)
}

// scanPositive looks, for each stride i in 1..16, for two accesses at
// offset-i and offset-2i; if both are set, the line at offset+i is
// predicted and prefetched (one stride of size i seen twice predicts
// another i ahead). Issues into L2 when MSHR<8, else LLC.
func (a *AMPM) scanPositive(p *ampmPage, page uint64, offset int, addr uint64, sb *sandbox.Sandbox, evaluation bool, cpuNum int32, h host.Host) {
	count := 0
	for i := 1; i <= ampmScanWidth; i++ {
		check1 := offset - i
		check2 := offset - 2*i
		pfIdx := offset + i

		if check2 < 0 {
			break
		}
		if pfIdx > addrspace.LinesPerPage-1 {
			break
		}
		if count >= AmpmDegree {
			break
		}
		if p.accessMap[pfIdx] || p.pfMap[pfIdx] {
			continue
		}
		if p.accessMap[check1] && p.accessMap[check2] {
			pf := addrspace.LineOf(page, pfIdx)
			if !sb.Insert(pf) {
				panic(ErrSandboxFull{Heuristic: IDAMPM})
			}
			if !evaluation {
				if h.MSHROccupancy(cpuNum) < 8 {
					h.PrefetchLine(cpuNum, addr, pf, host.FillL2)
				} else {
					h.PrefetchLine(cpuNum, addr, pf, host.FillLLC)
				}
			}
			p.pfMap[pfIdx] = true
			count++
		}
	}
}

// scanNegative is the mirror of scanPositive, looking ahead of the
// current offset for the repeated-stride evidence and prefetching
// behind it. Issues into L2 when MSHR<12, else LLC — a different
// threshold than the positive scan, preserved from the source (spec.md
// §9).
func (a *AMPM) scanNegative(p *ampmPage, page uint64, offset int, addr uint64, sb *sandbox.Sandbox, evaluation bool, cpuNum int32, h host.Host) {
	count := 0
	for i := 1; i <= ampmScanWidth; i++ {
		check1 := offset + i
		check2 := offset + 2*i
		pfIdx := offset - i

		if check2 > addrspace.LinesPerPage-1 {
			break
		}
		if pfIdx < 0 {
			break
		}
		if count >= AmpmDegree {
			break
		}
		if p.accessMap[pfIdx] || p.pfMap[pfIdx] {
			continue
		}
		if p.accessMap[check1] && p.accessMap[check2] {
			pf := addrspace.LineOf(page, pfIdx)
			if !sb.Insert(pf) {
				panic(ErrSandboxFull{Heuristic: IDAMPM})
			}
			if !evaluation {
				if h.MSHROccupancy(cpuNum) < 12 {
					h.PrefetchLine(cpuNum, addr, pf, host.FillL2)
				} else {
					h.PrefetchLine(cpuNum, addr, pf, host.FillLLC)
				}
			}
			p.pfMap[pfIdx] = true
			count++
		}
	}
}
