package heuristic

import (
	"github.com/ramyadhadidi/DPC2/addrspace"
	"github.com/ramyadhadidi/DPC2/host"
	"github.com/ramyadhadidi/DPC2/sandbox"
)

// streamDetector is one entry of the stream heuristic's fixed detector
// table: the page it watches, its current direction, a confidence
// counter, and the next cache-line index within the page to prefetch.
type streamDetector struct {
	page       uint64
	direction  int
	confidence int
	pfIndex    int
}

// Stream detects a directional access pattern within a page and, once
// confident, prefetches ahead of the stream in that direction.
//
// Replacement is FIFO via a rotating index (spec.md §3/§4.4), not LRU —
// unlike IPStride and AMPM.
type Stream struct {
	detectors       [StreamDetectorCount]streamDetector
	replacementNext int
}

var _ Heuristic = (*Stream)(nil)

// NewStream returns a freshly initialized stream heuristic, matching
// l2_prefetcher_initialize_stream: every detector's pf_index starts at
// -1 (sentinel: "no page assigned yet").
func NewStream() *Stream {
	s := &Stream{}
	for i := range s.detectors {
		s.detectors[i].pfIndex = -1
	}
	return s
}

func (*Stream) ID() ID { return IDStream }

// Observe implements the per-access algorithm of spec.md §4.4: locate (or
// FIFO-allocate) the detector for this page, train its direction and
// confidence against the access offset, then — once confidence>=2 —
// prefetch StreamDegree lines further along the detected direction.
//
// pf_index is resynced to the current access offset whenever the access
// falls on either side of it (in addition to being advanced by the
// prefetch loop itself): this is what makes the prefetch loop project
// forward from the stream's current position rather than from wherever
// the detector happened to sit when confidence last crossed 2 — see
// spec.md §8 S3, which requires exactly this (an up-stream at offsets
// 0,1,2 must prefetch offsets 3,4, not 1,2).
func (s *Stream) Observe(cpuNum int32, addr, ip uint64, now uint64, sb *sandbox.Sandbox, evaluation bool, h host.Host) {
	page := addrspace.PageAddr(addr)
	offset := addrspace.PageOffset(addr)

	idx := -1
	for i := range s.detectors {
		if s.detectors[i].page == page {
			idx = i
			break
		}
	}

	if idx == -1 {
		idx = s.replacementNext
		s.replacementNext++
		if s.replacementNext >= StreamDetectorCount {
			s.replacementNext = 0
		}
		s.detectors[idx] = streamDetector{
			page:       page,
			direction:  0,
			confidence: 0,
			pfIndex:    offset,
		}
	}

	d := &s.detectors[idx]

	switch {
	case offset > d.pfIndex:
		if offset-d.pfIndex < StreamWindow {
			if d.direction == -1 {
				d.confidence = 0
			} else {
				d.confidence++
			}
			d.direction = 1
		}
		d.pfIndex = offset
	case offset < d.pfIndex:
		if d.pfIndex-offset < StreamWindow {
			if d.direction == 1 {
				d.confidence = 0
			} else {
				d.confidence++
			}
			d.direction = -1
		}
		d.pfIndex = offset
	}

	if d.confidence >= 2 {
		for i := 0; i < StreamDegree; i++ {
			d.pfIndex += d.direction
			if d.pfIndex < 0 || d.pfIndex > addrspace.LinesPerPage-1 {
				break
			}

			pf := addrspace.LineOf(page, d.pfIndex)

			if !sb.Insert(pf) {
				panic(ErrSandboxFull{Heuristic: IDStream})
			}

			if !evaluation {
				if h.MSHROccupancy(cpuNum) > 8 {
					h.PrefetchLine(cpuNum, addr, pf, host.FillLLC)
				} else {
					h.PrefetchLine(cpuNum, addr, pf, host.FillL2)
				}
			}
		}
	}
}
