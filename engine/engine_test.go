package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/ramyadhadidi/DPC2/heuristic"
	"github.com/ramyadhadidi/DPC2/host"
	"github.com/ramyadhadidi/DPC2/selector"
)

type fakeHost struct {
	mshr  int32
	cycle uint64
}

func (f *fakeHost) PrefetchLine(int32, uint64, uint64, host.FillLevel) {}
func (f *fakeHost) MSHROccupancy(int32) int32                          { return f.mshr }
func (f *fakeHost) CurrentCycle(int32) uint64                          { f.cycle++; return f.cycle }
func (f *fakeHost) Knobs() host.Knobs                                  { return host.Knobs{} }

func TestInitializeThenOperateSucceeds(t *testing.T) {
	e := New(1, zerolog.Nop())
	h := &fakeHost{}
	e.Initialize(0, h)

	err := e.Operate(0, 0x1000, 0xAA, false, h)
	assert.NoError(t, err)
}

func TestOperateOnUninitializedCPUIsInvariantViolation(t *testing.T) {
	e := New(1, zerolog.Nop())
	h := &fakeHost{}
	err := e.Operate(0, 0x1000, 0xAA, false, h)
	assert.ErrorAs(t, err, &ErrInvariantViolation{})
}

func TestOperateSkipsCacheHits(t *testing.T) {
	e := New(1, zerolog.Nop())
	h := &fakeHost{}
	e.Initialize(0, h)

	before := e.Scores(0)
	err := e.Operate(0, 0x1000, 0xAA, true, h)
	assert.NoError(t, err)
	assert.Equal(t, before, e.Scores(0), "a cache hit must not feed any heuristic")
}

func TestOperateRecoversSandboxOverflowAsInvariantViolation(t *testing.T) {
	e := New(1, zerolog.Nop())
	h := &fakeHost{}
	e.Initialize(0, h)

	cs := e.perCPU[0]
	// Force next-line's sandbox to the brink of overflow: next-line
	// records one candidate on every access, active or not, so the very
	// next Observe call panics with heuristic.ErrSandboxFull.
	sb := cs.sel.Sandbox(heuristic.IDNextLine)
	for sb.Size < sb.MaxSize-1 {
		sb.Insert(uint64(sb.Size) * 64)
	}

	err := e.Operate(0, 0xDEADBEEF, 0xAA, false, h)
	assert.ErrorAs(t, err, &ErrInvariantViolation{})
}

func TestDeterminismAcrossIdenticalSeeds(t *testing.T) {
	run := func() [heuristic.NSandbox]int {
		e := New(42, zerolog.Nop())
		h := &fakeHost{}
		e.Initialize(0, h)
		for i := 0; i < selector.Period*2; i++ {
			assert.NoError(t, e.Operate(0, uint64(0x4000+i*64), 0xAA, false, h))
		}
		return e.Scores(0)
	}

	assert.Equal(t, run(), run())
}
