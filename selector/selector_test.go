package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ramyadhadidi/DPC2/heuristic"
	"github.com/ramyadhadidi/DPC2/host"
)

type fakeHost struct{ mshr int32 }

func (f *fakeHost) PrefetchLine(int32, uint64, uint64, host.FillLevel) {}
func (f *fakeHost) MSHROccupancy(int32) int32                          { return f.mshr }
func (f *fakeHost) CurrentCycle(int32) uint64                          { return 0 }
func (f *fakeHost) Knobs() host.Knobs                                  { return host.Knobs{} }

func alwaysFirst(int) int { return 0 }

func newHeuristicSet() [heuristic.NSandbox]heuristic.Heuristic {
	return [heuristic.NSandbox]heuristic.Heuristic{
		heuristic.IDNextLine: &heuristic.NextLine{},
		heuristic.IDIPStride: heuristic.NewIPStride(),
		heuristic.IDStream:   heuristic.NewStream(),
		heuristic.IDAMPM:     heuristic.NewAMPM(),
	}
}

func TestNewSeedsSandboxesByDegree(t *testing.T) {
	s := New(1, alwaysFirst)
	for i := 0; i < heuristic.NSandbox; i++ {
		id := heuristic.ID(i)
		want := SandboxSizeEach*heuristic.SandboxFactor(id) + 1
		assert.Equal(t, want, s.current[i].MaxSize)
	}
}

func TestNewPicksActiveViaCallback(t *testing.T) {
	s := New(1, func(n int) int { return 2 })
	assert.Equal(t, heuristic.IDStream, s.Active())
}

func TestOperateRejectsCorruptedActive(t *testing.T) {
	s := New(1, alwaysFirst)
	s.active = heuristic.ID(99)
	h := &fakeHost{}
	hs := newHeuristicSet()
	err := s.Operate(0, 0x1000, 0xAA, 0, hs, h)
	assert.ErrorAs(t, err, &ErrUnknownActive{})
}

func TestOperateAdvancesPeriodCounter(t *testing.T) {
	s := New(1, alwaysFirst)
	h := &fakeHost{}
	hs := newHeuristicSet()

	for i := 0; i < Period-1; i++ {
		err := s.Operate(0, uint64(0x1000+i*64), 0xAA, uint64(i), hs, h)
		assert.NoError(t, err)
	}
	assert.Equal(t, Period-1, s.PeriodCount())
}

func TestOperateRotatesAtPeriodBoundary(t *testing.T) {
	s := New(1, alwaysFirst)
	h := &fakeHost{}
	hs := newHeuristicSet()

	for i := 0; i < Period; i++ {
		err := s.Operate(0, uint64(0x1000+i*64), 0xAA, uint64(i), hs, h)
		assert.NoError(t, err)
	}

	assert.Equal(t, 0, s.PeriodCount(), "period counter resets to 0 at rotation")
	for i := 0; i < heuristic.NSandbox; i++ {
		assert.Equal(t, 0, s.current[i].Size, "current sandboxes reset at rotation")
	}
}

func TestArgmaxPersistsAcrossPeriodsWithoutNewHighScore(t *testing.T) {
	// Period 1: the snapshot starts empty, so no heuristic scores and
	// bestScore stays 0; the active heuristic stays at bestIndex 0.
	s := New(1, alwaysFirst)
	h := &fakeHost{}
	hs := newHeuristicSet()

	for i := 0; i < Period; i++ {
		assert.NoError(t, s.Operate(0, uint64(0x1000+i*64), 0xAA, uint64(i), hs, h))
	}
	firstActive := s.Active()
	assert.Equal(t, heuristic.ID(0), firstActive)

	// Period 2 replays the same lines, so period 1's snapshots score and
	// a new maximum is recorded.
	for i := 0; i < Period; i++ {
		assert.NoError(t, s.Operate(0, uint64(0x1000+i*64), 0xAA, uint64(i), hs, h))
	}
	winner := s.Active()
	assert.Greater(t, s.bestScore, 0)

	// Period 3 touches lines no snapshot holds: the decayed scores stay
	// below bestScore, so the period-2 winner remains active.
	for i := 0; i < Period; i++ {
		assert.NoError(t, s.Operate(0, uint64(0x100000+i*64), 0xAA, uint64(i), hs, h))
	}
	assert.Equal(t, winner, s.Active())
}

func TestScoresDecayAtRotation(t *testing.T) {
	s := New(1, alwaysFirst)
	s.scores = [heuristic.NSandbox]int{30, 60, 90, 120}
	s.rotate()
	assert.Equal(t, [heuristic.NSandbox]int{10, 20, 30, 40}, s.scores)
}

func TestRotateSnapshotsIndependentOfCurrent(t *testing.T) {
	s := New(1, alwaysFirst)
	s.current[0].Insert(0xDEAD)
	s.rotate()
	assert.Equal(t, 1, s.snapshot[0].Size)
	assert.Equal(t, 0, s.current[0].Size, "current must be reset after snapshotting")
}
