package refhost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ramyadhadidi/DPC2/host"
)

func TestPrefetchLineRecordsFillAndIncrementsMSHR(t *testing.T) {
	h := New(4, host.Knobs{})
	h.PrefetchLine(0, 0x1000, 0x1040, host.FillL2)
	h.PrefetchLine(0, 0x1000, 0x1080, host.FillL2)

	assert.Len(t, h.Fills(), 2)
	assert.Equal(t, int32(2), h.MSHROccupancy(0))
}

func TestMSHROccupancyCapsAtCapacity(t *testing.T) {
	h := New(1, host.Knobs{})
	h.PrefetchLine(0, 0, 0x40, host.FillL2)
	h.PrefetchLine(0, 0, 0x80, host.FillL2)

	assert.Equal(t, int32(1), h.MSHROccupancy(0))
	assert.Len(t, h.Fills(), 2, "fills are still recorded past capacity")
}

func TestRetireFreesMSHREntries(t *testing.T) {
	h := New(4, host.Knobs{})
	h.PrefetchLine(0, 0, 0x40, host.FillL2)
	h.PrefetchLine(0, 0, 0x80, host.FillL2)
	h.Retire(0, 1)

	assert.Equal(t, int32(1), h.MSHROccupancy(0))
}

func TestRetireNeverGoesNegative(t *testing.T) {
	h := New(4, host.Knobs{})
	h.Retire(0, 5)
	assert.Equal(t, int32(0), h.MSHROccupancy(0))
}

func TestCurrentCycleIsMonotonicPerCPU(t *testing.T) {
	h := New(4, host.Knobs{})
	assert.Equal(t, uint64(1), h.CurrentCycle(0))
	assert.Equal(t, uint64(2), h.CurrentCycle(0))
	assert.Equal(t, uint64(1), h.CurrentCycle(1), "each cpu has its own independent clock")
}

func TestAccuracyCountsUsefulPrefetches(t *testing.T) {
	h := New(8, host.Knobs{})
	h.PrefetchLine(0, 0x1000, 0x1040, host.FillL2)
	h.PrefetchLine(0, 0x1000, 0x1080, host.FillL2)

	h.RecordDemand(0x1040)

	assert.InDelta(t, 0.5, h.Accuracy(), 1e-9)
}

func TestAccuracyZeroWithNoFills(t *testing.T) {
	h := New(8, host.Knobs{})
	assert.Equal(t, 0.0, h.Accuracy())
}

func TestKnobsRoundTrip(t *testing.T) {
	k := host.Knobs{ScrambleLoads: true, SmallLLC: true, LowBandwidth: false}
	h := New(8, k)
	assert.Equal(t, k, h.Knobs())
}
