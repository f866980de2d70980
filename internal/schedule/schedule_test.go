package schedule

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flotillasim/flotilla/internal/cargo"
	"github.com/flotillasim/flotilla/internal/ocean"
)

var (
	portA = ocean.Location{Name: "A", X: 0, Y: 0}
	portB = ocean.Location{Name: "B", X: 0.3, Y: 0}
	portC = ocean.Location{Name: "C", X: 0.3, Y: 0.4}
)

// testVessel moves at 0.1 units/h (A-B 3h, B-C 4h, A-C 5h) and transfers
// 100 units/h. Its position is fixed for the duration of a test.
type testVessel struct {
	position ocean.Position
	hold     *cargo.Hold
}

func newTestVessel(at ocean.Location, capacity float64) *testVessel {
	return &testVessel{
		position: ocean.Moored{Location: at},
		hold:     cargo.NewHold([]cargo.Capacity{{CargoType: "oil", LoadingRate: 100, Capacity: capacity}}),
	}
}

func (v *testVessel) Position() ocean.Position { return v.position }
func (v *testVessel) Speed() float64           { return 0.1 }
func (v *testVessel) TravelTime(distance float64) float64 {
	return distance / v.Speed()
}
func (v *testVessel) LoadingTime(cargoType string, amount float64) float64 {
	return amount / 100
}
func (v *testVessel) HoldSnapshot() *cargo.Hold { return v.hold.Clone() }

func newTestSchedule(t *testing.T, capacity float64) (*Schedule, *float64) {
	t.Helper()
	clock := new(float64)
	vessel := newTestVessel(portA, capacity)
	network := ocean.NewUnitNetwork([]ocean.Location{portA, portB, portC})
	return New(vessel, network, func() float64 { return *clock }), clock
}

func oilTrade(origin, destination ocean.Location, window cargo.TimeWindow) *cargo.Trade {
	return cargo.NewTrade(origin, destination, 100, "oil", 0, window)
}

func TestSchedule_InsertionPoints(t *testing.T) {
	s, _ := newTestSchedule(t, 150)
	assert.Equal(t, []int{1}, s.InsertionPoints())

	require.NoError(t, s.Insert(oilTrade(portA, portC, cargo.TimeWindow{})))
	assert.Equal(t, []int{1, 2, 3}, s.InsertionPoints())

	// After the first arrival executes, nothing may be scheduled before the
	// pending cargo transfer.
	step := s.Pop()
	require.Equal(t, StepArrival, step.Kind)
	assert.Equal(t, []int{2, 3}, s.InsertionPoints())
}

func TestSchedule_InsertAt_Validation(t *testing.T) {
	tests := []struct {
		name    string
		pickup  int
		dropoff int
	}{
		{"dropoff before pickup", 2, 1},
		{"pickup before start", 0, 1},
		{"pickup beyond end", 4, 4},
		{"dropoff beyond end", 1, 4},
		{"dropoff beyond end after trailing pickup", 3, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSchedule(t, 300)
			require.NoError(t, s.Insert(oilTrade(portA, portB, cargo.TimeWindow{})))

			err := s.InsertAt(oilTrade(portB, portC, cargo.TimeWindow{}), tt.pickup, tt.dropoff)
			require.Error(t, err)
			assert.True(t, IsInvalidInsertion(err))
			assert.Equal(t, 2, s.TaskCount(), "failed insert must not change the schedule")
		})
	}
}

func TestSchedule_InsertAt_MidFlightHead(t *testing.T) {
	s, _ := newTestSchedule(t, 300)
	require.NoError(t, s.Insert(oilTrade(portA, portC, cargo.TimeWindow{})))
	require.Equal(t, StepArrival, s.Pop().Kind)

	err := s.InsertAt(oilTrade(portA, portB, cargo.TimeWindow{}), 1, 1)
	require.Error(t, err)
	assert.True(t, IsInvalidInsertion(err))
}

func TestSchedule_InsertAt_Ordering(t *testing.T) {
	s, _ := newTestSchedule(t, 300)
	first := oilTrade(portA, portC, cargo.TimeWindow{})
	second := oilTrade(portB, portC, cargo.TimeWindow{})
	require.NoError(t, s.Insert(first))
	require.NoError(t, s.InsertAt(second, 1, 1))

	tasks := s.Tasks()
	require.Len(t, tasks, 4)
	assert.Equal(t, Pickup, tasks[0].Kind)
	assert.True(t, tasks[0].Trade.Same(second))
	assert.Equal(t, Dropoff, tasks[1].Kind)
	assert.True(t, tasks[1].Trade.Same(second))
	assert.True(t, tasks[2].Trade.Same(first))
	assert.True(t, tasks[3].Trade.Same(first))

	trades := s.Trades()
	require.Len(t, trades, 2)
	assert.True(t, trades[0].Same(second))
	assert.True(t, trades[1].Same(first))
}

func TestSchedule_InsertAt_TrailingPickup(t *testing.T) {
	s, _ := newTestSchedule(t, 300)
	first := oilTrade(portA, portB, cargo.TimeWindow{})
	second := oilTrade(portB, portC, cargo.TimeWindow{})
	require.NoError(t, s.Insert(first))

	// Pickup after all tasks; dropoff in the slot after that.
	require.NoError(t, s.InsertAt(second, 3, 4))
	tasks := s.Tasks()
	require.Len(t, tasks, 4)
	assert.Equal(t, Pickup, tasks[2].Kind)
	assert.True(t, tasks[2].Trade.Same(second))
	assert.Equal(t, Dropoff, tasks[3].Kind)
	assert.True(t, tasks[3].Trade.Same(second))
}

func TestSchedule_VerifyTime(t *testing.T) {
	t.Run("open windows", func(t *testing.T) {
		s, _ := newTestSchedule(t, 150)
		require.NoError(t, s.Insert(oilTrade(portA, portC, cargo.TimeWindow{})))
		assert.True(t, s.VerifyTime())
	})

	t.Run("feasible windows", func(t *testing.T) {
		s, _ := newTestSchedule(t, 150)
		window := cargo.TimeWindow{
			EarliestPickup:  cargo.At(10),
			LatestPickup:    cargo.At(20),
			EarliestDropoff: cargo.At(5),
			LatestDropoff:   cargo.At(30),
		}
		require.NoError(t, s.Insert(oilTrade(portA, portC, window)))
		assert.True(t, s.VerifyTime())
	})

	t.Run("conflicting windows", func(t *testing.T) {
		// Earliest feasible drop-off arrival is pickup (>=10) plus one hour
		// of loading plus five hours A->C, which lands past the latest
		// drop-off of 15.
		s, _ := newTestSchedule(t, 150)
		window := cargo.TimeWindow{
			EarliestPickup:  cargo.At(10),
			LatestPickup:    cargo.At(20),
			EarliestDropoff: cargo.At(5),
			LatestDropoff:   cargo.At(15),
		}
		require.NoError(t, s.Insert(oilTrade(portA, portC, window)))
		assert.False(t, s.VerifyTime())
	})

	t.Run("unreachable port", func(t *testing.T) {
		s, _ := newTestSchedule(t, 150)
		offGrid := ocean.Location{Name: "X", X: 1.5, Y: 0}
		require.NoError(t, s.Insert(oilTrade(offGrid, portC, cargo.TimeWindow{})))
		assert.False(t, s.VerifyTime())
	})
}

func TestSchedule_VerifyCargo(t *testing.T) {
	t.Run("sequential trades fit", func(t *testing.T) {
		s, _ := newTestSchedule(t, 150)
		require.NoError(t, s.Insert(oilTrade(portA, portB, cargo.TimeWindow{})))
		require.NoError(t, s.Insert(oilTrade(portB, portC, cargo.TimeWindow{})))
		assert.True(t, s.VerifyCargo())
	})

	t.Run("overlapping pickups overflow", func(t *testing.T) {
		s, _ := newTestSchedule(t, 150)
		require.NoError(t, s.Insert(oilTrade(portA, portB, cargo.TimeWindow{})))
		// Second pickup before the first drop-off: 200 units in a 150 hold.
		require.NoError(t, s.InsertAt(oilTrade(portA, portC, cargo.TimeWindow{}), 2, 2))
		assert.False(t, s.VerifyCargo())
	})

	t.Run("unknown cargo type", func(t *testing.T) {
		s, _ := newTestSchedule(t, 150)
		require.NoError(t, s.Insert(cargo.NewTrade(portA, portB, 100, "grain", 0, cargo.TimeWindow{})))
		assert.False(t, s.VerifyCargo())
	})
}

func TestSchedule_Pop_Lifecycle(t *testing.T) {
	s, _ := newTestSchedule(t, 150)
	require.NoError(t, s.Insert(oilTrade(portA, portC, cargo.TimeWindow{})))

	// Vessel is moored at the pickup port, so the pickup arrival is
	// immediate; then one hour loading, five hours travel, one hour
	// unloading.
	type want struct {
		kind StepKind
		time float64
	}
	wants := []want{
		{StepArrival, 0},
		{StepTransfer, 1},
		{StepTravel, 6},
		{StepArrival, 6},
		{StepTransfer, 7},
	}
	for _, w := range wants {
		next, ok := s.Next()
		require.True(t, ok)
		step := s.Pop()
		assert.Equal(t, next, step)
		assert.Equal(t, w.kind, step.Kind, "step kind")
		assert.InDelta(t, w.time, step.Time, 1e-9, "step time for %s", w.kind)
	}

	_, ok := s.Next()
	assert.False(t, ok, "schedule should be exhausted")
	assert.Equal(t, 0, s.TaskCount())
}

func TestSchedule_Pop_IdlesUntilWindowOpens(t *testing.T) {
	s, _ := newTestSchedule(t, 150)
	window := cargo.TimeWindow{EarliestPickup: cargo.At(2)}
	require.NoError(t, s.Insert(oilTrade(portA, portC, window)))

	idle := s.Pop()
	assert.Equal(t, StepIdle, idle.Kind)
	assert.InDelta(t, 2, idle.Time, 1e-9)
	assert.Equal(t, portA, idle.Destination)

	arrival := s.Pop()
	assert.Equal(t, StepArrival, arrival.Kind)
	assert.InDelta(t, 2, arrival.Time, 1e-9)
}

func TestSchedule_Pop_Empty(t *testing.T) {
	s, _ := newTestSchedule(t, 150)
	assert.Panics(t, func() { s.Pop() })
}

func TestSchedule_CompletionTime(t *testing.T) {
	s, _ := newTestSchedule(t, 300)
	assert.Zero(t, s.CompletionTime())

	require.NoError(t, s.Insert(oilTrade(portA, portC, cargo.TimeWindow{})))
	assert.InDelta(t, 7, s.CompletionTime(), 1e-9)

	// Append a second trade: 4h back C->B, 1h load, 4h B->C, 1h unload.
	require.NoError(t, s.Insert(oilTrade(portB, portC, cargo.TimeWindow{})))
	assert.InDelta(t, 17, s.CompletionTime(), 1e-9)
}

func TestSchedule_CompletionTime_WindowWait(t *testing.T) {
	s, _ := newTestSchedule(t, 150)
	window := cargo.TimeWindow{EarliestPickup: cargo.At(10)}
	require.NoError(t, s.Insert(oilTrade(portA, portC, window)))
	// Wait until 10, load one hour, travel five, unload one.
	assert.InDelta(t, 17, s.CompletionTime(), 1e-9)
}

func TestSchedule_Copy_Independent(t *testing.T) {
	s, _ := newTestSchedule(t, 300)
	require.NoError(t, s.Insert(oilTrade(portA, portC, cargo.TimeWindow{})))

	c := s.Copy()
	require.NoError(t, c.Insert(oilTrade(portB, portC, cargo.TimeWindow{})))
	assert.Equal(t, 2, s.TaskCount(), "insert on copy must not touch the original")
	assert.Equal(t, 4, c.TaskCount())

	s.Pop()
	assert.False(t, c.Tasks()[0].ArrivalDone, "pop on original must not touch the copy")
}

func TestSchedule_Verify_IdempotentUnderCopy(t *testing.T) {
	s, _ := newTestSchedule(t, 150)
	require.NoError(t, s.Insert(oilTrade(portA, portC, cargo.TimeWindow{})))

	c := s.Copy()
	require.True(t, c.Verify())
	assert.Equal(t, s.Tasks(), c.Tasks())
	assert.True(t, s.Verify())
}

func TestSchedule_HeadBound_TightensOnPop(t *testing.T) {
	// The head bound after each pop pins the next step's committed time so
	// a later verification cannot schedule the head into the past.
	s, clock := newTestSchedule(t, 150)
	window := cargo.TimeWindow{LatestPickup: cargo.At(20), LatestDropoff: cargo.At(6)}
	require.NoError(t, s.Insert(oilTrade(portA, portC, window)))
	require.True(t, s.VerifyTime())

	*clock = 0
	require.Equal(t, StepArrival, s.Pop().Kind)
	require.Equal(t, StepTransfer, s.Pop().Kind)

	// Head is now at hour 1 and the remaining drop-off needs 5h travel plus
	// arrival by 6: still feasible, but only just.
	assert.True(t, s.VerifyTime())

	travel := s.Pop()
	require.Equal(t, StepTravel, travel.Kind)
	assert.InDelta(t, 6, travel.Time, 1e-9)
	assert.True(t, s.VerifyTime())
}

func TestHasNegativeCycle(t *testing.T) {
	assert.False(t, hasNegativeCycle(1, nil))

	// t1 - t0 <= -1 and t0 - t1 <= 0 is a -1 cycle.
	assert.True(t, hasNegativeCycle(2, []edge{{0, 1, -1}, {1, 0, 0}}))
	assert.False(t, hasNegativeCycle(2, []edge{{0, 1, -1}, {1, 0, 1}}))

	// -Inf edges always relax and must be reported.
	assert.True(t, hasNegativeCycle(2, []edge{{0, 1, math.Inf(-1)}}))
}
